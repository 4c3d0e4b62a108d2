// Package orchestrator validates carrier status events, filters duplicates
// and routes each event to the reconcile plan for its status class.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/notify"
	"github.com/goliatone/go-shipnotify/status"
)

type Reconciler interface {
	Reconcile(ctx context.Context, event core.StatusEvent, class core.StatusClass) core.Result
}

// Dispatcher is the notification surface used by the orchestrator flows.
type Dispatcher interface {
	Notify(ctx context.Context, n notify.Notification) bool
	AlreadyNotified(ctx context.Context, accountCode string, orderID string, kind core.MessageKind) bool
}

type Config struct {
	Reconciler     Reconciler
	Dispatcher     Dispatcher
	Accounts       *core.AccountDirectory
	Logger         core.Logger
	LoggerProvider core.LoggerProvider
	Metrics        core.MetricsRecorder
}

type Orchestrator struct {
	reconciler Reconciler
	dispatcher Dispatcher
	accounts   *core.AccountDirectory
	observer   core.Observer
}

func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		reconciler: cfg.Reconciler,
		dispatcher: cfg.Dispatcher,
		accounts:   cfg.Accounts,
		observer:   core.NewObserver("orchestrator", cfg.LoggerProvider, cfg.Logger, cfg.Metrics),
	}
}

// Process handles one event. It never returns an error or panics; every
// outcome is reported through the Result.
func (o *Orchestrator) Process(ctx context.Context, event core.StatusEvent) (result core.Result) {
	startedAt := time.Now()
	class := status.Classify(event.CurrentStatus)
	fields := map[string]any{
		"account_code":   event.AccountCode,
		"order_id":       event.OrderID,
		"current_status": event.CurrentStatus,
		"status_class":   class.String(),
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			result = core.Failed(core.KindInternal, fmt.Sprintf("panic while processing event: %v", recovered), nil)
		}
		var err error
		if !result.OK {
			err = result
			fields["error_kind"] = string(result.Kind)
		} else if result.Reason != "" {
			fields["reason"] = result.Reason
		}
		o.observer.Observe(ctx, startedAt, "process_event", err, fields)
	}()
	return o.process(ctx, event, class)
}

func (o *Orchestrator) process(ctx context.Context, event core.StatusEvent, class core.StatusClass) core.Result {
	if err := event.Validate(); err != nil {
		return core.FailedFrom("invalid status event", err)
	}
	if status.Unchanged(event.CurrentStatus, event.PreviousStatus) {
		return core.Skipped("status unchanged")
	}
	if kind, ok := class.MessageKind(); ok && o.dispatcher != nil {
		if o.dispatcher.AlreadyNotified(ctx, event.AccountCode, event.OrderID, kind) {
			return core.Skipped("already notified for " + string(kind))
		}
	}

	switch class {
	case core.StatusClassFulfilled, core.StatusClassInTransit, core.StatusClassOutForDelivery, core.StatusClassDelivered:
	case core.StatusClassReturnToOrigin:
		return core.Failed(core.KindUnsupported, "return to origin has no flow", nil)
	default:
		return core.Failed(core.KindUnsupported, "unknown shipment status "+event.CurrentStatus, nil)
	}
	if o.reconciler == nil {
		return core.Failed(core.KindNotConfigured, "reconciler is not configured", nil)
	}
	return o.reconciler.Reconcile(ctx, event, class)
}

// ProcessBatch processes events sequentially. A failed event never stops its
// siblings; a cancelled context fails the remaining events.
func (o *Orchestrator) ProcessBatch(ctx context.Context, events []core.StatusEvent) core.BatchReport {
	startedAt := time.Now()
	var report core.BatchReport
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			report.Add(core.Failed(core.KindInternal, "batch cancelled", err))
			continue
		}
		report.Add(o.Process(ctx, event))
	}
	o.observer.Observe(ctx, startedAt, "process_batch", nil, map[string]any{
		"total":     report.Total,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
	})
	return report
}
