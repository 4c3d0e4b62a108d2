// Package reconcile brings the commerce platform fulfillment state in line
// with a carrier status event and hands successful updates to the notifier.
package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-shipnotify/core"
)

// EventNotifier sends the customer message for a reconciled event.
type EventNotifier interface {
	NotifyEvent(ctx context.Context, event core.StatusEvent, class core.StatusClass) bool
}

type Config struct {
	Commerce       core.CommerceClient
	Accounts       *core.AccountDirectory
	Notifier       EventNotifier
	Plans          map[core.StatusClass]Plan
	Logger         core.Logger
	LoggerProvider core.LoggerProvider
	Metrics        core.MetricsRecorder
}

type Reconciler struct {
	commerce core.CommerceClient
	accounts *core.AccountDirectory
	notifier EventNotifier
	plans    map[core.StatusClass]Plan
	observer core.Observer
}

func New(cfg Config) *Reconciler {
	plans := cfg.Plans
	if len(plans) == 0 {
		plans = DefaultPlans("")
	}
	return &Reconciler{
		commerce: cfg.Commerce,
		accounts: cfg.Accounts,
		notifier: cfg.Notifier,
		plans:    plans,
		observer: core.NewObserver("reconcile", cfg.LoggerProvider, cfg.Logger, cfg.Metrics),
	}
}

// Reconcile runs the plan for class against event. Every commerce call is
// attempted once; the first failure aborts the flow.
func (r *Reconciler) Reconcile(ctx context.Context, event core.StatusEvent, class core.StatusClass) core.Result {
	startedAt := time.Now()
	fields := map[string]any{
		"account_code": event.AccountCode,
		"order_id":     event.OrderID,
		"status_class": class.String(),
	}
	result := r.reconcile(ctx, event, class, fields)
	var err error
	if !result.OK {
		err = result
		fields["error_kind"] = string(result.Kind)
	} else if result.Reason != "" {
		fields["reason"] = result.Reason
	}
	r.observer.Observe(ctx, startedAt, "reconcile_"+class.String(), err, fields)
	return result
}

func (r *Reconciler) reconcile(ctx context.Context, event core.StatusEvent, class core.StatusClass, fields map[string]any) core.Result {
	plan, ok := r.plans[class]
	if !ok {
		return core.Failed(core.KindUnsupported, "no reconcile plan for status class "+class.String(), nil)
	}

	if event.IsCloneOrder() {
		if plan.AbortClones {
			return core.Failed(core.KindUnsupported, "clone orders are not reconciled for "+class.String(), nil)
		}
		fields["clone_order"] = true
		return r.notify(ctx, plan, event)
	}
	if r.commerce == nil {
		return core.Failed(core.KindNotConfigured, "commerce client is not configured", nil)
	}

	order, err := r.commerce.ResolveOrder(ctx, event.AccountCode, event.OrderID)
	if err != nil {
		return core.FailedFrom("resolve order", err)
	}
	if plan.GuardTag != "" && order.HasTag(plan.GuardTag) {
		return core.Skipped("order already tagged " + plan.GuardTag)
	}

	fulfillmentID, trackingNumber, result := r.prepareFulfillment(ctx, event, order, fields)
	if !result.OK || result.Reason != "" {
		return result
	}
	fields["fulfillment_id"] = fulfillmentID

	if err := r.commerce.UpdateFulfillmentTracking(ctx, event.AccountCode, fulfillmentID, trackingNumber, class); err != nil {
		return core.FailedFrom("update fulfillment tracking", err)
	}
	if plan.GuardTag != "" {
		if err := r.commerce.UpdateTags(ctx, event.AccountCode, order, plan.GuardTag); err != nil {
			return core.FailedFrom("tag order", err)
		}
	}
	return r.notify(ctx, plan, event)
}

// prepareFulfillment returns the fulfillment to update and the tracking number
// to push. A fulfilled order whose record already carries the AWB gets an
// empty tracking number so only the status event is sent. A successful result
// with a reason ends the flow early.
func (r *Reconciler) prepareFulfillment(
	ctx context.Context,
	event core.StatusEvent,
	order core.OrderHandle,
	fields map[string]any,
) (int64, string, core.Result) {
	awb := strings.TrimSpace(event.AWB)
	if order.IsFulfilled() {
		if len(order.Fulfillments) == 0 {
			return 0, "", core.Failed(core.KindLookupNotFound, "fulfilled order has no fulfillment record", nil)
		}
		record := order.Fulfillments[0]
		id, ok := record.NumericID()
		if !ok {
			return 0, "", core.Failed(core.KindLookupNotFound, "fulfillment record has no id", nil)
		}
		if awb != "" && strings.TrimSpace(record.TrackingNumber) == awb {
			fields["tracking_unchanged"] = true
			return id, "", core.Succeeded("")
		}
		return id, awb, core.Succeeded("")
	}

	list, err := r.commerce.FulfillmentOrders(ctx, event.AccountCode, order)
	if err != nil {
		return 0, "", core.FailedFrom("list fulfillment orders", err)
	}
	fulfillmentOrderID, ok := core.PickOpenFulfillmentOrder(list)
	if !ok {
		return 0, "", core.Failed(core.KindLookupNotFound, "no open fulfillment order", nil)
	}
	fields["fulfillment_order_id"] = fulfillmentOrderID

	account, _ := r.accounts.Lookup(event.AccountCode)
	id, err := r.commerce.CreateFulfillment(ctx, event.AccountCode, order, fulfillmentOrderID, awb, account.TrackingURL(awb))
	if err != nil {
		return 0, "", core.FailedFrom("create fulfillment", err)
	}
	return id, awb, core.Succeeded("")
}

func (r *Reconciler) notify(ctx context.Context, plan Plan, event core.StatusEvent) core.Result {
	if !plan.Notify {
		return core.Succeeded("")
	}
	if r.notifier == nil {
		return core.Failed(core.KindNotConfigured, "notifier is not configured", nil)
	}
	if !r.notifier.NotifyEvent(ctx, event, plan.Class) {
		return core.Failed(core.KindExternalAPI, "notification was not sent", nil)
	}
	return core.Succeeded("")
}
