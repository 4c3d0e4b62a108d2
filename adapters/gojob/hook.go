package gojob

import (
	"context"

	"github.com/goliatone/go-job/queue/worker"
	"github.com/goliatone/go-shipnotify/core"
)

// ObserverHook reports worker lifecycle events through a core.Observer.
type ObserverHook struct {
	observer core.Observer
}

func NewObserverHook(observer core.Observer) *ObserverHook {
	return &ObserverHook{observer: observer}
}

func (h *ObserverHook) OnStart(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.observer.Debug(ctx, "reminder job started", eventFields(event))
}

func (h *ObserverHook) OnSuccess(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.observer.Observe(ctx, event.StartedAt, "reminder_job", nil, eventFields(event))
}

func (h *ObserverHook) OnFailure(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	h.observer.Observe(ctx, event.StartedAt, "reminder_job", event.Err, eventFields(event))
}

func (h *ObserverHook) OnRetry(ctx context.Context, event worker.Event) {
	if h == nil {
		return
	}
	fields := eventFields(event)
	fields["delay"] = event.Delay.String()
	if event.Err != nil {
		fields["error"] = event.Err.Error()
	}
	h.observer.Warn(ctx, "reminder job scheduled for retry", fields)
	h.observer.Count(ctx, "reminder_job.retry", nil)
}

func eventFields(event worker.Event) map[string]any {
	fields := map[string]any{"attempt": event.Attempt}
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	if message != nil {
		fields["job_id"] = message.JobID
		fields["idempotency_key"] = message.IdempotencyKey
	}
	return fields
}

var _ worker.Hook = (*ObserverHook)(nil)
