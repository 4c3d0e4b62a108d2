package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-shipnotify/adapters/gocommand"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/orchestrator"
	"github.com/goliatone/go-shipnotify/reminder"
)

type Services struct {
	Batch        BatchProcessor
	OrderCreated OrderCreatedProcessor
	Carts        CartAcceptor
}

// Register subscribes one commander per configured service and records it in
// the registry. Callers unsubscribe the returned subscriptions on shutdown.
func Register(adapter *gocommand.RegistryAdapter, services Services) ([]commanddispatcher.Subscription, error) {
	var subs []commanddispatcher.Subscription
	rollback := func(err error) ([]commanddispatcher.Subscription, error) {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
		return nil, err
	}
	if services.Batch != nil {
		sub, err := gocommand.RegisterAndSubscribe[ProcessStatusBatchMessage](adapter, NewProcessStatusBatchCommand(services.Batch))
		if err != nil {
			return rollback(err)
		}
		subs = append(subs, sub)
	}
	if services.OrderCreated != nil {
		sub, err := gocommand.RegisterAndSubscribe[ProcessOrderCreatedMessage](adapter, NewProcessOrderCreatedCommand(services.OrderCreated))
		if err != nil {
			return rollback(err)
		}
		subs = append(subs, sub)
	}
	if services.Carts != nil {
		sub, err := gocommand.RegisterAndSubscribe[ScheduleAbandonedCartMessage](adapter, NewScheduleAbandonedCartCommand(services.Carts))
		if err != nil {
			return rollback(err)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// Gateway runs the flows through the command dispatcher and returns the
// results the commanders stored. It satisfies the inbound processor
// interfaces.
type Gateway struct{}

func (Gateway) ProcessBatch(ctx context.Context, events []core.StatusEvent) core.BatchReport {
	report, err := dispatchFor[core.BatchReport](ctx, ProcessStatusBatchMessage{Events: events})
	if err != nil {
		failed := core.FailedFrom("dispatch status batch", err)
		var out core.BatchReport
		for range events {
			out.Add(failed)
		}
		return out
	}
	return report
}

func (Gateway) ProcessOrderCreated(ctx context.Context, webhook orchestrator.OrderCreatedWebhook, shopDomain string) core.Result {
	result, err := dispatchFor[core.Result](ctx, ProcessOrderCreatedMessage{Webhook: webhook, ShopDomain: shopDomain})
	if err != nil {
		return core.FailedFrom("dispatch order created", err)
	}
	return result
}

func (Gateway) Accept(ctx context.Context, webhook reminder.AbandonedCartWebhook) core.Result {
	result, err := dispatchFor[core.Result](ctx, ScheduleAbandonedCartMessage{Webhook: webhook})
	if err != nil {
		return core.FailedFrom("dispatch abandoned cart", err)
	}
	return result
}

func dispatchFor[R any, T any](ctx context.Context, msg T) (R, error) {
	var zero R
	if validator, ok := any(msg).(interface{ Validate() error }); ok {
		if err := validator.Validate(); err != nil {
			return zero, err
		}
	}
	if err := gocommand.ValidateMessageContract(msg); err != nil {
		return zero, err
	}
	collector := gocmd.NewResult[R]()
	if err := gocommand.Dispatch(gocmd.ContextWithResult(ctx, collector), msg); err != nil {
		return zero, err
	}
	value, ok := collector.Load()
	if !ok {
		return zero, commandDependencyError("command: no result stored for " + messageType(msg))
	}
	return value, nil
}

func messageType(msg any) string {
	if typed, ok := msg.(interface{ Type() string }); ok {
		return typed.Type()
	}
	return "message"
}
