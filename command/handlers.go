package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/orchestrator"
	"github.com/goliatone/go-shipnotify/reminder"
)

type BatchProcessor interface {
	ProcessBatch(ctx context.Context, events []core.StatusEvent) core.BatchReport
}

type OrderCreatedProcessor interface {
	ProcessOrderCreated(ctx context.Context, webhook orchestrator.OrderCreatedWebhook, shopDomain string) core.Result
}

type CartAcceptor interface {
	Accept(ctx context.Context, webhook reminder.AbandonedCartWebhook) core.Result
}

var (
	_ gocmd.Commander[ProcessStatusBatchMessage]    = (*ProcessStatusBatchCommand)(nil)
	_ gocmd.Commander[ProcessOrderCreatedMessage]   = (*ProcessOrderCreatedCommand)(nil)
	_ gocmd.Commander[ScheduleAbandonedCartMessage] = (*ScheduleAbandonedCartCommand)(nil)
)

type ProcessStatusBatchCommand struct {
	processor BatchProcessor
}

func NewProcessStatusBatchCommand(processor BatchProcessor) *ProcessStatusBatchCommand {
	return &ProcessStatusBatchCommand{processor: processor}
}

// Execute stores the core.BatchReport. Per-event failures live in the report,
// they never fail the command.
func (c *ProcessStatusBatchCommand) Execute(ctx context.Context, msg ProcessStatusBatchMessage) error {
	if c == nil || c.processor == nil {
		return commandDependencyError("command: status batch processor is required")
	}
	storeResult(ctx, c.processor.ProcessBatch(ctx, msg.Events))
	return nil
}

type ProcessOrderCreatedCommand struct {
	processor OrderCreatedProcessor
}

func NewProcessOrderCreatedCommand(processor OrderCreatedProcessor) *ProcessOrderCreatedCommand {
	return &ProcessOrderCreatedCommand{processor: processor}
}

func (c *ProcessOrderCreatedCommand) Execute(ctx context.Context, msg ProcessOrderCreatedMessage) error {
	if c == nil || c.processor == nil {
		return commandDependencyError("command: order-created processor is required")
	}
	storeResult(ctx, c.processor.ProcessOrderCreated(ctx, msg.Webhook, msg.ShopDomain))
	return nil
}

type ScheduleAbandonedCartCommand struct {
	acceptor CartAcceptor
}

func NewScheduleAbandonedCartCommand(acceptor CartAcceptor) *ScheduleAbandonedCartCommand {
	return &ScheduleAbandonedCartCommand{acceptor: acceptor}
}

func (c *ScheduleAbandonedCartCommand) Execute(ctx context.Context, msg ScheduleAbandonedCartMessage) error {
	if c == nil || c.acceptor == nil {
		return commandDependencyError("command: abandoned cart flow is required")
	}
	storeResult(ctx, c.acceptor.Accept(ctx, msg.Webhook))
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
