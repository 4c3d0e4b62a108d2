package command

import (
	"strings"

	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/orchestrator"
	"github.com/goliatone/go-shipnotify/reminder"
)

const (
	TypeProcessStatusBatch    = "shipnotify.command.status_batch.process"
	TypeProcessOrderCreated   = "shipnotify.command.order_created.process"
	TypeScheduleAbandonedCart = "shipnotify.command.abandoned_cart.schedule"
)

const (
	fieldEvents    = "events"
	fieldOrderName = "name"
	fieldCartToken = "cart_token"
)

type ProcessStatusBatchMessage struct {
	Events []core.StatusEvent
}

func (ProcessStatusBatchMessage) Type() string { return TypeProcessStatusBatch }

func (m ProcessStatusBatchMessage) Validate() error {
	if len(m.Events) == 0 {
		return commandValidationError(fieldEvents, "at least one status event is required")
	}
	return nil
}

type ProcessOrderCreatedMessage struct {
	Webhook    orchestrator.OrderCreatedWebhook
	ShopDomain string
}

func (ProcessOrderCreatedMessage) Type() string { return TypeProcessOrderCreated }

// Validate only checks the order name; phone and account problems are flow
// outcomes recorded in the ledger.
func (m ProcessOrderCreatedMessage) Validate() error {
	if strings.TrimSpace(m.Webhook.Name) == "" {
		return commandValidationError(fieldOrderName, "order name is required")
	}
	return nil
}

type ScheduleAbandonedCartMessage struct {
	Webhook reminder.AbandonedCartWebhook
}

func (ScheduleAbandonedCartMessage) Type() string { return TypeScheduleAbandonedCart }

func (m ScheduleAbandonedCartMessage) Validate() error {
	if m.Webhook.CartToken() == "" {
		return commandValidationError(fieldCartToken, "cart token or cart id is required")
	}
	return nil
}
