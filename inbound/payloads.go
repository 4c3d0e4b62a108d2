package inbound

import (
	"bytes"
	"encoding/json"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/orchestrator"
	"github.com/goliatone/go-shipnotify/reminder"
)

type statusEnvelope struct {
	Orders []core.StatusEvent `json:"orders"`
	Data   []core.StatusEvent `json:"data"`
	Body   *struct {
		Orders []core.StatusEvent `json:"orders"`
	} `json:"body"`
}

// DecodeStatusEvents accepts a bare array, {"orders": [...]}, {"data": [...]},
// a {"body": {"orders": [...]}} wrapper or a single event object.
func DecodeStatusEvents(body []byte) ([]core.StatusEvent, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, inboundBadInput("inbound: empty webhook payload", nil)
	}
	if trimmed[0] == '[' {
		var events []core.StatusEvent
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil, decodeError(err, SurfaceStatusBatch)
		}
		return requireEvents(events)
	}

	var envelope statusEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, decodeError(err, SurfaceStatusBatch)
	}
	switch {
	case len(envelope.Orders) > 0:
		return envelope.Orders, nil
	case len(envelope.Data) > 0:
		return envelope.Data, nil
	case envelope.Body != nil && len(envelope.Body.Orders) > 0:
		return envelope.Body.Orders, nil
	}

	var single core.StatusEvent
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, decodeError(err, SurfaceStatusBatch)
	}
	if single == (core.StatusEvent{}) {
		return nil, inboundBadInput("inbound: empty webhook payload", nil)
	}
	return []core.StatusEvent{single}, nil
}

func requireEvents(events []core.StatusEvent) ([]core.StatusEvent, error) {
	if len(events) == 0 {
		return nil, inboundBadInput("inbound: empty webhook payload", nil)
	}
	return events, nil
}

func DecodeOrderCreated(body []byte) (orchestrator.OrderCreatedWebhook, error) {
	var webhook orchestrator.OrderCreatedWebhook
	if err := json.Unmarshal(bytes.TrimSpace(body), &webhook); err != nil {
		return orchestrator.OrderCreatedWebhook{}, decodeError(err, SurfaceOrderCreated)
	}
	return webhook, nil
}

// DecodeAbandonedCarts accepts the provider's array form or a single object.
func DecodeAbandonedCarts(body []byte) ([]reminder.AbandonedCartWebhook, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, inboundBadInput("inbound: empty webhook payload", nil)
	}
	if trimmed[0] == '[' {
		var carts []reminder.AbandonedCartWebhook
		if err := json.Unmarshal(trimmed, &carts); err != nil {
			return nil, decodeError(err, SurfaceCartAbandoned)
		}
		if len(carts) == 0 {
			return nil, inboundBadInput("inbound: empty webhook payload", nil)
		}
		return carts, nil
	}
	var cart reminder.AbandonedCartWebhook
	if err := json.Unmarshal(trimmed, &cart); err != nil {
		return nil, decodeError(err, SurfaceCartAbandoned)
	}
	return []reminder.AbandonedCartWebhook{cart}, nil
}

func decodeError(err error, surface string) error {
	return inboundWrapError(err, goerrors.CategoryBadInput, core.ErrorBadInput, "inbound: malformed webhook payload", map[string]any{
		"surface": surface,
	})
}
