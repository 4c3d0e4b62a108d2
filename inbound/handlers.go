package inbound

import (
	"context"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/orchestrator"
	"github.com/goliatone/go-shipnotify/reminder"
	"github.com/goliatone/go-shipnotify/webhooks"
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

type resultView struct {
	OrderID string `json:"order_id,omitempty"`
	Success bool   `json:"success"`
	Kind    string `json:"kind,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type batchResponse struct {
	Success   bool         `json:"success"`
	Total     int          `json:"total"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Results   []resultView `json:"results"`
}

// StatusBatchHandler runs every event of the batch. Individual failures are
// reported in the body, the delivery itself succeeds.
func StatusBatchHandler(processor BatchProcessor) SurfaceHandler {
	return SurfaceHandlerFunc(func(ctx context.Context, req Request) (Result, error) {
		if processor == nil {
			return Result{}, inboundError("inbound: batch processor is not configured", goerrors.CategoryInternal, core.ErrorInternal, nil)
		}
		events, err := DecodeStatusEvents(req.Body)
		if err != nil {
			return Result{}, err
		}
		report := processor.ProcessBatch(ctx, events)
		response := batchResponse{
			Success:   true,
			Total:     report.Total,
			Succeeded: report.Succeeded,
			Failed:    report.Failed,
			Results:   make([]resultView, 0, len(report.Results)),
		}
		for i, result := range report.Results {
			view := viewOf(result)
			if i < len(events) {
				view.OrderID = events[i].OrderID
			}
			response.Results = append(response.Results, view)
		}
		return Result{StatusCode: http.StatusOK, Body: response}, nil
	})
}

func OrderCreatedHandler(processor OrderCreatedProcessor) SurfaceHandler {
	return SurfaceHandlerFunc(func(ctx context.Context, req Request) (Result, error) {
		if processor == nil {
			return Result{}, inboundError("inbound: order-created processor is not configured", goerrors.CategoryInternal, core.ErrorInternal, nil)
		}
		webhook, err := DecodeOrderCreated(req.Body)
		if err != nil {
			return Result{}, err
		}
		shop := strings.TrimSpace(req.Header(webhooks.HeaderShopifyShop))
		result := processor.ProcessOrderCreated(ctx, webhook, shop)
		view := viewOf(result)
		view.OrderID = webhook.Name
		return Result{StatusCode: resultStatus(result), Body: view}, nil
	})
}

type cartResponse struct {
	Success   bool         `json:"success"`
	Scheduled int          `json:"scheduled"`
	Results   []resultView `json:"results"`
}

// CartAbandonedHandler accepts every cart in the payload.
func CartAbandonedHandler(acceptor CartAcceptor) SurfaceHandler {
	return SurfaceHandlerFunc(func(ctx context.Context, req Request) (Result, error) {
		if acceptor == nil {
			return Result{}, inboundError("inbound: abandoned cart flow is not configured", goerrors.CategoryInternal, core.ErrorInternal, nil)
		}
		carts, err := DecodeAbandonedCarts(req.Body)
		if err != nil {
			return Result{}, err
		}
		response := cartResponse{Success: true, Results: make([]resultView, 0, len(carts))}
		status := http.StatusOK
		for _, cart := range carts {
			result := acceptor.Accept(ctx, cart)
			view := viewOf(result)
			view.OrderID = cart.CartToken()
			if result.OK && result.Reason == reminder.ReasonScheduled {
				response.Scheduled++
			}
			if !result.OK {
				response.Success = false
				if len(carts) == 1 {
					status = resultStatus(result)
				}
			}
			response.Results = append(response.Results, view)
		}
		return Result{StatusCode: status, Body: response}, nil
	})
}

func viewOf(result core.Result) resultView {
	return resultView{
		Success: result.OK,
		Kind:    string(result.Kind),
		Reason:  result.Reason,
	}
}

// resultStatus maps a single-flow outcome onto the response status. Provider
// failures answer 200 with success=false: the ledger already holds the failed
// tag and a redelivery would be skipped anyway.
func resultStatus(result core.Result) int {
	if result.OK {
		return http.StatusOK
	}
	switch result.Kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindNotConfigured:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}
