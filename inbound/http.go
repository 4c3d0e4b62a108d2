package inbound

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/webhooks"
)

const (
	PathStatusBatch   = "/webhook"
	PathOrderCreated  = "/webhook/shopify/order-created"
	PathCartAbandoned = "/webhook/cart-abandoned"
	PathHealth        = "/webhook/health"

	DefaultMaxBodyBytes int64 = 5 << 20
)

// Handler serves the webhook routes on top of a Dispatcher.
type Handler struct {
	dispatcher   *Dispatcher
	serviceName  string
	maxBodyBytes int64
	observer     core.Observer
	mux          *http.ServeMux
}

type HandlerOption func(*Handler)

func WithServiceName(name string) HandlerOption {
	return func(h *Handler) {
		if strings.TrimSpace(name) != "" {
			h.serviceName = strings.TrimSpace(name)
		}
	}
}

func WithMaxBodyBytes(limit int64) HandlerOption {
	return func(h *Handler) {
		if limit > 0 {
			h.maxBodyBytes = limit
		}
	}
}

func WithObserver(observer core.Observer) HandlerOption {
	return func(h *Handler) {
		h.observer = observer
	}
}

func NewHandler(dispatcher *Dispatcher, opts ...HandlerOption) *Handler {
	h := &Handler{
		dispatcher:   dispatcher,
		serviceName:  core.DefaultServiceName,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+PathStatusBatch, h.surface(SurfaceStatusBatch))
	mux.HandleFunc("POST "+PathOrderCreated, h.surface(SurfaceOrderCreated))
	mux.HandleFunc("POST "+PathCartAbandoned, h.surface(SurfaceCartAbandoned))
	mux.HandleFunc("GET "+PathHealth, h.health)
	h.mux = mux
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": h.serviceName})
}

func (h *Handler) surface(surface string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		startedAt := time.Now()
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				err = inboundError("inbound: request body too large", goerrors.CategoryBadInput, core.ErrorBadInput, map[string]any{
					"limit": tooLarge.Limit,
				})
			} else {
				err = inboundWrapError(err, goerrors.CategoryBadInput, core.ErrorBadInput, "inbound: read request body", nil)
			}
			h.observer.Observe(ctx, startedAt, "inbound_"+surface, err, nil)
			writeError(w, err)
			return
		}

		wr := webhooks.FromHTTP(r, body)
		req := Request{
			Surface:    surface,
			Headers:    wr.Headers,
			Body:       body,
			DeliveryID: deliveryID(wr),
		}
		result, err := h.dispatcher.Dispatch(ctx, req)
		h.observer.Observe(ctx, startedAt, "inbound_"+surface, err, map[string]any{
			"delivery_id": req.DeliveryID,
			"deduped":     result.Deduped,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, result.StatusCode, result.Body)
	}
}

func deliveryID(req webhooks.Request) string {
	for _, header := range []string{webhooks.HeaderShopifyWebhookID, "Idempotency-Key", "X-Idempotency-Key"} {
		if value := req.Header(header); value != "" {
			return value
		}
	}
	return ""
}

type errorResponse struct {
	Success bool        `json:"success"`
	Error   errorDetail `json:"error"`
}

type errorDetail struct {
	Category string         `json:"category"`
	Code     int            `json:"code"`
	TextCode string         `json:"text_code"`
	Message  string         `json:"message"`
	Fields   []fieldError   `json:"fields,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	mapped := core.MapError(err)
	if mapped == nil {
		mapped = core.NewError("inbound: unknown failure", goerrors.CategoryInternal, core.ErrorInternal, nil)
	}
	detail := errorDetail{
		Category: string(mapped.Category),
		Code:     mapped.Code,
		TextCode: mapped.TextCode,
		Message:  mapped.Message,
		Metadata: mapped.Metadata,
	}
	for _, field := range mapped.AllValidationErrors() {
		detail.Fields = append(detail.Fields, fieldError{Field: field.Field, Message: field.Message})
	}
	writeJSON(w, mapped.Code, errorResponse{Success: false, Error: detail})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}
