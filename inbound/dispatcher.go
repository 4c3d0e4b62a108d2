package inbound

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/webhooks"
)

const (
	SurfaceStatusBatch   = "status_batch"
	SurfaceOrderCreated  = "order_created"
	SurfaceCartAbandoned = "cart_abandoned"
)

const DefaultClaimTTL = 10 * time.Minute

type Request struct {
	Surface    string
	Headers    map[string]string
	Body       []byte
	DeliveryID string
}

func (r Request) Header(key string) string {
	return r.webhook().Header(key)
}

func (r Request) webhook() webhooks.Request {
	return webhooks.Request{Headers: r.Headers, Body: r.Body}
}

type Result struct {
	StatusCode int
	Body       any
	Deduped    bool
}

type SurfaceHandler interface {
	Handle(ctx context.Context, req Request) (Result, error)
}

type SurfaceHandlerFunc func(ctx context.Context, req Request) (Result, error)

func (f SurfaceHandlerFunc) Handle(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// ClaimStore guards provider deliveries. Claim returns accepted=false while a
// delivery with the same key is in flight or completed inside its window.
type ClaimStore interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (claimID string, accepted bool, err error)
	Complete(ctx context.Context, claimID string) error
	Fail(ctx context.Context, claimID string, cause error) error
}

type route struct {
	handler  SurfaceHandler
	verifier webhooks.Verifier
}

type Dispatcher struct {
	Store  ClaimStore
	KeyTTL time.Duration

	mu     sync.RWMutex
	routes map[string]route
}

func NewDispatcher(store ClaimStore) *Dispatcher {
	return &Dispatcher{
		Store:  store,
		KeyTTL: DefaultClaimTTL,
		routes: map[string]route{},
	}
}

// Register binds handler to surface. A nil verifier accepts every request.
func (d *Dispatcher) Register(surface string, handler SurfaceHandler, verifier webhooks.Verifier) error {
	if d == nil {
		return inboundInternal("inbound: dispatcher is nil", nil)
	}
	if handler == nil {
		return inboundBadInput("inbound: handler is nil", nil)
	}
	surface = normalizeSurface(surface)
	if !isSupportedSurface(surface) {
		return inboundBadInput(fmt.Sprintf("inbound: unsupported surface %q", surface), map[string]any{"surface": surface})
	}
	if verifier == nil {
		verifier = webhooks.Skip
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.routes == nil {
		d.routes = map[string]route{}
	}
	if _, exists := d.routes[surface]; exists {
		return inboundError(
			fmt.Sprintf("inbound: handler already registered for surface %q", surface),
			goerrors.CategoryConflict,
			core.ErrorBadInput,
			map[string]any{"surface": surface},
		)
	}
	d.routes[surface] = route{handler: handler, verifier: verifier}
	return nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	if d == nil {
		return Result{}, inboundInternal("inbound: dispatcher is nil", nil)
	}
	req.Surface = normalizeSurface(req.Surface)
	req.DeliveryID = strings.TrimSpace(req.DeliveryID)
	meta := map[string]any{"surface": req.Surface}

	r, ok := d.routeFor(req.Surface)
	if !ok {
		return Result{}, inboundError(
			fmt.Sprintf("inbound: no handler registered for surface %q", req.Surface),
			goerrors.CategoryNotFound,
			core.ErrorUnsupported,
			meta,
		)
	}
	if err := r.verifier.Verify(ctx, req.webhook()); err != nil {
		return Result{StatusCode: http.StatusUnauthorized}, inboundWrapError(
			err,
			goerrors.CategoryAuth,
			core.ErrorUnauthorized,
			"inbound: request verification failed",
			meta,
		)
	}
	if len(req.Body) == 0 {
		return Result{}, inboundBadInput("inbound: request body is required", meta)
	}

	claimID := ""
	if d.Store != nil && req.DeliveryID != "" {
		var accepted bool
		var err error
		claimID, accepted, err = d.Store.Claim(ctx, req.Surface+":"+req.DeliveryID, d.keyTTL())
		if err != nil {
			return Result{}, inboundWrapError(err, goerrors.CategoryInternal, core.ErrorInternal, "inbound: delivery claim failed", map[string]any{
				"surface":     req.Surface,
				"delivery_id": req.DeliveryID,
			})
		}
		if !accepted {
			return Result{
				StatusCode: http.StatusOK,
				Body:       map[string]any{"success": true, "deduped": true},
				Deduped:    true,
			}, nil
		}
	}

	result, err := r.handler.Handle(ctx, req)
	if err == nil && result.StatusCode >= http.StatusInternalServerError {
		err = inboundError(
			fmt.Sprintf("inbound: handler returned retryable status %d", result.StatusCode),
			goerrors.CategoryExternal,
			core.ErrorExternalFailure,
			map[string]any{"surface": req.Surface, "status_code": result.StatusCode},
		)
	}
	if err != nil {
		if claimID != "" {
			if failErr := d.Store.Fail(ctx, claimID, err); failErr != nil {
				return result, errors.Join(err, inboundWrapError(
					failErr,
					goerrors.CategoryInternal,
					core.ErrorInternal,
					"inbound: release delivery claim",
					map[string]any{"surface": req.Surface, "claim_id": claimID},
				))
			}
		}
		return result, err
	}
	if claimID != "" {
		if err := d.Store.Complete(ctx, claimID); err != nil {
			return Result{}, inboundWrapError(err, goerrors.CategoryInternal, core.ErrorInternal, "inbound: complete delivery claim", map[string]any{
				"surface":  req.Surface,
				"claim_id": claimID,
			})
		}
	}
	if result.StatusCode == 0 {
		result.StatusCode = http.StatusOK
	}
	return result, nil
}

func (d *Dispatcher) keyTTL() time.Duration {
	if d != nil && d.KeyTTL > 0 {
		return d.KeyTTL
	}
	return DefaultClaimTTL
}

func (d *Dispatcher) routeFor(surface string) (route, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.routes[normalizeSurface(surface)]
	return r, ok
}

func normalizeSurface(surface string) string {
	return strings.TrimSpace(strings.ToLower(surface))
}

func isSupportedSurface(surface string) bool {
	switch surface {
	case SurfaceStatusBatch, SurfaceOrderCreated, SurfaceCartAbandoned:
		return true
	default:
		return false
	}
}
