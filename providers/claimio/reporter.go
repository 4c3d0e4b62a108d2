// Package claimio mirrors customer message outcomes to the Claimio message
// tracking backend.
package claimio

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/transport"
)

const messageTrackingPath = "/api/orders/message-tracking"

type Config struct {
	Backend        core.TrackingBackendConfig
	HTTPClient     transport.HTTPDoer
	Logger         core.Logger
	LoggerProvider core.LoggerProvider
	Metrics        core.MetricsRecorder
}

type Reporter struct {
	backend  core.TrackingBackendConfig
	rest     *transport.RESTAdapter
	observer core.Observer
}

func NewReporter(cfg Config) *Reporter {
	return &Reporter{
		backend:  cfg.Backend,
		rest:     transport.NewRESTAdapter(cfg.HTTPClient),
		observer: core.NewObserver("claimio", cfg.LoggerProvider, cfg.Logger, cfg.Metrics),
	}
}

func (r *Reporter) Enabled() bool {
	return r != nil && strings.TrimSpace(r.backend.URL) != ""
}

// Report posts entry to the backend. An unconfigured reporter is a no-op.
func (r *Reporter) Report(ctx context.Context, entry core.LedgerEntry) error {
	if !r.Enabled() {
		return nil
	}
	startedAt := time.Now()
	fields := map[string]any{
		"order_id":       entry.OrderID,
		"account_code":   entry.AccountCode,
		"message_status": entry.MessageStatus,
	}
	headers := map[string]string{}
	if user := strings.TrimSpace(r.backend.Username); user != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(user + ":" + r.backend.Password))
		headers["Authorization"] = "Basic " + credentials
	}
	url := strings.TrimSuffix(strings.TrimSpace(r.backend.URL), "/") + messageTrackingPath
	req, err := transport.NewJSONRequest(http.MethodPost, url, map[string]string{
		"orderId":       entry.OrderID,
		"accountCode":   entry.AccountCode,
		"messageStatus": entry.MessageStatus,
	}, headers)
	if err != nil {
		r.observer.Observe(ctx, startedAt, "claimio_report", err, fields)
		return err
	}
	res, err := r.rest.Do(ctx, req)
	if err == nil && !transport.IsSuccess(res.StatusCode) {
		err = transport.StatusError("claimio report", res)
	}
	r.observer.Observe(ctx, startedAt, "claimio_report", err, fields)
	return err
}

var _ core.MessageTrackingReporter = (*Reporter)(nil)
