package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// Ledger is the append-only dedup record of notification outcomes. Neither
// method returns an error: persistence failures surface as false and are
// logged by the implementation.
type Ledger interface {
	HasAnyStatus(ctx context.Context, orderID string, accountCode string, tags []string) bool
	AddStatus(ctx context.Context, orderID string, accountCode string, tag string) bool
}

// CommerceClient is the commerce platform surface the reconciler needs. Every
// call is attempted once.
type CommerceClient interface {
	ResolveOrder(ctx context.Context, accountCode string, displayName string) (OrderHandle, error)
	FulfillmentOrders(ctx context.Context, accountCode string, order OrderHandle) ([]FulfillmentOrder, error)
	CreateFulfillment(
		ctx context.Context,
		accountCode string,
		order OrderHandle,
		fulfillmentOrderID string,
		trackingNumber string,
		trackingURL string,
	) (int64, error)
	UpdateFulfillmentTracking(
		ctx context.Context,
		accountCode string,
		fulfillmentID int64,
		trackingNumber string,
		class StatusClass,
	) error
	UpdateTags(ctx context.Context, accountCode string, order OrderHandle, tag string) error
	OrderProductHandles(ctx context.Context, accountCode string, displayName string) ([]string, error)
}

type Notifier interface {
	Send(ctx context.Context, msg NotifierMessage) (NotifierReceipt, error)
}

// MessageTrackingReporter mirrors notification outcomes to an external
// tracking backend. Implementations are best-effort.
type MessageTrackingReporter interface {
	Report(ctx context.Context, entry LedgerEntry) error
}

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}
