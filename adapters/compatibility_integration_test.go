package adapters_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-command"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	"github.com/goliatone/go-shipnotify/adapters/gocommand"
	"github.com/goliatone/go-shipnotify/adapters/gojob"
	"github.com/goliatone/go-shipnotify/adapters/gologger"
	shipcommand "github.com/goliatone/go-shipnotify/command"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/inbound"
	"github.com/goliatone/go-shipnotify/notify"
	"github.com/goliatone/go-shipnotify/orchestrator"
	"github.com/goliatone/go-shipnotify/reminder"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	zapCore, logs := observer.New(zap.DebugLevel)
	provider := gologger.NewZapProvider(zap.New(zapCore))
	_, logger, jobProvider, jobLogger := gologger.ResolveForJob("shipnotify", provider, nil)
	if logger == nil || jobProvider == nil || jobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}
	logger.Info("bridge ready", "component", "compat")
	if logs.FilterMessage("bridge ready").Len() != 1 {
		t.Fatalf("expected resolved logger to write through zap")
	}

	queueRegistry := jobqueuecommand.NewRegistry()
	commandAdapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := commandAdapter.AddQueueResolver("queue", queueRegistry); err != nil {
		t.Fatalf("add queue resolver: %v", err)
	}

	batch := &recordingBatch{}
	carts := &recordingCarts{}
	subs, err := shipcommand.Register(commandAdapter, shipcommand.Services{Batch: batch, Carts: carts})
	if err != nil {
		t.Fatalf("register commands: %v", err)
	}
	t.Cleanup(func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	})
	if err := commandAdapter.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get(shipcommand.TypeProcessStatusBatch); !ok {
		t.Fatalf("expected status batch command to be mirrored into the go-job queue registry")
	}

	dispatcher, err := inbound.NewRoutes(inbound.RoutesConfig{
		Batch: shipcommand.Gateway{},
		Carts: shipcommand.Gateway{},
		Store: inbound.NewMemoryClaimStore(),
	})
	if err != nil {
		t.Fatalf("routes: %v", err)
	}
	server := httptest.NewServer(inbound.NewHandler(dispatcher))
	t.Cleanup(server.Close)

	body := `[{"order_id":"1001","account_code":"ACME","awb":"AWB1","current_shipment_status":"Delivered"}]`
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+inbound.PathStatusBatch, strings.NewReader(body))
	req.Header.Set("Idempotency-Key", "batch-1")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post batch: %v", err)
	}
	defer resp.Body.Close()
	var decoded struct {
		Success   bool `json:"success"`
		Total     int  `json:"total"`
		Succeeded int  `json:"succeeded"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode batch response: %v", err)
	}
	if resp.StatusCode != http.StatusOK || !decoded.Success || decoded.Total != 1 || decoded.Succeeded != 1 {
		t.Fatalf("unexpected batch response %d %#v", resp.StatusCode, decoded)
	}
	if batch.calls() != 1 {
		t.Fatalf("expected batch to reach the processor through go-command, got %d", batch.calls())
	}
}

func TestRuntimeCompatibility_ReminderThroughGoJobQueue(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := gojob.NewMemoryQueue()
	t.Cleanup(q.Close)

	sender := &recordingSender{ok: true}
	flow := reminder.NewAbandonedCartFlow(reminder.Config{Dispatcher: sender, Delay: 10 * time.Millisecond})
	timer := reminder.NewTimerScheduler(gojob.NewReminderExecutor(gojob.NewEnqueuerAdapter(q)))
	t.Cleanup(timer.Stop)
	flow.UseScheduler(timer)

	webhook := reminder.AbandonedCartWebhook{
		FirstName: "Asha",
		Phone:     "+919876543210",
		CustomAttributes: &reminder.CartAttributes{
			ShopifyCartToken: "tok-compat",
			LandingPageURL:   "https://www.acme.com/cart",
		},
	}
	if result := flow.Accept(ctx, webhook); !result.OK {
		t.Fatalf("expected reminder to be scheduled, got %#v", result)
	}

	consumer := gojob.NewReminderConsumer(q, flow, gojob.WithHook(gojob.NewObserverHook(core.Observer{})))
	if err := consumer.RunOnce(ctx); err != nil {
		t.Fatalf("consume reminder: %v", err)
	}
	sent := sender.sent()
	if len(sent) != 1 {
		t.Fatalf("expected one reminder, got %d", len(sent))
	}
	if sent[0].AccountCode != "ACME" || sent[0].OrderID != "tok-compat" || sent[0].Kind != core.MessageKindAbandonedCart {
		t.Fatalf("unexpected reminder %#v", sent[0])
	}
	if q.Len() != 0 || len(q.DeadLetters()) != 0 {
		t.Fatalf("expected queue to drain cleanly")
	}
}

type recordingBatch struct {
	mu sync.Mutex
	n  int
}

func (b *recordingBatch) ProcessBatch(_ context.Context, events []core.StatusEvent) core.BatchReport {
	b.mu.Lock()
	b.n++
	b.mu.Unlock()
	report := core.BatchReport{}
	for range events {
		report.Add(core.Succeeded("updated"))
	}
	return report
}

func (b *recordingBatch) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

type recordingCarts struct{}

func (recordingCarts) Accept(context.Context, reminder.AbandonedCartWebhook) core.Result {
	return core.Succeeded(reminder.ReasonScheduled)
}

type recordingSender struct {
	mu    sync.Mutex
	ok    bool
	items []notify.Notification
}

func (s *recordingSender) Notify(_ context.Context, n notify.Notification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, n)
	return s.ok
}

func (s *recordingSender) AlreadyNotified(_ context.Context, accountCode string, orderID string, _ core.MessageKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.AccountCode == accountCode && item.OrderID == orderID {
			return true
		}
	}
	return false
}

func (s *recordingSender) sent() []notify.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notify.Notification(nil), s.items...)
}

var _ shipcommand.OrderCreatedProcessor = (*orchestrator.Orchestrator)(nil)
