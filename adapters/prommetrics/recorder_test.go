package prommetrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-shipnotify/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricName(t *testing.T) {
	cases := map[string]string{
		"shipnotify.reconcile_in_transit.total": "shipnotify_reconcile_in_transit_total",
		"  notify-send.duration_ms ":            "notify_send_duration_ms",
		"9lives":                                "_9lives",
	}
	for in, want := range cases {
		if got := MetricName(in); got != want {
			t.Fatalf("MetricName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRecorder_CountersKeepFirstLabelSet(t *testing.T) {
	recorder := NewRecorder(nil)
	ctx := context.Background()
	recorder.IncCounter(ctx, "shipnotify.process_event.total", 1, map[string]string{"status": "success", "account_code": "ACME"})
	recorder.IncCounter(ctx, "shipnotify.process_event.total", 2, map[string]string{"status": "success", "account_code": "ACME", "extra": "dropped"})
	recorder.IncCounter(ctx, "shipnotify.process_event.total", 1, map[string]string{"status": "failure"})

	vec := recorder.counters["shipnotify_process_event_total"].collector
	if got := testutil.ToFloat64(vec.WithLabelValues("ACME", "success")); got != 3 {
		t.Fatalf("expected 3 successes for ACME, got %v", got)
	}
	if got := testutil.ToFloat64(vec.WithLabelValues("", "failure")); got != 1 {
		t.Fatalf("expected missing label to be blank, got %v", got)
	}
	recorder.IncCounter(ctx, "ignored", 0, nil)
	if _, ok := recorder.counters["ignored"]; ok {
		t.Fatalf("expected non-positive increments to be ignored")
	}
}

func TestRecorder_ObserverIntegrationAndHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)
	observer := core.NewObserver("shipnotify", nil, nil, recorder)
	observer.Observe(context.Background(), time.Now().Add(-20*time.Millisecond), "reconcile_in_transit", nil, map[string]any{
		"account_code": "ACME",
	})

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, family := range families {
		names[family.GetName()] = true
	}
	if !names["shipnotify_reconcile_in_transit_total"] || !names["shipnotify_reconcile_in_transit_duration_ms"] {
		t.Fatalf("expected counter and histogram families, got %#v", names)
	}

	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "shipnotify_reconcile_in_transit_total") {
		t.Fatalf("expected exposition output, got %s", body)
	}
}
