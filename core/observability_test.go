package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordedLog struct {
	level   string
	message string
	args    []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []recordedLog
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, recordedLog{level: level, message: msg, args: args})
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger { return l }

type captureMetrics struct {
	mu         sync.Mutex
	counters   map[string]int64
	histograms map[string]int
	lastTags   map[string]string
}

func (m *captureMetrics) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]int64{}
	}
	m.counters[name] += value
	m.lastTags = tags
}

func (m *captureMetrics) ObserveHistogram(_ context.Context, name string, _ float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.histograms == nil {
		m.histograms = map[string]int{}
	}
	m.histograms[name]++
}

func TestObserver_ObserveRecordsMetricsAndLogs(t *testing.T) {
	logger := &captureLogger{}
	metrics := &captureMetrics{}
	observer := NewObserver("shipnotify", nil, logger, metrics)

	observer.Observe(context.Background(), time.Now(), "Reconcile Event", errors.New("boom"), map[string]any{
		"account_code": "ACME",
		"status_class": "in_transit",
	})

	if metrics.counters["shipnotify.reconcile_event.total"] != 1 {
		t.Fatalf("expected counter increment, got %#v", metrics.counters)
	}
	if metrics.histograms["shipnotify.reconcile_event.duration_ms"] != 1 {
		t.Fatalf("expected duration histogram, got %#v", metrics.histograms)
	}
	if metrics.lastTags["status"] != "failure" || metrics.lastTags["account_code"] != "ACME" {
		t.Fatalf("unexpected tags %#v", metrics.lastTags)
	}
	if len(logger.entries) != 1 || logger.entries[0].level != "error" {
		t.Fatalf("expected one error log, got %#v", logger.entries)
	}
	if logger.entries[0].args[0] != "account_code" {
		t.Fatalf("expected sorted flattened fields, got %#v", logger.entries[0].args)
	}
}

func TestObserver_ZeroValueIsSafe(t *testing.T) {
	var observer Observer
	observer.Observe(context.Background(), time.Now(), "noop", nil, nil)
	observer.Info(context.Background(), "hello", nil)
	if observer.Logger() == nil {
		t.Fatalf("expected nop logger from zero observer")
	}
}
