package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	shipnotify "github.com/goliatone/go-shipnotify"
	"github.com/goliatone/go-shipnotify/adapters/gocommand"
	"github.com/goliatone/go-shipnotify/adapters/gojob"
	"github.com/goliatone/go-shipnotify/adapters/gologger"
	"github.com/goliatone/go-shipnotify/adapters/prommetrics"
	shipcommand "github.com/goliatone/go-shipnotify/command"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/inbound"
	"github.com/goliatone/go-shipnotify/reminder"
	sqlstore "github.com/goliatone/go-shipnotify/store/sql"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	envConfigPath = "SHIPNOTIFY_CONFIG"
	envLogLevel   = "SHIPNOTIFY_LOG_LEVEL"

	shutdownTimeout = 15 * time.Second
	ledgerCacheTTL  = 10 * time.Minute
)

var (
	configPath  = flag.String("config", os.Getenv(envConfigPath), "config file path (yaml, json or toml)")
	logLevel    = flag.String("log-level", envOr(envLogLevel, "info"), "log level")
	logEncoding = flag.String("log-encoding", "json", "log encoding: json or console")
	metricsPath = flag.String("metrics-path", "/metrics", "prometheus scrape path, empty to disable")
)

func main() {
	flag.Parse()

	zapLogger, err := gologger.BuildZap(*logLevel, *logEncoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shipnotify: build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, zapLogger); err != nil {
		zapLogger.Error("shipnotify stopped", zap.Error(err))
		_ = zapLogger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, zapLogger *zap.Logger) error {
	provider := gologger.NewZapProvider(zapLogger)
	logger := provider.GetLogger("main")

	cfg, err := core.LoadConfig(ctx, core.NewCfgxConfigProvider(core.ViperRawConfigLoader{Path: *configPath}), nil, core.Config{})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Info("config loaded",
		"service", cfg.ServiceName,
		"accounts", len(cfg.Accounts),
		"database", cfg.Database.Driver,
		"reminder_backend", cfg.Reminder.Backend,
	)

	registry := prometheus.NewRegistry()
	metrics := prommetrics.NewRecorder(registry)

	client, err := sqlstore.OpenClient(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ledger, err := openLedger(client, provider, metrics)
	if err != nil {
		return err
	}

	engine, err := shipnotify.New(cfg, shipnotify.Dependencies{
		Ledger:         ledger,
		HTTPClient:     &http.Client{Timeout: 30 * time.Second},
		LoggerProvider: provider,
		Metrics:        metrics,
	})
	if err != nil {
		return err
	}

	observer := core.NewObserver("reminder", provider, nil, metrics)
	background, stopReminders, err := startReminders(ctx, cfg, engine.Reminders(), observer, provider)
	if err != nil {
		return err
	}
	defer stopReminders()

	subscriptions, err := registerCommands(engine)
	if err != nil {
		return err
	}
	defer func() {
		for _, sub := range subscriptions {
			sub.Unsubscribe()
		}
	}()

	routes, err := engine.CommandRoutes(inbound.NewMemoryClaimStore())
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/", inbound.NewHandler(routes,
		inbound.WithServiceName(cfg.ServiceName),
		inbound.WithObserver(core.NewObserver("inbound", provider, nil, metrics)),
	))
	if path := strings.TrimSpace(*metricsPath); path != "" {
		mux.Handle(path, metrics.Handler())
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case err := <-background:
		if err != nil {
			return fmt.Errorf("reminder worker: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("shipnotify exited gracefully")
	return nil
}

func openLedger(client any, provider core.LoggerProvider, metrics core.MetricsRecorder) (core.Ledger, error) {
	base, err := sqlstore.NewLedgerStoreFromPersistence(client,
		sqlstore.WithLedgerObserver(core.NewObserver("ledger", provider, nil, metrics)),
	)
	if err != nil {
		return nil, err
	}
	cacheConfig := repositorycache.DefaultConfig()
	cacheConfig.TTL = ledgerCacheTTL
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		return nil, fmt.Errorf("ledger cache: %w", err)
	}
	return sqlstore.NewCachedLedgerStore(base, cacheService)
}

// startReminders attaches the configured scheduler to the flow. The returned
// channel reports a background worker exit; stop releases pending timers.
func startReminders(
	ctx context.Context,
	cfg core.Config,
	flow *reminder.AbandonedCartFlow,
	observer core.Observer,
	provider core.LoggerProvider,
) (<-chan error, func(), error) {
	done := make(chan error, 1)
	switch strings.ToLower(strings.TrimSpace(cfg.Reminder.Backend)) {
	case core.ReminderBackendLmstfy:
		queue := reminder.NewLmstfyQueue(cfg.Reminder.Lmstfy)
		flow.UseScheduler(reminder.NewLmstfyScheduler(queue, cfg.Reminder.Lmstfy.Queue))
		worker := reminder.NewWorker(queue, cfg.Reminder.Lmstfy.Queue, flow, reminder.WithWorkerObserver(observer))
		go func() { done <- worker.Run(ctx) }()
		return done, func() {}, nil

	case core.ReminderBackendJob:
		queue := gojob.NewMemoryQueue()
		timer := reminder.NewTimerScheduler(
			gojob.NewReminderExecutor(gojob.NewEnqueuerAdapter(queue)),
			reminder.WithTimerObserver(observer),
		)
		flow.UseScheduler(timer)
		consumer := gojob.NewReminderConsumer(queue, flow,
			gojob.WithHook(gojob.NewObserverHook(observer)),
			gojob.WithJobLogger(gologger.ReminderJobLogger(provider, nil)),
		)
		go func() { done <- consumer.Run(ctx) }()
		return done, func() {
			timer.Stop()
			queue.Close()
		}, nil

	default:
		timer := reminder.NewTimerScheduler(flow, reminder.WithTimerObserver(observer))
		flow.UseScheduler(timer)
		return done, timer.Stop, nil
	}
}

// registerCommands subscribes the flow commands and mirrors them into a
// go-job queue registry.
func registerCommands(engine *shipnotify.Engine) ([]commanddispatcher.Subscription, error) {
	adapter := gocommand.NewRegistryAdapter(command.NewRegistry())
	if err := adapter.AddQueueResolver("queue", jobqueuecommand.NewRegistry()); err != nil {
		return nil, err
	}
	subscriptions, err := shipcommand.Register(adapter, engine.Services())
	if err != nil {
		return nil, err
	}
	if err := adapter.Initialize(); err != nil {
		for _, sub := range subscriptions {
			sub.Unsubscribe()
		}
		return nil, err
	}
	return subscriptions, nil
}

func envOr(name string, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}
