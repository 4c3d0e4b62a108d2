package shipnotify

import (
	"fmt"

	"github.com/goliatone/go-shipnotify/command"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/inbound"
	"github.com/goliatone/go-shipnotify/notify"
	"github.com/goliatone/go-shipnotify/orchestrator"
	"github.com/goliatone/go-shipnotify/reconcile"
	"github.com/goliatone/go-shipnotify/reminder"
	"github.com/goliatone/go-shipnotify/transport"
)

// Dependencies are the runtime collaborators the engine does not build
// itself. Ledger is required.
type Dependencies struct {
	Ledger         core.Ledger
	HTTPClient     transport.HTTPDoer
	Scheduler      reminder.Scheduler
	Logger         core.Logger
	LoggerProvider core.LoggerProvider
	Metrics        core.MetricsRecorder
}

// Engine wires the providers, the notification dispatcher and the flows for
// one configuration.
type Engine struct {
	config       Config
	accounts     *core.AccountDirectory
	dispatcher   *notify.Dispatcher
	reconciler   *reconcile.Reconciler
	orchestrator *orchestrator.Orchestrator
	reminders    *reminder.AbandonedCartFlow
}

func New(cfg Config, deps Dependencies) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("shipnotify: ledger is required")
	}
	accounts := core.NewAccountDirectory(cfg.Accounts)
	commerce := ShopifyClient(cfg, accounts, deps)

	var reporter core.MessageTrackingReporter
	if claimio := ClaimioReporter(cfg, deps); claimio.Enabled() {
		reporter = claimio
	}

	dispatcher := notify.NewDispatcher(notify.Config{
		Accounts:         accounts,
		Notifier:         BotspaceClient(cfg, accounts, deps),
		Ledger:           deps.Ledger,
		Reporter:         reporter,
		Products:         commerce,
		TestPhone:        cfg.Notifier.TestPhone,
		ProductURLPrefix: cfg.Commerce.ProductURLPrefix,
		Logger:           deps.Logger,
		LoggerProvider:   deps.LoggerProvider,
		Metrics:          deps.Metrics,
	})
	reconciler := reconcile.New(reconcile.Config{
		Commerce:       commerce,
		Accounts:       accounts,
		Notifier:       dispatcher,
		Plans:          reconcile.DefaultPlans(cfg.Commerce.OutForDeliveryTag),
		Logger:         deps.Logger,
		LoggerProvider: deps.LoggerProvider,
		Metrics:        deps.Metrics,
	})
	return &Engine{
		config:     cfg,
		accounts:   accounts,
		dispatcher: dispatcher,
		reconciler: reconciler,
		orchestrator: orchestrator.New(orchestrator.Config{
			Reconciler:     reconciler,
			Dispatcher:     dispatcher,
			Accounts:       accounts,
			Logger:         deps.Logger,
			LoggerProvider: deps.LoggerProvider,
			Metrics:        deps.Metrics,
		}),
		reminders: reminder.NewAbandonedCartFlow(reminder.Config{
			Dispatcher:     dispatcher,
			Scheduler:      deps.Scheduler,
			Delay:          cfg.Reminder.DelayDuration(),
			Logger:         deps.Logger,
			LoggerProvider: deps.LoggerProvider,
			Metrics:        deps.Metrics,
		}),
	}, nil
}

func (e *Engine) Config() Config {
	return e.config
}

func (e *Engine) Accounts() *core.AccountDirectory {
	return e.accounts
}

func (e *Engine) Dispatcher() *notify.Dispatcher {
	return e.dispatcher
}

func (e *Engine) Orchestrator() *orchestrator.Orchestrator {
	return e.orchestrator
}

// Reminders returns the abandoned cart flow. Schedulers that execute through
// the flow are attached with UseScheduler.
func (e *Engine) Reminders() *reminder.AbandonedCartFlow {
	return e.reminders
}

// Services returns the flows backing the command handlers.
func (e *Engine) Services() command.Services {
	return command.Services{
		Batch:        e.orchestrator,
		OrderCreated: e.orchestrator,
		Carts:        e.reminders,
	}
}

// Routes serves every webhook surface straight from the flows.
func (e *Engine) Routes(store inbound.ClaimStore) (*inbound.Dispatcher, error) {
	return inbound.NewRoutes(e.routesConfig(e.orchestrator, e.orchestrator, e.reminders, store))
}

// CommandRoutes serves every webhook surface through the command dispatcher.
// The commands must be registered with command.Register first.
func (e *Engine) CommandRoutes(store inbound.ClaimStore) (*inbound.Dispatcher, error) {
	gateway := command.Gateway{}
	return inbound.NewRoutes(e.routesConfig(gateway, gateway, gateway, store))
}

func (e *Engine) routesConfig(
	batch inbound.BatchProcessor,
	orders inbound.OrderCreatedProcessor,
	carts inbound.CartAcceptor,
	store inbound.ClaimStore,
) inbound.RoutesConfig {
	return inbound.RoutesConfig{
		Batch:         batch,
		OrderCreated:  orders,
		Carts:         carts,
		WebhookToken:  e.config.HTTP.WebhookToken,
		ShopifySecret: e.config.Commerce.WebhookSecret,
		Store:         store,
	}
}
