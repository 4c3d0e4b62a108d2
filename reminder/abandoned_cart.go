package reminder

import (
	"context"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/notify"
)

// ReasonScheduled marks an accepted cart whose reminder is pending.
const ReasonScheduled = "scheduled"

type CartAttributes struct {
	ShopifyCartToken string `json:"shopifyCartToken"`
	LandingPageURL   string `json:"landing_page_url"`
	IPv4Address      string `json:"ipv4_address"`
}

// AbandonedCartWebhook is one entry of the checkout provider's abandoned cart
// payload.
type AbandonedCartWebhook struct {
	CartID           string          `json:"cart_id"`
	Name             string          `json:"name"`
	FirstName        string          `json:"first_name"`
	LastName         string          `json:"last_name"`
	Phone            string          `json:"phone"`
	Email            string          `json:"email"`
	City             string          `json:"city"`
	State            string          `json:"state"`
	Zip              string          `json:"zip"`
	Country          string          `json:"country"`
	PaymentMethod    string          `json:"payment_method"`
	CustomAttributes *CartAttributes `json:"custom_attributes"`
}

// CartToken prefers the storefront cart token and falls back to the cart id.
func (w AbandonedCartWebhook) CartToken() string {
	if w.CustomAttributes != nil {
		if token := strings.TrimSpace(w.CustomAttributes.ShopifyCartToken); token != "" {
			return token
		}
	}
	return strings.TrimSpace(w.CartID)
}

func (w AbandonedCartWebhook) LandingPageURL() string {
	if w.CustomAttributes == nil {
		return ""
	}
	return strings.TrimSpace(w.CustomAttributes.LandingPageURL)
}

// AccountCodeFromLandingPage derives the account from the storefront host:
// "https://www.acme.com/cart" maps to "ACME". Unparseable or dotless hosts
// map to fallback.
func AccountCodeFromLandingPage(landingPageURL string, fallback string) string {
	fallback = core.NormalizeAccountCode(fallback)
	if fallback == "" {
		fallback = core.DefaultAbandonedCartAccount
	}
	parsed, err := url.Parse(strings.TrimSpace(landingPageURL))
	if err != nil {
		return fallback
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	idx := strings.Index(host, ".")
	if idx <= 0 {
		return fallback
	}
	return core.NormalizeAccountCode(host[:idx])
}

type Dispatcher interface {
	Notify(ctx context.Context, n notify.Notification) bool
	AlreadyNotified(ctx context.Context, accountCode string, orderID string, kind core.MessageKind) bool
}

type Config struct {
	Dispatcher     Dispatcher
	Scheduler      Scheduler
	Delay          time.Duration
	DefaultAccount string
	Logger         core.Logger
	LoggerProvider core.LoggerProvider
	Metrics        core.MetricsRecorder
}

// AbandonedCartFlow accepts abandoned cart webhooks, schedules the reminder
// and sends it when the delay elapses. The ledger is checked when scheduling
// and again when the reminder fires.
type AbandonedCartFlow struct {
	dispatcher     Dispatcher
	scheduler      Scheduler
	delay          time.Duration
	defaultAccount string
	observer       core.Observer
}

func NewAbandonedCartFlow(cfg Config) *AbandonedCartFlow {
	delay := cfg.Delay
	if delay <= 0 {
		delay = core.DefaultReminderDelay
	}
	return &AbandonedCartFlow{
		dispatcher:     cfg.Dispatcher,
		scheduler:      cfg.Scheduler,
		delay:          delay,
		defaultAccount: cfg.DefaultAccount,
		observer:       core.NewObserver("reminder", cfg.LoggerProvider, cfg.Logger, cfg.Metrics),
	}
}

// UseScheduler sets the scheduler after construction, for schedulers that
// execute through the flow itself. It must be called before Accept.
func (f *AbandonedCartFlow) UseScheduler(scheduler Scheduler) {
	f.scheduler = scheduler
}

func (f *AbandonedCartFlow) Delay() time.Duration {
	return f.delay
}

// Accept validates the webhook and schedules the reminder.
func (f *AbandonedCartFlow) Accept(ctx context.Context, webhook AbandonedCartWebhook) core.Result {
	startedAt := time.Now()
	task := Task{
		Key:            webhook.CartToken(),
		AccountCode:    AccountCodeFromLandingPage(webhook.LandingPageURL(), f.defaultAccount),
		Phone:          strings.TrimSpace(webhook.Phone),
		FirstName:      strings.TrimSpace(webhook.FirstName),
		LandingPageURL: webhook.LandingPageURL(),
	}
	fields := map[string]any{
		"key":          task.Key,
		"account_code": task.AccountCode,
		"delay":        f.delay.String(),
	}
	result := f.accept(ctx, task)
	var err error
	if !result.OK {
		err = result
	}
	f.observer.Observe(ctx, startedAt, "abandoned_cart_accept", err, fields)
	return result
}

func (f *AbandonedCartFlow) accept(ctx context.Context, task Task) core.Result {
	if task.Phone == "" {
		return core.FailedFrom("abandoned cart", core.ValidationFailure(core.FieldShippingPhone, "customer phone is required"))
	}
	if task.Key == "" {
		return core.FailedFrom("abandoned cart", core.ValidationFailure(core.FieldOrderID, "cart token is required"))
	}
	if f.dispatcher != nil && f.dispatcher.AlreadyNotified(ctx, task.AccountCode, task.Key, core.MessageKindAbandonedCart) {
		return core.Skipped("already notified for " + string(core.MessageKindAbandonedCart))
	}
	if f.scheduler == nil {
		return core.Failed(core.KindNotConfigured, "reminder scheduler is not configured", nil)
	}
	if err := f.scheduler.Schedule(ctx, task, f.delay); err != nil {
		return core.FailedFrom("schedule reminder", err)
	}
	return core.Succeeded(ReasonScheduled)
}

// Execute sends the reminder unless the ledger already records it.
func (f *AbandonedCartFlow) Execute(ctx context.Context, task Task) error {
	if f.dispatcher == nil {
		return core.NewError("reminder: dispatcher is not configured", goerrors.CategoryInternal, core.ErrorInternal, nil)
	}
	if f.dispatcher.AlreadyNotified(ctx, task.AccountCode, task.Key, core.MessageKindAbandonedCart) {
		f.observer.Info(ctx, "abandoned cart reminder already sent", map[string]any{
			"key":          task.Key,
			"account_code": task.AccountCode,
		})
		return nil
	}
	sent := f.dispatcher.Notify(ctx, notify.Notification{
		AccountCode: task.AccountCode,
		OrderID:     task.Key,
		Kind:        core.MessageKindAbandonedCart,
		Phone:       task.Phone,
		Variables:   notify.AbandonedCartVariables(task.FirstName, task.LandingPageURL),
	})
	if !sent {
		return core.NewError("reminder: abandoned cart reminder was not sent", goerrors.CategoryExternal, core.ErrorExternalFailure, map[string]any{
			"key":          task.Key,
			"account_code": task.AccountCode,
		})
	}
	return nil
}

var _ Executor = (*AbandonedCartFlow)(nil)
