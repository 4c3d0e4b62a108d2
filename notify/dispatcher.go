// Package notify sends templated customer messages and records each attempt
// in the dedup ledger.
package notify

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-shipnotify/core"
)

// ProductLookup resolves the product handles of an order for the delivered
// template.
type ProductLookup interface {
	OrderProductHandles(ctx context.Context, accountCode string, displayName string) ([]string, error)
}

type Config struct {
	Accounts         *core.AccountDirectory
	Notifier         core.Notifier
	Ledger           core.Ledger
	Reporter         core.MessageTrackingReporter
	Products         ProductLookup
	TestPhone        string
	ProductURLPrefix string
	Logger           core.Logger
	LoggerProvider   core.LoggerProvider
	Metrics          core.MetricsRecorder
}

// Notification is one message to send. OrderID is the ledger key: the order
// name for shipment and order messages, the cart token for reminders.
type Notification struct {
	AccountCode string
	OrderID     string
	Kind        core.MessageKind
	Phone       string
	Variables   []string
	MediaURL    string
	Cards       []core.NotifierCard
}

type Dispatcher struct {
	accounts      *core.AccountDirectory
	notifier      core.Notifier
	ledger        core.Ledger
	reporter      core.MessageTrackingReporter
	products      ProductLookup
	testPhone     string
	productPrefix string
	observer      core.Observer
}

func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{
		accounts:      cfg.Accounts,
		notifier:      cfg.Notifier,
		ledger:        cfg.Ledger,
		reporter:      cfg.Reporter,
		products:      cfg.Products,
		testPhone:     strings.TrimSpace(cfg.TestPhone),
		productPrefix: strings.TrimSpace(cfg.ProductURLPrefix),
		observer:      core.NewObserver("notify", cfg.LoggerProvider, cfg.Logger, cfg.Metrics),
	}
}

// Notify sends n and records sent_<kind> or failed_<kind> once the notifier
// was called. Failures before the send leave the ledger untouched. The return
// value reflects the send only; ledger and reporter failures are logged.
func (d *Dispatcher) Notify(ctx context.Context, n Notification) bool {
	startedAt := time.Now()
	fields := map[string]any{
		"account_code": n.AccountCode,
		"order_id":     n.OrderID,
		"message_kind": string(n.Kind),
	}
	attempted, err := d.send(ctx, n, fields)
	d.observer.Observe(ctx, startedAt, "notify_"+string(n.Kind), err, fields)
	if !attempted {
		d.observer.Warn(ctx, "notification not attempted", fields)
		return false
	}

	tag := n.Kind.SentTag()
	if err != nil {
		tag = n.Kind.FailedTag()
	}
	d.record(ctx, n, tag)
	return err == nil
}

// send reports whether the notifier was called along with the outcome.
func (d *Dispatcher) send(ctx context.Context, n Notification, fields map[string]any) (bool, error) {
	if d.notifier == nil {
		return false, core.ErrAccountNotConfigured(n.AccountCode)
	}
	account, ok := d.accounts.Lookup(n.AccountCode)
	if !ok {
		return false, core.ErrAccountNotConfigured(n.AccountCode)
	}
	templateID := account.Templates.ForKind(n.Kind)
	if templateID == "" {
		return false, core.ErrAccountNotConfigured(n.AccountCode)
	}
	phone := FormatPhone(n.Phone)
	if d.testPhone != "" {
		phone = d.testPhone
		fields["test_phone_override"] = true
	}
	if phone == "" {
		return false, core.ValidationFailure(core.FieldShippingPhone, "phone number cannot be formatted")
	}
	fields["template_id"] = templateID

	receipt, err := d.notifier.Send(ctx, core.NotifierMessage{
		AccountCode:   account.Code,
		Phone:         phone,
		TemplateID:    templateID,
		Variables:     n.Variables,
		MediaVariable: n.MediaURL,
		Cards:         n.Cards,
	})
	if err != nil {
		return true, err
	}
	fields["message_id"] = receipt.MessageID
	if !receipt.Accepted {
		return true, core.NewError("notify: message was not accepted", goerrors.CategoryExternal, core.ErrorExternalFailure, map[string]any{
			"status": receipt.Status,
		})
	}
	return true, nil
}

func (d *Dispatcher) record(ctx context.Context, n Notification, tag string) {
	fields := map[string]any{"account_code": n.AccountCode, "order_id": n.OrderID, "message_status": tag}
	if d.ledger != nil && !d.ledger.AddStatus(ctx, n.OrderID, n.AccountCode, tag) {
		d.observer.Warn(ctx, "ledger write failed", fields)
	}
	if d.reporter == nil {
		return
	}
	entry := core.LedgerEntry{OrderID: n.OrderID, AccountCode: core.NormalizeAccountCode(n.AccountCode), MessageStatus: tag}
	if err := d.reporter.Report(ctx, entry); err != nil {
		fields["error"] = err.Error()
		d.observer.Warn(ctx, "message tracking report failed", fields)
	}
}

// NotifyEvent builds the shipment message for class and sends it. Clone
// orders never reach the commerce platform, so their delivered message uses
// the bare product prefix.
func (d *Dispatcher) NotifyEvent(ctx context.Context, event core.StatusEvent, class core.StatusClass) bool {
	kind, ok := class.MessageKind()
	if !ok {
		d.observer.Warn(ctx, "status class has no message", map[string]any{
			"order_id":     event.OrderID,
			"status_class": class.String(),
		})
		return false
	}
	account, _ := d.accounts.Lookup(event.AccountCode)
	n := Notification{
		AccountCode: event.AccountCode,
		OrderID:     event.OrderID,
		Kind:        kind,
		Phone:       event.Phone,
	}
	trackingURL := account.TrackingURL(event.AWB)

	switch kind {
	case core.MessageKindInTransit:
		n.Variables = InTransitVariables(event, trackingURL)
		n.MediaURL, n.Cards = trackingCards(trackingURL)
	case core.MessageKindOutForDelivery:
		n.Variables = OutForDeliveryVariables(event, trackingURL)
		n.MediaURL, n.Cards = trackingCards(trackingURL)
	case core.MessageKindDelivered:
		prefix := account.ProductURLPrefixOr(d.productPrefix)
		handles := d.productHandles(ctx, event)
		productURL := prefix
		if len(handles) > 0 {
			productURL = ProductURL(prefix, handles[0])
		}
		n.Variables = DeliveredVariables(event.OrderID, productURL)
		n.MediaURL, n.Cards = productCards(prefix, handles)
	case core.MessageKindOrderCreated:
		n.Variables = OrderCreatedVariables(event.FirstName, event.OrderID)
	}
	return d.Notify(ctx, n)
}

func (d *Dispatcher) productHandles(ctx context.Context, event core.StatusEvent) []string {
	if d.products == nil || event.IsCloneOrder() {
		return nil
	}
	handles, err := d.products.OrderProductHandles(ctx, event.AccountCode, event.OrderID)
	if err != nil {
		d.observer.Warn(ctx, "product lookup failed", map[string]any{
			"account_code": event.AccountCode,
			"order_id":     event.OrderID,
			"error":        err.Error(),
		})
		return nil
	}
	return handles
}

// AlreadyNotified reports whether kind has a terminal ledger tag for the key.
func (d *Dispatcher) AlreadyNotified(ctx context.Context, accountCode string, orderID string, kind core.MessageKind) bool {
	if d.ledger == nil {
		return false
	}
	return d.ledger.HasAnyStatus(ctx, orderID, accountCode, kind.TerminalTags())
}
