package orchestrator

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/notify"
)

type OrderContact struct {
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// OrderCreatedWebhook is the subset of the commerce orders/create payload the
// flow reads.
type OrderCreatedWebhook struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	Phone           string        `json:"phone"`
	Email           string        `json:"email"`
	ShippingAddress *OrderContact `json:"shipping_address"`
	BillingAddress  *OrderContact `json:"billing_address"`
	Customer        *OrderContact `json:"customer"`
}

// ContactPhone prefers the shipping address, then billing, the order itself
// and finally the customer record.
func (w OrderCreatedWebhook) ContactPhone() string {
	for _, phone := range []string{
		contactField(w.ShippingAddress, func(c OrderContact) string { return c.Phone }),
		contactField(w.BillingAddress, func(c OrderContact) string { return c.Phone }),
		w.Phone,
		contactField(w.Customer, func(c OrderContact) string { return c.Phone }),
	} {
		if strings.TrimSpace(phone) != "" {
			return strings.TrimSpace(phone)
		}
	}
	return ""
}

func (w OrderCreatedWebhook) FirstName() string {
	if name := contactField(w.ShippingAddress, func(c OrderContact) string { return c.FirstName }); name != "" {
		return name
	}
	return contactField(w.Customer, func(c OrderContact) string { return c.FirstName })
}

func contactField(contact *OrderContact, pick func(OrderContact) string) string {
	if contact == nil {
		return ""
	}
	return strings.TrimSpace(pick(*contact))
}

// ProcessOrderCreated sends the order confirmation once per order name.
func (o *Orchestrator) ProcessOrderCreated(ctx context.Context, webhook OrderCreatedWebhook, shopDomain string) core.Result {
	startedAt := time.Now()
	accountCode := o.accounts.AccountCodeForShop(shopDomain)
	fields := map[string]any{
		"account_code": accountCode,
		"order_id":     webhook.Name,
		"shop_domain":  shopDomain,
	}
	result := o.processOrderCreated(ctx, webhook, accountCode)
	var err error
	if !result.OK {
		err = result
	}
	o.observer.Observe(ctx, startedAt, "process_order_created", err, fields)
	return result
}

func (o *Orchestrator) processOrderCreated(ctx context.Context, webhook OrderCreatedWebhook, accountCode string) core.Result {
	if accountCode == "" {
		return core.FailedFrom("order created", core.ValidationFailure(core.FieldAccountCode, "shop domain is required"))
	}
	name := strings.TrimSpace(webhook.Name)
	if name == "" {
		return core.FailedFrom("order created", core.ValidationFailure(core.FieldOrderID, "order name is required"))
	}
	phone := webhook.ContactPhone()
	if phone == "" {
		return core.FailedFrom("order created", core.ValidationFailure(core.FieldShippingPhone, "customer phone is required"))
	}
	if o.dispatcher == nil {
		return core.Failed(core.KindNotConfigured, "dispatcher is not configured", nil)
	}
	if o.dispatcher.AlreadyNotified(ctx, accountCode, name, core.MessageKindOrderCreated) {
		return core.Skipped("already notified for " + string(core.MessageKindOrderCreated))
	}
	sent := o.dispatcher.Notify(ctx, notify.Notification{
		AccountCode: accountCode,
		OrderID:     name,
		Kind:        core.MessageKindOrderCreated,
		Phone:       phone,
		Variables:   notify.OrderCreatedVariables(webhook.FirstName(), name),
	})
	if !sent {
		return core.Failed(core.KindExternalAPI, "order created notification was not sent", nil)
	}
	return core.Succeeded("")
}
