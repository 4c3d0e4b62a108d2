package core

import (
	"strconv"
	"strings"
)

type StatusClass string

const (
	StatusClassOrderCreated   StatusClass = "order_created"
	StatusClassFulfilled      StatusClass = "fulfilled"
	StatusClassInTransit      StatusClass = "in_transit"
	StatusClassOutForDelivery StatusClass = "out_for_delivery"
	StatusClassDelivered      StatusClass = "delivered"
	StatusClassReturnToOrigin StatusClass = "return_to_origin"
	StatusClassUnknown        StatusClass = "unknown"
)

func (c StatusClass) String() string {
	if strings.TrimSpace(string(c)) == "" {
		return string(StatusClassUnknown)
	}
	return string(c)
}

// MessageKind identifies the customer message template family a ledger tag
// and a notifier template belong to. Values are part of the persisted tag
// vocabulary and must not change.
type MessageKind string

const (
	MessageKindOrderCreated   MessageKind = "orderCreated"
	MessageKindInTransit      MessageKind = "inTransit"
	MessageKindOutForDelivery MessageKind = "outForDelivery"
	MessageKindDelivered      MessageKind = "delivered"
	MessageKindAbandonedCart  MessageKind = "abandonedCart"
)

const (
	ledgerTagSentPrefix   = "sent_"
	ledgerTagFailedPrefix = "failed_"
)

// MessageKind returns the notification family for classes that notify.
func (c StatusClass) MessageKind() (MessageKind, bool) {
	switch c {
	case StatusClassOrderCreated:
		return MessageKindOrderCreated, true
	case StatusClassInTransit:
		return MessageKindInTransit, true
	case StatusClassOutForDelivery:
		return MessageKindOutForDelivery, true
	case StatusClassDelivered:
		return MessageKindDelivered, true
	default:
		return "", false
	}
}

func (k MessageKind) SentTag() string {
	return ledgerTagSentPrefix + string(k)
}

func (k MessageKind) FailedTag() string {
	return ledgerTagFailedPrefix + string(k)
}

// TerminalTags are the ledger tags that mark a kind as already handled.
func (k MessageKind) TerminalTags() []string {
	return []string{k.SentTag(), k.FailedTag()}
}

type ShippingContact struct {
	Phone     string `json:"shipping_phone"`
	FirstName string `json:"shipping_firstname"`
	LastName  string `json:"shipping_lastname"`
}

// StatusEvent is one carrier status update for one order. It is created per
// inbound webhook item and never persisted.
type StatusEvent struct {
	OrderID         string `json:"order_id"`
	AccountCode     string `json:"account_code"`
	CarrierID       string `json:"carrier_id"`
	AWB             string `json:"awb"`
	CurrentStatus   string `json:"current_shipment_status"`
	PreviousStatus  string `json:"previous_status"`
	ShippingContact
	ProductCount        int    `json:"number_of_product,omitempty"`
	QuantityCount       string `json:"number_of_quantity,omitempty"`
	LatestMessageStatus string `json:"latest_message_status,omitempty"`
}

func (e StatusEvent) IsCloneOrder() bool {
	return IsCloneOrderID(e.OrderID)
}

func (e StatusEvent) ProductCountText() string {
	return strconv.Itoa(e.ProductCount)
}

// IsCloneOrderID reports whether the order identifier carries an underscore
// separated disambiguator.
func IsCloneOrderID(orderID string) bool {
	return strings.Contains(orderID, "_")
}

type StatusBatch struct {
	Timestamp string        `json:"timestamp,omitempty"`
	Event     string        `json:"event,omitempty"`
	Orders    []StatusEvent `json:"orders"`
}

type LedgerEntry struct {
	OrderID       string
	AccountCode   string
	MessageStatus string
}

type OrderHandle struct {
	GID               string
	NumericID         int64
	Name              string
	DisplayStatus     string
	Tags              []string
	Fulfillments      []FulfillmentRecord
	FulfillmentOrders []FulfillmentOrder
}

const DisplayStatusFulfilled = "FULFILLED"

func (o OrderHandle) IsFulfilled() bool {
	return strings.EqualFold(strings.TrimSpace(o.DisplayStatus), DisplayStatusFulfilled)
}

// HasTag compares tags case-insensitively.
func (o OrderHandle) HasTag(tag string) bool {
	return ContainsTag(o.Tags, tag)
}

type FulfillmentRecord struct {
	GID             string
	Status          string
	TrackingNumber  string
	TrackingURL     string
	TrackingCompany string
}

// NumericID parses the trailing segment of the fulfillment GID.
func (f FulfillmentRecord) NumericID() (int64, bool) {
	gid := strings.TrimSpace(f.GID)
	idx := strings.LastIndex(gid, "/")
	id, err := strconv.ParseInt(gid[idx+1:], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type FulfillmentOrder struct {
	ID     string
	Status string
}

const FulfillmentOrderStatusOpen = "OPEN"

// PickOpenFulfillmentOrder scans from the end of list and returns the first
// OPEN entry, so the most recently listed open order wins.
func PickOpenFulfillmentOrder(list []FulfillmentOrder) (string, bool) {
	for i := len(list) - 1; i >= 0; i-- {
		id := strings.TrimSpace(list[i].ID)
		if id != "" && strings.EqualFold(strings.TrimSpace(list[i].Status), FulfillmentOrderStatusOpen) {
			return id, true
		}
	}
	return "", false
}

// SplitTags parses the comma separated tag string used by the commerce
// platform REST surface.
func SplitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func ContainsTag(tags []string, tag string) bool {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return false
	}
	for _, existing := range tags {
		if strings.EqualFold(strings.TrimSpace(existing), tag) {
			return true
		}
	}
	return false
}

type NotifierCard struct {
	Variables     []string `json:"variables,omitempty"`
	MediaVariable string   `json:"mediaVariable,omitempty"`
}

type NotifierMessage struct {
	AccountCode   string
	Phone         string
	TemplateID    string
	Variables     []string
	MediaVariable string
	Cards         []NotifierCard
}

type NotifierReceipt struct {
	Accepted       bool
	MessageID      string
	ConversationID string
	Status         string
}
