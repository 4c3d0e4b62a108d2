package notify

import (
	"strings"

	"github.com/goliatone/go-shipnotify/core"
)

const productReviewAnchor = "#judgeme"

// Template variable lists are positional contracts with the notifier
// templates. Positions must not move.

func InTransitVariables(event core.StatusEvent, trackingURL string) []string {
	return []string{event.FirstName, event.ProductCountText(), event.OrderID, trackingURL}
}

func OutForDeliveryVariables(event core.StatusEvent, trackingURL string) []string {
	return []string{event.FirstName, event.ProductCountText() + " item", event.OrderID, trackingURL}
}

func DeliveredVariables(orderID string, productURL string) []string {
	return []string{orderID, productURL, productURL}
}

func OrderCreatedVariables(firstName string, orderName string) []string {
	return []string{firstName, orderName}
}

func AbandonedCartVariables(firstName string, landingPageURL string) []string {
	return []string{firstName, landingPageURL}
}

// ProductURL builds the review link for a product handle. An empty handle
// yields the bare prefix.
func ProductURL(prefix string, handle string) string {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return prefix
	}
	return prefix + handle + productReviewAnchor
}

// trackingCards returns the single media card used by the shipment templates.
func trackingCards(trackingURL string) (string, []core.NotifierCard) {
	if strings.TrimSpace(trackingURL) == "" {
		return "", nil
	}
	return trackingURL, []core.NotifierCard{{MediaVariable: trackingURL}}
}

func productCards(prefix string, handles []string) (string, []core.NotifierCard) {
	if len(handles) == 0 {
		return "", nil
	}
	cards := make([]core.NotifierCard, 0, len(handles))
	for _, handle := range handles {
		cards = append(cards, core.NotifierCard{MediaVariable: ProductURL(prefix, handle)})
	}
	return ProductURL(prefix, handles[0]), cards
}
