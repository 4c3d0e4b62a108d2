package shopify

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-shipnotify/core"
)

const (
	GIDPrefixOrder            = "gid://shopify/Order/"
	GIDPrefixFulfillment      = "gid://shopify/Fulfillment/"
	GIDPrefixFulfillmentOrder = "gid://shopify/FulfillmentOrder/"
)

const (
	eventStatusDefault    = "IN_TRANSIT"
	trackingStatusDefault = "in_transit"
)

// eventStatuses maps classes onto FulfillmentEventStatus values.
var eventStatuses = map[core.StatusClass]string{
	core.StatusClassInTransit:      "IN_TRANSIT",
	core.StatusClassOutForDelivery: "OUT_FOR_DELIVERY",
	core.StatusClassDelivered:      "DELIVERED",
	core.StatusClassReturnToOrigin: "ATTEMPTED_DELIVERY",
}

// trackingStatuses maps classes onto the REST tracking_info status values.
var trackingStatuses = map[core.StatusClass]string{
	core.StatusClassInTransit:      "in_transit",
	core.StatusClassOutForDelivery: "out_for_delivery",
	core.StatusClassDelivered:      "delivered",
	core.StatusClassReturnToOrigin: "failure",
}

// EventStatus returns the fulfillment event status for class. Unmapped
// classes (fulfilled, order created, unknown) share the in-transit value.
func EventStatus(class core.StatusClass) string {
	if value, ok := eventStatuses[class]; ok {
		return value
	}
	return eventStatusDefault
}

// TrackingStatus returns the REST tracking status for class, with the same
// in-transit fallback as EventStatus.
func TrackingStatus(class core.StatusClass) string {
	if value, ok := trackingStatuses[class]; ok {
		return value
	}
	return trackingStatusDefault
}

// ParseNumericID strips prefix from gid and parses the remainder. Malformed
// input returns false.
func ParseNumericID(gid string, prefix string) (int64, bool) {
	gid = strings.TrimSpace(gid)
	if prefix == "" || !strings.HasPrefix(gid, prefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(gid, prefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// nameCandidates returns the display name as given followed by the variant
// with the leading hash toggled.
func nameCandidates(displayName string) []string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return nil
	}
	if strings.HasPrefix(name, "#") {
		bare := strings.TrimPrefix(name, "#")
		if bare == "" {
			return []string{name}
		}
		return []string{name, bare}
	}
	return []string{name, "#" + name}
}

func fulfillmentOrderGID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, GIDPrefixFulfillmentOrder) {
		return id
	}
	return GIDPrefixFulfillmentOrder + id
}
