// Package status maps free-text carrier statuses onto the shipment lifecycle
// classes the engine acts on.
package status

import (
	"strings"

	"github.com/goliatone/go-shipnotify/core"
)

type rule struct {
	class    core.StatusClass
	equals   []string
	contains []string
}

// rules are evaluated in order and the first match wins.
var rules = []rule{
	{class: core.StatusClassOutForDelivery, contains: []string{"OUT FOR DELIVERY"}},
	{class: core.StatusClassDelivered, equals: []string{"DELIVERED"}},
	{class: core.StatusClassInTransit, contains: []string{"IN TRANSIT", "PICKED UP"}},
	{class: core.StatusClassFulfilled, contains: []string{"SHIPMENT BOOKED", "OUT FOR PICKUP", "SHPFR1", "SHIPPED"}},
	{class: core.StatusClassReturnToOrigin, contains: []string{"RTO", "RETURN TO ORIGIN"}},
}

// Normalize trims, upper-cases and replaces underscores with spaces.
func Normalize(raw string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(raw)), "_", " ")
}

// Classify never fails; anything unrecognized is StatusClassUnknown.
func Classify(raw string) core.StatusClass {
	normalized := Normalize(raw)
	if normalized == "" {
		return core.StatusClassUnknown
	}
	for _, r := range rules {
		if r.matches(normalized) {
			return r.class
		}
	}
	return core.StatusClassUnknown
}

// Unchanged reports whether current and previous normalize to the same value.
// Two empty statuses are not considered a transition.
func Unchanged(current string, previous string) bool {
	return Normalize(current) == Normalize(previous)
}

func (r rule) matches(normalized string) bool {
	for _, value := range r.equals {
		if normalized == value {
			return true
		}
	}
	for _, value := range r.contains {
		if strings.Contains(normalized, value) {
			return true
		}
	}
	return false
}
