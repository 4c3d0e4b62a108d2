package reconcile

import (
	"strings"

	"github.com/goliatone/go-shipnotify/core"
)

// Plan describes how one status class is pushed to the commerce platform.
type Plan struct {
	Class core.StatusClass
	// GuardTag, when set, marks orders already handled for the class and is
	// applied after a successful tracking update.
	GuardTag string
	// AbortClones rejects clone orders instead of notifying them directly.
	AbortClones bool
	Notify      bool
}

// DefaultPlans returns the plan table for the reconciled classes.
func DefaultPlans(outForDeliveryTag string) map[core.StatusClass]Plan {
	tag := strings.TrimSpace(outForDeliveryTag)
	if tag == "" {
		tag = core.DefaultOutForDeliveryTag
	}
	return map[core.StatusClass]Plan{
		core.StatusClassFulfilled: {
			Class:       core.StatusClassFulfilled,
			AbortClones: true,
		},
		core.StatusClassInTransit: {
			Class:  core.StatusClassInTransit,
			Notify: true,
		},
		core.StatusClassOutForDelivery: {
			Class:    core.StatusClassOutForDelivery,
			GuardTag: tag,
			Notify:   true,
		},
		core.StatusClassDelivered: {
			Class:  core.StatusClassDelivered,
			Notify: true,
		},
	}
}
