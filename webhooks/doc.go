// Package webhooks verifies inbound webhook signatures and tokens before the
// payload reaches the flows.
package webhooks
