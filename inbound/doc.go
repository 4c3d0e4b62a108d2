// Package inbound exposes the HTTP ingress for carrier status batches,
// commerce order-created webhooks and abandoned cart webhooks.
//
// Every surface runs through the Dispatcher, which verifies the request and
// claims the provider delivery id so redelivered webhooks are acknowledged
// without running the flow twice. Failed deliveries release their claim and
// stay retryable.
package inbound
