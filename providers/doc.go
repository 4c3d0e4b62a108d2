// Package providers groups the outbound integrations: the commerce platform
// client (shopify), the messaging notifier (botspace) and the message
// tracking backend (claimio).
package providers
