// Package shopify implements core.CommerceClient against the Shopify Admin
// API. Reads and fulfillment mutations go through GraphQL; tracking and tag
// updates use the REST surface.
package shopify
