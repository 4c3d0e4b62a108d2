// Package core contains the shipment notification domain contracts, entities,
// configuration and error envelopes. Provider, storage and transport adapters
// depend on this package; core must not depend on any of them.
package core
