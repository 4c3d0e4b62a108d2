package inbound

import "github.com/goliatone/go-shipnotify/webhooks"

type RoutesConfig struct {
	Batch        BatchProcessor
	OrderCreated OrderCreatedProcessor
	Carts        CartAcceptor

	// WebhookToken guards the carrier and cart routes when set.
	WebhookToken string
	// ShopifySecret enables HMAC verification of order-created deliveries.
	ShopifySecret string

	Store ClaimStore
}

// NewRoutes registers every configured surface. Surfaces without a flow are
// left unregistered and answer 404.
func NewRoutes(cfg RoutesConfig) (*Dispatcher, error) {
	dispatcher := NewDispatcher(cfg.Store)
	token := webhooks.TokenVerifier(cfg.WebhookToken)
	if cfg.Batch != nil {
		if err := dispatcher.Register(SurfaceStatusBatch, StatusBatchHandler(cfg.Batch), token); err != nil {
			return nil, err
		}
	}
	if cfg.OrderCreated != nil {
		if err := dispatcher.Register(SurfaceOrderCreated, OrderCreatedHandler(cfg.OrderCreated), webhooks.ShopifyVerifier(cfg.ShopifySecret)); err != nil {
			return nil, err
		}
	}
	if cfg.Carts != nil {
		if err := dispatcher.Register(SurfaceCartAbandoned, CartAbandonedHandler(cfg.Carts), token); err != nil {
			return nil, err
		}
	}
	return dispatcher, nil
}
