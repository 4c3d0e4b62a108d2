package shipnotify

import (
	"github.com/goliatone/go-shipnotify/core"
	"github.com/goliatone/go-shipnotify/providers/botspace"
	"github.com/goliatone/go-shipnotify/providers/claimio"
	"github.com/goliatone/go-shipnotify/providers/shopify"
)

func ShopifyClient(cfg Config, accounts *core.AccountDirectory, deps Dependencies) *shopify.Client {
	return shopify.NewClient(accounts, shopify.Config{
		APIVersion:      cfg.Commerce.APIVersion,
		TrackingCompany: cfg.Commerce.TrackingCompany,
		HTTPClient:      deps.HTTPClient,
		Logger:          deps.Logger,
		LoggerProvider:  deps.LoggerProvider,
		Metrics:         deps.Metrics,
	})
}

func BotspaceClient(cfg Config, accounts *core.AccountDirectory, deps Dependencies) *botspace.Client {
	return botspace.NewClient(accounts, botspace.Config{
		Notifier:       cfg.Notifier,
		HTTPClient:     deps.HTTPClient,
		Logger:         deps.Logger,
		LoggerProvider: deps.LoggerProvider,
		Metrics:        deps.Metrics,
	})
}

func ClaimioReporter(cfg Config, deps Dependencies) *claimio.Reporter {
	return claimio.NewReporter(claimio.Config{
		Backend:        cfg.TrackingBackend,
		HTTPClient:     deps.HTTPClient,
		Logger:         deps.Logger,
		LoggerProvider: deps.LoggerProvider,
		Metrics:        deps.Metrics,
	})
}
