package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
	"github.com/spf13/viper"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// ViperRawConfigLoader reads a yaml/json/toml file into the raw map consumed
// by cfgx. Keys are lower-cased by viper.
type ViperRawConfigLoader struct {
	Path string
}

func (l ViperRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	path := strings.TrimSpace(l.Path)
	if path == "" {
		return map[string]any{}, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("core: read config %s: %w", path, err)
	}
	return v.AllSettings(), nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver layers defaults < loaded file < runtime overrides.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return resolved, nil
}

// LoadConfig runs the provider and resolver pipeline used by the binary.
func LoadConfig(ctx context.Context, provider ConfigProvider, resolver OptionsResolver, runtime Config) (Config, error) {
	defaults := DefaultConfig()
	loaded := defaults
	if provider != nil {
		cfg, err := provider.Load(ctx, defaults)
		if err != nil {
			return Config{}, err
		}
		loaded = cfg
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	return resolver.Resolve(defaults, loaded, runtime)
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	putString(layer, "service_name", cfg.ServiceName, includeZero)

	database := map[string]any{}
	putString(database, "driver", cfg.Database.Driver, includeZero)
	putString(database, "dsn", cfg.Database.DSN, includeZero)
	if includeZero || cfg.Database.Debug {
		database["debug"] = cfg.Database.Debug
	}
	putSection(layer, "database", database)

	commerce := map[string]any{}
	putString(commerce, "api_version", cfg.Commerce.APIVersion, includeZero)
	putString(commerce, "out_for_delivery_tag", cfg.Commerce.OutForDeliveryTag, includeZero)
	putString(commerce, "product_url_prefix", cfg.Commerce.ProductURLPrefix, includeZero)
	putString(commerce, "webhook_secret", cfg.Commerce.WebhookSecret, includeZero)
	putString(commerce, "tracking_company", cfg.Commerce.TrackingCompany, includeZero)
	putSection(layer, "commerce", commerce)

	notifier := map[string]any{}
	putString(notifier, "url", cfg.Notifier.URL, includeZero)
	putString(notifier, "key", cfg.Notifier.Key, includeZero)
	putString(notifier, "endpoint", cfg.Notifier.Endpoint, includeZero)
	putString(notifier, "test_phone", cfg.Notifier.TestPhone, includeZero)
	putSection(layer, "notifier", notifier)

	tracking := map[string]any{}
	putString(tracking, "url", cfg.TrackingBackend.URL, includeZero)
	putString(tracking, "username", cfg.TrackingBackend.Username, includeZero)
	putString(tracking, "password", cfg.TrackingBackend.Password, includeZero)
	putSection(layer, "tracking_backend", tracking)

	lmstfy := map[string]any{}
	putString(lmstfy, "host", cfg.Reminder.Lmstfy.Host, includeZero)
	if includeZero || cfg.Reminder.Lmstfy.Port != 0 {
		lmstfy["port"] = cfg.Reminder.Lmstfy.Port
	}
	putString(lmstfy, "namespace", cfg.Reminder.Lmstfy.Namespace, includeZero)
	putString(lmstfy, "token", cfg.Reminder.Lmstfy.Token, includeZero)
	putString(lmstfy, "queue", cfg.Reminder.Lmstfy.Queue, includeZero)
	reminder := map[string]any{}
	putString(reminder, "delay", cfg.Reminder.Delay, includeZero)
	putString(reminder, "backend", cfg.Reminder.Backend, includeZero)
	putSection(reminder, "lmstfy", lmstfy)
	putSection(layer, "reminder", reminder)

	httpLayer := map[string]any{}
	putString(httpLayer, "addr", cfg.HTTP.Addr, includeZero)
	putString(httpLayer, "webhook_token", cfg.HTTP.WebhookToken, includeZero)
	putSection(layer, "http", httpLayer)

	if includeZero || len(cfg.Accounts) > 0 {
		accounts := make(map[string]any, len(cfg.Accounts))
		for code, account := range cfg.Accounts {
			accounts[code] = accountToLayerMap(account)
		}
		layer["accounts"] = accounts
	}
	return layer
}

func accountToLayerMap(account AccountConfig) map[string]any {
	return map[string]any{
		"code":                  account.Code,
		"shop":                  account.Shop,
		"base_url":              account.BaseURL,
		"access_token":          account.AccessToken,
		"tracking_url_template": account.TrackingURLTemplate,
		"product_url_prefix":    account.ProductURLPrefix,
		"notifier": map[string]any{
			"url":      account.Notifier.URL,
			"key":      account.Notifier.Key,
			"endpoint": account.Notifier.Endpoint,
		},
		"templates": map[string]any{
			"order_created":    account.Templates.OrderCreated,
			"in_transit":       account.Templates.InTransit,
			"out_for_delivery": account.Templates.OutForDelivery,
			"delivered":        account.Templates.Delivered,
			"abandoned_cart":   account.Templates.AbandonedCart,
		},
	}
}

func putString(layer map[string]any, key string, value string, includeZero bool) {
	if includeZero || strings.TrimSpace(value) != "" {
		layer[key] = value
	}
}

func putSection(layer map[string]any, key string, section map[string]any) {
	if len(section) == 0 {
		return
	}
	layer[key] = section
}
