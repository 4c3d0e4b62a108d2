package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultServiceName             = "shipnotify"
	DefaultCommerceAPIVersion      = "2025-07"
	DefaultOutForDeliveryTag       = "AAA_OUT_FOR_DELIVERY"
	DefaultProductURLPrefix        = "https://www.thestrikerstore.com/products/"
	DefaultTrackingURLFallback     = "https://tracking.example.com/track/"
	DefaultReminderDelay           = time.Hour
	DefaultAbandonedCartAccount    = "DEFAULT"
	DefaultFulfillmentTrackCompany = "Shipway"

	ReminderBackendTimer  = "timer"
	ReminderBackendLmstfy = "lmstfy"
	ReminderBackendJob    = "job"

	DatabaseDriverSQLite   = "sqlite3"
	DatabaseDriverPostgres = "postgres"
)

type DatabaseConfig struct {
	Driver string `koanf:"driver" mapstructure:"driver"`
	DSN    string `koanf:"dsn" mapstructure:"dsn"`
	Debug  bool   `koanf:"debug" mapstructure:"debug"`
}

type CommerceConfig struct {
	APIVersion        string `koanf:"api_version" mapstructure:"api_version"`
	OutForDeliveryTag string `koanf:"out_for_delivery_tag" mapstructure:"out_for_delivery_tag"`
	ProductURLPrefix  string `koanf:"product_url_prefix" mapstructure:"product_url_prefix"`
	WebhookSecret     string `koanf:"webhook_secret" mapstructure:"webhook_secret"`
	TrackingCompany   string `koanf:"tracking_company" mapstructure:"tracking_company"`
}

type NotifierConfig struct {
	URL       string `koanf:"url" mapstructure:"url"`
	Key       string `koanf:"key" mapstructure:"key"`
	Endpoint  string `koanf:"endpoint" mapstructure:"endpoint"`
	TestPhone string `koanf:"test_phone" mapstructure:"test_phone"`
}

type TrackingBackendConfig struct {
	URL      string `koanf:"url" mapstructure:"url"`
	Username string `koanf:"username" mapstructure:"username"`
	Password string `koanf:"password" mapstructure:"password"`
}

type LmstfyConfig struct {
	Host      string `koanf:"host" mapstructure:"host"`
	Port      int    `koanf:"port" mapstructure:"port"`
	Namespace string `koanf:"namespace" mapstructure:"namespace"`
	Token     string `koanf:"token" mapstructure:"token"`
	Queue     string `koanf:"queue" mapstructure:"queue"`
}

type ReminderConfig struct {
	Delay   string       `koanf:"delay" mapstructure:"delay"`
	Backend string       `koanf:"backend" mapstructure:"backend"`
	Lmstfy  LmstfyConfig `koanf:"lmstfy" mapstructure:"lmstfy"`
}

// DelayDuration parses Delay, falling back to one hour for empty or
// malformed values.
func (c ReminderConfig) DelayDuration() time.Duration {
	raw := strings.TrimSpace(c.Delay)
	if raw == "" {
		return DefaultReminderDelay
	}
	delay, err := time.ParseDuration(raw)
	if err != nil || delay < 0 {
		return DefaultReminderDelay
	}
	return delay
}

type HTTPConfig struct {
	Addr string `koanf:"addr" mapstructure:"addr"`
	// WebhookToken, when set, is required in X-Webhook-Token on the carrier
	// batch endpoint.
	WebhookToken string `koanf:"webhook_token" mapstructure:"webhook_token"`
}

type Config struct {
	ServiceName     string                   `koanf:"service_name" mapstructure:"service_name"`
	Database        DatabaseConfig           `koanf:"database" mapstructure:"database"`
	Commerce        CommerceConfig           `koanf:"commerce" mapstructure:"commerce"`
	Notifier        NotifierConfig           `koanf:"notifier" mapstructure:"notifier"`
	TrackingBackend TrackingBackendConfig    `koanf:"tracking_backend" mapstructure:"tracking_backend"`
	Reminder        ReminderConfig           `koanf:"reminder" mapstructure:"reminder"`
	HTTP            HTTPConfig               `koanf:"http" mapstructure:"http"`
	Accounts        map[string]AccountConfig `koanf:"accounts" mapstructure:"accounts"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: DefaultServiceName,
		Database: DatabaseConfig{
			Driver: DatabaseDriverSQLite,
			DSN:    "file:shipnotify.db?cache=shared&_foreign_keys=on",
		},
		Commerce: CommerceConfig{
			APIVersion:        DefaultCommerceAPIVersion,
			OutForDeliveryTag: DefaultOutForDeliveryTag,
			ProductURLPrefix:  DefaultProductURLPrefix,
			TrackingCompany:   DefaultFulfillmentTrackCompany,
		},
		Reminder: ReminderConfig{
			Delay:   DefaultReminderDelay.String(),
			Backend: ReminderBackendTimer,
		},
		HTTP:     HTTPConfig{Addr: ":8080"},
		Accounts: map[string]AccountConfig{},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	switch strings.TrimSpace(strings.ToLower(c.Database.Driver)) {
	case "", DatabaseDriverSQLite, "sqlite", DatabaseDriverPostgres:
	default:
		return fmt.Errorf("core: unsupported database driver %q", c.Database.Driver)
	}
	switch strings.TrimSpace(strings.ToLower(c.Reminder.Backend)) {
	case "", ReminderBackendTimer, ReminderBackendJob:
	case ReminderBackendLmstfy:
		if strings.TrimSpace(c.Reminder.Lmstfy.Host) == "" || strings.TrimSpace(c.Reminder.Lmstfy.Queue) == "" {
			return fmt.Errorf("core: reminder.lmstfy host and queue are required for the lmstfy backend")
		}
	default:
		return fmt.Errorf("core: unsupported reminder backend %q", c.Reminder.Backend)
	}
	for code, account := range c.Accounts {
		if strings.TrimSpace(code) == "" {
			return fmt.Errorf("core: account code is required")
		}
		if strings.TrimSpace(account.Shop) == "" && strings.TrimSpace(account.BaseURL) == "" {
			return fmt.Errorf("core: account %q requires shop or base_url", code)
		}
	}
	return nil
}

type TemplateConfig struct {
	OrderCreated   string `koanf:"order_created" mapstructure:"order_created"`
	InTransit      string `koanf:"in_transit" mapstructure:"in_transit"`
	OutForDelivery string `koanf:"out_for_delivery" mapstructure:"out_for_delivery"`
	Delivered      string `koanf:"delivered" mapstructure:"delivered"`
	AbandonedCart  string `koanf:"abandoned_cart" mapstructure:"abandoned_cart"`
}

func (t TemplateConfig) ForKind(kind MessageKind) string {
	switch kind {
	case MessageKindOrderCreated:
		return strings.TrimSpace(t.OrderCreated)
	case MessageKindInTransit:
		return strings.TrimSpace(t.InTransit)
	case MessageKindOutForDelivery:
		return strings.TrimSpace(t.OutForDelivery)
	case MessageKindDelivered:
		return strings.TrimSpace(t.Delivered)
	case MessageKindAbandonedCart:
		return strings.TrimSpace(t.AbandonedCart)
	default:
		return ""
	}
}

type NotifierAccountConfig struct {
	URL      string `koanf:"url" mapstructure:"url"`
	Key      string `koanf:"key" mapstructure:"key"`
	Endpoint string `koanf:"endpoint" mapstructure:"endpoint"`
}

// AccountConfig is the per-tenant configuration. It is read-only once the
// directory is built.
type AccountConfig struct {
	Code                string                `koanf:"code" mapstructure:"code"`
	Shop                string                `koanf:"shop" mapstructure:"shop"`
	BaseURL             string                `koanf:"base_url" mapstructure:"base_url"`
	AccessToken         string                `koanf:"access_token" mapstructure:"access_token"`
	TrackingURLTemplate string                `koanf:"tracking_url_template" mapstructure:"tracking_url_template"`
	ProductURLPrefix    string                `koanf:"product_url_prefix" mapstructure:"product_url_prefix"`
	Notifier            NotifierAccountConfig `koanf:"notifier" mapstructure:"notifier"`
	Templates           TemplateConfig        `koanf:"templates" mapstructure:"templates"`
}

// ShopName strips the scheme and the platform domain suffix from Shop.
func (a AccountConfig) ShopName() string {
	shop := strings.TrimSpace(a.Shop)
	shop = strings.TrimPrefix(shop, "https://")
	shop = strings.TrimPrefix(shop, "http://")
	shop = strings.TrimSuffix(shop, "/")
	shop = strings.TrimSuffix(shop, ".myshopify.com")
	return shop
}

// APIBaseURL resolves the admin REST root. BaseURL wins when configured.
func (a AccountConfig) APIBaseURL(apiVersion string) string {
	if base := strings.TrimSuffix(strings.TrimSpace(a.BaseURL), "/"); base != "" {
		return base
	}
	version := strings.TrimSpace(apiVersion)
	if version == "" {
		version = DefaultCommerceAPIVersion
	}
	shop := a.ShopName()
	if shop == "" {
		return ""
	}
	return "https://" + shop + ".myshopify.com/admin/api/" + version
}

func (a AccountConfig) GraphQLURL(apiVersion string) string {
	base := a.APIBaseURL(apiVersion)
	if base == "" {
		return ""
	}
	return base + "/graphql.json"
}

// TrackingURL renders the tracking link for an AWB. An empty AWB has no link.
func (a AccountConfig) TrackingURL(awb string) string {
	awb = strings.TrimSpace(awb)
	if awb == "" {
		return ""
	}
	if template := strings.TrimSpace(a.TrackingURLTemplate); template != "" {
		return strings.ReplaceAll(template, "{awb}", awb)
	}
	return DefaultTrackingURLFallback + awb
}

func (a AccountConfig) ProductURLPrefixOr(fallback string) string {
	if prefix := strings.TrimSpace(a.ProductURLPrefix); prefix != "" {
		return prefix
	}
	if fallback = strings.TrimSpace(fallback); fallback != "" {
		return fallback
	}
	return DefaultProductURLPrefix
}
