package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

func TestCfgxConfigProvider_AppliesDefaults(t *testing.T) {
	provider := NewCfgxConfigProvider(StaticRawConfigLoader{Values: map[string]any{
		"service_name": "shipnotify-test",
		"notifier": map[string]any{
			"url": "https://notifier.test",
		},
	}})
	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceName != "shipnotify-test" {
		t.Fatalf("expected raw service name, got %q", cfg.ServiceName)
	}
	if cfg.Notifier.URL != "https://notifier.test" {
		t.Fatalf("expected notifier url, got %q", cfg.Notifier.URL)
	}
	if cfg.Commerce.APIVersion != DefaultCommerceAPIVersion {
		t.Fatalf("expected default api version, got %q", cfg.Commerce.APIVersion)
	}
}

func TestCfgxConfigProvider_RejectsInvalidConfig(t *testing.T) {
	provider := NewCfgxConfigProvider(StaticRawConfigLoader{Values: map[string]any{
		"reminder": map[string]any{"backend": "carrier-pigeon"},
	}})
	if _, err := provider.Load(context.Background(), DefaultConfig()); err == nil {
		t.Fatalf("expected validation failure for unknown reminder backend")
	}
}

func TestViperRawConfigLoader_ReadsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shipnotify.yaml")
	body := []byte(`
service_name: from-file
reminder:
  delay: 30m
accounts:
  acme:
    shop: acme-store
    access_token: shpat_test
    templates:
      in_transit: tpl-transit
`)
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(context.Background(), NewCfgxConfigProvider(ViperRawConfigLoader{Path: path}), nil, Config{})
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ServiceName != "from-file" {
		t.Fatalf("expected file service name, got %q", cfg.ServiceName)
	}
	if got := cfg.Reminder.DelayDuration(); got != 30*time.Minute {
		t.Fatalf("expected 30m delay, got %s", got)
	}
	dir2 := NewAccountDirectory(cfg.Accounts)
	account, ok := dir2.Lookup("ACME")
	if !ok {
		t.Fatalf("expected acme account, got %#v", cfg.Accounts)
	}
	if account.Templates.ForKind(MessageKindInTransit) != "tpl-transit" {
		t.Fatalf("unexpected templates %#v", account.Templates)
	}
}

func TestViperRawConfigLoader_MissingFile(t *testing.T) {
	loader := ViperRawConfigLoader{Path: filepath.Join(t.TempDir(), "missing.yaml")}
	if _, err := loader.LoadRaw(context.Background()); err == nil {
		t.Fatalf("expected missing file error")
	}
	raw, err := (ViperRawConfigLoader{}).LoadRaw(context.Background())
	if err != nil || len(raw) != 0 {
		t.Fatalf("expected empty raw config without path, got %#v err=%v", raw, err)
	}
}

func TestGoOptionsResolver_RuntimeOverridesFile(t *testing.T) {
	loaded := DefaultConfig()
	loaded.ServiceName = "from-file"
	loaded.Notifier.TestPhone = "+910000000000"

	cfg, err := LoadConfig(context.Background(), &fixedConfigProvider{cfg: loaded}, GoOptionsResolver{}, Config{
		ServiceName: "runtime",
		HTTP:        HTTPConfig{Addr: ":9090"},
	})
	if err != nil {
		t.Fatalf("resolve config: %v", err)
	}
	if cfg.ServiceName != "runtime" {
		t.Fatalf("expected runtime service name, got %q", cfg.ServiceName)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Fatalf("expected runtime addr, got %q", cfg.HTTP.Addr)
	}
	if cfg.Notifier.TestPhone != "+910000000000" {
		t.Fatalf("expected file value to survive, got %q", cfg.Notifier.TestPhone)
	}
	if cfg.Database.Driver != DatabaseDriverSQLite {
		t.Fatalf("expected default driver, got %q", cfg.Database.Driver)
	}
}

func TestReminderConfig_DelayFallback(t *testing.T) {
	for _, raw := range []string{"", "soon", "-5m"} {
		if got := (ReminderConfig{Delay: raw}).DelayDuration(); got != DefaultReminderDelay {
			t.Fatalf("expected default delay for %q, got %s", raw, got)
		}
	}
}
