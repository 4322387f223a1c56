package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(viper.New())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Database.Path != "orderlife.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Collections.Orders != DefaultOrdersCollection || cfg.Collections.Mirror != DefaultMirrorCollection {
		t.Errorf("Collections = %+v", cfg.Collections)
	}
}

func TestLoadFrom_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("verbose", true)
	v.Set("database.path", "/tmp/x.db")
	v.Set("http.addr", "127.0.0.1:9000")
	v.Set("collections.orders", "tenants/{owner}/orders")
	v.Set("collections.mirror", "tenants/{counterparty}/outbox")

	cfg, err := LoadFrom(v)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("verbose should force debug, got %q", cfg.LogLevel)
	}
	if cfg.Database.Path != "/tmp/x.db" || cfg.HTTP.Addr != "127.0.0.1:9000" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Collections.Orders != "tenants/{owner}/orders" {
		t.Errorf("Collections.Orders = %q", cfg.Collections.Orders)
	}
}

func TestLoadFrom_RejectsTemplatesWithoutPlaceholders(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"collections.orders", "orders"},
		{"collections.mirror", "sent"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.value)

			if _, err := LoadFrom(v); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}
