package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Verbose     bool
	LogLevel    string
	Database    DatabaseConfig
	HTTP        HTTPConfig
	Collections CollectionsConfig
}

// DatabaseConfig holds database settings.
type DatabaseConfig struct {
	Path string
}

// HTTPConfig holds settings for the serve command.
type HTTPConfig struct {
	Addr string
}

// CollectionsConfig holds document path templates. {owner} is the business
// that fulfils the order, {counterparty} the business that placed it.
type CollectionsConfig struct {
	Orders string
	Mirror string
}

const (
	DefaultOrdersCollection = "businesses/{owner}/orderRequests"
	DefaultMirrorCollection = "businesses/{counterparty}/sentOrders"
)

// LoadFrom reads configuration from v and applies defaults.
func LoadFrom(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Verbose:  v.GetBool("verbose"),
		LogLevel: v.GetString("log_level"),
		Database: DatabaseConfig{
			Path: v.GetString("database.path"),
		},
		HTTP: HTTPConfig{
			Addr: v.GetString("http.addr"),
		},
		Collections: CollectionsConfig{
			Orders: v.GetString("collections.orders"),
			Mirror: v.GetString("collections.mirror"),
		},
	}

	// Apply defaults
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Verbose {
		cfg.LogLevel = "debug"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "orderlife.db"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.Collections.Orders == "" {
		cfg.Collections.Orders = DefaultOrdersCollection
	}
	if cfg.Collections.Mirror == "" {
		cfg.Collections.Mirror = DefaultMirrorCollection
	}

	if !strings.Contains(cfg.Collections.Orders, "{owner}") {
		return nil, fmt.Errorf("collections.orders must contain {owner}: %q", cfg.Collections.Orders)
	}
	if !strings.Contains(cfg.Collections.Mirror, "{counterparty}") {
		return nil, fmt.Errorf("collections.mirror must contain {counterparty}: %q", cfg.Collections.Mirror)
	}

	return cfg, nil
}
