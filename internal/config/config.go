// Package config loads runtime settings from the environment and an optional
// config file.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"

	"CatalogStore/pkg/kit"
)

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	minJWTSecretLen = 32
)

type Config struct {
	Port     string
	LogLevel string

	StorageDriver string
	ProductsFile  string
	DatabaseURL   string
	SnapshotName  string
	StrictLoad    bool
	SeedFile      string

	JWTSecret     string
	AdminEmail    string
	AdminPassword string
	TokenTTL      time.Duration

	// TrustedProxies lists peers whose X-Forwarded-For is believed.
	TrustedProxies []netip.Prefix

	MetricsEnabled bool
	MetricsToken   string
}

// AdminEnabled reports whether the write routes should be mounted.
func (c Config) AdminEnabled() bool {
	return len(c.JWTSecret) >= minJWTSecretLen && c.AdminPassword != ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_DRIVER", DriverFile)
	v.SetDefault("PRODUCTS_FILE", "products.json")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SNAPSHOT_NAME", "products")
	v.SetDefault("STRICT_LOAD", false)
	v.SetDefault("SEED_FILE", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ADMIN_EMAIL", "admin@catalog.local")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("TOKEN_TTL", 15*time.Minute)
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_TOKEN", "")
}

// Load reads the environment and, when CONFIG_FILE is set, that file.
// Environment variables win over the file.
func Load() (Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{
		Port:           v.GetString("PORT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		StorageDriver:  strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
		ProductsFile:   v.GetString("PRODUCTS_FILE"),
		DatabaseURL:    v.GetString("DATABASE_URL"),
		SnapshotName:   v.GetString("SNAPSHOT_NAME"),
		StrictLoad:     v.GetBool("STRICT_LOAD"),
		SeedFile:       v.GetString("SEED_FILE"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		AdminEmail:     v.GetString("ADMIN_EMAIL"),
		AdminPassword:  v.GetString("ADMIN_PASSWORD"),
		TokenTTL:       v.GetDuration("TOKEN_TTL"),
		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
		MetricsToken:   v.GetString("METRICS_TOKEN"),
	}

	proxies, err := kit.ParseTrustedProxies(v.GetString("TRUSTED_PROXIES"))
	if err != nil {
		return Config{}, fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}
	cfg.TrustedProxies = proxies

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case DriverFile:
		if c.ProductsFile == "" {
			return errors.New("PRODUCTS_FILE is required for the file driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	if c.AdminPassword != "" && len(c.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d chars when ADMIN_PASSWORD is set", minJWTSecretLen)
	}
	return nil
}
