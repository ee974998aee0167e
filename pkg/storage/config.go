package storage

import (
	"fmt"
	"os"
	"time"
)

// Storage providers.
const (
	ProviderSupabase = "supabase"
	ProviderAzure    = "azure"
)

// Config holds object storage connection parameters.
// URL and ServiceKey configure the Supabase provider; ConnectionString or
// AccountURL configure the Azure provider. Bucket is the container name for Azure.
type Config struct {
	Provider         string `toml:"provider"`
	URL              string `toml:"url"`
	ServiceKey       string `toml:"service_key"`
	Bucket           string `toml:"bucket"`
	Timeout          string `toml:"timeout"`
	ConnectionString string `toml:"connection_string"`
	AccountURL       string `toml:"account_url"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider         string
	URL              string
	ServiceKey       string
	Bucket           string
	Timeout          string
	ConnectionString string
	AccountURL       string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.URL != "" {
		c.URL = overlay.URL
	}
	if overlay.ServiceKey != "" {
		c.ServiceKey = overlay.ServiceKey
	}
	if overlay.Bucket != "" {
		c.Bucket = overlay.Bucket
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
	if overlay.AccountURL != "" {
		c.AccountURL = overlay.AccountURL
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderSupabase
	}
	if c.Bucket == "" {
		c.Bucket = "docs"
	}
	if c.Timeout == "" {
		c.Timeout = "2m"
	}
}

func (c *Config) loadEnv(env *Env) {
	setFromEnv(env.Provider, &c.Provider)
	setFromEnv(env.URL, &c.URL)
	setFromEnv(env.ServiceKey, &c.ServiceKey)
	setFromEnv(env.Bucket, &c.Bucket)
	setFromEnv(env.Timeout, &c.Timeout)
	setFromEnv(env.ConnectionString, &c.ConnectionString)
	setFromEnv(env.AccountURL, &c.AccountURL)
}

func (c *Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket required")
	}
	if d, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	} else if d <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	switch c.Provider {
	case ProviderSupabase:
		if c.URL == "" {
			return fmt.Errorf("url required")
		}
		if c.ServiceKey == "" {
			return fmt.Errorf("service_key required")
		}
	case ProviderAzure:
		if c.ConnectionString == "" && c.AccountURL == "" {
			return fmt.Errorf("connection_string or account_url required")
		}
	default:
		return fmt.Errorf("unknown provider: %q", c.Provider)
	}
	return nil
}

func setFromEnv(name string, target *string) {
	if name == "" {
		return
	}
	if v := os.Getenv(name); v != "" {
		*target = v
	}
}
