package metastore

import (
	"fmt"
	"os"
	"time"
)

const (
	ProviderPostgREST = "postgrest"
	ProviderPostgres  = "postgres"
)

// Config holds metadata store connection parameters. The postgres provider
// takes its connection from the database configuration.
type Config struct {
	Provider   string `toml:"provider"`
	URL        string `toml:"url"`
	ServiceKey string `toml:"service_key"`
	Schema     string `toml:"schema"`
	Timeout    string `toml:"timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider   string
	URL        string
	ServiceKey string
	Schema     string
	Timeout    string
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
	if overlay.Schema != "" {
		c.Schema = overlay.Schema
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderPostgREST
	}
	if c.Schema == "" {
		c.Schema = "public"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Provider != "" {
		if v := os.Getenv(env.Provider); v != "" {
			c.Provider = v
		}
	}
	if env.URL != "" {
		if v := os.Getenv(env.URL); v != "" {
			c.URL = v
		}
	}
	if env.ServiceKey != "" {
		if v := os.Getenv(env.ServiceKey); v != "" {
			c.ServiceKey = v
		}
	}
	if env.Schema != "" {
		if v := os.Getenv(env.Schema); v != "" {
			c.Schema = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	switch c.Provider {
	case ProviderPostgREST:
		if c.URL == "" {
			return fmt.Errorf("url required for provider %s", c.Provider)
		}
		if c.ServiceKey == "" {
			return fmt.Errorf("service_key required for provider %s", c.Provider)
		}
	case ProviderPostgres:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}

	return nil
}
