// Package config loads the service configuration from TOML files and
// LECTERN_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/lectern/pkg/auth"
	"github.com/JaimeStill/lectern/pkg/cache"
	"github.com/JaimeStill/lectern/pkg/database"
	"github.com/JaimeStill/lectern/pkg/index"
	"github.com/JaimeStill/lectern/pkg/metastore"
	"github.com/JaimeStill/lectern/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvLecternEnv             = "LECTERN_ENV"
	EnvLecternConfig          = "LECTERN_CONFIG"
	EnvLecternShutdownTimeout = "LECTERN_SHUTDOWN_TIMEOUT"
	EnvLecternVersion         = "LECTERN_VERSION"
)

// DatabaseEnv maps the database section to LECTERN_DB_* variables.
var DatabaseEnv = &database.Env{
	URL:             "LECTERN_DB_URL",
	Host:            "LECTERN_DB_HOST",
	Port:            "LECTERN_DB_PORT",
	Name:            "LECTERN_DB_NAME",
	User:            "LECTERN_DB_USER",
	Password:        "LECTERN_DB_PASSWORD",
	SSLMode:         "LECTERN_DB_SSL_MODE",
	MaxOpenConns:    "LECTERN_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "LECTERN_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "LECTERN_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "LECTERN_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "LECTERN_STORAGE_PROVIDER",
	URL:              "LECTERN_STORAGE_URL",
	ServiceKey:       "LECTERN_STORAGE_SERVICE_KEY",
	Bucket:           "LECTERN_STORAGE_BUCKET",
	Timeout:          "LECTERN_STORAGE_TIMEOUT",
	ConnectionString: "LECTERN_STORAGE_CONNECTION_STRING",
	AccountURL:       "LECTERN_STORAGE_ACCOUNT_URL",
}

var indexEnv = &index.Env{
	URL:     "LECTERN_INDEX_URL",
	APIKey:  "LECTERN_INDEX_API_KEY",
	Index:   "LECTERN_INDEX_NAME",
	Timeout: "LECTERN_INDEX_TIMEOUT",
}

var storeEnv = &metastore.Env{
	Provider:   "LECTERN_STORE_PROVIDER",
	URL:        "LECTERN_STORE_URL",
	ServiceKey: "LECTERN_STORE_SERVICE_KEY",
	Schema:     "LECTERN_STORE_SCHEMA",
	Timeout:    "LECTERN_STORE_TIMEOUT",
}

var authEnv = &auth.Env{
	Mode:     "LECTERN_AUTH_MODE",
	Secret:   "LECTERN_AUTH_SECRET",
	Issuer:   "LECTERN_AUTH_ISSUER",
	JWKSURL:  "LECTERN_AUTH_JWKS_URL",
	Audience: "LECTERN_AUTH_AUDIENCE",
	Role:     "LECTERN_AUTH_ROLE",
}

var cacheEnv = &cache.Env{
	URL:    "LECTERN_CACHE_URL",
	TTL:    "LECTERN_CACHE_TTL",
	Prefix: "LECTERN_CACHE_PREFIX",
}

// Config is the root configuration for the Lectern service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Storage         storage.Config   `toml:"storage"`
	Index           index.Config     `toml:"index"`
	Store           metastore.Config `toml:"store"`
	Database        database.Config  `toml:"database"`
	Auth            auth.Config      `toml:"auth"`
	Cache           cache.Config     `toml:"cache"`
	API             APIConfig        `toml:"api"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the LECTERN_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvLecternEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return parseDuration(c.ShutdownTimeout)
}

// UsesDatabase reports whether the metadata store connects to PostgreSQL directly.
func (c *Config) UsesDatabase() bool {
	return c.Store.Provider == metastore.ProviderPostgres
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config file exists, defaults and environment
// variables provide all configuration. LECTERN_CONFIG names an alternate base file.
func Load() (*Config, error) {
	cfg := &Config{}

	base := BaseConfigFile
	if v := os.Getenv(EnvLecternConfig); v != "" {
		base = v
	}

	if _, err := os.Stat(base); err == nil {
		loaded, err := load(base)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(base); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Storage.Merge(&overlay.Storage)
	c.Index.Merge(&overlay.Index)
	c.Store.Merge(&overlay.Store)
	c.Database.Merge(&overlay.Database)
	c.Auth.Merge(&overlay.Auth)
	c.Cache.Merge(&overlay.Cache)
	c.API.Merge(&overlay.API)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Index.Finalize(indexEnv); err != nil {
		return fmt.Errorf("index: %w", err)
	}
	if err := c.Store.Finalize(storeEnv); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if c.UsesDatabase() {
		if err := c.Database.Finalize(DatabaseEnv); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if err := c.Auth.Finalize(authEnv); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := c.Cache.Finalize(cacheEnv); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvLecternShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvLecternVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &cfg, nil
}

// overlayPath returns config.{LECTERN_ENV}.toml beside base, if it exists.
func overlayPath(base string) string {
	env := os.Getenv(EnvLecternEnv)
	if env == "" {
		return ""
	}

	path := fmt.Sprintf(OverlayConfigPattern, env)
	if dir := filepath.Dir(base); dir != "." {
		path = filepath.Join(dir, path)
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
