package auth

import (
	"fmt"
	"os"
	"strings"
)

// Verification modes.
const (
	ModeNone   = "none"
	ModeSecret = "secret"
	ModeOIDC   = "oidc"
)

// Config selects how bearer tokens on admin routes are verified.
//
// ModeSecret verifies HS256 tokens with Secret, such as Supabase access
// tokens signed with the project JWT secret. ModeOIDC verifies tokens
// against the signing keys published at JWKSURL. Issuer and Audience are
// checked when set. Role, when set, must equal the token's role claim.
type Config struct {
	Mode     string `toml:"mode"`
	Secret   string `toml:"secret"`
	Issuer   string `toml:"issuer"`
	JWKSURL  string `toml:"jwks_url"`
	Audience string `toml:"audience"`
	Role     string `toml:"role"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Mode     string
	Secret   string
	Issuer   string
	JWKSURL  string
	Audience string
	Role     string
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
	if overlay.Mode != "" {
		c.Mode = overlay.Mode
	}
	if overlay.Secret != "" {
		c.Secret = overlay.Secret
	}
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.JWKSURL != "" {
		c.JWKSURL = overlay.JWKSURL
	}
	if overlay.Audience != "" {
		c.Audience = overlay.Audience
	}
	if overlay.Role != "" {
		c.Role = overlay.Role
	}
}

func (c *Config) loadDefaults() {
	if c.Mode == "" {
		c.Mode = ModeNone
	}
}

func (c *Config) loadEnv(env *Env) {
	setFromEnv(env.Mode, &c.Mode)
	setFromEnv(env.Secret, &c.Secret)
	setFromEnv(env.Issuer, &c.Issuer)
	setFromEnv(env.JWKSURL, &c.JWKSURL)
	setFromEnv(env.Audience, &c.Audience)
	setFromEnv(env.Role, &c.Role)
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeNone:
	case ModeSecret:
		if c.Secret == "" {
			return fmt.Errorf("secret required for mode %s", c.Mode)
		}
	case ModeOIDC:
		if c.Issuer == "" {
			return fmt.Errorf("issuer required for mode %s", c.Mode)
		}
		if c.JWKSURL == "" {
			c.JWKSURL = strings.TrimRight(c.Issuer, "/") + "/.well-known/jwks.json"
		}
	default:
		return fmt.Errorf("unknown auth mode %q", c.Mode)
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
