package auth

import (
	"fmt"
	"os"
)

// Config holds bearer token verification settings.
type Config struct {
	Issuer    string `toml:"issuer"`
	JWKSURL   string `toml:"jwks_url"`
	Audience  string `toml:"audience"`
	UserClaim string `toml:"user_claim"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Issuer    string
	JWKSURL   string
	Audience  string
	UserClaim string
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
	if overlay.Issuer != "" {
		c.Issuer = overlay.Issuer
	}
	if overlay.JWKSURL != "" {
		c.JWKSURL = overlay.JWKSURL
	}
	if overlay.Audience != "" {
		c.Audience = overlay.Audience
	}
	if overlay.UserClaim != "" {
		c.UserClaim = overlay.UserClaim
	}
}

func (c *Config) loadDefaults() {
	if c.UserClaim == "" {
		c.UserClaim = "uid"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Issuer != "" {
		if v := os.Getenv(env.Issuer); v != "" {
			c.Issuer = v
		}
	}
	if env.JWKSURL != "" {
		if v := os.Getenv(env.JWKSURL); v != "" {
			c.JWKSURL = v
		}
	}
	if env.Audience != "" {
		if v := os.Getenv(env.Audience); v != "" {
			c.Audience = v
		}
	}
	if env.UserClaim != "" {
		if v := os.Getenv(env.UserClaim); v != "" {
			c.UserClaim = v
		}
	}
}

func (c *Config) validate() error {
	if c.Issuer == "" {
		return fmt.Errorf("issuer required")
	}
	if c.JWKSURL == "" {
		return fmt.Errorf("jwks_url required")
	}
	return nil
}
