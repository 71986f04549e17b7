package signer

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the remote signing provider settings.
// When Stub is true, or no BaseURL is configured, signing copies the input
// document unchanged.
type Config struct {
	BaseURL      string `toml:"base_url"`
	EndpointPath string `toml:"endpoint_path"`
	Token        string `toml:"token"`
	Timeout      string `toml:"timeout"`
	Stub         bool   `toml:"stub"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	BaseURL      string
	EndpointPath string
	Token        string
	Timeout      string
	Stub         string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// UsesStub reports whether the local stub replaces the remote provider.
func (c *Config) UsesStub() bool {
	return c.Stub || c.BaseURL == ""
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
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.EndpointPath != "" {
		c.EndpointPath = overlay.EndpointPath
	}
	if overlay.Token != "" {
		c.Token = overlay.Token
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.Stub {
		c.Stub = true
	}
}

func (c *Config) loadDefaults() {
	if c.EndpointPath == "" {
		c.EndpointPath = "/api/sign/pdf"
	}
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.EndpointPath != "" {
		if v := os.Getenv(env.EndpointPath); v != "" {
			c.EndpointPath = v
		}
	}
	if env.Token != "" {
		if v := os.Getenv(env.Token); v != "" {
			c.Token = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.Stub != "" {
		if v := os.Getenv(env.Stub); v != "" {
			if stub, err := strconv.ParseBool(v); err == nil {
				c.Stub = stub
			}
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
	return nil
}
