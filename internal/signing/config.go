package signing

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/JaimeStill/docket/internal/signer"
)

// Modes accepted by Config.Mode.
const (
	ModeAuto = "auto"
	ModeMock = "mock"
)

// Config holds signing workflow settings.
type Config struct {
	// Mode "mock" stamps every approval; "auto" signs remotely whenever a PIN is supplied.
	Mode         string        `toml:"mode"`
	ArtifactRoot string        `toml:"artifact_root"`
	TempDir      string        `toml:"temp_dir"`
	Signer       signer.Config `toml:"signer"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Mode         string
	ArtifactRoot string
	TempDir      string
	Signer       *signer.Env
}

// Finalize applies defaults, environment variable overrides, and validation
// for the signing config and its nested signer config.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	if err := c.validate(); err != nil {
		return err
	}

	var signerEnv *signer.Env
	if env != nil {
		signerEnv = env.Signer
	}
	if err := c.Signer.Finalize(signerEnv); err != nil {
		return fmt.Errorf("signer: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Mode != "" {
		c.Mode = overlay.Mode
	}
	if overlay.ArtifactRoot != "" {
		c.ArtifactRoot = overlay.ArtifactRoot
	}
	if overlay.TempDir != "" {
		c.TempDir = overlay.TempDir
	}
	c.Signer.Merge(&overlay.Signer)
}

func (c *Config) loadDefaults() {
	if c.Mode == "" {
		c.Mode = ModeAuto
	}
	if c.ArtifactRoot == "" {
		c.ArtifactRoot = "data"
	}
	if c.TempDir == "" {
		c.TempDir = filepath.Join(os.TempDir(), "docket")
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Mode != "" {
		if v := os.Getenv(env.Mode); v != "" {
			c.Mode = v
		}
	}
	if env.ArtifactRoot != "" {
		if v := os.Getenv(env.ArtifactRoot); v != "" {
			c.ArtifactRoot = v
		}
	}
	if env.TempDir != "" {
		if v := os.Getenv(env.TempDir); v != "" {
			c.TempDir = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeAuto, ModeMock:
	default:
		return fmt.Errorf("invalid mode %q: must be %s or %s", c.Mode, ModeAuto, ModeMock)
	}
	return nil
}
