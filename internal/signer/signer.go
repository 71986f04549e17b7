// Package signer applies digital signatures to PDFs through the remote
// signing provider, or through a local stub that copies the document.
package signer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
)

// Location types understood by the provider.
const (
	LocationSearchPattern = 1
	LocationCoordinates   = 2
)

// SignTypeVisible places a visible signature appearance on the page.
const SignTypeVisible = 1

// ErrRejected indicates the signing provider refused the request or reported a
// failed signature.
var ErrRejected = errors.New("signing provider rejected the request")

// Request describes one signature to apply to InputPath, written to OutputPath.
// A Page of 0 lets the provider search every page for SearchPattern.
type Request struct {
	EmpCode          string
	Pin              string
	CertName         string
	Company          string
	Title            string
	Name             string
	InputPath        string
	OutputPath       string
	SignType         int
	SignLocationType int
	SearchPattern    string
	Page             int
}

// Signer applies a digital signature.
type Signer interface {
	Sign(ctx context.Context, req Request) error
}

// New returns the remote client, or the stub when cfg selects it.
func New(cfg *Config, logger *slog.Logger) Signer {
	logger = logger.With("system", "signer")
	if cfg.UsesStub() {
		return &stub{logger: logger}
	}
	return &remote{
		endpoint: cfg.BaseURL + cfg.EndpointPath,
		token:    cfg.Token,
		client:   &http.Client{Timeout: cfg.TimeoutDuration()},
		logger:   logger,
	}
}

type stub struct {
	logger *slog.Logger
}

func (s *stub) Sign(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := copyFile(req.InputPath, req.OutputPath); err != nil {
		return fmt.Errorf("stub sign: %w", err)
	}

	s.logger.Info("stub signature applied",
		"input", req.InputPath,
		"output", req.OutputPath,
		"pattern", req.SearchPattern,
		"page", req.Page,
	)
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
