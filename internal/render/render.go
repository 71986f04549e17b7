// Package render prepares the PDFs the signing workflow operates on: it
// fetches a dossier's uploaded source and stamps mock signatures onto a copy.
package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/internal/slots"
)

// Stamps are placed on the last page in a grid, one cell per slot.
const (
	stampPage    = "l"
	stampColumns = 4
	cellWidth    = 140
	cellHeight   = 50
	margin       = 20
)

// Source yields the uploaded source document of a dossier.
type Source interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// Stamp describes one mock signature.
type Stamp struct {
	SlotKey     slots.Key
	SignerName  string
	Image       []byte
	ContentType string
	SignedAt    time.Time
}

// Renderer produces the working PDFs of the signing workflow.
type Renderer interface {
	// RenderToPDF writes the dossier's source as a fresh PDF inside dir and
	// returns its path.
	RenderToPDF(ctx context.Context, d *dossiers.Dossier, dir string) (string, error)
	// RenderSignedMock writes a copy of in to out with the stamp applied.
	RenderSignedMock(ctx context.Context, in, out string, stamp Stamp) error
}

type pdf struct {
	source Source
	logger *slog.Logger
}

// New creates a Renderer that reads sources from blob storage.
func New(source Source, logger *slog.Logger) Renderer {
	api.DisableConfigDir()
	return &pdf{
		source: source,
		logger: logger.With("system", "render"),
	}
}

func (p *pdf) RenderToPDF(ctx context.Context, d *dossiers.Dossier, dir string) (string, error) {
	body, err := p.source.Download(ctx, d.SourceKey)
	if err != nil {
		return "", fmt.Errorf("download source %s: %w", d.SourceKey, err)
	}
	defer body.Close()

	f, err := os.CreateTemp(dir, "source-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create render file: %w", err)
	}
	path := f.Name()

	_, err = io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write render file: %w", err)
	}

	if err := api.ValidateFile(path, nil); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}

	return path, nil
}

func (p *pdf) RenderSignedMock(ctx context.Context, in, out string, stamp Stamp) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(stamp.Image) > 0 {
		err := p.stampImage(in, out, stamp)
		if err == nil {
			return nil
		}
		p.logger.Warn("image stamp failed, falling back to text",
			"slot", stamp.SlotKey,
			"error", err,
		)
	}

	text := fmt.Sprintf("%s %s", stamp.SignerName, stamp.SignedAt.Format("2006-01-02 15:04"))
	desc := fmt.Sprintf("fontname:Helvetica, points:9, %s, scalefactor:1 abs, rotation:0, fillcolor:#1a1a1a", placement(stamp.SlotKey))

	if err := api.AddTextWatermarksFile(in, out, []string{stampPage}, true, text, desc, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrStampFailed, err)
	}
	return nil
}

func (p *pdf) stampImage(in, out string, stamp Stamp) error {
	ext := ".png"
	if stamp.ContentType == "image/jpeg" {
		ext = ".jpg"
	}

	img, err := os.CreateTemp(filepath.Dir(out), "stamp-*"+ext)
	if err != nil {
		return fmt.Errorf("create stamp image: %w", err)
	}
	defer os.Remove(img.Name())

	_, err = img.Write(stamp.Image)
	if cerr := img.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write stamp image: %w", err)
	}

	desc := fmt.Sprintf("%s, scalefactor:0.2 abs, rotation:0", placement(stamp.SlotKey))
	return api.AddImageWatermarksFile(in, out, []string{stampPage}, true, img.Name(), desc, nil)
}

// PageCount returns the number of pages in data, or nil when it cannot be read.
func PageCount(logger *slog.Logger, data []byte) *int {
	count, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		logger.Warn("failed to extract PDF page count", "error", err)
		return nil
	}
	return &count
}

func placement(key slots.Key) string {
	x, y := offset(key)
	return fmt.Sprintf("position:bl, offset:%d %d", x, y)
}

func offset(key slots.Key) (int, int) {
	i := max(slices.Index(slots.All(), key), 0)
	return margin + (i%stampColumns)*cellWidth, margin + (i/stampColumns)*cellHeight
}
