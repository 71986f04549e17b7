package render

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/internal/slots"
)

type memorySource map[string]string

func (m memorySource) Download(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m[key]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(strings.NewReader(data)), nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOffsetUniquePerSlot(t *testing.T) {
	seen := make(map[[2]int]slots.Key)
	for _, k := range slots.All() {
		x, y := offset(k)
		if prev, ok := seen[[2]int{x, y}]; ok {
			t.Errorf("%s shares stamp cell with %s", k, prev)
		}
		seen[[2]int{x, y}] = k
	}
}

func TestOffsetFirstCell(t *testing.T) {
	x, y := offset(slots.Submitter)
	if x != margin || y != margin {
		t.Errorf("offset(Submitter) = (%d, %d), want (%d, %d)", x, y, margin, margin)
	}
}

func TestRenderToPDFRejectsInvalidSource(t *testing.T) {
	dir := t.TempDir()
	r := New(memorySource{"dossiers/x/source.pdf": "not a pdf"}, discard())

	_, err := r.RenderToPDF(context.Background(), &dossiers.Dossier{SourceKey: "dossiers/x/source.pdf"}, dir)
	if !errors.Is(err, ErrInvalidSource) {
		t.Fatalf("err = %v, want ErrInvalidSource", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("render dir has %d leftover files", len(entries))
	}
}

func TestRenderToPDFMissingSource(t *testing.T) {
	r := New(memorySource{}, discard())

	_, err := r.RenderToPDF(context.Background(), &dossiers.Dossier{SourceKey: "missing"}, t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing source")
	}
}

func TestRenderSignedMockHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	err := New(memorySource{}, discard()).RenderSignedMock(
		ctx,
		filepath.Join(dir, "in.pdf"),
		filepath.Join(dir, "out.pdf"),
		Stamp{SlotKey: slots.Director},
	)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestPageCountInvalid(t *testing.T) {
	if got := PageCount(discard(), []byte("garbage")); got != nil {
		t.Errorf("PageCount(garbage) = %d, want nil", *got)
	}
}
