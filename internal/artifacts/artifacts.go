// Package artifacts keeps the append-only history of signed PDFs for each
// dossier on the local filesystem, with a pointer to the current version and
// an optional mirror of every version to blob storage.
//
// Layout:
//
//	<root>/dossiers/<id-hex>/Signed_v1.pdf
//	<root>/dossiers/<id-hex>/Signed_v2.pdf
//	<root>/dossiers/<id-hex>/current.pointer
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	pointerFile = "current.pointer"
	maxAttempts = 16
)

var versionPattern = regexp.MustCompile(`(?i)^Signed_v(\d+)\.pdf$`)

// Archive receives a copy of every saved version.
type Archive interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
}

// Store is the versioned artifact store rooted at a directory.
type Store struct {
	root    string
	archive Archive
	logger  *slog.Logger
}

// New creates a Store under root. archive may be nil.
func New(root string, archive Archive, logger *slog.Logger) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact root: %w", err)
	}

	return &Store{
		root:    abs,
		archive: archive,
		logger:  logger.With("system", "artifacts"),
	}, nil
}

// Dir returns the folder holding the dossier's versions, creating it if needed.
func (s *Store) Dir(dossierID uuid.UUID) (string, error) {
	dir := filepath.Join(s.root, "dossiers", folderName(dossierID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dossier folder: %w", err)
	}
	return dir, nil
}

// Versions returns the version numbers present for the dossier in ascending order.
func (s *Store) Versions(dossierID uuid.UUID) ([]int, error) {
	dir, err := s.Dir(dossierID)
	if err != nil {
		return nil, err
	}
	return scanVersions(dir)
}

// SaveSignedVersion moves tempPath into the dossier folder as the next
// Signed_vN.pdf, never overwriting an existing version, and points the current
// pointer at it. It returns the absolute path of the new version.
func (s *Store) SaveSignedVersion(ctx context.Context, dossierID uuid.UUID, tempPath string) (string, error) {
	if _, err := os.Stat(tempPath); err != nil {
		return "", fmt.Errorf("%w: %s", ErrSourceMissing, tempPath)
	}

	dir, err := s.Dir(dossierID)
	if err != nil {
		return "", err
	}

	var (
		final   string
		version int
	)

	for range maxAttempts {
		versions, err := scanVersions(dir)
		if err != nil {
			return "", err
		}

		version = 1
		if n := len(versions); n > 0 {
			version = versions[n-1] + 1
		}

		final = filepath.Join(dir, versionName(version))
		err = moveExclusive(tempPath, final)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("move signed version: %w", err)
		}
		final = ""
	}

	if final == "" {
		return "", ErrVersionConflict
	}

	if err := s.SetCurrentPointer(ctx, dossierID, final); err != nil {
		return "", err
	}

	s.mirror(ctx, dossierID, version, final)

	s.logger.Info("signed version saved", "dossier_id", dossierID, "version", version)
	return final, nil
}

// CurrentPointer returns the path recorded in the dossier's pointer file.
func (s *Store) CurrentPointer(_ context.Context, dossierID uuid.UUID) (string, bool, error) {
	dir, err := s.Dir(dossierID)
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(filepath.Join(dir, pointerFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("read current pointer: %w", err)
	}

	path := strings.TrimSpace(string(data))
	return path, path != "", nil
}

// SetCurrentPointer atomically replaces the pointer file with the absolute form of path.
func (s *Store) SetCurrentPointer(_ context.Context, dossierID uuid.UUID, path string) error {
	if strings.TrimSpace(path) == "" {
		return ErrEmptyPath
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve pointer target: %w", err)
	}

	dir, err := s.Dir(dossierID)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, pointerFile+".*")
	if err != nil {
		return fmt.Errorf("write current pointer: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(abs); err != nil {
		tmp.Close()
		return fmt.Errorf("write current pointer: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write current pointer: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, pointerFile)); err != nil {
		return fmt.Errorf("replace current pointer: %w", err)
	}
	return nil
}

// Discard withdraws the latest version when the decision it was saved for
// could not be recorded. The pointer goes back to previous, or is removed when
// previous is empty, and the version file is deleted so the next save reuses
// its number.
func (s *Store) Discard(ctx context.Context, dossierID uuid.UUID, path, previous string) error {
	dir, err := s.Dir(dossierID)
	if err != nil {
		return err
	}

	versions, err := s.Versions(dossierID)
	if err != nil {
		return err
	}
	n := len(versions)
	if n == 0 || filepath.Clean(path) != filepath.Join(dir, versionName(versions[n-1])) {
		return fmt.Errorf("%w: %s", ErrNotLatest, path)
	}

	if previous != "" && filepath.Clean(previous) != filepath.Clean(path) {
		if err := s.SetCurrentPointer(ctx, dossierID, previous); err != nil {
			return err
		}
	} else if err := os.Remove(filepath.Join(dir, pointerFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear current pointer: %w", err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove discarded version: %w", err)
	}

	s.logger.Warn("signed version discarded", "dossier_id", dossierID, "version", versions[n-1])
	return nil
}

// ArchiveKey returns the blob key a version is mirrored to.
func ArchiveKey(dossierID uuid.UUID, version int) string {
	return fmt.Sprintf("dossiers/%s/%s", dossierID, versionName(version))
}

func (s *Store) mirror(ctx context.Context, dossierID uuid.UUID, version int, path string) {
	if s.archive == nil {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		s.logger.Warn("archive mirror failed", "dossier_id", dossierID, "version", version, "error", err)
		return
	}
	defer f.Close()

	key := ArchiveKey(dossierID, version)
	if err := s.archive.Upload(ctx, key, f, "application/pdf"); err != nil {
		s.logger.Warn("archive mirror failed", "dossier_id", dossierID, "key", key, "error", err)
	}
}

func scanVersions(dir string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan versions: %w", err)
	}

	versions := make([]int, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := versionPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			versions = append(versions, v)
		}
	}

	slices.Sort(versions)
	return versions, nil
}

// moveExclusive moves src to dst and fails with fs.ErrExist when dst exists.
// A hard link claims dst atomically; across devices it falls back to an
// exclusive-create copy.
func moveExclusive(src, dst string) error {
	err := os.Link(src, dst)
	switch {
	case err == nil:
		return os.Remove(src)
	case errors.Is(err, fs.ErrExist):
		return err
	}

	if err := copyExclusive(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyExclusive(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

func versionName(v int) string {
	return fmt.Sprintf("Signed_v%d.pdf", v)
}

func folderName(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}
