// Package routing creates dossiers and extends their routing with the
// reviewers of later phases.
package routing

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/directory"
	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/internal/slots"
)

// Directory is the subset of directory lookups routing depends on.
type Directory interface {
	FindUser(ctx context.Context, id uuid.UUID) (*directory.User, error)
	DepartmentHead(ctx context.Context, departmentID uuid.UUID) (uuid.UUID, bool, error)
	SlotBinding(ctx context.Context, key slots.Key) (*directory.Binding, bool, error)
	AnyUserInRole(ctx context.Context, role string) (uuid.UUID, bool, error)
}

// Blobs stores uploaded source documents.
type Blobs interface {
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
}

// CreateCommand carries the data for creating a dossier.
type CreateCommand struct {
	Code      string
	Title     string
	CreatedBy uuid.UUID
	Data      []byte
}

// RouteCommand selects the optional reviewers of a dossier.
type RouteCommand struct {
	RelatedDepartmentID *uuid.UUID `json:"related_department_id"`
	FunctionalSlots     []string   `json:"functional_slots"`
}

// System defines the public contract for dossier creation and routing.
type System interface {
	Handler(maxUploadSize int64) *Handler

	Create(ctx context.Context, cmd CreateCommand) (*dossiers.Detail, error)
	Route(ctx context.Context, dossierID uuid.UUID, cmd RouteCommand) (*dossiers.Detail, error)
}

// Locker serializes work on a single dossier.
type Locker interface {
	Lock(ctx context.Context, key uuid.UUID) (func(), error)
}

// New creates the routing system.
func New(
	repo dossiers.Repository,
	dir Directory,
	blobs Blobs,
	locks Locker,
	logger *slog.Logger,
) System {
	return &router{
		repo:   repo,
		dir:    dir,
		blobs:  blobs,
		locks:  locks,
		logger: logger.With("system", "routing"),
	}
}
