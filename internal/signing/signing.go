// Package signing processes reviewer decisions on sign tasks: approvals with a
// mock or remote signature, rejections and the clerk's confirmation. Every
// decision runs under the dossier's lock and ends by recomputing activation.
package signing

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/directory"
	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/internal/render"
	"github.com/JaimeStill/docket/internal/signer"
)

// ApproveCommand carries an approval. An empty Pin requests a mock signature.
type ApproveCommand struct {
	Pin     string `json:"pin"`
	Comment string `json:"comment"`
}

// RejectCommand carries a rejection.
type RejectCommand struct {
	Comment string `json:"comment"`
}

// Decision is the outcome of a decision on a task.
type Decision struct {
	Task          dossiers.Task     `json:"task"`
	DossierStatus dossiers.Status   `json:"dossier_status"`
	Mode          dossiers.SignMode `json:"mode,omitempty"`
	Artifact      string            `json:"artifact,omitempty"`
}

// Grouped partitions an actor's assignments for the inbox view.
type Grouped struct {
	Pending   []dossiers.Assignment `json:"pending"`
	Processed []dossiers.Assignment `json:"processed"`
	Completed []dossiers.Assignment `json:"completed"`
}

// Artifact is a readable copy of a dossier's current document.
type Artifact struct {
	Name   string
	Signed bool
	Body   io.ReadCloser
}

// Directory is the subset of directory lookups signing depends on.
type Directory interface {
	FindUser(ctx context.Context, id uuid.UUID) (*directory.User, error)
	ActiveIdentity(ctx context.Context, userID uuid.UUID) (*directory.Identity, error)
	Signature(ctx context.Context, userID uuid.UUID) (*directory.Signature, error)
}

// Authorizer decides who may act for whom.
type Authorizer interface {
	IsAllowed(ctx context.Context, assigneeID, actorID uuid.UUID) (bool, error)
	DelegatorsOf(ctx context.Context, actorID uuid.UUID) ([]uuid.UUID, error)
}

// Artifacts is the versioned store of signed documents.
type Artifacts interface {
	SaveSignedVersion(ctx context.Context, dossierID uuid.UUID, tempPath string) (string, error)
	CurrentPointer(ctx context.Context, dossierID uuid.UUID) (string, bool, error)
	Discard(ctx context.Context, dossierID uuid.UUID, path, previous string) error
}

// Locker serializes work on a single dossier.
type Locker interface {
	Lock(ctx context.Context, key uuid.UUID) (func(), error)
}

// System defines the public contract for signing decisions and inbox queries.
type System interface {
	Handler() *Handler

	Approve(ctx context.Context, taskID, actorID uuid.UUID, cmd ApproveCommand) (*Decision, error)
	Reject(ctx context.Context, taskID, actorID uuid.UUID, cmd RejectCommand) (*Decision, error)
	ClerkConfirm(ctx context.Context, dossierID, actorID uuid.UUID) (*Decision, error)

	MyTasks(ctx context.Context, actorID uuid.UUID) ([]dossiers.Assignment, error)
	MyTasksGrouped(ctx context.Context, actorID uuid.UUID) (*Grouped, error)
	Events(ctx context.Context, dossierID, actorID uuid.UUID) ([]dossiers.Event, error)
	CurrentArtifact(ctx context.Context, dossierID, actorID uuid.UUID) (*Artifact, error)
}

// Deps holds the collaborators of the signing system.
type Deps struct {
	Repo      dossiers.Repository
	Directory Directory
	Auth      Authorizer
	Artifacts Artifacts
	Renderer  render.Renderer
	Signer    signer.Signer
	Source    render.Source
	Locks     Locker
	Now       func() time.Time
}

type service struct {
	Deps
	mode    string
	tempDir string
	logger  *slog.Logger
}

// New creates the signing system.
func New(deps Deps, cfg *Config, logger *slog.Logger) System {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{
		Deps:    deps,
		mode:    cfg.Mode,
		tempDir: cfg.TempDir,
		logger:  logger.With("system", "signing"),
	}
}

func (s *service) Handler() *Handler {
	return NewHandler(s, s.logger)
}
