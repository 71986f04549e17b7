package dossiers

import (
	"context"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/slots"
)

// Store is the row-level data access used by the workflow packages.
// Implementations return ErrNotFound, ErrTaskNotFound and ErrSlotTaken.
type Store interface {
	FindDossier(ctx context.Context, id uuid.UUID) (*Dossier, error)
	InsertDossier(ctx context.Context, d *Dossier) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	FindTask(ctx context.Context, id uuid.UUID) (*Task, error)
	FindTaskBySlot(ctx context.Context, dossierID uuid.UUID, key slots.Key) (*Task, error)
	ListTasks(ctx context.Context, dossierID uuid.UUID) ([]Task, error)
	InsertTask(ctx context.Context, t *Task) error
	// UpdateTask persists the decision fields of t: status, clerk_confirmed,
	// decided_at, decided_by and comment.
	UpdateTask(ctx context.Context, t *Task) error
	// SetActivation clears is_activated on every task of the dossier and sets it
	// on the given task ids.
	SetActivation(ctx context.Context, dossierID uuid.UUID, active []uuid.UUID) error
	// ListAssignments returns the tasks assigned to any of the given users,
	// joined with their dossiers.
	ListAssignments(ctx context.Context, assignees []uuid.UUID) ([]Assignment, error)

	AppendEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, dossierID uuid.UUID) ([]Event, error)
}

// Repository is a Store that can also run a unit of work atomically.
// Changes made through the Store passed to fn are committed only when fn
// returns nil.
type Repository interface {
	Store
	InTx(ctx context.Context, fn func(Store) error) error
}
