package delegations

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for delegation management and resolution.
type System interface {
	Source
	Handler() *Handler

	Owned(ctx context.Context, ownerID uuid.UUID) ([]Delegation, error)
	Create(ctx context.Context, ownerID uuid.UUID, cmd CreateCommand) (*Delegation, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, cmd UpdateCommand) (*Delegation, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error

	IsAllowed(ctx context.Context, assigneeID, actorID uuid.UUID) (bool, error)
	DelegatorsOf(ctx context.Context, actorID uuid.UUID) ([]uuid.UUID, error)
}
