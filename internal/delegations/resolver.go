package delegations

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Source lists the delegations granted to a user.
type Source interface {
	Incoming(ctx context.Context, userID uuid.UUID) ([]Delegation, error)
}

// Resolver answers authorization questions against the delegations in force
// at the current instant of its clock.
type Resolver struct {
	source Source
	now    func() time.Time
}

// NewResolver creates a Resolver. A nil clock uses time.Now.
func NewResolver(source Source, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{source: source, now: now}
}

// IsAllowed reports whether actorID may act on a task assigned to assigneeID:
// either they are the same user or a delegation from the assignee to the
// actor covers now.
func (r *Resolver) IsAllowed(ctx context.Context, assigneeID, actorID uuid.UUID) (bool, error) {
	if assigneeID == actorID {
		return true, nil
	}

	grants, err := r.source.Incoming(ctx, actorID)
	if err != nil {
		return false, fmt.Errorf("resolve delegation: %w", err)
	}

	now := r.now()
	return slices.ContainsFunc(grants, func(d Delegation) bool {
		return d.FromUserID == assigneeID && d.Covers(now)
	}), nil
}

// DelegatorsOf returns the users whose delegation to actorID covers now.
func (r *Resolver) DelegatorsOf(ctx context.Context, actorID uuid.UUID) ([]uuid.UUID, error) {
	grants, err := r.source.Incoming(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("resolve delegators: %w", err)
	}

	now := r.now()
	from := make([]uuid.UUID, 0, len(grants))
	for _, d := range grants {
		if d.Covers(now) && d.FromUserID != actorID && !slices.Contains(from, d.FromUserID) {
			from = append(from, d.FromUserID)
		}
	}
	return from, nil
}
