// Package delegations manages time-bounded grants that let one user act on
// another user's sign tasks, and resolves whether an actor may act for an
// assignee at the current instant.
package delegations

import (
	"time"

	"github.com/google/uuid"
)

// Delegation lets ToUserID act for FromUserID between Start and End inclusive.
// A nil End leaves the window open.
type Delegation struct {
	ID         uuid.UUID  `json:"id"`
	FromUserID uuid.UUID  `json:"from_user_id"`
	ToUserID   uuid.UUID  `json:"to_user_id"`
	FromName   string     `json:"from_name"`
	ToName     string     `json:"to_name"`
	Start      time.Time  `json:"start"`
	End        *time.Time `json:"end"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Covers reports whether the delegation is in force at now.
func (d Delegation) Covers(now time.Time) bool {
	if !d.IsActive || now.Before(d.Start) {
		return false
	}
	return d.End == nil || !now.After(*d.End)
}

// CreateCommand carries the fields of a new delegation. The owner is the caller.
type CreateCommand struct {
	ToUserID uuid.UUID  `json:"to_user_id"`
	Start    time.Time  `json:"start"`
	End      *time.Time `json:"end"`
}

// UpdateCommand replaces the window and active flag of a delegation.
type UpdateCommand struct {
	Start    time.Time  `json:"start"`
	End      *time.Time `json:"end"`
	IsActive bool       `json:"is_active"`
}

func validateWindow(start time.Time, end *time.Time) error {
	if start.IsZero() {
		return ErrInvalidWindow
	}
	if end != nil && end.Before(start) {
		return ErrInvalidWindow
	}
	return nil
}
