// Package dossiers implements the dossier data model for Docket: dossiers,
// their sign tasks, and the append-only sign event audit. It owns the Postgres
// store and the transactional unit of work used by the workflow packages.
package dossiers

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/slots"
)

// Status is the derived lifecycle state of a dossier.
type Status string

const (
	StatusDraft      Status = "Draft"
	StatusSubmitted  Status = "Submitted"
	StatusInProgress Status = "InProgress"
	StatusApproved   Status = "Approved"
	StatusRejected   Status = "Rejected"
)

// Terminal reports whether no further decisions can be taken.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// TaskStatus is the decision state of a single sign task.
type TaskStatus string

const (
	TaskPending  TaskStatus = "Pending"
	TaskApproved TaskStatus = "Approved"
	TaskRejected TaskStatus = "Rejected"
)

// SignMode records how a signature was produced.
type SignMode string

const (
	ModeMock   SignMode = "mock"
	ModeRemote SignMode = "remote"
)

// Dossier is an approval document routed through the signing workflow.
type Dossier struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`
	CreatedBy uuid.UUID `json:"created_by"`
	SourceKey string    `json:"source_key"`
	PageCount *int      `json:"page_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task is one reviewer's slot in a dossier's routing.
type Task struct {
	ID             uuid.UUID   `json:"id"`
	DossierID      uuid.UUID   `json:"dossier_id"`
	AssigneeID     uuid.UUID   `json:"assignee_id"`
	Order          int         `json:"order"`
	Status         TaskStatus  `json:"status"`
	SlotKey        slots.Key   `json:"slot_key"`
	Phase          slots.Phase `json:"phase"`
	IsActivated    bool        `json:"is_activated"`
	ClerkConfirmed bool        `json:"clerk_confirmed"`
	DecidedAt      *time.Time  `json:"decided_at"`
	DecidedBy      *uuid.UUID  `json:"decided_by"`
	Comment        *string     `json:"comment"`
	VisiblePattern string      `json:"visible_pattern"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Actionable reports whether the task can receive a decision now.
func (t Task) Actionable() bool {
	return t.IsActivated && t.Status == TaskPending
}

// Decide records a decision on the task.
func (t *Task) Decide(status TaskStatus, actor uuid.UUID, comment string, at time.Time) {
	t.Status = status
	t.DecidedAt = &at
	t.DecidedBy = &actor
	if comment != "" {
		t.Comment = &comment
	}
}

// Event is an immutable audit record of one signing attempt.
type Event struct {
	ID            uuid.UUID `json:"id"`
	DossierID     uuid.UUID `json:"dossier_id"`
	TaskID        uuid.UUID `json:"task_id"`
	ActorID       uuid.UUID `json:"actor_id"`
	InputPath     string    `json:"input_path"`
	OutputPath    string    `json:"output_path"`
	Mode          SignMode  `json:"mode"`
	SearchPattern string    `json:"search_pattern"`
	Page          int       `json:"page"`
	Success       bool      `json:"success"`
	Error         *string   `json:"error"`
	CreatedAt     time.Time `json:"created_at"`
}

// Assignment is a task joined with the dossier it belongs to.
type Assignment struct {
	Task
	DossierCode   string `json:"dossier_code"`
	DossierTitle  string `json:"dossier_title"`
	DossierStatus Status `json:"dossier_status"`
}

// Detail is a dossier together with its tasks in routing order.
type Detail struct {
	Dossier
	Tasks []Task `json:"tasks"`
}

// DeriveStatus computes the dossier status from its tasks: Rejected as soon as
// any task is rejected, Approved once every task is approved, InProgress after
// the first approval, Submitted otherwise.
func DeriveStatus(tasks []Task) Status {
	if len(tasks) == 0 {
		return StatusSubmitted
	}

	approved := 0
	for _, t := range tasks {
		switch t.Status {
		case TaskRejected:
			return StatusRejected
		case TaskApproved:
			approved++
		}
	}

	switch {
	case approved == len(tasks):
		return StatusApproved
	case approved > 0:
		return StatusInProgress
	}
	return StatusSubmitted
}
