package dossiers

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/query"
	"github.com/JaimeStill/docket/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "dossiers", "d").
	Project("id", "ID").
	Project("code", "Code").
	Project("title", "Title").
	Project("status", "Status").
	Project("created_by", "CreatedBy").
	Project("source_key", "SourceKey").
	Project("page_count", "PageCount").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

const taskColumns = `id, dossier_id, assignee_id, sort_order, status, slot_key, phase,
	is_activated, clerk_confirmed, decided_at, decided_by, comment, visible_pattern, created_at`

const eventColumns = `id, dossier_id, task_id, actor_id, input_path, output_path, mode,
	search_pattern, page, success, error, created_at`

// Filters contains optional filtering criteria for dossier queries.
type Filters struct {
	Status    *string    `json:"status,omitempty"`
	Code      *string    `json:"code,omitempty"`
	CreatedBy *uuid.UUID `json:"created_by,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereContains("Code", f.Code).
		WhereEquals("CreatedBy", f.CreatedBy)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if c := values.Get("code"); c != "" {
		f.Code = &c
	}

	if cb := values.Get("created_by"); cb != "" {
		if id, err := uuid.Parse(cb); err == nil {
			f.CreatedBy = &id
		}
	}

	return f
}

func scanDossier(s repository.Scanner) (Dossier, error) {
	var d Dossier
	err := s.Scan(
		&d.ID,
		&d.Code,
		&d.Title,
		&d.Status,
		&d.CreatedBy,
		&d.SourceKey,
		&d.PageCount,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

func scanTask(s repository.Scanner) (Task, error) {
	var t Task
	err := s.Scan(
		&t.ID,
		&t.DossierID,
		&t.AssigneeID,
		&t.Order,
		&t.Status,
		&t.SlotKey,
		&t.Phase,
		&t.IsActivated,
		&t.ClerkConfirmed,
		&t.DecidedAt,
		&t.DecidedBy,
		&t.Comment,
		&t.VisiblePattern,
		&t.CreatedAt,
	)
	return t, err
}

func scanAssignment(s repository.Scanner) (Assignment, error) {
	var a Assignment
	err := s.Scan(
		&a.ID,
		&a.DossierID,
		&a.AssigneeID,
		&a.Order,
		&a.Status,
		&a.SlotKey,
		&a.Phase,
		&a.IsActivated,
		&a.ClerkConfirmed,
		&a.DecidedAt,
		&a.DecidedBy,
		&a.Comment,
		&a.VisiblePattern,
		&a.CreatedAt,
		&a.DossierCode,
		&a.DossierTitle,
		&a.DossierStatus,
	)
	return a, err
}

func scanEvent(s repository.Scanner) (Event, error) {
	var e Event
	err := s.Scan(
		&e.ID,
		&e.DossierID,
		&e.TaskID,
		&e.ActorID,
		&e.InputPath,
		&e.OutputPath,
		&e.Mode,
		&e.SearchPattern,
		&e.Page,
		&e.Success,
		&e.Error,
		&e.CreatedAt,
	)
	return e, err
}
