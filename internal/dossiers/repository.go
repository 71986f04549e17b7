package dossiers

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/slots"
	"github.com/JaimeStill/docket/pkg/pagination"
	"github.com/JaimeStill/docket/pkg/query"
	"github.com/JaimeStill/docket/pkg/repository"
)

type repo struct {
	pgStore
	conn       *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates the Postgres-backed dossier system.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		pgStore:    pgStore{db: db},
		conn:       db,
		logger:     logger.With("system", "dossiers"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) InTx(ctx context.Context, fn func(Store) error) error {
	_, err := repository.WithTx(ctx, r.conn, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, fn(&pgStore{db: tx})
	})
	return err
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Dossier], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Code", "Title")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.conn.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count dossiers: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.conn, pageSQL, pageArgs, scanDossier)
	if err != nil {
		return nil, fmt.Errorf("query dossiers: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Detail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	d, err := r.FindDossier(ctx, id)
	if err != nil {
		return nil, err
	}

	tasks, err := r.ListTasks(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Detail{Dossier: *d, Tasks: tasks}, nil
}

// pgStore implements Store against a pool or an open transaction.
type pgStore struct {
	db repository.DB
}

func (s *pgStore) FindDossier(ctx context.Context, id uuid.UUID) (*Dossier, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, s.db, q, args, scanDossier)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (s *pgStore) InsertDossier(ctx context.Context, d *Dossier) error {
	q := `
		INSERT INTO dossiers(id, code, title, status, created_by, source_key, page_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, code, title, status, created_by, source_key, page_count, created_at, updated_at`

	args := []any{d.ID, d.Code, d.Title, d.Status, d.CreatedBy, d.SourceKey, d.PageCount}

	inserted, err := repository.QueryOne(ctx, s.db, q, args, scanDossier)
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	*d = inserted
	return nil
}

func (s *pgStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	err := repository.ExecExpectOne(
		ctx, s.db,
		"UPDATE dossiers SET status = $2, updated_at = NOW() WHERE id = $1",
		id, status,
	)
	return repository.MapError(err, ErrNotFound, ErrDuplicate)
}

func (s *pgStore) FindTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	q := "SELECT " + taskColumns + " FROM sign_tasks WHERE id = $1"

	t, err := repository.QueryOne(ctx, s.db, q, []any{id}, scanTask)
	if err != nil {
		return nil, repository.MapError(err, ErrTaskNotFound, ErrSlotTaken)
	}
	return &t, nil
}

func (s *pgStore) FindTaskBySlot(ctx context.Context, dossierID uuid.UUID, key slots.Key) (*Task, error) {
	q := "SELECT " + taskColumns + " FROM sign_tasks WHERE dossier_id = $1 AND slot_key = $2"

	t, err := repository.QueryOne(ctx, s.db, q, []any{dossierID, key}, scanTask)
	if err != nil {
		return nil, repository.MapError(err, ErrTaskNotFound, ErrSlotTaken)
	}
	return &t, nil
}

func (s *pgStore) ListTasks(ctx context.Context, dossierID uuid.UUID) ([]Task, error) {
	q := "SELECT " + taskColumns + " FROM sign_tasks WHERE dossier_id = $1 ORDER BY sort_order"

	tasks, err := repository.QueryMany(ctx, s.db, q, []any{dossierID}, scanTask)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *pgStore) InsertTask(ctx context.Context, t *Task) error {
	q := `
		INSERT INTO sign_tasks(id, dossier_id, assignee_id, sort_order, status, slot_key, phase,
			is_activated, clerk_confirmed, visible_pattern)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + taskColumns

	args := []any{
		t.ID, t.DossierID, t.AssigneeID, t.Order, t.Status, t.SlotKey, t.Phase,
		t.IsActivated, t.ClerkConfirmed, t.VisiblePattern,
	}

	inserted, err := repository.QueryOne(ctx, s.db, q, args, scanTask)
	if err != nil {
		return repository.MapError(err, ErrTaskNotFound, ErrSlotTaken)
	}

	*t = inserted
	return nil
}

func (s *pgStore) UpdateTask(ctx context.Context, t *Task) error {
	err := repository.ExecExpectOne(
		ctx, s.db,
		`UPDATE sign_tasks
		SET status = $2, clerk_confirmed = $3, decided_at = $4, decided_by = $5, comment = $6
		WHERE id = $1`,
		t.ID, t.Status, t.ClerkConfirmed, t.DecidedAt, t.DecidedBy, t.Comment,
	)
	return repository.MapError(err, ErrTaskNotFound, ErrSlotTaken)
}

func (s *pgStore) SetActivation(ctx context.Context, dossierID uuid.UUID, active []uuid.UUID) error {
	if _, err := s.db.ExecContext(
		ctx,
		"UPDATE sign_tasks SET is_activated = false WHERE dossier_id = $1",
		dossierID,
	); err != nil {
		return fmt.Errorf("reset activation: %w", err)
	}

	if len(active) == 0 {
		return nil
	}

	args := make([]any, 0, len(active)+1)
	args = append(args, dossierID)
	for _, id := range active {
		args = append(args, id)
	}

	q := fmt.Sprintf(
		"UPDATE sign_tasks SET is_activated = true WHERE dossier_id = $1 AND id IN (%s)",
		placeholders(2, len(active)),
	)

	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("set activation: %w", err)
	}
	return nil
}

func (s *pgStore) ListAssignments(ctx context.Context, assignees []uuid.UUID) ([]Assignment, error) {
	if len(assignees) == 0 {
		return []Assignment{}, nil
	}

	args := make([]any, len(assignees))
	for i, id := range assignees {
		args[i] = id
	}

	q := fmt.Sprintf(`
		SELECT t.id, t.dossier_id, t.assignee_id, t.sort_order, t.status, t.slot_key, t.phase,
			t.is_activated, t.clerk_confirmed, t.decided_at, t.decided_by, t.comment,
			t.visible_pattern, t.created_at, d.code, d.title, d.status
		FROM sign_tasks t
		JOIN dossiers d ON d.id = t.dossier_id
		WHERE t.assignee_id IN (%s)
		ORDER BY d.created_at DESC, t.sort_order`,
		placeholders(1, len(assignees)),
	)

	items, err := repository.QueryMany(ctx, s.db, q, args, scanAssignment)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return items, nil
}

func (s *pgStore) AppendEvent(ctx context.Context, e *Event) error {
	q := `
		INSERT INTO sign_events(id, dossier_id, task_id, actor_id, input_path, output_path, mode,
			search_pattern, page, success, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + eventColumns

	args := []any{
		e.ID, e.DossierID, e.TaskID, e.ActorID, e.InputPath, e.OutputPath, e.Mode,
		e.SearchPattern, e.Page, e.Success, e.Error,
	}

	inserted, err := repository.QueryOne(ctx, s.db, q, args, scanEvent)
	if err != nil {
		return fmt.Errorf("append sign event: %w", err)
	}

	*e = inserted
	return nil
}

func (s *pgStore) ListEvents(ctx context.Context, dossierID uuid.UUID) ([]Event, error) {
	q := "SELECT " + eventColumns + " FROM sign_events WHERE dossier_id = $1 ORDER BY created_at"

	events, err := repository.QueryMany(ctx, s.db, q, []any{dossierID}, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("list sign events: %w", err)
	}
	return events, nil
}

func placeholders(start, n int) string {
	ph := make([]string, n)
	for i := range n {
		ph[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(ph, ", ")
}
