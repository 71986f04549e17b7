package delegations

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/query"
	"github.com/JaimeStill/docket/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "user_delegations", "g").
	Project("id", "ID").
	Project("from_user_id", "FromUserID").
	Project("to_user_id", "ToUserID").
	Project("start_at", "Start").
	Project("end_at", "End").
	Project("is_active", "IsActive").
	Project("created_at", "CreatedAt").
	Join("public", "users", "fu", "JOIN", "fu.id = g.from_user_id").
	Project("full_name", "FromName").
	Join("public", "users", "tu", "JOIN", "tu.id = g.to_user_id").
	Project("full_name", "ToName")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

type repo struct {
	*Resolver
	db     *sql.DB
	logger *slog.Logger
}

// New creates a delegation system backed by Postgres. A nil clock uses time.Now.
func New(db *sql.DB, logger *slog.Logger, now func() time.Time) System {
	r := &repo{
		db:     db,
		logger: logger.With("system", "delegations"),
	}
	r.Resolver = NewResolver(r, now)
	return r
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger)
}

func (r *repo) Owned(ctx context.Context, ownerID uuid.UUID) ([]Delegation, error) {
	q, args := query.NewBuilder(projection, defaultSort).WhereEquals("FromUserID", ownerID).Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanDelegation)
	if err != nil {
		return nil, fmt.Errorf("list owned delegations: %w", err)
	}
	return items, nil
}

func (r *repo) Incoming(ctx context.Context, userID uuid.UUID) ([]Delegation, error) {
	q, args := query.NewBuilder(projection, defaultSort).WhereEquals("ToUserID", userID).Build()

	items, err := repository.QueryMany(ctx, r.db, q, args, scanDelegation)
	if err != nil {
		return nil, fmt.Errorf("list incoming delegations: %w", err)
	}
	return items, nil
}

func (r *repo) Create(ctx context.Context, ownerID uuid.UUID, cmd CreateCommand) (*Delegation, error) {
	if cmd.ToUserID == ownerID {
		return nil, ErrSelfDelegation
	}
	if err := validateWindow(cmd.Start, cmd.End); err != nil {
		return nil, err
	}

	for _, id := range []uuid.UUID{ownerID, cmd.ToUserID} {
		ok, err := repository.QueryExists(ctx, r.db, "SELECT 1 FROM users WHERE id = $1 AND is_active", id)
		if err != nil {
			return nil, fmt.Errorf("check user: %w", err)
		}
		if !ok {
			return nil, ErrUserNotFound
		}
	}

	id := uuid.New()

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Delegation, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			`INSERT INTO user_delegations(id, from_user_id, to_user_id, start_at, end_at, is_active)
			VALUES ($1, $2, $3, $4, $5, true)`,
			id, ownerID, cmd.ToUserID, cmd.Start.UTC(), utcPtr(cmd.End),
		); err != nil {
			return Delegation{}, err
		}
		return findDelegation(ctx, tx, id)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrInvalidRequest)
	}

	r.logger.Info("delegation created", "id", d.ID, "from", ownerID, "to", cmd.ToUserID)
	return &d, nil
}

func (r *repo) Update(ctx context.Context, ownerID, id uuid.UUID, cmd UpdateCommand) (*Delegation, error) {
	if err := validateWindow(cmd.Start, cmd.End); err != nil {
		return nil, err
	}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Delegation, error) {
		existing, err := findDelegation(ctx, tx, id)
		if err != nil {
			return Delegation{}, err
		}
		if existing.FromUserID != ownerID {
			return Delegation{}, ErrNotOwner
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			"UPDATE user_delegations SET start_at = $2, end_at = $3, is_active = $4 WHERE id = $1",
			id, cmd.Start.UTC(), utcPtr(cmd.End), cmd.IsActive,
		); err != nil {
			return Delegation{}, err
		}
		return findDelegation(ctx, tx, id)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrInvalidRequest)
	}

	r.logger.Info("delegation updated", "id", id, "active", cmd.IsActive)
	return &d, nil
}

func (r *repo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		existing, err := findDelegation(ctx, tx, id)
		if err != nil {
			return struct{}{}, err
		}
		if existing.FromUserID != ownerID {
			return struct{}{}, ErrNotOwner
		}
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM user_delegations WHERE id = $1", id)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrInvalidRequest)
	}

	r.logger.Info("delegation deleted", "id", id)
	return nil
}

func findDelegation(ctx context.Context, q repository.Querier, id uuid.UUID) (Delegation, error) {
	stmt, args := query.NewBuilder(projection).BuildSingle("ID", id)
	return repository.QueryOne(ctx, q, stmt, args, scanDelegation)
}

func scanDelegation(s repository.Scanner) (Delegation, error) {
	var d Delegation
	err := s.Scan(
		&d.ID,
		&d.FromUserID,
		&d.ToUserID,
		&d.Start,
		&d.End,
		&d.IsActive,
		&d.CreatedAt,
		&d.FromName,
		&d.ToName,
	)
	return d, err
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
