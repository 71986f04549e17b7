package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/slots"
	"github.com/JaimeStill/docket/pkg/repository"
)

type repo struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a Postgres-backed directory.
func New(db *sql.DB, logger *slog.Logger) System {
	return &repo{
		db:     db,
		logger: logger.With("system", "directory"),
	}
}

func (r *repo) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, maxUploadSize)
}

func (r *repo) FindUser(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := repository.QueryOne(
		ctx, r.db,
		"SELECT id, username, full_name, department_id, is_active FROM users WHERE id = $1",
		[]any{id},
		func(s repository.Scanner) (User, error) {
			var u User
			err := s.Scan(&u.ID, &u.Username, &u.FullName, &u.DepartmentID, &u.IsActive)
			return u, err
		},
	)
	if err != nil {
		return nil, repository.MapError(err, ErrUserNotFound, ErrDuplicateBinding)
	}
	return &u, nil
}

func (r *repo) DepartmentHead(ctx context.Context, departmentID uuid.UUID) (uuid.UUID, bool, error) {
	return r.firstID(
		ctx,
		`SELECT u.id FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		JOIN roles ro ON ro.id = ur.role_id
		WHERE u.department_id = $1 AND u.is_active AND ro.name IN ($2, $3)
		ORDER BY u.username
		LIMIT 1`,
		departmentID, HeadRoles[0], HeadRoles[1],
	)
}

func (r *repo) SlotBinding(ctx context.Context, key slots.Key) (*Binding, bool, error) {
	b, err := repository.QueryOne(
		ctx, r.db,
		"SELECT slot_key, department_id, user_id FROM system_configs WHERE slot_key = $1 AND is_active",
		[]any{key},
		func(s repository.Scanner) (Binding, error) {
			var b Binding
			err := s.Scan(&b.SlotKey, &b.DepartmentID, &b.UserID)
			return b, err
		},
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("slot binding %s: %w", key, err)
	}
	return &b, true, nil
}

func (r *repo) AnyUserInRole(ctx context.Context, role string) (uuid.UUID, bool, error) {
	return r.firstID(
		ctx,
		`SELECT u.id FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		JOIN roles ro ON ro.id = ur.role_id
		WHERE u.is_active AND ro.name = $1
		ORDER BY u.username
		LIMIT 1`,
		role,
	)
}

func (r *repo) ActiveIdentity(ctx context.Context, userID uuid.UUID) (*Identity, error) {
	id, err := repository.QueryOne(
		ctx, r.db,
		`SELECT user_id, emp_code, cert_name, company FROM digital_identities
		WHERE user_id = $1 AND is_active
		ORDER BY created_at DESC
		LIMIT 1`,
		[]any{userID},
		func(s repository.Scanner) (Identity, error) {
			var i Identity
			err := s.Scan(&i.UserID, &i.EmpCode, &i.CertName, &i.Company)
			return i, err
		},
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNoIdentity, ErrDuplicateBinding)
	}
	return &id, nil
}

func (r *repo) Signature(ctx context.Context, userID uuid.UUID) (*Signature, error) {
	sig, err := repository.QueryOne(
		ctx, r.db,
		"SELECT user_id, content_type, data, uploaded_at FROM user_signatures WHERE user_id = $1",
		[]any{userID},
		scanSignature,
	)
	if err != nil {
		return nil, repository.MapError(err, ErrNoSignature, ErrDuplicateBinding)
	}
	return &sig, nil
}

func (r *repo) PutSignature(ctx context.Context, userID uuid.UUID, contentType string, data []byte) (*Signature, error) {
	sig, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Signature, error) {
		return repository.QueryOne(
			ctx, tx,
			`INSERT INTO user_signatures(user_id, content_type, data, uploaded_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (user_id) DO UPDATE
			SET content_type = EXCLUDED.content_type, data = EXCLUDED.data, uploaded_at = EXCLUDED.uploaded_at
			RETURNING user_id, content_type, data, uploaded_at`,
			[]any{userID, contentType, data},
			scanSignature,
		)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrUserNotFound, ErrDuplicateBinding)
	}

	r.logger.Info("signature image saved", "user_id", userID, "bytes", len(data))
	return &sig, nil
}

func (r *repo) firstID(ctx context.Context, q string, args ...any) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("directory lookup: %w", err)
	}
	return id, true, nil
}

func scanSignature(s repository.Scanner) (Signature, error) {
	var sig Signature
	err := s.Scan(&sig.UserID, &sig.ContentType, &sig.Data, &sig.UploadedAt)
	return sig, err
}
