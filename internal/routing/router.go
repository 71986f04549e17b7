package routing

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/docket/internal/activation"
	"github.com/JaimeStill/docket/internal/directory"
	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/internal/render"
	"github.com/JaimeStill/docket/internal/slots"
	"github.com/JaimeStill/docket/pkg/formatting"
)

const resolveLimit = 4

type router struct {
	repo   dossiers.Repository
	dir    Directory
	blobs  Blobs
	locks  Locker
	logger *slog.Logger
}

func (r *router) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, maxUploadSize)
}

// SourceKey returns the blob key of a dossier's uploaded source.
func SourceKey(dossierID uuid.UUID) string {
	return fmt.Sprintf("dossiers/%s/source.pdf", dossierID)
}

func (r *router) Create(ctx context.Context, cmd CreateCommand) (*dossiers.Detail, error) {
	cmd.Code = strings.TrimSpace(cmd.Code)
	cmd.Title = strings.TrimSpace(cmd.Title)
	if cmd.Code == "" || cmd.Title == "" || len(cmd.Data) == 0 {
		return nil, ErrInvalidRequest
	}
	if http.DetectContentType(cmd.Data) != "application/pdf" {
		return nil, ErrNotPDF
	}

	creator, err := r.dir.FindUser(ctx, cmd.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("find creator: %w", err)
	}

	var head uuid.UUID
	var hasHead bool
	if creator.DepartmentID != nil {
		head, hasHead, err = r.dir.DepartmentHead(ctx, *creator.DepartmentID)
		if err != nil {
			return nil, fmt.Errorf("resolve department head: %w", err)
		}
	}

	d := &dossiers.Dossier{
		ID:        uuid.New(),
		Code:      cmd.Code,
		Title:     cmd.Title,
		Status:    dossiers.StatusSubmitted,
		CreatedBy: creator.ID,
		PageCount: render.PageCount(r.logger, cmd.Data),
	}
	d.SourceKey = SourceKey(d.ID)

	if err := r.blobs.Upload(ctx, d.SourceKey, bytes.NewReader(cmd.Data), "application/pdf"); err != nil {
		return nil, fmt.Errorf("upload source: %w", err)
	}

	tasks := []dossiers.Task{newTask(d.ID, slots.Submitter, creator.ID, 1)}
	if hasHead {
		tasks = append(tasks, newTask(d.ID, slots.DepartmentHead, head, 2))
	}

	err = r.repo.InTx(ctx, func(s dossiers.Store) error {
		if err := s.InsertDossier(ctx, d); err != nil {
			return err
		}
		for i := range tasks {
			if err := s.InsertTask(ctx, &tasks[i]); err != nil {
				return err
			}
		}
		_, err := activation.Recompute(ctx, s, d.ID)
		return err
	})
	if err != nil {
		if derr := r.blobs.Delete(context.WithoutCancel(ctx), d.SourceKey); derr != nil {
			r.logger.Error("failed to remove orphaned source", "key", d.SourceKey, "error", derr)
		}
		return nil, fmt.Errorf("create dossier: %w", err)
	}

	r.logger.Info("dossier created",
		"id", d.ID,
		"code", d.Code,
		"size", formatting.FormatBytes(int64(len(cmd.Data)), 1),
		"department_head", hasHead,
	)

	return r.detail(ctx, d.ID)
}

func (r *router) Route(ctx context.Context, dossierID uuid.UUID, cmd RouteCommand) (*dossiers.Detail, error) {
	unlock, err := r.locks.Lock(ctx, dossierID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	d, err := r.repo.FindDossier(ctx, dossierID)
	if err != nil {
		return nil, err
	}
	if d.Status.Terminal() {
		return nil, fmt.Errorf("%w: status %s", ErrNotReady, d.Status)
	}

	existing, err := r.repo.ListTasks(ctx, dossierID)
	if err != nil {
		return nil, err
	}

	candidates := candidateSlots(existing, cmd)
	assignees, err := r.resolve(ctx, candidates, cmd.RelatedDepartmentID)
	if err != nil {
		return nil, err
	}

	next := 1
	for _, t := range existing {
		next = max(next, t.Order+1)
	}

	var added []slots.Key
	err = r.repo.InTx(ctx, func(s dossiers.Store) error {
		added = added[:0]
		order := next
		for i, key := range candidates {
			if assignees[i] == uuid.Nil {
				continue
			}
			t := newTask(dossierID, key, assignees[i], order)
			if err := s.InsertTask(ctx, &t); err != nil {
				return err
			}
			added = append(added, key)
			order++
		}
		_, err := activation.Recompute(ctx, s, dossierID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("route dossier: %w", err)
	}

	r.logger.Info("dossier routed", "id", dossierID, "added", added)

	return r.detail(ctx, dossierID)
}

// candidateSlots lists, in routing order, the slots a route request may add:
// the related department when one is given, the selected functional slots,
// then the deputies, clerk and director. Slots already present are omitted.
func candidateSlots(existing []dossiers.Task, cmd RouteCommand) []slots.Key {
	present := make(map[slots.Key]bool, len(existing))
	for _, t := range existing {
		present[t.SlotKey] = true
	}

	var keys []slots.Key
	add := func(k slots.Key) {
		if !present[k] && !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}

	if cmd.RelatedDepartmentID != nil {
		add(slots.RelatedDepartment)
	}
	for _, code := range cmd.FunctionalSlots {
		if k, ok := slots.Parse(strings.TrimSpace(code)); ok && k.IsFunctional() {
			add(k)
		}
	}
	for _, k := range slots.Deputies {
		add(k)
	}
	add(slots.Clerk)
	add(slots.Director)

	return keys
}

// resolve finds the assignee of each candidate slot concurrently. Slots that
// cannot be staffed resolve to uuid.Nil.
func (r *router) resolve(ctx context.Context, keys []slots.Key, related *uuid.UUID) ([]uuid.UUID, error) {
	assignees := make([]uuid.UUID, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveLimit)

	for i, key := range keys {
		g.Go(func() error {
			id, ok, err := r.assignee(gctx, key, related)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", key, err)
			}
			if !ok {
				if key.Optional() {
					r.logger.Info("optional slot left out, no assignee", "slot", key)
				} else {
					r.logger.Warn("slot skipped, no assignee", "slot", key)
				}
				return nil
			}
			assignees[i] = id
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return assignees, nil
}

// assignee resolves the user staffing key. Department slots go to the head of
// their department, leadership slots to the bound user and the registry slot to
// any clerk.
func (r *router) assignee(ctx context.Context, key slots.Key, related *uuid.UUID) (uuid.UUID, bool, error) {
	switch key.Kind() {
	case slots.DepartmentStaffed:
		if key == slots.RelatedDepartment {
			if related == nil {
				return uuid.Nil, false, nil
			}
			return r.dir.DepartmentHead(ctx, *related)
		}
		binding, ok, err := r.dir.SlotBinding(ctx, key)
		if err != nil || !ok || binding.DepartmentID == nil {
			return uuid.Nil, false, err
		}
		return r.dir.DepartmentHead(ctx, *binding.DepartmentID)

	case slots.Leadership:
		binding, ok, err := r.dir.SlotBinding(ctx, key)
		if err != nil || !ok || binding.UserID == nil {
			return uuid.Nil, false, err
		}
		return *binding.UserID, true, nil

	case slots.Registry:
		return r.dir.AnyUserInRole(ctx, directory.RoleClerk)

	default:
		return uuid.Nil, false, fmt.Errorf("%w: unknown slot %q", ErrInvalidRequest, key)
	}
}

func (r *router) detail(ctx context.Context, dossierID uuid.UUID) (*dossiers.Detail, error) {
	d, err := r.repo.FindDossier(ctx, dossierID)
	if err != nil {
		return nil, err
	}
	tasks, err := r.repo.ListTasks(ctx, dossierID)
	if err != nil {
		return nil, err
	}
	return &dossiers.Detail{Dossier: *d, Tasks: tasks}, nil
}

func newTask(dossierID uuid.UUID, key slots.Key, assignee uuid.UUID, order int) dossiers.Task {
	return dossiers.Task{
		ID:             uuid.New(),
		DossierID:      dossierID,
		AssigneeID:     assignee,
		Order:          order,
		Status:         dossiers.TaskPending,
		SlotKey:        key,
		Phase:          key.Phase(),
		VisiblePattern: key.VisiblePattern(),
	}
}
