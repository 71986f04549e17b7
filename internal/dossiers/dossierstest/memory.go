// Package dossierstest provides an in-memory dossiers.Repository for tests.
// InTx runs against a copy of the state and commits it only when the unit of
// work succeeds, so rollback behaves like the Postgres store.
package dossierstest

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/internal/slots"
)

type state struct {
	dossiers map[uuid.UUID]dossiers.Dossier
	tasks    map[uuid.UUID]dossiers.Task
	events   []dossiers.Event
}

func (s *state) clone() *state {
	c := &state{
		dossiers: make(map[uuid.UUID]dossiers.Dossier, len(s.dossiers)),
		tasks:    make(map[uuid.UUID]dossiers.Task, len(s.tasks)),
		events:   slices.Clone(s.events),
	}
	for k, v := range s.dossiers {
		c.dossiers[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	return c
}

var _ dossiers.Repository = (*Memory)(nil)

// Memory is an in-memory dossiers.Repository.
type Memory struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time

	// FailTx, when set, is returned by InTx after fn succeeds, discarding the
	// unit of work as if the commit failed.
	FailTx error
	// FailNext makes the next FailNext units of work fail the same way with
	// ErrCommitFailed.
	FailNext int
}

// ErrCommitFailed is returned by InTx for units of work failed by FailNext.
var ErrCommitFailed = errors.New("commit failed")

// New creates an empty Memory store.
func New() *Memory {
	return &Memory{
		state: &state{
			dossiers: make(map[uuid.UUID]dossiers.Dossier),
			tasks:    make(map[uuid.UUID]dossiers.Task),
		},
		now: time.Now,
	}
}

// InTx runs fn against a snapshot and commits it when fn returns nil.
// Units of work are serialized.
func (m *Memory) InTx(ctx context.Context, fn func(dossiers.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&view{st: snapshot, now: m.now}); err != nil {
		return err
	}
	if m.FailTx != nil {
		return m.FailTx
	}
	if m.FailNext > 0 {
		m.FailNext--
		return ErrCommitFailed
	}

	m.state = snapshot
	return nil
}

// Events returns every committed event.
func (m *Memory) Events() []dossiers.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.state.events)
}

func (m *Memory) do(fn func(v *view) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&view{st: m.state, now: m.now})
}

func (m *Memory) FindDossier(ctx context.Context, id uuid.UUID) (d *dossiers.Dossier, err error) {
	err = m.do(func(v *view) error { d, err = v.FindDossier(ctx, id); return err })
	return d, err
}

func (m *Memory) InsertDossier(ctx context.Context, d *dossiers.Dossier) error {
	return m.do(func(v *view) error { return v.InsertDossier(ctx, d) })
}

func (m *Memory) UpdateStatus(ctx context.Context, id uuid.UUID, status dossiers.Status) error {
	return m.do(func(v *view) error { return v.UpdateStatus(ctx, id, status) })
}

func (m *Memory) FindTask(ctx context.Context, id uuid.UUID) (t *dossiers.Task, err error) {
	err = m.do(func(v *view) error { t, err = v.FindTask(ctx, id); return err })
	return t, err
}

func (m *Memory) FindTaskBySlot(ctx context.Context, dossierID uuid.UUID, key slots.Key) (t *dossiers.Task, err error) {
	err = m.do(func(v *view) error { t, err = v.FindTaskBySlot(ctx, dossierID, key); return err })
	return t, err
}

func (m *Memory) ListTasks(ctx context.Context, dossierID uuid.UUID) (tasks []dossiers.Task, err error) {
	err = m.do(func(v *view) error { tasks, err = v.ListTasks(ctx, dossierID); return err })
	return tasks, err
}

func (m *Memory) InsertTask(ctx context.Context, t *dossiers.Task) error {
	return m.do(func(v *view) error { return v.InsertTask(ctx, t) })
}

func (m *Memory) UpdateTask(ctx context.Context, t *dossiers.Task) error {
	return m.do(func(v *view) error { return v.UpdateTask(ctx, t) })
}

func (m *Memory) SetActivation(ctx context.Context, dossierID uuid.UUID, active []uuid.UUID) error {
	return m.do(func(v *view) error { return v.SetActivation(ctx, dossierID, active) })
}

func (m *Memory) ListAssignments(ctx context.Context, assignees []uuid.UUID) (items []dossiers.Assignment, err error) {
	err = m.do(func(v *view) error { items, err = v.ListAssignments(ctx, assignees); return err })
	return items, err
}

func (m *Memory) AppendEvent(ctx context.Context, e *dossiers.Event) error {
	return m.do(func(v *view) error { return v.AppendEvent(ctx, e) })
}

func (m *Memory) ListEvents(ctx context.Context, dossierID uuid.UUID) (events []dossiers.Event, err error) {
	err = m.do(func(v *view) error { events, err = v.ListEvents(ctx, dossierID); return err })
	return events, err
}

// view is an unlocked Store over one state value.
type view struct {
	st  *state
	now func() time.Time
}

func (v *view) FindDossier(_ context.Context, id uuid.UUID) (*dossiers.Dossier, error) {
	d, ok := v.st.dossiers[id]
	if !ok {
		return nil, dossiers.ErrNotFound
	}
	return &d, nil
}

func (v *view) InsertDossier(_ context.Context, d *dossiers.Dossier) error {
	for _, existing := range v.st.dossiers {
		if existing.Code == d.Code {
			return dossiers.ErrDuplicate
		}
	}
	now := v.now()
	d.CreatedAt, d.UpdatedAt = now, now
	v.st.dossiers[d.ID] = *d
	return nil
}

func (v *view) UpdateStatus(_ context.Context, id uuid.UUID, status dossiers.Status) error {
	d, ok := v.st.dossiers[id]
	if !ok {
		return dossiers.ErrNotFound
	}
	d.Status = status
	d.UpdatedAt = v.now()
	v.st.dossiers[id] = d
	return nil
}

func (v *view) FindTask(_ context.Context, id uuid.UUID) (*dossiers.Task, error) {
	t, ok := v.st.tasks[id]
	if !ok {
		return nil, dossiers.ErrTaskNotFound
	}
	return &t, nil
}

func (v *view) FindTaskBySlot(_ context.Context, dossierID uuid.UUID, key slots.Key) (*dossiers.Task, error) {
	for _, t := range v.st.tasks {
		if t.DossierID == dossierID && t.SlotKey == key {
			return &t, nil
		}
	}
	return nil, dossiers.ErrTaskNotFound
}

func (v *view) ListTasks(_ context.Context, dossierID uuid.UUID) ([]dossiers.Task, error) {
	tasks := make([]dossiers.Task, 0)
	for _, t := range v.st.tasks {
		if t.DossierID == dossierID {
			tasks = append(tasks, t)
		}
	}
	slices.SortFunc(tasks, func(a, b dossiers.Task) int { return a.Order - b.Order })
	return tasks, nil
}

func (v *view) InsertTask(_ context.Context, t *dossiers.Task) error {
	for _, existing := range v.st.tasks {
		if existing.DossierID != t.DossierID {
			continue
		}
		if existing.SlotKey == t.SlotKey || existing.Order == t.Order {
			return dossiers.ErrSlotTaken
		}
	}
	t.CreatedAt = v.now()
	v.st.tasks[t.ID] = *t
	return nil
}

func (v *view) UpdateTask(_ context.Context, t *dossiers.Task) error {
	existing, ok := v.st.tasks[t.ID]
	if !ok {
		return dossiers.ErrTaskNotFound
	}
	existing.Status = t.Status
	existing.ClerkConfirmed = t.ClerkConfirmed
	existing.DecidedAt = t.DecidedAt
	existing.DecidedBy = t.DecidedBy
	existing.Comment = t.Comment
	v.st.tasks[t.ID] = existing
	return nil
}

func (v *view) SetActivation(_ context.Context, dossierID uuid.UUID, active []uuid.UUID) error {
	for id, t := range v.st.tasks {
		if t.DossierID != dossierID {
			continue
		}
		t.IsActivated = slices.Contains(active, id)
		v.st.tasks[id] = t
	}
	return nil
}

func (v *view) ListAssignments(_ context.Context, assignees []uuid.UUID) ([]dossiers.Assignment, error) {
	items := make([]dossiers.Assignment, 0)
	for _, t := range v.st.tasks {
		if !slices.Contains(assignees, t.AssigneeID) {
			continue
		}
		d := v.st.dossiers[t.DossierID]
		items = append(items, dossiers.Assignment{
			Task:          t,
			DossierCode:   d.Code,
			DossierTitle:  d.Title,
			DossierStatus: d.Status,
		})
	}
	slices.SortFunc(items, func(a, b dossiers.Assignment) int {
		if a.DossierID != b.DossierID {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return a.Order - b.Order
	})
	return items, nil
}

func (v *view) AppendEvent(_ context.Context, e *dossiers.Event) error {
	e.CreatedAt = v.now()
	v.st.events = append(v.st.events, *e)
	return nil
}

func (v *view) ListEvents(_ context.Context, dossierID uuid.UUID) ([]dossiers.Event, error) {
	events := make([]dossiers.Event, 0)
	for _, e := range v.st.events {
		if e.DossierID == dossierID {
			events = append(events, e)
		}
	}
	return events, nil
}
