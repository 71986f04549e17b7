package signing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/dossiers"
)

func (s *service) MyTasks(ctx context.Context, actorID uuid.UUID) ([]dossiers.Assignment, error) {
	items, err := s.assignments(ctx, actorID)
	if err != nil {
		return nil, err
	}

	pending := make([]dossiers.Assignment, 0, len(items))
	for _, a := range items {
		if a.Actionable() && !a.DossierStatus.Terminal() {
			pending = append(pending, a)
		}
	}
	return pending, nil
}

func (s *service) MyTasksGrouped(ctx context.Context, actorID uuid.UUID) (*Grouped, error) {
	items, err := s.assignments(ctx, actorID)
	if err != nil {
		return nil, err
	}

	g := &Grouped{
		Pending:   make([]dossiers.Assignment, 0),
		Processed: make([]dossiers.Assignment, 0),
		Completed: make([]dossiers.Assignment, 0),
	}

	for _, a := range items {
		switch {
		case a.DossierStatus.Terminal():
			g.Completed = append(g.Completed, a)
		case a.Status != dossiers.TaskPending:
			g.Processed = append(g.Processed, a)
		case a.IsActivated:
			g.Pending = append(g.Pending, a)
		}
	}
	return g, nil
}

// assignments lists the tasks of the actor and of everyone currently delegating to them.
func (s *service) assignments(ctx context.Context, actorID uuid.UUID) ([]dossiers.Assignment, error) {
	delegators, err := s.Auth.DelegatorsOf(ctx, actorID)
	if err != nil {
		return nil, err
	}

	assignees := append([]uuid.UUID{actorID}, delegators...)
	items, err := s.Repo.ListAssignments(ctx, assignees)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return items, nil
}

func (s *service) Events(ctx context.Context, dossierID, actorID uuid.UUID) ([]dossiers.Event, error) {
	if _, err := s.ensureCanView(ctx, dossierID, actorID); err != nil {
		return nil, err
	}
	return s.Repo.ListEvents(ctx, dossierID)
}

func (s *service) CurrentArtifact(ctx context.Context, dossierID, actorID uuid.UUID) (*Artifact, error) {
	d, err := s.ensureCanView(ctx, dossierID, actorID)
	if err != nil {
		return nil, err
	}

	path, ok, err := s.Artifacts.CurrentPointer(ctx, dossierID)
	if err != nil {
		return nil, err
	}

	if ok {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open current artifact: %w", err)
		}
		return &Artifact{Name: filepath.Base(path), Signed: true, Body: f}, nil
	}

	body, err := s.Source.Download(ctx, d.SourceKey)
	if err != nil {
		return nil, fmt.Errorf("download source: %w", err)
	}
	return &Artifact{Name: filepath.Base(d.SourceKey), Body: body}, nil
}

// ensureCanView allows the creator, any assignee, and anyone an assignee
// currently delegates to.
func (s *service) ensureCanView(ctx context.Context, dossierID, actorID uuid.UUID) (*dossiers.Dossier, error) {
	d, err := s.Repo.FindDossier(ctx, dossierID)
	if err != nil {
		return nil, err
	}
	if d.CreatedBy == actorID {
		return d, nil
	}

	tasks, err := s.Repo.ListTasks(ctx, dossierID)
	if err != nil {
		return nil, err
	}

	delegators, err := s.Auth.DelegatorsOf(ctx, actorID)
	if err != nil {
		return nil, err
	}

	for _, t := range tasks {
		if t.AssigneeID == actorID || slices.Contains(delegators, t.AssigneeID) {
			return d, nil
		}
	}
	return nil, ErrUnauthorized
}
