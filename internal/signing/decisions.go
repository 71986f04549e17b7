package signing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/internal/slots"
)

func (s *service) Reject(ctx context.Context, taskID, actorID uuid.UUID, cmd RejectCommand) (*Decision, error) {
	task, unlock, err := s.lockTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.authorize(ctx, task, actorID); err != nil {
		return nil, err
	}

	task.Decide(dossiers.TaskRejected, actorID, cmd.Comment, s.Now().UTC())

	status, err := s.commit(ctx, task, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("task rejected",
		"task_id", task.ID,
		"dossier_id", task.DossierID,
		"slot", task.SlotKey,
		"actor", actorID,
	)

	return &Decision{Task: *task, DossierStatus: status}, nil
}

func (s *service) ClerkConfirm(ctx context.Context, dossierID, actorID uuid.UUID) (*Decision, error) {
	unlock, err := s.Locks.Lock(ctx, dossierID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	task, err := s.Repo.FindTaskBySlot(ctx, dossierID, slots.Clerk)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, task, actorID); err != nil {
		return nil, err
	}

	task.ClerkConfirmed = true
	task.Decide(dossiers.TaskApproved, actorID, "", s.Now().UTC())

	status, err := s.commit(ctx, task, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("clerk confirmed", "dossier_id", dossierID, "actor", actorID)

	return &Decision{Task: *task, DossierStatus: status}, nil
}

// lockTask resolves the task's dossier, takes its lock and reloads the task
// under it.
func (s *service) lockTask(ctx context.Context, taskID uuid.UUID) (*dossiers.Task, func(), error) {
	task, err := s.Repo.FindTask(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}

	unlock, err := s.Locks.Lock(ctx, task.DossierID)
	if err != nil {
		return nil, nil, err
	}

	task, err = s.Repo.FindTask(ctx, taskID)
	if err != nil {
		unlock()
		return nil, nil, err
	}

	return task, unlock, nil
}

// authorize checks that task accepts a decision now and that actorID may make it.
func (s *service) authorize(ctx context.Context, task *dossiers.Task, actorID uuid.UUID) error {
	if !task.Actionable() {
		return fmt.Errorf("%w: %s is %s, activated=%t", ErrNotReady, task.SlotKey, task.Status, task.IsActivated)
	}

	ok, err := s.Auth.IsAllowed(ctx, task.AssigneeID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}
