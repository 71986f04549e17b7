package signing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/activation"
	"github.com/JaimeStill/docket/internal/directory"
	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/internal/render"
	"github.com/JaimeStill/docket/internal/signer"
	"github.com/JaimeStill/docket/internal/slots"
)

// attempt is one signature being produced for a task.
type attempt struct {
	dossier  *dossiers.Dossier
	task     *dossiers.Task
	actor    uuid.UUID
	mode     dossiers.SignMode
	pin      string
	identity *directory.Identity
	workDir  string
	previous string
	event    dossiers.Event
}

func (s *service) Approve(ctx context.Context, taskID, actorID uuid.UUID, cmd ApproveCommand) (*Decision, error) {
	task, unlock, err := s.lockTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.authorize(ctx, task, actorID); err != nil {
		return nil, err
	}
	if task.SlotKey == slots.Clerk {
		return nil, ErrClerkSlot
	}

	a := &attempt{task: task, actor: actorID, pin: cmd.Pin, mode: s.signMode(cmd.Pin)}

	if a.mode == dossiers.ModeRemote {
		if task.VisiblePattern == "" {
			return nil, ErrMissingPattern
		}
		if a.identity, err = s.Directory.ActiveIdentity(ctx, actorID); err != nil {
			return nil, fmt.Errorf("signing identity: %w", err)
		}
	}

	if a.dossier, err = s.Repo.FindDossier(ctx, task.DossierID); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	if a.workDir, err = os.MkdirTemp(s.tempDir, "sign-*"); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(a.workDir)

	a.event = dossiers.Event{
		ID:            uuid.New(),
		DossierID:     task.DossierID,
		TaskID:        task.ID,
		ActorID:       actorID,
		OutputPath:    filepath.Join(a.workDir, "signed.pdf"),
		Mode:          a.mode,
		SearchPattern: task.VisiblePattern,
	}

	if err := s.sign(ctx, a); err != nil {
		s.recordFailure(ctx, &a.event, err)
		return nil, fmt.Errorf("%w: %w", ErrSigningFailed, err)
	}

	// Versioning and the decision run detached from cancellation.
	dctx := context.WithoutCancel(ctx)

	final, err := s.Artifacts.SaveSignedVersion(dctx, task.DossierID, a.event.OutputPath)
	if err != nil {
		s.recordFailure(dctx, &a.event, err)
		return nil, fmt.Errorf("save signed version: %w", err)
	}
	a.event.OutputPath = final
	a.event.Success = true

	task.Decide(dossiers.TaskApproved, actorID, cmd.Comment, s.Now().UTC())

	status, err := s.commit(dctx, task, func(st dossiers.Store) error {
		return st.AppendEvent(dctx, &a.event)
	})
	if err != nil {
		if derr := s.Artifacts.Discard(dctx, task.DossierID, final, a.previous); derr != nil {
			s.logger.Error("signed version kept after failed decision",
				"task_id", task.ID,
				"artifact", final,
				"error", derr,
			)
		}
		s.recordFailure(dctx, &a.event, err)
		return nil, err
	}

	s.logger.Info("task approved",
		"task_id", task.ID,
		"dossier_id", task.DossierID,
		"slot", task.SlotKey,
		"actor", actorID,
		"mode", a.mode,
		"dossier_status", status,
	)

	return &Decision{
		Task:          *task,
		DossierStatus: status,
		Mode:          a.mode,
		Artifact:      filepath.Base(final),
	}, nil
}

func (s *service) signMode(pin string) dossiers.SignMode {
	if pin == "" || s.mode == ModeMock {
		return dossiers.ModeMock
	}
	return dossiers.ModeRemote
}

// sign prepares the input document and produces the signed output of a.
func (s *service) sign(ctx context.Context, a *attempt) error {
	input, err := s.input(ctx, a)
	if err != nil {
		return err
	}
	a.event.InputPath = input

	if a.mode == dossiers.ModeMock {
		stamp, err := s.stamp(ctx, a)
		if err != nil {
			return err
		}
		return s.Renderer.RenderSignedMock(ctx, input, a.event.OutputPath, stamp)
	}

	return s.Signer.Sign(ctx, signer.Request{
		EmpCode:          a.identity.EmpCode,
		Pin:              a.pin,
		CertName:         a.identity.CertName,
		Company:          a.identity.Company,
		Title:            a.dossier.Title,
		Name:             a.dossier.Code,
		InputPath:        input,
		OutputPath:       a.event.OutputPath,
		SignType:         signer.SignTypeVisible,
		SignLocationType: signer.LocationSearchPattern,
		SearchPattern:    a.task.VisiblePattern,
		Page:             a.event.Page,
	})
}

// input returns the document to sign: the current version when one exists,
// otherwise a fresh rendering of the source.
func (s *service) input(ctx context.Context, a *attempt) (string, error) {
	current, ok, err := s.Artifacts.CurrentPointer(ctx, a.dossier.ID)
	if err != nil {
		return "", err
	}
	if ok {
		a.previous = current
		return current, nil
	}
	return s.Renderer.RenderToPDF(ctx, a.dossier, a.workDir)
}

func (s *service) stamp(ctx context.Context, a *attempt) (render.Stamp, error) {
	stamp := render.Stamp{
		SlotKey:    a.task.SlotKey,
		SignerName: a.task.AssigneeID.String(),
		SignedAt:   s.Now(),
	}

	if u, err := s.Directory.FindUser(ctx, a.task.AssigneeID); err == nil {
		stamp.SignerName = u.FullName
	} else if !errors.Is(err, directory.ErrUserNotFound) {
		return stamp, err
	}

	sig, err := s.Directory.Signature(ctx, a.task.AssigneeID)
	switch {
	case err == nil:
		stamp.Image = sig.Data
		stamp.ContentType = sig.ContentType
	case !errors.Is(err, directory.ErrNoSignature):
		return stamp, err
	}

	return stamp, nil
}

// recordFailure commits a failed event in its own unit of work so it survives
// the failed decision.
func (s *service) recordFailure(ctx context.Context, e *dossiers.Event, cause error) {
	msg := cause.Error()
	e.Success = false
	e.Error = &msg

	dctx := context.WithoutCancel(ctx)
	if err := s.Repo.InTx(dctx, func(st dossiers.Store) error {
		return st.AppendEvent(dctx, e)
	}); err != nil {
		s.logger.Error("failed to record sign event", "task_id", e.TaskID, "error", err)
		return
	}

	s.logger.Warn("signing failed",
		"task_id", e.TaskID,
		"dossier_id", e.DossierID,
		"mode", e.Mode,
		"error", cause,
	)
}

// commit persists the task decision, derives the dossier status and
// recomputes activation in one unit of work. extra runs first inside it.
func (s *service) commit(ctx context.Context, task *dossiers.Task, extra func(dossiers.Store) error) (dossiers.Status, error) {
	var status dossiers.Status

	err := s.Repo.InTx(ctx, func(st dossiers.Store) error {
		if extra != nil {
			if err := extra(st); err != nil {
				return err
			}
		}
		if err := st.UpdateTask(ctx, task); err != nil {
			return err
		}

		tasks, err := st.ListTasks(ctx, task.DossierID)
		if err != nil {
			return err
		}
		status = dossiers.DeriveStatus(tasks)
		if err := st.UpdateStatus(ctx, task.DossierID, status); err != nil {
			return err
		}

		if _, err := activation.Recompute(ctx, st, task.DossierID); err != nil {
			return err
		}

		updated, err := st.FindTask(ctx, task.ID)
		if err != nil {
			return err
		}
		*task = *updated
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("record decision: %w", err)
	}

	return status, nil
}
