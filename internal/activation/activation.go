// Package activation derives which sign tasks of a dossier may act next.
//
// Activation is phase gated. Region1 slots are signed one after another;
// the functional departments of Region2 sign in parallel once Region1 is
// complete; the deputies of Region3 sign in parallel once Region2 is
// complete; the clerk follows Region3; the director is opened only by the
// clerk's confirmation. A slot with no task is treated as done, and a single
// rejection stops the dossier.
package activation

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/internal/slots"
)

// Compute returns the ids of the tasks that should be activated.
// It is a pure function of the task set.
func Compute(tasks []dossiers.Task) []uuid.UUID {
	bySlot := make(map[slots.Key]dossiers.Task, len(tasks))
	for _, t := range tasks {
		if t.Status == dossiers.TaskRejected {
			return []uuid.UUID{}
		}
		bySlot[t.SlotKey] = t
	}

	done := func(k slots.Key) bool {
		t, ok := bySlot[k]
		return !ok || t.Status == dossiers.TaskApproved
	}
	allDone := func(keys []slots.Key) bool {
		for _, k := range keys {
			if !done(k) {
				return false
			}
		}
		return true
	}
	pending := func(k slots.Key) (uuid.UUID, bool) {
		t, ok := bySlot[k]
		if !ok || t.Status != dossiers.TaskPending {
			return uuid.Nil, false
		}
		return t.ID, true
	}

	active := make([]uuid.UUID, 0)

	for _, k := range slots.Sequential {
		if id, ok := pending(k); ok {
			return append(active, id)
		}
	}

	if !allDone(slots.Functional) {
		for _, k := range slots.Functional {
			if id, ok := pending(k); ok {
				active = append(active, id)
			}
		}
		return active
	}

	if !allDone(slots.Deputies) {
		for _, k := range slots.Deputies {
			if id, ok := pending(k); ok {
				active = append(active, id)
			}
		}
		return active
	}

	if id, ok := pending(slots.Clerk); ok {
		return append(active, id)
	}

	clerk, hasClerk := bySlot[slots.Clerk]
	if hasClerk && clerk.ClerkConfirmed {
		if id, ok := pending(slots.Director); ok {
			active = append(active, id)
		}
	}

	return active
}

// Recompute reloads the dossier's tasks, re-derives activation and persists it.
// It is the only writer of the activation flag and must run as the last step of
// every mutating unit of work, against that unit's Store.
func Recompute(ctx context.Context, store dossiers.Store, dossierID uuid.UUID) ([]uuid.UUID, error) {
	tasks, err := store.ListTasks(ctx, dossierID)
	if err != nil {
		return nil, fmt.Errorf("recompute activation: %w", err)
	}

	active := Compute(tasks)

	if err := store.SetActivation(ctx, dossierID, active); err != nil {
		return nil, fmt.Errorf("recompute activation: %w", err)
	}

	return active, nil
}
