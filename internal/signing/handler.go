package signing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/pkg/auth"
	"github.com/JaimeStill/docket/pkg/handlers"
	"github.com/JaimeStill/docket/pkg/routes"
)

// Handler provides HTTP endpoints for signing decisions and inbox queries.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "signing"),
	}
}

// Routes returns the route group definition for signing endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/signing",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/my-tasks", Handler: h.MyTasks},
			{Method: "GET", Pattern: "/my-tasks/grouped", Handler: h.MyTasksGrouped},
			{Method: "POST", Pattern: "/{id}/approve", Handler: h.Approve},
			{Method: "POST", Pattern: "/{id}/reject", Handler: h.Reject},
			{Method: "POST", Pattern: "/{id}/clerks/confirm", Handler: h.ClerkConfirm},
			{Method: "GET", Pattern: "/{id}/events", Handler: h.Events},
			{Method: "GET", Pattern: "/{id}/artifact", Handler: h.Artifact},
		},
	}
}

// MyTasks lists the caller's actionable tasks, including delegated ones.
func (h *Handler) MyTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	items, err := h.sys.MyTasks(r.Context(), actor)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

// MyTasksGrouped returns the caller's tasks split into pending, processed and completed.
func (h *Handler) MyTasksGrouped(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	grouped, err := h.sys.MyTasksGrouped(r.Context(), actor)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, grouped)
}

// Approve signs and approves the task identified by the path id.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var cmd ApproveCommand
	if err := decodeOptional(r, &cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	decision, err := h.sys.Approve(r.Context(), id, actor, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, decision)
}

// Reject rejects the task identified by the path id.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var cmd RejectCommand
	if err := decodeOptional(r, &cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	decision, err := h.sys.Reject(r.Context(), id, actor, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, decision)
}

// ClerkConfirm confirms the clerk check of the dossier identified by the path id.
func (h *Handler) ClerkConfirm(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	decision, err := h.sys.ClerkConfirm(r.Context(), id, actor)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, decision)
}

// Events lists the signing attempts recorded for the dossier.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	events, err := h.sys.Events(r.Context(), id, actor)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, events)
}

// Artifact streams the dossier's current PDF.
func (h *Handler) Artifact(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	artifact, err := h.sys.CurrentArtifact(r.Context(), id, actor)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer artifact.Body.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", artifact.Name))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, artifact.Body); err != nil {
		h.logger.Error("failed to stream artifact", "dossier_id", id, "error", err)
	}
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	actor, ok := auth.User(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken)
	}
	return actor, ok
}

func (h *Handler) actorAndID(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	actor, ok := h.actor(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, dossiers.ErrInvalidID)
		return uuid.Nil, uuid.Nil, false
	}

	return actor, id, true
}

// decodeOptional decodes a JSON body into v, accepting an empty body.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
