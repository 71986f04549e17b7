package routing

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/pkg/auth"
	"github.com/JaimeStill/docket/pkg/handlers"
	"github.com/JaimeStill/docket/pkg/routes"
)

// Handler provides HTTP endpoints for creating and routing dossiers.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given system, logger and upload size limit.
func NewHandler(sys System, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "routing"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for routing endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/dossiers",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "POST", Pattern: "/{id}/route", Handler: h.Route},
		},
	}
}

// Create accepts a multipart form with code, title and the source PDF as "file".
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.User(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken)
		return
	}

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrFileTooLarge)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	cmd := CreateCommand{
		Code:      r.FormValue("code"),
		Title:     r.FormValue("title"),
		CreatedBy: user,
		Data:      data,
	}

	detail, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, detail)
}

// Route adds the related department, functional slots and leadership to a dossier.
func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.User(r.Context()); !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, dossiers.ErrInvalidID)
		return
	}

	var cmd RouteCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	detail, err := h.sys.Route(r.Context(), id, cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, detail)
}
