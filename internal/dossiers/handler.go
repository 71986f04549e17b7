package dossiers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/handlers"
	"github.com/JaimeStill/docket/pkg/pagination"
	"github.com/JaimeStill/docket/pkg/routes"
)

// Handler provides the read endpoints for dossiers.
type Handler struct {
	reader     Reader
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler over the given reader.
func NewHandler(reader Reader, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		reader:     reader,
		logger:     logger.With("handler", "dossiers"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for dossier read endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/dossiers",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
		},
	}
}

// List returns a paginated list of dossiers with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.reader.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a dossier with its tasks.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	detail, err := h.reader.Detail(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, detail)
}
