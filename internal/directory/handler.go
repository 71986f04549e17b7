package directory

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JaimeStill/docket/pkg/auth"
	"github.com/JaimeStill/docket/pkg/handlers"
	"github.com/JaimeStill/docket/pkg/routes"
)

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
}

// Handler serves the caller's saved signature image.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given system, logger and upload size limit.
func NewHandler(sys System, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "directory"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for directory endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/directory",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/signature", Handler: h.GetSignature},
			{Method: "PUT", Pattern: "/signature", Handler: h.PutSignature},
		},
	}
}

// GetSignature streams the caller's signature image.
func (h *Handler) GetSignature(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.User(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken)
		return
	}

	sig, err := h.sys.Signature(r.Context(), user)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", sig.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(sig.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(sig.Data)
}

// PutSignature replaces the caller's signature image with the uploaded "file" part.
func (h *Handler) PutSignature(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.User(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingToken)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrImageTooLarge)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidImage)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidImage)
		return
	}

	contentType := http.DetectContentType(data)
	if !imageTypes[contentType] {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidImage)
		return
	}

	sig, err := h.sys.PutSignature(r.Context(), user, contentType, data)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, sig)
}
