package routing

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/docket/internal/directory"
	"github.com/JaimeStill/docket/internal/dossiers"
)

// Domain errors for dossier creation and routing.
var (
	ErrNotReady       = errors.New("dossier is closed for routing")
	ErrInvalidRequest = errors.New("invalid routing request")
	ErrNotPDF         = errors.New("source document must be a pdf")
	ErrFileTooLarge   = errors.New("file exceeds maximum upload size")
)

// MapHTTPStatus maps routing errors, and the dossier and directory errors they
// wrap, to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrNotPDF):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, directory.ErrUserNotFound):
		return http.StatusNotFound
	}
	return dossiers.MapHTTPStatus(err)
}
