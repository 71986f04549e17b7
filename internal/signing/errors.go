package signing

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/docket/internal/directory"
	"github.com/JaimeStill/docket/internal/dossiers"
	"github.com/JaimeStill/docket/pkg/storage"
)

// Domain errors for signing decisions.
var (
	ErrNotReady       = errors.New("task is not ready for a decision")
	ErrUnauthorized   = errors.New("actor may not act on this task")
	ErrClerkSlot      = errors.New("clerk task is completed by clerk confirmation")
	ErrMissingPattern = errors.New("task has no visible signature pattern")
	ErrSigningFailed  = errors.New("signing failed")
	ErrInvalidRequest = errors.New("invalid signing request")
)

// MapHTTPStatus maps signing errors, and the dossier, directory and storage
// errors they wrap, to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, ErrClerkSlot), errors.Is(err, ErrMissingPattern), errors.Is(err, directory.ErrNoIdentity):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrSigningFailed):
		return http.StatusBadGateway
	case errors.Is(err, storage.ErrNotFound):
		return storage.MapHTTPStatus(err)
	}
	return dossiers.MapHTTPStatus(err)
}
