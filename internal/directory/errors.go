package directory

import (
	"errors"
	"net/http"
)

// Domain errors for directory lookups.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrNoIdentity       = errors.New("no active digital identity")
	ErrNoSignature      = errors.New("no saved signature image")
	ErrInvalidImage     = errors.New("signature must be a PNG or JPEG image")
	ErrImageTooLarge    = errors.New("signature image exceeds maximum upload size")
	ErrDuplicateBinding = errors.New("duplicate directory record")
)

// MapHTTPStatus maps directory errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrNoIdentity), errors.Is(err, ErrNoSignature):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidImage):
		return http.StatusBadRequest
	case errors.Is(err, ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}
