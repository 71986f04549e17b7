package delegations

import (
	"errors"
	"net/http"
)

// Domain errors for delegation operations.
var (
	ErrNotFound       = errors.New("delegation not found")
	ErrUserNotFound   = errors.New("user not found or inactive")
	ErrSelfDelegation = errors.New("cannot delegate to yourself")
	ErrInvalidWindow  = errors.New("delegation end must not precede start")
	ErrNotOwner       = errors.New("only the delegating user may change this delegation")
	ErrInvalidRequest = errors.New("invalid delegation request")
)

// MapHTTPStatus maps delegation domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, ErrSelfDelegation), errors.Is(err, ErrInvalidWindow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
