package dossiers

import (
	"errors"
	"net/http"
)

// Domain errors for dossier operations.
var (
	ErrNotFound     = errors.New("dossier not found")
	ErrDuplicate    = errors.New("dossier code already exists")
	ErrTaskNotFound = errors.New("sign task not found")
	ErrSlotTaken    = errors.New("slot already assigned for dossier")
	ErrInvalidID    = errors.New("invalid id")
)

// MapHTTPStatus maps dossier domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrTaskNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrSlotTaken):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
