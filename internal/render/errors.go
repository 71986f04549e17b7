package render

import "errors"

var (
	ErrInvalidSource = errors.New("source document is not a valid pdf")
	ErrStampFailed   = errors.New("failed to stamp signature")
)
