package artifacts

import "errors"

var (
	// ErrSourceMissing indicates the file to be versioned does not exist.
	ErrSourceMissing = errors.New("signed file not found")
	// ErrEmptyPath indicates an empty pointer target.
	ErrEmptyPath = errors.New("artifact path required")
	// ErrVersionConflict indicates no free version number could be claimed.
	ErrVersionConflict = errors.New("could not claim a free version number")
	// ErrNotLatest indicates a discard targeted something other than the newest version.
	ErrNotLatest = errors.New("only the latest version can be discarded")
)
