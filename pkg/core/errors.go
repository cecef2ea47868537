package core

import "errors"

// Common errors.
var (
	ErrNotFound   = errors.New("key not found")
	ErrInvalidKey = errors.New("invalid key")
	ErrReadOnly   = errors.New("repository is in read-only mode")
	ErrClosed     = errors.New("repository is closed")
)
