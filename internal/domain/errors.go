package domain

import "errors"

// Recoverable error taxonomy surfaced to the request-handling layer.
// Storage-level failures are translated into the nearest of these at the
// repository boundary instead of leaking driver errors.
var (
	ErrInvalidWindow     = errors.New("invalid_window")
	ErrConflict          = errors.New("booking_conflict")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrNotFound          = errors.New("not_found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidContext    = errors.New("invalid_thread_context")
)
