package services

import "errors"

// Achievement gate errors. ErrAlreadyGranted covers both the fast-path lookup
// and races resolved by the storage uniqueness constraint.
var (
	ErrAlreadyGranted   = errors.New("achievement already granted to this user")
	ErrUnknownMilestone = errors.New("unknown milestone key")
)

// MintError wraps a failed or timed-out external mint call. Nothing has been
// persisted when it is returned, so the milestone stays grantable.
type MintError struct {
	Err error
}

func (e *MintError) Error() string { return "mint failed: " + e.Err.Error() }
func (e *MintError) Unwrap() error { return e.Err }

// Request-level errors shared across services.

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }
