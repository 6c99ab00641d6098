package models

import "errors"

// Error kinds surfaced to callers. Attach details with fmt.Errorf("%w: ...", ErrX)
// and test with errors.Is.
var (
	// ErrValidation indicates malformed or missing input. Nothing was written.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the entity does not exist or lies outside the
	// caller's scope. Scope violations also use this kind.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied indicates the caller lacks the family membership or
	// role required for the action.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidState indicates the entity is in a state that forbids the action,
	// e.g. completing an already completed shopping list.
	ErrInvalidState = errors.New("invalid state")
)
