package ordering

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error taxonomy surfaced by the engine. Every error names its kind and a
// human-readable reason so clients can react without guessing.

// ValidationError means the caller's input is malformed.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// NotFoundError means a referenced order or merchant does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// AuthorizationError means the actor does not own the resource.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "not authorized: " + e.Reason
}

// PreconditionFailedError means the resource exists but its current state
// does not permit the action, e.g. the merchant is offline.
type PreconditionFailedError struct {
	Reason string
}

func (e *PreconditionFailedError) Error() string {
	return "precondition failed: " + e.Reason
}

// InvalidTransitionError means the requested status is not a legal successor
// of the order's current status. It enumerates the allowed next states so a
// client can disable invalid actions.
type InvalidTransitionError struct {
	Current   Status
	Requested Status
	Allowed   []Status
}

func (e *InvalidTransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("cannot transition from terminal status %q to %q", e.Current, e.Requested)
	}
	names := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		names[i] = string(s)
	}
	return fmt.Sprintf("cannot transition from %q to %q, allowed: [%s]", e.Current, e.Requested, strings.Join(names, ", "))
}

func newInvalidTransition(current, requested Status) *InvalidTransitionError {
	return &InvalidTransitionError{
		Current:   current,
		Requested: requested,
		Allowed:   current.AllowedNext(),
	}
}

// HTTPStatus maps an engine error to its response status code. Unknown
// errors map to 500.
func HTTPStatus(err error) int {
	var (
		validation   *ValidationError
		notFound     *NotFoundError
		authz        *AuthorizationError
		precondition *PreconditionFailedError
		transition   *InvalidTransitionError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &transition):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &authz):
		return http.StatusForbidden
	case errors.As(err, &precondition):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
