package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPreconditionFailed is a generic sentinel for operations whose
	// state prerequisites are not met.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrUpstream is a generic sentinel for external collaborator
	// failures; callers may resubmit.
	ErrUpstream = errors.New("upstream failure")
)
