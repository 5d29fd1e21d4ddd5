package lifecycle

import "errors"

var (
	// ErrNotFound means the service request does not exist.
	ErrNotFound = errors.New("service request not found")

	// ErrAccessDenied means the caller is not a party to the request or
	// lacks the role the operation requires.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidState means the requested transition is not legal from the
	// request's current status — including the "lost the race" case where a
	// concurrent caller already applied the same transition.
	ErrInvalidState = errors.New("invalid state for operation")
)
