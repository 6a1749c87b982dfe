package request

import "errors"

var (
	// ErrInvalidRequest signals a variant precondition failure. Never retried.
	ErrInvalidRequest = errors.New("request: invalid request")
	// ErrWrongRole signals the acting role does not match the current chain step.
	ErrWrongRole = errors.New("request: role not permitted for current step")
	// ErrTerminalStatus signals a mutation against a rejected, completed or
	// cancelled request.
	ErrTerminalStatus = errors.New("request: request is in a terminal status")
	// ErrNotApproved signals completion attempted before the chain was exhausted.
	ErrNotApproved = errors.New("request: request is not approved")
	// ErrStaleRequest signals the optimistic concurrency check lost; the caller
	// must reload and retry.
	ErrStaleRequest = errors.New("request: stale request, reload and retry")
	// ErrNotFound signals no request exists for the identifier.
	ErrNotFound = errors.New("request: not found")
)
