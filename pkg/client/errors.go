package client

import (
	"errors"
	"fmt"
)

var (
	// ErrHelperNotRunning is returned when nothing is listening on the helper socket
	ErrHelperNotRunning = errors.New("helper not running")

	// ErrPermissionDenied is returned when the user does not have permission to perform the requested action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when 404 is returned from the helper
	ErrNotFound = errors.New("404 not found")
)

// StatusError is a non-2xx reply from the helper.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("got %d: %s", e.Code, e.Body)
}

// ReplyError is a failure reported by the helper itself, as opposed to a
// transport failure. Message is usually what pmset wrote to stderr.
type ReplyError struct {
	Code    int
	Message string
}

func (e *ReplyError) Error() string {
	return e.Message
}
