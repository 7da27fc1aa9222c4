package synchronizer

import (
	"errors"
	"fmt"
)

// Kind classifies what went wrong while reading or applying schedules.
// A Kind is itself an error, so errors.Is(err, AuthorizationFailed) works
// on any error returned by this package.
type Kind int

const (
	KindUnknown Kind = iota
	// HelperConnectionFailed means the helper could not be reached, even
	// after installing it.
	HelperConnectionFailed
	// HelperInstallationFailed means registering the helper with launchd
	// failed.
	HelperInstallationFailed
	// AuthorizationFailed means the user refused or failed the
	// administrator prompt.
	AuthorizationFailed
	// InvalidConfiguration means the schedule set was rejected before
	// anything was run.
	InvalidConfiguration
	// HelperCommunicationError means the helper was reached but the call
	// failed, including pmset failing on the helper side.
	HelperCommunicationError
	// ExternalToolLaunchFailure means pmset could not be started or exited
	// with an error when run directly.
	ExternalToolLaunchFailure
)

func (k Kind) String() string {
	switch k {
	case HelperConnectionFailed:
		return "helper connection failed"
	case HelperInstallationFailed:
		return "helper installation failed"
	case AuthorizationFailed:
		return "authorization failed"
	case InvalidConfiguration:
		return "invalid configuration"
	case HelperCommunicationError:
		return "helper communication error"
	case ExternalToolLaunchFailure:
		return "external tool launch failure"
	default:
		return "unknown error"
	}
}

func (k Kind) Error() string {
	return k.String()
}

// Error is returned by every operation of the Synchronizer.
type Error struct {
	Kind Kind
	// Detail is shown to the user, e.g. what pmset wrote to stderr.
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

func newError(kind Kind, err error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail, Err: err}
}

// KindOf returns the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries kind k.
func IsKind(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}
