package poller

import (
	"errors"
	"fmt"

	"github.com/jpalmerr/meshweather/weather"
)

// Failure kinds. Every error returned by [Poller.PollOnce] matches exactly
// one of these via errors.Is, unless the poll was cancelled.
var (
	// ErrConnection covers network failures, timeouts and non-2xx responses.
	ErrConnection = errors.New("cannot connect")

	// ErrInvalidData means the response was not a usable document.
	ErrInvalidData = weather.ErrInvalidData

	// ErrUnknown covers anything else, such as a parser panic.
	ErrUnknown = errors.New("unknown error")
)

// PollError is a failed poll.
type PollError struct {
	// Kind is one of ErrConnection, ErrInvalidData or ErrUnknown.
	Kind error

	// StatusCode is the HTTP status when the node answered with a non-2xx code.
	StatusCode int

	Err error
}

func (e *PollError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v: status %d: %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *PollError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// KindOf returns the failure kind of err, or nil for a nil error.
// Errors that do not carry a kind are reported as ErrUnknown.
func KindOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConnection):
		return ErrConnection
	case errors.Is(err, ErrInvalidData):
		return ErrInvalidData
	default:
		return ErrUnknown
	}
}
