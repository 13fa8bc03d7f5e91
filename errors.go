package meshweather

import (
	"errors"
	"fmt"

	"github.com/jpalmerr/meshweather/internal/poller"
	"github.com/jpalmerr/meshweather/weather"
)

// Failure kinds. Poll failures delivered to callbacks and returned by
// [Check] match exactly one of them via errors.Is.
var (
	// ErrCannotConnect covers network failures, timeouts and non-2xx responses.
	ErrCannotConnect = poller.ErrConnection

	// ErrInvalidData means the node answered with a document that could not be used.
	ErrInvalidData = weather.ErrInvalidData

	// ErrUnknown covers any other failure.
	ErrUnknown = poller.ErrUnknown
)

// Error codes reported by [Check], the station status API and the CLI.
const (
	CodeCannotConnect = "cannot_connect"
	CodeInvalidData   = "invalid_data"
	CodeUnknown       = "unknown"
)

// ErrorCode maps err to one of the Code constants, or "" for a nil error.
func ErrorCode(err error) string {
	switch poller.KindOf(err) {
	case nil:
		return ""
	case poller.ErrConnection:
		return CodeCannotConnect
	case poller.ErrInvalidData:
		return CodeInvalidData
	default:
		return CodeUnknown
	}
}

// SetupError is returned by [Check] when a node cannot be used.
type SetupError struct {
	// Code is CodeCannotConnect, CodeInvalidData or CodeUnknown.
	Code string

	// URL is the node URL that was checked.
	URL string

	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Code, e.URL, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// AsSetupError reports whether err is a [*SetupError] and returns it.
func AsSetupError(err error) (*SetupError, bool) {
	var se *SetupError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
