package weather

import (
	"errors"
	"fmt"
)

// ErrInvalidData is matched by every error returned from [Parse].
var ErrInvalidData = errors.New("invalid data")

var (
	errMissing    = errors.New("missing")
	errOutOfRange = errors.New("index out of range")
)

// ParseError describes why a document was rejected.
//
// Field is the dotted path of the offending key ("weather.daily.time") or
// empty when the document as a whole could not be decoded.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", ErrInvalidData, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", ErrInvalidData, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports ErrInvalidData as a match so callers need not know the concrete type.
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidData
}

func invalid(field string, err error) *ParseError {
	return &ParseError{Field: field, Err: err}
}
