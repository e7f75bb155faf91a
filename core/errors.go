package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a client error: bad input, a rejected file...
// It is reported as a 400 with the per-field messages when there are any.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// Unwrap lets errors.Is reach the sentinel behind the validation failure (eg: a file too large).
func (err ValidationError) Unwrap() error { return err.Err }

// FieldMessages maps each field to its message. It is nil without field errors.
func (err ValidationError) FieldMessages() map[string]string {
	if len(err.Fields) == 0 {
		return nil
	}
	msgs := make(map[string]string, len(err.Fields))
	for _, f := range err.Fields {
		msgs[f.Field] = f.Error
	}
	return msgs
}

// shutdown is raised when the app is no longer in a state to serve requests.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
