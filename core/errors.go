package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return "validation failed"
	}
	return err.Err.Error()
}

// DegradedError reports a read that failed after all retries and was degraded to an empty result.
// The message is meant to be displayed; the read itself is not fatal.
type DegradedError struct {
	Op  string
	Err error
}

func NewDegradedError(op string, err error) error {
	return &DegradedError{Op: op, Err: err}
}

func (err *DegradedError) Error() string {
	if err.Err == nil {
		return err.Op
	}
	return err.Err.Error()
}

func (err *DegradedError) Unwrap() error { return err.Err }

// IsDegraded reports whether any error in err's chain is a *DegradedError.
func IsDegraded(err error) bool {
	var derr *DegradedError
	return errors.As(err, &derr)
}

// permanent wraps an error that must not be retried.
type permanent struct {
	err error
}

// Permanent marks err so that Retry gives up on it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanent{err: err}
}

func (p *permanent) Error() string { return p.err.Error() }
func (p *permanent) Unwrap() error { return p.err }
func (p *permanent) Cause() error  { return p.err }

func isPermanent(err error) bool {
	var p *permanent
	return errors.As(err, &p)
}

// unwrapPermanent strips the Permanent marker so callers compare against the original error.
func unwrapPermanent(err error) error {
	if p, ok := err.(*permanent); ok {
		return p.err
	}
	return err
}

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
