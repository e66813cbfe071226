package core

import (
	"errors"
	"fmt"
)

// ValidationKind names the rule a task or diary entry failed.
type ValidationKind string

const (
	InvalidInterval ValidationKind = "invalid_interval"
	InvalidProgress ValidationKind = "invalid_progress"
	MissingDate     ValidationKind = "missing_date"
	InvalidField    ValidationKind = "invalid_field"
)

// Sentinels matched by errors.Is against any *ValidationError of that kind.
var (
	ErrInvalidInterval = errors.New("end date is before start date")
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")
	ErrMissingDate     = errors.New("start and end dates are required")
	ErrInvalidField    = errors.New("invalid field value")
)

// ValidationError reports malformed input. It is returned before any store
// write happens.
type ValidationError struct {
	Kind   ValidationKind
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Detail)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Detail)
}

// Is lets errors.Is match a ValidationError against the sentinel of its kind.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrInvalidInterval:
		return e.Kind == InvalidInterval
	case ErrInvalidProgress:
		return e.Kind == InvalidProgress
	case ErrMissingDate:
		return e.Kind == MissingDate
	case ErrInvalidField:
		return e.Kind == InvalidField
	}
	return false
}

// NotFoundError reports a reference to a task or alert that does not exist.
type NotFoundError struct {
	Kind string // "task", "alert"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// StoreError wraps a failure of the record store. Operations are not retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// storeErr wraps err in a *StoreError unless it already carries a
// validation or not-found error, which callers need to see unchanged.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsNotFound(err) || IsValidation(err) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
