package core

import (
	"errors"
	"fmt"
)

// Error classes. Typed errors below report themselves as one of these
// through errors.Is.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("storage unavailable")
)

var (
	ErrEmptyExpenseType = errors.New("expense type is required")
	ErrEmptySubmitter   = errors.New("submitter name is required")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrAmountOutOfRange = errors.New("amount exceeds the largest storable value")
	ErrInvertedRange    = errors.New("start date is after end date")
	ErrAmountOverflow   = errors.New("total exceeds representable amount")
)

// ValidationError reports rejected caller input.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an operation on an id with no live record.
type NotFoundError struct {
	ID ExpenseID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("expense %d not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// IsValidation reports whether err is a validation failure.
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsNotFound reports whether err refers to a missing record.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
