package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a referenced appointment, plan, medication,
// schedule or transaction does not exist.
var ErrNotFound = errors.New("record not found")

// ValidationError carries every violated field of one request, collected
// rather than failing on the first.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// Add records one violation.
func (e *ValidationError) Add(violation string) {
	e.Violations = append(e.Violations, violation)
}

// HasViolations reports whether any violation was recorded.
func (e *ValidationError) HasViolations() bool {
	return len(e.Violations) > 0
}

// InvalidTransitionError is returned when a state-machine edge is not
// permitted from the current state.
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

// PreconditionError is returned when a transition's own edge is legal but a
// required precondition does not hold (e.g. completing an appointment with
// no treatment plan attached).
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return e.Reason
}

// ConflictError is returned when a mutation targets a record that is already
// in a state excluding it: a terminal treatment plan, a finalized
// transaction, a second open transaction for the same appointment.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// ProviderUnavailableError wraps a failed call to the external payment
// provider. The transaction stays PENDING and the caller may retry.
type ProviderUnavailableError struct {
	Err error
}

func (e *ProviderUnavailableError) Error() string {
	return "payment provider unavailable: " + e.Err.Error()
}

func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}
