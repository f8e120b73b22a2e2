/*
errors.go - Centralized error types for the allocation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers branch on sentinels with errors.Is() and unwrap structured
  errors with errors.As() for the details they carry.

ERROR CATEGORIES:
  1. Validation errors - Bad input shape, rejected before any mutation
  2. Capacity errors - Per-day overallocation, with the offending day
  3. Transition errors - Illegal state changes, no mutation performed
  4. Permission errors - Actor lacks the role; checked before anything
     else so unauthorized actors learn nothing about record state
  5. Not-found errors - Referenced allocation/employee/project absent

USAGE:
  var capErr *CapacityExceededError
  if errors.As(err, &capErr) {
      fmt.Printf("over on %s: %v + %v\n", capErr.Day, capErr.Existing, capErr.Requested)
  }

SEE ALSO:
  - engine.go: Produces CapacityExceededError
  - lifecycle.go: Produces transition and permission errors
*/
package allocation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced allocation, employee,
	// or project does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrCapacityExceeded is returned when a candidate allocation would
	// push some day's utilization above 100%.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrInvalidTransition is returned for a status change absent from
	// the transition table, including anything out of a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPermissionDenied is returned when the actor lacks the role
	// required for the attempted transition.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrValidation is returned for malformed input: end before start,
	// percentage outside [0, 100], missing required selection.
	ErrValidation = errors.New("validation failed")

	// ErrDuplicateAssignment is returned by stores when a second
	// assignment references the same allocation.
	ErrDuplicateAssignment = errors.New("assignment already exists for allocation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// CapacityExceededError reports the first day on which the candidate
// percentage would overcommit the employee. Numbers are surfaced so the
// caller can display a precise message; the engine never clamps.
type CapacityExceededError struct {
	Employee  EmployeeID
	Day       TimePoint
	Existing  decimal.Decimal
	Requested decimal.Decimal
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("employee %s is already allocated %s%% on %s; adding %s%% would exceed 100%%",
		e.Employee, e.Existing, e.Day, e.Requested)
}

func (e *CapacityExceededError) Unwrap() error { return ErrCapacityExceeded }

// InvalidTransitionError reports an attempted status change that the
// transition table does not permit.
type InvalidTransitionError struct {
	Allocation AllocationID
	From       Status
	To         Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("allocation %s: cannot transition from %s to %s", e.Allocation, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// PermissionDeniedError reports the actor and the action they lacked a
// role for. It deliberately carries no record state.
type PermissionDeniedError struct {
	Actor  string
	Action string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("actor %s may not %s", e.Actor, e.Action)
}

func (e *PermissionDeniedError) Unwrap() error { return ErrPermissionDenied }

// ValidationError reports a single bad input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrDuplicateAssignment)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
