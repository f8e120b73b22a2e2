/*
Package allocation provides the core project allocation engine.

PURPOSE:
  This package contains the domain types and algorithms for committing
  employee time to projects. An employee's capacity is 100% per calendar
  day; the engine computes per-day utilization across overlapping date
  ranges and guarantees that committed capacity never exceeds it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Allocation: A request to commit an employee to a project (Draft →
    Requested → Approved/Rejected lifecycle)
  - Assignment: The committed capacity record created on approval (1:1
    with its Approved Allocation)
  - Employee/Project: Directory records the engine reads but never owns
  - Note: An append-only audit entry on an allocation

DESIGN PRINCIPLES:
  1. Requests and commitments are distinct: only Approved capacity counts
     toward utilization, never pending or rejected requests
  2. Precision: Uses decimal.Decimal for percentages, rates, and cost to
     avoid floating-point errors
  3. Type Safety: Strong typing for IDs prevents mixing employee/project/
     allocation identifiers
  4. Auditability: Rejection reasons are appended to notes, never
     overwritten

USAGE:
  alloc := allocation.Allocation{
      Employee: "emp-123",
      Project:  "proj-001",
      Window:   allocation.Period{Start: jan1, End: jan31},
      Percent:  allocation.PercentFromInt(50),
  }

SEE ALSO:
  - engine.go: Utilization, feasibility, and cost computation
  - lifecycle.go: Status transitions and their side effects
  - availability.go: Candidate ranking
*/
package allocation

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AllocationID string
type AssignmentID string
type EmployeeID string
type ProjectID string

// =============================================================================
// PERCENTAGES - Capacity is always expressed as a percentage of 100
// =============================================================================

// FullCapacity is the per-day capacity ceiling for every employee.
var FullCapacity = decimal.NewFromInt(100)

func PercentFromInt(v int) decimal.Decimal     { return decimal.NewFromInt(int64(v)) }
func PercentFromFloat(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// ValidPercent reports whether p is within [0, 100].
func ValidPercent(p decimal.Decimal) bool {
	return !p.IsNegative() && !p.GreaterThan(FullCapacity)
}

// =============================================================================
// STATUS - Allocation lifecycle states
// =============================================================================

type Status string

const (
	StatusDraft     Status = "draft"
	StatusRequested Status = "requested"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Terminal reports whether no further transitions are permitted from s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// =============================================================================
// ALLOCATION - A request to commit employee time to a project
// =============================================================================

type Allocation struct {
	ID       AllocationID
	Employee EmployeeID
	Project  ProjectID

	// Window is the inclusive [start, end] date range of the commitment.
	Window Period

	// Percent of the employee's daily capacity, in [0, 100].
	Percent decimal.Decimal

	Status Status

	// HourlyRate is copied from the employee record when the draft is
	// created, so later rate changes don't rewrite history.
	HourlyRate    decimal.Decimal
	EstimatedCost decimal.Decimal

	RequestedBy string
	RequestedAt time.Time

	// Notes is append-only: rejection entries are added, never removed.
	Notes []Note

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Note is an audit entry appended to an allocation (e.g. a rejection reason).
type Note struct {
	At    TimePoint
	Actor string
	Text  string
}

// =============================================================================
// ASSIGNMENT - Committed capacity, created when an allocation is approved
// =============================================================================

type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"
	AssignmentCompleted AssignmentStatus = "completed"
)

// Assignment is the capacity-consuming record. Exactly one exists per
// Approved allocation; feasibility checks count these (via their Approved
// allocations), never pending requests.
type Assignment struct {
	ID           AssignmentID
	AllocationID AllocationID
	Employee     EmployeeID
	Project      ProjectID
	Window       Period
	Percent      decimal.Decimal
	Status       AssignmentStatus
	CreatedAt    time.Time
}

// =============================================================================
// DIRECTORY RECORDS - Owned by collaborators, read by the engine
// =============================================================================

type Employee struct {
	ID         EmployeeID
	Name       string
	Department string
	HourlyRate decimal.Decimal
	Active     bool
}

type Project struct {
	ID     ProjectID
	Name   string
	Active bool
}
