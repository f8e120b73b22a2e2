/*
store.go - Persistence interfaces for allocations and assignments

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:       Allocation record persistence and overlap queries
  Assignments: Committed-capacity records (1:1 with Approved allocations)
  Directory:   Employee/project lookup (owned by collaborators)
  TxStore:     Atomic multi-write operations (the approval transition)

OVERLAP CONTRACT:
  FindOverlapping returns every allocation whose inclusive [start, end]
  range intersects the query window, filtered to the given status set,
  optionally excluding one identifier (used when re-validating an
  allocation against itself). Results are ordered by ID for determinism.
  No side effects.

ATOMICITY:
  The approval transition (feasibility re-check, status flip, assignment
  creation) must be one transactional unit. TxStore.WithTx provides it;
  the lifecycle service additionally serializes approvals per employee.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - allocation/store/memory.go: In-memory for testing

SEE ALSO:
  - lifecycle.go: The only writer of allocations and assignments
  - availability.go: Read-only consumer
*/
package allocation

import "context"

// =============================================================================
// STORE - Allocation record persistence
// =============================================================================

type Store interface {
	// Put inserts or replaces an allocation record.
	Put(ctx context.Context, alloc *Allocation) error

	// Get returns the allocation or ErrNotFound.
	Get(ctx context.Context, id AllocationID) (*Allocation, error)

	// FindOverlapping returns allocations for employee whose range
	// intersects window, filtered to statuses, excluding excludeID if
	// non-empty. Ordered by allocation ID.
	FindOverlapping(ctx context.Context, employee EmployeeID, window Period, statuses []Status, excludeID AllocationID) ([]Allocation, error)

	// ListByStatus returns all allocations in any of the given statuses,
	// ordered by allocation ID.
	ListByStatus(ctx context.Context, statuses []Status) ([]Allocation, error)

	// Delete removes an allocation. Only the lifecycle service calls
	// this, and only for Draft records owned by the deleting actor.
	Delete(ctx context.Context, id AllocationID) error
}

// =============================================================================
// ASSIGNMENTS - Committed capacity records
// =============================================================================

type Assignments interface {
	// CreateAssignment persists a new assignment. Returns
	// ErrDuplicateAssignment if one already references the same
	// allocation (unique constraint, at most one per allocation).
	CreateAssignment(ctx context.Context, a *Assignment) error

	// AssignmentForAllocation returns the assignment referencing the
	// allocation, or ErrNotFound.
	AssignmentForAllocation(ctx context.Context, id AllocationID) (*Assignment, error)

	// ListAssignments returns assignments in the given status, ordered
	// by assignment ID. An empty status lists all.
	ListAssignments(ctx context.Context, status AssignmentStatus) ([]Assignment, error)

	// SetAssignmentStatus updates an assignment's status. Used by the
	// housekeeping job to mark ended assignments Completed; idempotent.
	SetAssignmentStatus(ctx context.Context, id AssignmentID, status AssignmentStatus) error
}

// =============================================================================
// DIRECTORY - Employee and project lookup
// =============================================================================

// Directory is the employee/project collaborator the engine reads from.
// The engine never writes directory records.
type Directory interface {
	// ActiveEmployees returns all active employees, ordered by ID.
	ActiveEmployees(ctx context.Context) ([]Employee, error)

	// GetEmployee returns the employee or ErrNotFound.
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)

	// GetProject returns the project or ErrNotFound.
	GetProject(ctx context.Context, id ProjectID) (*Project, error)
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic transitions
// =============================================================================

// Mutator is the write surface available inside a transaction.
type Mutator interface {
	Store
	Assignments
}

// TxStore wraps the stores with transaction support.
type TxStore interface {
	Store
	Assignments

	// WithTx executes fn within a transaction. If fn returns an error,
	// every write made through the Mutator is rolled back.
	WithTx(ctx context.Context, fn func(tx Mutator) error) error
}
