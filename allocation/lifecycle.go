/*
lifecycle.go - Allocation status transitions and their side effects

PURPOSE:
  Governs the Draft → Requested → {Approved, Rejected} lifecycle: who may
  trigger each transition, what is validated, and what each one persists.
  Transition() is the single mutation entry point for status changes.

TRANSITION TABLE:
  Legal (from, to) pairs live in an explicit table mapping to validator/
  apply functions. Anything absent from the table fails with
  ErrInvalidTransition, which covers every move out of the terminal
  Approved and Rejected states.

ORDER OF CHECKS:
  1. Load (ErrNotFound)
  2. Permission (ErrPermissionDenied) - strictly before anything else so
     unauthorized actors learn nothing about record state
  3. Table lookup (ErrInvalidTransition)
  4. Transition-specific preconditions

THE APPROVAL RACE:
  Two Requested allocations for one employee can both look feasible at
  request time, because pending requests hold no capacity. Approval
  therefore re-runs the feasibility check against live committed data,
  inside one store transaction, serialized per employee by a mutex. Two
  concurrent approvals for the same employee cannot both pass the check
  before either commits.

NOTIFICATIONS:
  Fire-and-forget. A delivery failure is logged and never rolls back the
  transition that triggered it.

SEE ALSO:
  - availability.go: Re-verified when a draft is submitted
  - engine.go: CheckFeasible, re-run at approval time
*/
package allocation

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SERVICE - Orchestrates the allocation lifecycle
// =============================================================================

type Service struct {
	Store      TxStore
	Directory  Directory
	Authorizer Authorizer
	Notifier   Notifier

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time

	locks employeeLocks
}

func NewService(store TxStore, dir Directory, auth Authorizer, notifier Notifier) *Service {
	return &Service{
		Store:      store,
		Directory:  dir,
		Authorizer: auth,
		Notifier:   notifier,
		Now:        time.Now,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// =============================================================================
// DRAFT OPERATIONS
// =============================================================================

// DraftInput describes a new allocation draft. Employee may be left
// empty and selected later via SelectEmployee; it must be set before the
// draft can be requested.
type DraftInput struct {
	Project     ProjectID
	Employee    EmployeeID
	Window      Period
	Percent     decimal.Decimal
	RequestedBy string
}

// CreateDraft validates the input shape and persists a Draft allocation.
// Date order, percentage range, and the cost estimate are computed here,
// not deferred to request time.
func (s *Service) CreateDraft(ctx context.Context, in DraftInput) (*Allocation, error) {
	if in.RequestedBy == "" {
		return nil, &ValidationError{Field: "requested_by", Message: "is required"}
	}
	if !in.Window.Valid() {
		return nil, &ValidationError{Field: "end_date", Message: "cannot be before start date"}
	}
	if !ValidPercent(in.Percent) {
		return nil, &ValidationError{Field: "allocation_percentage", Message: "must be between 0 and 100"}
	}
	if _, err := s.Directory.GetProject(ctx, in.Project); err != nil {
		return nil, fmt.Errorf("project %s: %w", in.Project, err)
	}

	now := s.now()
	alloc := &Allocation{
		ID:          AllocationID(uuid.NewString()),
		Project:     in.Project,
		Window:      in.Window,
		Percent:     in.Percent,
		Status:      StatusDraft,
		RequestedBy: in.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if in.Employee != "" {
		emp, err := s.Directory.GetEmployee(ctx, in.Employee)
		if err != nil {
			return nil, fmt.Errorf("employee %s: %w", in.Employee, err)
		}
		alloc.Employee = emp.ID
		alloc.HourlyRate = emp.HourlyRate
		alloc.EstimatedCost = EstimateCost(alloc.Window, alloc.Percent, emp.HourlyRate)
	}

	if err := s.Store.Put(ctx, alloc); err != nil {
		return nil, err
	}
	return alloc, nil
}

// SelectEmployee sets the selected employee on a Draft, copying the
// hourly rate and recomputing the cost estimate. The selection is an
// explicit field set atomically, never inferred from candidate rows.
// Only the requester (or a superuser) may modify their own draft.
func (s *Service) SelectEmployee(ctx context.Context, id AllocationID, employee EmployeeID, actor string) (*Allocation, error) {
	alloc, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.ownsDraft(ctx, alloc, actor) {
		return nil, &PermissionDeniedError{Actor: actor, Action: "modify this allocation"}
	}
	if alloc.Status != StatusDraft {
		return nil, &InvalidTransitionError{Allocation: id, From: alloc.Status, To: alloc.Status}
	}

	emp, err := s.Directory.GetEmployee(ctx, employee)
	if err != nil {
		return nil, fmt.Errorf("employee %s: %w", employee, err)
	}

	alloc.Employee = emp.ID
	alloc.HourlyRate = emp.HourlyRate
	alloc.EstimatedCost = EstimateCost(alloc.Window, alloc.Percent, emp.HourlyRate)
	alloc.UpdatedAt = s.now()

	if err := s.Store.Put(ctx, alloc); err != nil {
		return nil, err
	}
	return alloc, nil
}

// DeleteDraft removes a Draft allocation. Requester-only; once a record
// leaves Draft it is never deleted, only superseded.
func (s *Service) DeleteDraft(ctx context.Context, id AllocationID, actor string) error {
	alloc, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.ownsDraft(ctx, alloc, actor) {
		return &PermissionDeniedError{Actor: actor, Action: "delete this allocation"}
	}
	if alloc.Status != StatusDraft {
		return fmt.Errorf("%w: only draft allocations can be deleted", ErrInvalidTransition)
	}
	return s.Store.Delete(ctx, id)
}

func (s *Service) ownsDraft(ctx context.Context, alloc *Allocation, actor string) bool {
	return actor == alloc.RequestedBy || s.Authorizer.HasRole(ctx, actor, RoleSuperuser)
}

// =============================================================================
// TRANSITION TABLE
// =============================================================================

type transitionKey struct {
	From Status
	To   Status
}

type transitionFunc func(s *Service, ctx context.Context, alloc *Allocation, actor, reason string) (*Allocation, error)

// transitions is the complete set of legal status changes. Any pair
// absent here is rejected, which makes Approved and Rejected terminal.
var transitions = map[transitionKey]transitionFunc{
	{StatusDraft, StatusRequested}:    (*Service).applyRequest,
	{StatusRequested, StatusApproved}: (*Service).applyApprove,
	{StatusRequested, StatusRejected}: (*Service).applyReject,
}

// Transition is the single mutation entry point for status changes.
// reason is required only when target is Rejected.
func (s *Service) Transition(ctx context.Context, id AllocationID, target Status, actor, reason string) (*Allocation, error) {
	alloc, err := s.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.checkPermission(ctx, alloc, target, actor); err != nil {
		return nil, err
	}

	apply, ok := transitions[transitionKey{From: alloc.Status, To: target}]
	if !ok {
		// Duplicate approval of an already-approved allocation is a
		// no-op returning the existing state, so retries are safe.
		if alloc.Status == StatusApproved && target == StatusApproved {
			if _, err := s.Store.AssignmentForAllocation(ctx, alloc.ID); err == nil {
				return alloc, nil
			}
		}
		return nil, &InvalidTransitionError{Allocation: id, From: alloc.Status, To: target}
	}

	return apply(s, ctx, alloc, actor, reason)
}

// checkPermission runs before any other validation. The rules depend
// only on the target status and record ownership, never on whether the
// transition would otherwise be legal.
func (s *Service) checkPermission(ctx context.Context, alloc *Allocation, target Status, actor string) error {
	if s.Authorizer.HasRole(ctx, actor, RoleSuperuser) {
		return nil
	}
	switch target {
	case StatusRequested:
		if actor != alloc.RequestedBy {
			return &PermissionDeniedError{Actor: actor, Action: "request this allocation"}
		}
	case StatusApproved:
		if !s.Authorizer.HasRole(ctx, actor, RoleApprover) {
			return &PermissionDeniedError{Actor: actor, Action: "approve resource allocations"}
		}
	case StatusRejected:
		if !s.Authorizer.HasRole(ctx, actor, RoleApprover) {
			return &PermissionDeniedError{Actor: actor, Action: "reject resource allocations"}
		}
	default:
		return &PermissionDeniedError{Actor: actor, Action: fmt.Sprintf("transition to %s", target)}
	}
	return nil
}

// =============================================================================
// DRAFT -> REQUESTED
// =============================================================================

func (s *Service) applyRequest(ctx context.Context, alloc *Allocation, actor, _ string) (*Allocation, error) {
	if alloc.Employee == "" {
		return nil, &ValidationError{Field: "employee", Message: "exactly one employee must be selected"}
	}

	// Re-verify availability against fresh data; an earlier candidate
	// snapshot is never trusted.
	avail := &AvailabilityService{Store: s.Store, Directory: s.Directory}
	ranking, err := avail.RankCandidates(ctx, alloc.Project, alloc.Window, alloc.Percent, alloc.ID)
	if err != nil {
		return nil, err
	}
	if !ranking.contains(alloc.Employee) {
		return nil, &ValidationError{Field: "employee", Message: "selected employee is no longer available for this allocation"}
	}

	now := s.now()
	alloc.Status = StatusRequested
	alloc.RequestedAt = now
	alloc.UpdatedAt = now
	if err := s.Store.Put(ctx, alloc); err != nil {
		return nil, err
	}

	s.notify(ctx, Notification{
		Recipient: string(RoleApprover),
		Subject:   fmt.Sprintf("New resource allocation request: %s", alloc.ID),
		Body: fmt.Sprintf("Project %s, employee %s, %s at %s%%, requested by %s. Please review.",
			alloc.Project, alloc.Employee, alloc.Window, alloc.Percent, alloc.RequestedBy),
		Severity: SeverityAlert,
	})
	return alloc, nil
}

func (r *CandidateRanking) contains(employee EmployeeID) bool {
	for _, c := range r.Available {
		if c.Employee == employee {
			return true
		}
	}
	return false
}

// =============================================================================
// REQUESTED -> APPROVED
// =============================================================================

func (s *Service) applyApprove(ctx context.Context, alloc *Allocation, actor, _ string) (*Allocation, error) {
	// Serialize approvals per employee: between the feasibility check
	// and the commit, no other approval for this employee may run.
	unlock := s.locks.lock(alloc.Employee)
	defer unlock()

	var approved *Allocation
	err := s.Store.WithTx(ctx, func(tx Mutator) error {
		// Reload inside the transaction: the record may have changed
		// since the caller's read.
		fresh, err := tx.Get(ctx, alloc.ID)
		if err != nil {
			return err
		}
		if fresh.Status != StatusRequested {
			return &InvalidTransitionError{Allocation: fresh.ID, From: fresh.Status, To: StatusApproved}
		}
		if fresh.Employee == "" {
			return &ValidationError{Field: "employee", Message: "exactly one employee must be selected"}
		}

		// Feasibility re-check against current committed data, with
		// this allocation excluded from its own overlap query.
		overlapping, err := tx.FindOverlapping(ctx, fresh.Employee, fresh.Window, CommittedStatuses, fresh.ID)
		if err != nil {
			return err
		}
		utilization := ComputeDailyUtilization(fresh.Window, overlapping)
		if err := CheckFeasible(fresh.Employee, utilization, fresh.Percent); err != nil {
			return err
		}

		now := s.now()
		fresh.Status = StatusApproved
		fresh.UpdatedAt = now
		if err := tx.Put(ctx, fresh); err != nil {
			return err
		}

		// Exactly one assignment per allocation. If one already exists
		// (a replayed approval), keep it.
		if _, err := tx.AssignmentForAllocation(ctx, fresh.ID); err == nil {
			approved = fresh
			return nil
		} else if !IsNotFound(err) {
			return err
		}

		assignment := &Assignment{
			ID:           AssignmentID(uuid.NewString()),
			AllocationID: fresh.ID,
			Employee:     fresh.Employee,
			Project:      fresh.Project,
			Window:       fresh.Window,
			Percent:      fresh.Percent,
			Status:       AssignmentActive,
			CreatedAt:    now,
		}
		if err := tx.CreateAssignment(ctx, assignment); err != nil {
			return err
		}
		approved = fresh
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, Notification{
		Recipient: approved.RequestedBy,
		Subject:   fmt.Sprintf("Resource allocation approved: %s", approved.ID),
		Body: fmt.Sprintf("Employee %s is committed to project %s for %s at %s%%. An assignment has been created.",
			approved.Employee, approved.Project, approved.Window, approved.Percent),
		Severity: SeveritySuccess,
	})
	return approved, nil
}

// =============================================================================
// REQUESTED -> REJECTED
// =============================================================================

func (s *Service) applyReject(ctx context.Context, alloc *Allocation, actor, reason string) (*Allocation, error) {
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "a rejection reason is required"}
	}

	now := s.now()
	alloc.Status = StatusRejected
	alloc.UpdatedAt = now
	// Append, never overwrite: prior notes are part of the audit trail.
	alloc.Notes = append(alloc.Notes, Note{
		At:    DayOf(now),
		Actor: actor,
		Text:  reason,
	})
	if err := s.Store.Put(ctx, alloc); err != nil {
		return nil, err
	}

	s.notify(ctx, Notification{
		Recipient: alloc.RequestedBy,
		Subject:   fmt.Sprintf("Resource allocation rejected: %s", alloc.ID),
		Body:      fmt.Sprintf("Rejected on %s by %s. Reason: %s", DayOf(now), actor, reason),
		Severity:  SeverityError,
	})
	return alloc, nil
}

// notify delivers fire-and-forget. Failures are logged and swallowed;
// they never fail the transition that triggered them.
func (s *Service) notify(ctx context.Context, n Notification) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Send(ctx, n); err != nil {
		log.Printf("[Lifecycle] notification delivery failed (to=%s subject=%q): %v", n.Recipient, n.Subject, err)
	}
}

// =============================================================================
// PER-EMPLOYEE LOCKS
// =============================================================================

type employeeLocks struct {
	mu    sync.Mutex
	locks map[EmployeeID]*sync.Mutex
}

func (l *employeeLocks) lock(id EmployeeID) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[EmployeeID]*sync.Mutex)
	}
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
