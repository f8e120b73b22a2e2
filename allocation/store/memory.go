// Package store provides in-memory implementations of the allocation
// storage interfaces, for tests and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements allocation.TxStore and allocation.Directory.
type Memory struct {
	mu          sync.RWMutex
	allocations map[allocation.AllocationID]allocation.Allocation
	assignments map[allocation.AssignmentID]allocation.Assignment
	byAlloc     map[allocation.AllocationID]allocation.AssignmentID
	employees   map[allocation.EmployeeID]allocation.Employee
	projects    map[allocation.ProjectID]allocation.Project
}

func NewMemory() *Memory {
	return &Memory{
		allocations: make(map[allocation.AllocationID]allocation.Allocation),
		assignments: make(map[allocation.AssignmentID]allocation.Assignment),
		byAlloc:     make(map[allocation.AllocationID]allocation.AssignmentID),
		employees:   make(map[allocation.EmployeeID]allocation.Employee),
		projects:    make(map[allocation.ProjectID]allocation.Project),
	}
}

// =============================================================================
// DIRECTORY SEEDING
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, e allocation.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) SaveProject(_ context.Context, p allocation.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	return nil
}

func (m *Memory) ActiveEmployees(_ context.Context) ([]allocation.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []allocation.Employee
	for _, e := range m.employees {
		if e.Active {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) GetEmployee(_ context.Context, id allocation.EmployeeID) (*allocation.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.employees[id]
	if !ok {
		return nil, allocation.ErrNotFound
	}
	return &e, nil
}

func (m *Memory) ListProjects(_ context.Context) ([]allocation.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []allocation.Project
	for _, p := range m.projects {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) GetProject(_ context.Context, id allocation.ProjectID) (*allocation.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.projects[id]
	if !ok {
		return nil, allocation.ErrNotFound
	}
	return &p, nil
}

// =============================================================================
// ALLOCATION STORE
// =============================================================================

func (m *Memory) Put(_ context.Context, alloc *allocation.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putLocked(alloc)
}

func (m *Memory) putLocked(alloc *allocation.Allocation) error {
	stored := *alloc
	stored.Notes = append([]allocation.Note(nil), alloc.Notes...)
	m.allocations[alloc.ID] = stored
	return nil
}

func (m *Memory) Get(_ context.Context, id allocation.AllocationID) (*allocation.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

func (m *Memory) getLocked(id allocation.AllocationID) (*allocation.Allocation, error) {
	stored, ok := m.allocations[id]
	if !ok {
		return nil, allocation.ErrNotFound
	}
	result := stored
	result.Notes = append([]allocation.Note(nil), stored.Notes...)
	return &result, nil
}

func (m *Memory) FindOverlapping(
	_ context.Context,
	employee allocation.EmployeeID,
	window allocation.Period,
	statuses []allocation.Status,
	excludeID allocation.AllocationID,
) ([]allocation.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findOverlappingLocked(employee, window, statuses, excludeID)
}

func (m *Memory) findOverlappingLocked(
	employee allocation.EmployeeID,
	window allocation.Period,
	statuses []allocation.Status,
	excludeID allocation.AllocationID,
) ([]allocation.Allocation, error) {
	wanted := make(map[allocation.Status]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	var result []allocation.Allocation
	for _, a := range m.allocations {
		if a.Employee != employee || a.ID == excludeID {
			continue
		}
		if !wanted[a.Status] {
			continue
		}
		if a.Window.Overlaps(window) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) ListByStatus(_ context.Context, statuses []allocation.Status) ([]allocation.Allocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[allocation.Status]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	var result []allocation.Allocation
	for _, a := range m.allocations {
		if wanted[a.Status] {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) Delete(_ context.Context, id allocation.AllocationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.allocations[id]; !ok {
		return allocation.ErrNotFound
	}
	delete(m.allocations, id)
	return nil
}

// =============================================================================
// ASSIGNMENT STORE
// =============================================================================

func (m *Memory) CreateAssignment(_ context.Context, a *allocation.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createAssignmentLocked(a)
}

func (m *Memory) createAssignmentLocked(a *allocation.Assignment) error {
	if _, exists := m.byAlloc[a.AllocationID]; exists {
		return allocation.ErrDuplicateAssignment
	}
	m.assignments[a.ID] = *a
	m.byAlloc[a.AllocationID] = a.ID
	return nil
}

func (m *Memory) AssignmentForAllocation(_ context.Context, id allocation.AllocationID) (*allocation.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.assignmentForAllocationLocked(id)
}

func (m *Memory) assignmentForAllocationLocked(id allocation.AllocationID) (*allocation.Assignment, error) {
	assignmentID, ok := m.byAlloc[id]
	if !ok {
		return nil, allocation.ErrNotFound
	}
	a := m.assignments[assignmentID]
	return &a, nil
}

func (m *Memory) ListAssignments(_ context.Context, status allocation.AssignmentStatus) ([]allocation.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []allocation.Assignment
	for _, a := range m.assignments {
		if status == "" || a.Status == status {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) SetAssignmentStatus(_ context.Context, id allocation.AssignmentID, status allocation.AssignmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assignments[id]
	if !ok {
		return allocation.ErrNotFound
	}
	a.Status = status
	m.assignments[id] = a
	return nil
}

// Reset wipes all data. Demo and test use only.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allocations = make(map[allocation.AllocationID]allocation.Allocation)
	m.assignments = make(map[allocation.AssignmentID]allocation.Assignment)
	m.byAlloc = make(map[allocation.AllocationID]allocation.AssignmentID)
	m.employees = make(map[allocation.EmployeeID]allocation.Employee)
	m.projects = make(map[allocation.ProjectID]allocation.Project)
	return nil
}

// =============================================================================
// TRANSACTIONS - Snapshot + rollback on error
// =============================================================================

// WithTx executes fn holding the write lock. On error the pre-transaction
// state is restored, giving all-or-nothing semantics.
func (m *Memory) WithTx(_ context.Context, fn func(tx allocation.Mutator) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshot()

	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	allocations map[allocation.AllocationID]allocation.Allocation
	assignments map[allocation.AssignmentID]allocation.Assignment
	byAlloc     map[allocation.AllocationID]allocation.AssignmentID
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		allocations: make(map[allocation.AllocationID]allocation.Allocation, len(m.allocations)),
		assignments: make(map[allocation.AssignmentID]allocation.Assignment, len(m.assignments)),
		byAlloc:     make(map[allocation.AllocationID]allocation.AssignmentID, len(m.byAlloc)),
	}
	for k, v := range m.allocations {
		s.allocations[k] = v
	}
	for k, v := range m.assignments {
		s.assignments[k] = v
	}
	for k, v := range m.byAlloc {
		s.byAlloc[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.allocations = s.allocations
	m.assignments = s.assignments
	m.byAlloc = s.byAlloc
}

// txView routes Mutator calls to the locked parent methods. The parent's
// write lock is held for the whole transaction, so the view must not
// re-lock.
type txView struct {
	parent *Memory
}

func (tv *txView) Put(_ context.Context, alloc *allocation.Allocation) error {
	return tv.parent.putLocked(alloc)
}

func (tv *txView) Get(_ context.Context, id allocation.AllocationID) (*allocation.Allocation, error) {
	return tv.parent.getLocked(id)
}

func (tv *txView) FindOverlapping(
	_ context.Context,
	employee allocation.EmployeeID,
	window allocation.Period,
	statuses []allocation.Status,
	excludeID allocation.AllocationID,
) ([]allocation.Allocation, error) {
	return tv.parent.findOverlappingLocked(employee, window, statuses, excludeID)
}

func (tv *txView) ListByStatus(_ context.Context, statuses []allocation.Status) ([]allocation.Allocation, error) {
	wanted := make(map[allocation.Status]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}
	var result []allocation.Allocation
	for _, a := range tv.parent.allocations {
		if wanted[a.Status] {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (tv *txView) Delete(_ context.Context, id allocation.AllocationID) error {
	if _, ok := tv.parent.allocations[id]; !ok {
		return allocation.ErrNotFound
	}
	delete(tv.parent.allocations, id)
	return nil
}

func (tv *txView) CreateAssignment(_ context.Context, a *allocation.Assignment) error {
	return tv.parent.createAssignmentLocked(a)
}

func (tv *txView) AssignmentForAllocation(_ context.Context, id allocation.AllocationID) (*allocation.Assignment, error) {
	return tv.parent.assignmentForAllocationLocked(id)
}

func (tv *txView) ListAssignments(_ context.Context, status allocation.AssignmentStatus) ([]allocation.Assignment, error) {
	var result []allocation.Assignment
	for _, a := range tv.parent.assignments {
		if status == "" || a.Status == status {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (tv *txView) SetAssignmentStatus(_ context.Context, id allocation.AssignmentID, status allocation.AssignmentStatus) error {
	a, ok := tv.parent.assignments[id]
	if !ok {
		return allocation.ErrNotFound
	}
	a.Status = status
	tv.parent.assignments[id] = a
	return nil
}
