package allocation_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/allocation-engine/allocation"
	"github.com/warp/allocation-engine/allocation/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

const (
	requester = "pm@example.com"
	approver  = "cgo@example.com"
	admin     = "admin@example.com"
	outsider  = "eve@example.com"
)

// captureNotifier records sent notifications; Fail makes Send error to
// verify notification failures never fail transitions.
type captureNotifier struct {
	mu   sync.Mutex
	Sent []allocation.Notification
	Fail bool
}

func (c *captureNotifier) Send(_ context.Context, n allocation.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Fail {
		return errors.New("smtp unreachable")
	}
	c.Sent = append(c.Sent, n)
	return nil
}

func (c *captureNotifier) sent() []allocation.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]allocation.Notification(nil), c.Sent...)
}

func newLifecycle(t *testing.T) (*allocation.Service, *store.Memory, *captureNotifier) {
	t.Helper()
	mem := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.SaveProject(ctx, allocation.Project{ID: "proj-1", Name: "Platform", Active: true}))
	seedEmployee(t, mem, "emp-1", "Ada", 100)
	seedEmployee(t, mem, "emp-2", "Ben", 90)

	auth := &allocation.StaticAuthorizer{Roles: map[string][]allocation.Role{
		approver: {allocation.RoleApprover},
		admin:    {allocation.RoleSuperuser},
	}}
	notifier := &captureNotifier{}

	svc := allocation.NewService(mem, mem, auth, notifier)
	svc.Now = func() time.Time { return time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC) }
	return svc, mem, notifier
}

func draft(t *testing.T, svc *allocation.Service, employee string, w allocation.Period, percent int) *allocation.Allocation {
	t.Helper()
	alloc, err := svc.CreateDraft(context.Background(), allocation.DraftInput{
		Project:     "proj-1",
		Employee:    allocation.EmployeeID(employee),
		Window:      w,
		Percent:     pct(percent),
		RequestedBy: requester,
	})
	require.NoError(t, err)
	return alloc
}

func requested(t *testing.T, svc *allocation.Service, employee string, w allocation.Period, percent int) *allocation.Allocation {
	t.Helper()
	alloc := draft(t, svc, employee, w, percent)
	alloc, err := svc.Transition(context.Background(), alloc.ID, allocation.StatusRequested, requester, "")
	require.NoError(t, err)
	return alloc
}

// =============================================================================
// DRAFT TESTS
// =============================================================================

func TestCreateDraft_Valid_CopiesRateAndEstimatesCost(t *testing.T) {
	svc, _, _ := newLifecycle(t)

	alloc := draft(t, svc, "emp-1", window(1, 5), 50)

	assert.Equal(t, allocation.StatusDraft, alloc.Status)
	assert.True(t, alloc.HourlyRate.Equal(decimal.NewFromInt(100)))
	// 5 days x 8h x 50% x $100 = $2000
	assert.True(t, alloc.EstimatedCost.Equal(decimal.NewFromInt(2000)), "got %v", alloc.EstimatedCost)
	assert.NotEmpty(t, alloc.ID)
}

func TestCreateDraft_InvalidInput(t *testing.T) {
	svc, _, _ := newLifecycle(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   allocation.DraftInput
		want error
	}{
		{
			"end before start",
			allocation.DraftInput{Project: "proj-1", Window: window(10, 1), Percent: pct(50), RequestedBy: requester},
			allocation.ErrValidation,
		},
		{
			"percent above 100",
			allocation.DraftInput{Project: "proj-1", Window: window(1, 5), Percent: pct(110), RequestedBy: requester},
			allocation.ErrValidation,
		},
		{
			"negative percent",
			allocation.DraftInput{Project: "proj-1", Window: window(1, 5), Percent: pct(-10), RequestedBy: requester},
			allocation.ErrValidation,
		},
		{
			"missing requester",
			allocation.DraftInput{Project: "proj-1", Window: window(1, 5), Percent: pct(50)},
			allocation.ErrValidation,
		},
		{
			"unknown project",
			allocation.DraftInput{Project: "proj-404", Window: window(1, 5), Percent: pct(50), RequestedBy: requester},
			allocation.ErrNotFound,
		},
	}
	for _, tc := range cases {
		_, err := svc.CreateDraft(ctx, tc.in)
		assert.ErrorIs(t, err, tc.want, tc.name)
	}
}

func TestSelectEmployee_ReplacesSelectionAndReprices(t *testing.T) {
	svc, _, _ := newLifecycle(t)
	alloc := draft(t, svc, "emp-1", window(1, 5), 50)

	updated, err := svc.SelectEmployee(context.Background(), alloc.ID, "emp-2", requester)
	require.NoError(t, err)

	assert.Equal(t, allocation.EmployeeID("emp-2"), updated.Employee)
	assert.True(t, updated.HourlyRate.Equal(decimal.NewFromInt(90)))
	// 5 days x 8h x 50% x $90 = $1800
	assert.True(t, updated.EstimatedCost.Equal(decimal.NewFromInt(1800)), "got %v", updated.EstimatedCost)
}

func TestSelectEmployee_NotOwner_Denied(t *testing.T) {
	svc, _, _ := newLifecycle(t)
	alloc := draft(t, svc, "emp-1", window(1, 5), 50)

	_, err := svc.SelectEmployee(context.Background(), alloc.ID, "emp-2", outsider)
	assert.ErrorIs(t, err, allocation.ErrPermissionDenied)
}

func TestSelectEmployee_SuperuserMayEditAnyDraft(t *testing.T) {
	svc, _, _ := newLifecycle(t)
	alloc := draft(t, svc, "emp-1", window(1, 5), 50)

	_, err := svc.SelectEmployee(context.Background(), alloc.ID, "emp-2", admin)
	assert.NoError(t, err)
}

func TestSelectEmployee_AfterRequest_Rejected(t *testing.T) {
	svc, _, _ := newLifecycle(t)
	alloc := requested(t, svc, "emp-1", window(1, 5), 50)

	_, err := svc.SelectEmployee(context.Background(), alloc.ID, "emp-2", requester)
	assert.ErrorIs(t, err, allocation.ErrInvalidTransition)
}

func TestDeleteDraft_OwnerOnly_DraftOnly(t *testing.T) {
	svc, mem, _ := newLifecycle(t)
	ctx := context.Background()

	alloc := draft(t, svc, "emp-1", window(1, 5), 50)
	assert.ErrorIs(t, svc.DeleteDraft(ctx, alloc.ID, outsider), allocation.ErrPermissionDenied)
	require.NoError(t, svc.DeleteDraft(ctx, alloc.ID, requester))
	_, err := mem.Get(ctx, alloc.ID)
	assert.ErrorIs(t, err, allocation.ErrNotFound)

	req := requested(t, svc, "emp-1", window(1, 5), 50)
	assert.ErrorIs(t, svc.DeleteDraft(ctx, req.ID, requester), allocation.ErrInvalidTransition)
}

// =============================================================================
// DRAFT -> REQUESTED
// =============================================================================

func TestRequest_HappyPath_NotifiesApprover(t *testing.T) {
	svc, _, notifier := newLifecycle(t)
	alloc := requested(t, svc, "emp-1", window(1, 5), 50)

	assert.Equal(t, allocation.StatusRequested, alloc.Status)
	assert.False(t, alloc.RequestedAt.IsZero())

	sent := notifier.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, string(allocation.RoleApprover), sent[0].Recipient)
}

func TestRequest_NoEmployeeSelected_Rejected(t *testing.T) {
	svc, _, _ := newLifecycle(t)
	alloc, err := svc.CreateDraft(context.Background(), allocation.DraftInput{
		Project: "proj-1", Window: window(1, 5), Percent: pct(50), RequestedBy: requester,
	})
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), alloc.ID, allocation.StatusRequested, requester, "")
	assert.ErrorIs(t, err, allocation.ErrValidation)
}

func TestRequest_EmployeeNoLongerAvailable_Rejected(t *testing.T) {
	// GIVEN: A draft selecting emp-1 at 50%, created while emp-1 was free
	// WHEN: 60% of emp-1 is committed elsewhere before the draft is submitted
	// THEN: Submission fails; stale candidate snapshots are never trusted

	svc, mem, _ := newLifecycle(t)
	alloc := draft(t, svc, "emp-1", window(1, 10), 50)

	committed := approvedAlloc("elsewhere", "emp-1", window(1, 10), 60)
	require.NoError(t, mem.Put(context.Background(), &committed))

	_, err := svc.Transition(context.Background(), alloc.ID, allocation.StatusRequested, requester, "")
	assert.ErrorIs(t, err, allocation.ErrValidation)
}

func TestRequest_ByNonRequester_Denied(t *testing.T) {
	svc, _, _ := newLifecycle(t)
	alloc := draft(t, svc, "emp-1", window(1, 5), 50)

	_, err := svc.Transition(context.Background(), alloc.ID, allocation.StatusRequested, outsider, "")
	assert.ErrorIs(t, err, allocation.ErrPermissionDenied)
}

// =============================================================================
// REQUESTED -> APPROVED
// =============================================================================

func TestApprove_CreatesExactlyOneAssignment(t *testing.T) {
	svc, mem, _ := newLifecycle(t)
	ctx := context.Background()
	alloc := requested(t, svc, "emp-1", window(1, 5), 50)

	approved, err := svc.Transition(ctx, alloc.ID, allocation.StatusApproved, approver, "")
	require.NoError(t, err)
	assert.Equal(t, allocation.StatusApproved, approved.Status)

	a, err := mem.AssignmentForAllocation(ctx, alloc.ID)
	require.NoError(t, err)
	assert.Equal(t, allocation.AssignmentActive, a.Status)
	assert.Equal(t, alloc.Window, a.Window)
	assert.True(t, a.Percent.Equal(pct(50)))
}

func TestApprove_Replayed_Idempotent(t *testing.T) {
	// Approving an already-approved allocation is a safe no-op: same
	// result, still exactly one assignment.
	svc, mem, _ := newLifecycle(t)
	ctx := context.Background()
	alloc := requested(t, svc, "emp-1", window(1, 5), 50)

	_, err := svc.Transition(ctx, alloc.ID, allocation.StatusApproved, approver, "")
	require.NoError(t, err)

	again, err := svc.Transition(ctx, alloc.ID, allocation.StatusApproved, approver, "")
	require.NoError(t, err)
	assert.Equal(t, allocation.StatusApproved, again.Status)

	assignments, err := mem.ListAssignments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
}

func TestApprove_ByNonApprover_Denied(t *testing.T) {
	svc, _, _ := newLifecycle(t)
	alloc := requested(t, svc, "emp-1", window(1, 5), 50)

	_, err := svc.Transition(context.Background(), alloc.ID, allocation.StatusApproved, requester, "")
	assert.ErrorIs(t, err, allocation.ErrPermissionDenied)
}

func TestApprove_PermissionCheckedBeforeTransitionValidity(t *testing.T) {
	// An unauthorized actor approving a Draft gets a permission error,
	// not an invalid-transition error. Record state must not leak.
	svc, _, _ := newLifecycle(t)
	alloc := draft(t, svc, "emp-1", window(1, 5), 50)

	_, err := svc.Transition(context.Background(), alloc.ID, allocation.StatusApproved, outsider, "")
	assert.ErrorIs(t, err, allocation.ErrPermissionDenied)
	assert.NotErrorIs(t, err, allocation.ErrInvalidTransition)
}

func TestApprove_CompetingRequests_SecondFailsCapacity(t *testing.T) {
	// GIVEN: Two pending 60% requests for emp-1 over the same window.
	//        Both looked feasible at request time because pending requests
	//        hold no capacity.
	// WHEN: Approving both
	// THEN: The first commits, the second fails the feasibility re-check

	svc, _, _ := newLifecycle(t)
	ctx := context.Background()

	first := requested(t, svc, "emp-1", window(1, 10), 60)
	second := requested(t, svc, "emp-1", window(1, 10), 60)

	_, err := svc.Transition(ctx, first.ID, allocation.StatusApproved, approver, "")
	require.NoError(t, err)

	_, err = svc.Transition(ctx, second.ID, allocation.StatusApproved, approver, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, allocation.ErrCapacityExceeded)

	var capErr *allocation.CapacityExceededError
	require.ErrorAs(t, err, &capErr)
	assert.True(t, capErr.Existing.Equal(pct(60)))
	assert.True(t, capErr.Requested.Equal(pct(60)))

	// The failed approval must leave the second request untouched.
	fresh, err := svc.Store.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, allocation.StatusRequested, fresh.Status)
}

func TestApprove_ConcurrentCompetingRequests_ExactlyOneWins(t *testing.T) {
	svc, mem, _ := newLifecycle(t)
	ctx := context.Background()

	allocs := make([]*allocation.Allocation, 4)
	for i := range allocs {
		allocs[i] = requested(t, svc, "emp-1", window(1, 10), 60)
	}

	errs := make([]error, len(allocs))
	var wg sync.WaitGroup
	for i, a := range allocs {
		wg.Add(1)
		go func(i int, id allocation.AllocationID) {
			defer wg.Done()
			_, errs[i] = svc.Transition(ctx, id, allocation.StatusApproved, approver, "")
		}(i, a.ID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, allocation.ErrCapacityExceeded)
		}
	}
	assert.Equal(t, 1, succeeded, "at most one 60%% approval can fit under 100%%")

	assignments, err := mem.ListAssignments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
}

// =============================================================================
// REQUESTED -> REJECTED
// =============================================================================

func TestReject_RequiresReason_AppendsNote(t *testing.T) {
	svc, _, notifier := newLifecycle(t)
	ctx := context.Background()
	alloc := requested(t, svc, "emp-1", window(1, 5), 50)

	_, err := svc.Transition(ctx, alloc.ID, allocation.StatusRejected, approver, "")
	assert.ErrorIs(t, err, allocation.ErrValidation, "reason is mandatory")

	rejected, err := svc.Transition(ctx, alloc.ID, allocation.StatusRejected, approver, "budget freeze")
	require.NoError(t, err)
	assert.Equal(t, allocation.StatusRejected, rejected.Status)

	require.Len(t, rejected.Notes, 1)
	assert.Equal(t, approver, rejected.Notes[0].Actor)
	assert.Equal(t, "budget freeze", rejected.Notes[0].Text)
	assert.Equal(t, "2026-03-02", rejected.Notes[0].At.String())

	sent := notifier.sent()
	require.NotEmpty(t, sent)
	last := sent[len(sent)-1]
	assert.Equal(t, requester, last.Recipient)
	assert.Equal(t, fmt.Sprintf("Rejected on 2026-03-02 by %s. Reason: budget freeze", approver), last.Body)
}

func TestReject_Twice_SecondFails(t *testing.T) {
	svc, _, _ := newLifecycle(t)
	ctx := context.Background()
	alloc := requested(t, svc, "emp-1", window(1, 5), 50)

	_, err := svc.Transition(ctx, alloc.ID, allocation.StatusRejected, approver, "budget freeze")
	require.NoError(t, err)

	_, err = svc.Transition(ctx, alloc.ID, allocation.StatusRejected, approver, "still no budget")
	assert.ErrorIs(t, err, allocation.ErrInvalidTransition)
}

// =============================================================================
// TERMINAL STATES AND MISC
// =============================================================================

func TestTransition_OutOfTerminalStates_Rejected(t *testing.T) {
	svc, _, _ := newLifecycle(t)
	ctx := context.Background()

	approvedA := requested(t, svc, "emp-1", window(1, 5), 50)
	_, err := svc.Transition(ctx, approvedA.ID, allocation.StatusApproved, approver, "")
	require.NoError(t, err)

	rejectedA := requested(t, svc, "emp-2", window(1, 5), 50)
	_, err = svc.Transition(ctx, rejectedA.ID, allocation.StatusRejected, approver, "no")
	require.NoError(t, err)

	cases := []struct {
		name   string
		id     allocation.AllocationID
		target allocation.Status
	}{
		{"approved back to requested", approvedA.ID, allocation.StatusRequested},
		{"approved to rejected", approvedA.ID, allocation.StatusRejected},
		{"rejected to approved", rejectedA.ID, allocation.StatusApproved},
		{"rejected back to draft", rejectedA.ID, allocation.StatusDraft},
	}
	for _, tc := range cases {
		_, err := svc.Transition(ctx, tc.id, tc.target, admin, "reason")
		assert.ErrorIs(t, err, allocation.ErrInvalidTransition, tc.name)
	}
}

func TestTransition_UnknownAllocation_NotFound(t *testing.T) {
	svc, _, _ := newLifecycle(t)
	_, err := svc.Transition(context.Background(), "nope", allocation.StatusApproved, approver, "")
	assert.ErrorIs(t, err, allocation.ErrNotFound)
}

func TestTransition_SkipDraftToApproved_Rejected(t *testing.T) {
	svc, _, _ := newLifecycle(t)
	alloc := draft(t, svc, "emp-1", window(1, 5), 50)

	_, err := svc.Transition(context.Background(), alloc.ID, allocation.StatusApproved, approver, "")
	assert.ErrorIs(t, err, allocation.ErrInvalidTransition)
}

func TestNotificationFailure_DoesNotFailTransition(t *testing.T) {
	svc, _, notifier := newLifecycle(t)
	alloc := draft(t, svc, "emp-1", window(1, 5), 50)

	notifier.Fail = true
	submitted, err := svc.Transition(context.Background(), alloc.ID, allocation.StatusRequested, requester, "")
	require.NoError(t, err, "delivery failure must not fail the transition")
	assert.Equal(t, allocation.StatusRequested, submitted.Status)
}
