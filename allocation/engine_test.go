package allocation_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func day(d int) allocation.TimePoint {
	return allocation.NewDay(2026, time.March, d)
}

func window(start, end int) allocation.Period {
	return allocation.Period{Start: day(start), End: day(end)}
}

func pct(v int) decimal.Decimal { return allocation.PercentFromInt(v) }

func approvedAlloc(id string, employee string, w allocation.Period, percent int) allocation.Allocation {
	return allocation.Allocation{
		ID:       allocation.AllocationID(id),
		Employee: allocation.EmployeeID(employee),
		Project:  "proj-1",
		Window:   w,
		Percent:  pct(percent),
		Status:   allocation.StatusApproved,
	}
}

// =============================================================================
// DAILY UTILIZATION TESTS
// =============================================================================

func TestDailyUtilization_PartialOverlap_ZeroDaysIncluded(t *testing.T) {
	// GIVEN: One 60% allocation on days 1-10
	// WHEN: Computing utilization over the query window 5-15
	// THEN: Days 5-10 sum to 60%, days 11-15 are present with zero

	existing := []allocation.Allocation{approvedAlloc("a1", "emp-1", window(1, 10), 60)}
	util := allocation.ComputeDailyUtilization(window(5, 15), existing)

	if len(util) != 11 {
		t.Fatalf("expected 11 entries (one per day), got %d", len(util))
	}
	for d := 5; d <= 10; d++ {
		if !util[day(d)].Equal(pct(60)) {
			t.Errorf("day %d: expected 60%%, got %v", d, util[day(d)])
		}
	}
	for d := 11; d <= 15; d++ {
		if !util[day(d)].IsZero() {
			t.Errorf("day %d: expected 0%%, got %v", d, util[day(d)])
		}
	}
}

func TestDailyUtilization_StackedAllocations_Summed(t *testing.T) {
	existing := []allocation.Allocation{
		approvedAlloc("a1", "emp-1", window(1, 31), 30),
		approvedAlloc("a2", "emp-1", window(10, 20), 50),
	}
	util := allocation.ComputeDailyUtilization(window(1, 31), existing)

	if !util[day(5)].Equal(pct(30)) {
		t.Errorf("day 5: expected 30%%, got %v", util[day(5)])
	}
	if !util[day(15)].Equal(pct(80)) {
		t.Errorf("day 15: expected 80%%, got %v", util[day(15)])
	}
}

func TestDailyUtilization_SingleDayWindow(t *testing.T) {
	util := allocation.ComputeDailyUtilization(window(7, 7), nil)
	if len(util) != 1 {
		t.Fatalf("expected exactly 1 entry for a one-day window, got %d", len(util))
	}
}

// =============================================================================
// FEASIBILITY TESTS
// =============================================================================

func TestCheckFeasible_Exactly100_Fits(t *testing.T) {
	// 60% committed + 40% candidate lands on 100% exactly, which is legal.
	existing := []allocation.Allocation{approvedAlloc("a1", "emp-1", window(1, 10), 60)}
	util := allocation.ComputeDailyUtilization(window(1, 10), existing)

	if err := allocation.CheckFeasible("emp-1", util, pct(40)); err != nil {
		t.Fatalf("100%% exactly should be feasible, got: %v", err)
	}
}

func TestCheckFeasible_Overcommit_ReportsEarliestDay(t *testing.T) {
	// GIVEN: 60% committed on days 1-10
	// WHEN: Requesting 50% on days 5-15
	// THEN: Infeasible; the reported day is day 5 (earliest violation),
	//       even though days 11-15 are fully free

	existing := []allocation.Allocation{approvedAlloc("a1", "emp-1", window(1, 10), 60)}
	util := allocation.ComputeDailyUtilization(window(5, 15), existing)

	err := allocation.CheckFeasible("emp-1", util, pct(50))
	if err == nil {
		t.Fatal("expected capacity error, got nil")
	}
	if !errors.Is(err, allocation.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got: %v", err)
	}

	var capErr *allocation.CapacityExceededError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityExceededError, got %T", err)
	}
	if !capErr.Day.Equal(day(5)) {
		t.Errorf("expected earliest violating day 2026-03-05, got %s", capErr.Day)
	}
	if !capErr.Existing.Equal(pct(60)) || !capErr.Requested.Equal(pct(50)) {
		t.Errorf("expected existing=60 requested=50, got existing=%v requested=%v",
			capErr.Existing, capErr.Requested)
	}
}

func TestCheckFeasible_AverageUnderCeiling_StillInfeasible(t *testing.T) {
	// GIVEN: A single 80% day inside an otherwise empty 10-day window
	// WHEN: Requesting 30% over the whole window
	// THEN: The period average (8% + 30%) is far under 100%, but the one
	//       loaded day is at 110%, so the request is infeasible

	existing := []allocation.Allocation{approvedAlloc("a1", "emp-1", window(4, 4), 80)}
	util := allocation.ComputeDailyUtilization(window(1, 10), existing)

	avg := allocation.AverageUtilization(util)
	if avg.GreaterThanOrEqual(pct(70)) {
		t.Fatalf("test setup broken: average %v should be low", avg)
	}

	err := allocation.CheckFeasible("emp-1", util, pct(30))
	if !errors.Is(err, allocation.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded despite low average, got: %v", err)
	}
}

func TestAverageUtilization_EmptyWindow_Zero(t *testing.T) {
	if avg := allocation.AverageUtilization(allocation.DailyUtilization{}); !avg.IsZero() {
		t.Errorf("expected zero average for empty utilization, got %v", avg)
	}
}

// =============================================================================
// COST ESTIMATION TESTS
// =============================================================================

func TestEstimateCost_SingleDayFullTime(t *testing.T) {
	// 1 day x 8 hours x 100% x $50/h = $400
	cost := allocation.EstimateCost(window(1, 1), pct(100), decimal.NewFromInt(50))
	if !cost.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected 400, got %v", cost)
	}
}

func TestEstimateCost_PartialAllocation(t *testing.T) {
	// 5 days x 8 hours x 50% x $100/h = $2000
	cost := allocation.EstimateCost(window(1, 5), pct(50), decimal.NewFromInt(100))
	if !cost.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("expected 2000, got %v", cost)
	}
}

func TestEstimateCost_RoundedToCents(t *testing.T) {
	// 1 day x 8 hours x 37% x $40.55/h = 120.028 -> 120.03
	cost := allocation.EstimateCost(window(1, 1), pct(37), decimal.NewFromFloat(40.55))
	if !cost.Equal(decimal.NewFromFloat(120.03)) {
		t.Errorf("expected 120.03, got %v", cost)
	}
}

func TestEstimateCost_InclusiveBounds(t *testing.T) {
	// Days 1-10 is ten working days, not nine.
	cost := allocation.EstimateCost(window(1, 10), pct(100), decimal.NewFromInt(10))
	if !cost.Equal(decimal.NewFromInt(800)) {
		t.Errorf("expected 800 (10 days x 8h x $10), got %v", cost)
	}
}

// =============================================================================
// PERIOD TESTS
// =============================================================================

func TestPeriod_Overlaps_InclusiveBounds(t *testing.T) {
	cases := []struct {
		name string
		a, b allocation.Period
		want bool
	}{
		{"disjoint", window(1, 5), window(10, 15), false},
		{"touching at shared day", window(1, 5), window(5, 10), true},
		{"nested", window(1, 31), window(10, 12), true},
		{"identical", window(3, 7), window(3, 7), true},
		{"adjacent no gap no share", window(1, 5), window(6, 10), false},
	}
	for _, tc := range cases {
		if got := tc.a.Overlaps(tc.b); got != tc.want {
			t.Errorf("%s: Overlaps(%s, %s) = %v, want %v", tc.name, tc.a, tc.b, got, tc.want)
		}
		// Overlap is symmetric.
		if got := tc.b.Overlaps(tc.a); got != tc.want {
			t.Errorf("%s (reversed): got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestPeriod_Length_SingleDay(t *testing.T) {
	if l := window(7, 7).Length(); l != 1 {
		t.Errorf("expected single-day period length 1, got %d", l)
	}
}
