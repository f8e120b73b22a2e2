/*
availability.go - Candidate ranking and utilization queries

PURPOSE:
  Answers "which employees can take allocation X". For every active
  employee it runs the engine over that employee's committed allocations,
  derives period-average and remaining capacity, prices the candidate,
  and partitions into available vs. unavailable.

RANKING:
  available:   available percentage descending (most free first)
  unavailable: current percentage ascending (least loaded first)
  Both use the employee ID as a secondary ascending key so results are
  deterministic when percentages tie.

WHAT COUNTS:
  Only Approved allocations (equivalently, their assignments) contribute
  to utilization. A Requested allocation holds no capacity, so two
  unrelated pending requests never contend; the race is resolved at
  approval time instead (see lifecycle.go).

SEE ALSO:
  - engine.go: The per-employee math
  - lifecycle.go: Re-runs this query when a draft is submitted
*/
package allocation

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// CommittedStatuses are the allocation statuses that consume capacity.
var CommittedStatuses = []Status{StatusApproved}

// Candidate is an ephemeral, engine-computed view of one employee's
// feasibility for a pending allocation. Never persisted; recomputed on
// every query.
type Candidate struct {
	Employee         EmployeeID
	Name             string
	Department       string
	HourlyRate       decimal.Decimal
	CurrentPercent   decimal.Decimal
	AvailablePercent decimal.Decimal
	EstimatedCost    decimal.Decimal
}

// CandidateRanking partitions candidates for one query.
type CandidateRanking struct {
	Available   []Candidate
	Unavailable []Candidate
}

// Utilization is the per-day and period-average view for one employee.
type Utilization struct {
	Employee EmployeeID
	Window   Period
	PerDay   DailyUtilization
	Average  decimal.Decimal
}

// AvailabilityService composes the engine over the store and directory.
type AvailabilityService struct {
	Store     Store
	Directory Directory
}

// RankCandidates evaluates every active employee for the candidate
// allocation. excludeID, when non-empty, removes one allocation from the
// overlap query (re-validating an allocation against itself).
func (s *AvailabilityService) RankCandidates(
	ctx context.Context,
	project ProjectID,
	window Period,
	percent decimal.Decimal,
	excludeID AllocationID,
) (*CandidateRanking, error) {
	if !window.Valid() {
		return nil, &ValidationError{Field: "end_date", Message: "cannot be before start date"}
	}
	if !ValidPercent(percent) {
		return nil, &ValidationError{Field: "allocation_percentage", Message: "must be between 0 and 100"}
	}
	if _, err := s.Directory.GetProject(ctx, project); err != nil {
		return nil, fmt.Errorf("project %s: %w", project, err)
	}

	employees, err := s.Directory.ActiveEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}

	ranking := &CandidateRanking{}
	for _, emp := range employees {
		overlapping, err := s.Store.FindOverlapping(ctx, emp.ID, window, CommittedStatuses, excludeID)
		if err != nil {
			return nil, fmt.Errorf("overlap query for %s: %w", emp.ID, err)
		}

		utilization := ComputeDailyUtilization(window, overlapping)
		current := AverageUtilization(utilization)
		available := FullCapacity.Sub(current)

		candidate := Candidate{
			Employee:         emp.ID,
			Name:             emp.Name,
			Department:       emp.Department,
			HourlyRate:       emp.HourlyRate,
			CurrentPercent:   current,
			AvailablePercent: available,
			EstimatedCost:    EstimateCost(window, percent, emp.HourlyRate),
		}

		// >= not >: a candidate with exactly the requested headroom
		// is available.
		if available.GreaterThanOrEqual(percent) {
			ranking.Available = append(ranking.Available, candidate)
		} else {
			ranking.Unavailable = append(ranking.Unavailable, candidate)
		}
	}

	sort.SliceStable(ranking.Available, func(i, j int) bool {
		a, b := ranking.Available[i], ranking.Available[j]
		if !a.AvailablePercent.Equal(b.AvailablePercent) {
			return a.AvailablePercent.GreaterThan(b.AvailablePercent)
		}
		return a.Employee < b.Employee
	})
	sort.SliceStable(ranking.Unavailable, func(i, j int) bool {
		a, b := ranking.Unavailable[i], ranking.Unavailable[j]
		if !a.CurrentPercent.Equal(b.CurrentPercent) {
			return a.CurrentPercent.LessThan(b.CurrentPercent)
		}
		return a.Employee < b.Employee
	})

	return ranking, nil
}

// GetUtilization returns the per-day and period-average utilization for
// one employee, counting committed allocations only.
func (s *AvailabilityService) GetUtilization(ctx context.Context, employee EmployeeID, window Period) (*Utilization, error) {
	if !window.Valid() {
		return nil, &ValidationError{Field: "end_date", Message: "cannot be before start date"}
	}
	if _, err := s.Directory.GetEmployee(ctx, employee); err != nil {
		return nil, fmt.Errorf("employee %s: %w", employee, err)
	}

	overlapping, err := s.Store.FindOverlapping(ctx, employee, window, CommittedStatuses, "")
	if err != nil {
		return nil, fmt.Errorf("overlap query for %s: %w", employee, err)
	}

	perDay := ComputeDailyUtilization(window, overlapping)
	return &Utilization{
		Employee: employee,
		Window:   window,
		PerDay:   perDay,
		Average:  AverageUtilization(perDay),
	}, nil
}
