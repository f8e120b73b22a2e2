/*
engine.go - Overlap and capacity computation

PURPOSE:
  The computational core. Given a set of allocations overlapping a query
  window, computes per-day utilization, decides whether a candidate
  percentage fits under the 100%-per-day ceiling, and estimates cost.

THE PER-DAY RULE:
  Feasibility is decided day by day, never by period average. A period
  averaging 40% can still contain a single day at 110%, and that day
  alone makes the candidate infeasible. AverageUtilization exists for
  reporting and ranking only.

COST MODEL:
  working_days  = end - start + 1 (inclusive bounds)
  working_hours = working_days * 8 (fixed 8-hour workday)
  cost          = working_hours * (percent / 100) * hourly_rate
  rounded to 2 decimal places, half-up.

SEE ALSO:
  - availability.go: Composes these functions per employee
  - lifecycle.go: Re-runs CheckFeasible at approval time
*/
package allocation

import (
	"github.com/shopspring/decimal"
)

// HoursPerWorkday is the fixed workday length used for cost estimation.
var HoursPerWorkday = decimal.NewFromInt(8)

// DailyUtilization maps each day of a query window to the summed
// allocation percentage committed on that day.
type DailyUtilization map[TimePoint]decimal.Decimal

// ComputeDailyUtilization walks every day of window and sums the
// percentage of each overlapping allocation whose own range contains
// that day. Days with no coverage are present with a zero value, so the
// result always has exactly window.Length() entries.
func ComputeDailyUtilization(window Period, overlapping []Allocation) DailyUtilization {
	utilization := make(DailyUtilization, window.Length())
	for _, day := range window.Days() {
		total := decimal.Zero
		for _, alloc := range overlapping {
			if alloc.Window.Contains(day) {
				total = total.Add(alloc.Percent)
			}
		}
		utilization[day] = total
	}
	return utilization
}

// CheckFeasible verifies that adding candidatePercent keeps every day at
// or under 100%. On the first violating day (earliest first, for a
// deterministic message) it returns a CapacityExceededError carrying the
// day and both numbers.
func CheckFeasible(employee EmployeeID, utilization DailyUtilization, candidatePercent decimal.Decimal) error {
	var worst *CapacityExceededError
	for day, existing := range utilization {
		if existing.Add(candidatePercent).GreaterThan(FullCapacity) {
			if worst == nil || day.Before(worst.Day) {
				worst = &CapacityExceededError{
					Employee:  employee,
					Day:       day,
					Existing:  existing,
					Requested: candidatePercent,
				}
			}
		}
	}
	if worst != nil {
		return worst
	}
	return nil
}

// AverageUtilization returns the arithmetic mean of the per-day values.
// Reporting only; feasibility always uses the per-day check.
func AverageUtilization(utilization DailyUtilization) decimal.Decimal {
	if len(utilization) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, pct := range utilization {
		total = total.Add(pct)
	}
	return total.Div(decimal.NewFromInt(int64(len(utilization))))
}

// EstimateCost prices a candidate allocation: inclusive day count, 8-hour
// workdays, scaled by the allocation percentage and the employee's hourly
// rate. Rounded to 2 decimal places.
func EstimateCost(window Period, percent, hourlyRate decimal.Decimal) decimal.Decimal {
	workingDays := decimal.NewFromInt(int64(window.Length()))
	workingHours := workingDays.Mul(HoursPerWorkday)
	allocatedHours := workingHours.Mul(percent).Div(FullCapacity)
	return allocatedHours.Mul(hourlyRate).Round(2)
}
