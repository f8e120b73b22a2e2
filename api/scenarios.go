/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates employees, projects,
	allocations, and assignments that demonstrate specific features.

AVAILABLE SCENARIOS:

	staffing-basics:    Small team with one committed allocation
	capacity-conflict:  Pending request that cannot fit under 100%
	competing-requests: Two pending requests racing for one employee
	quarter-wrap:       Assignments ending soon + unallocated bench

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Seed employees and projects
 3. Write allocations in the state the scenario calls for
 4. Create assignments for the approved ones

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "capacity-conflict"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler wiring
  - server.go: Scenario routes
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "staffing-basics",
		Name:        "Staffing Basics",
		Description: "Small team with one committed allocation and a free bench",
		Category:    "allocation",
	},
	{
		ID:          "capacity-conflict",
		Name:        "Capacity Conflict",
		Description: "Pending request that would push one day over 100% if approved",
		Category:    "allocation",
	},
	{
		ID:          "competing-requests",
		Name:        "Competing Requests",
		Description: "Two pending requests for the same employee and window; only one can be approved",
		Category:    "allocation",
	},
	{
		ID:          "quarter-wrap",
		Name:        "Quarter Wrap-Up",
		Description: "Assignments ending within 30 days plus unallocated employees",
		Category:    "dashboard",
	},
}

// Resetter is implemented by stores that can wipe all data; scenario
// loading requires it.
type Resetter interface {
	Reset(ctx context.Context) error
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	current := h.loadedScenario()
	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          current,
		Name:        current,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario wipes the database and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resetter, ok := h.Store.(Resetter)
	if !ok {
		writeError(w, http.StatusNotImplemented, "store does not support scenario loading")
		return
	}

	ctx := r.Context()
	if err := resetter.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to reset database")
		return
	}
	h.setCurrentScenario("")

	var err error
	switch req.ScenarioID {
	case "staffing-basics":
		err = h.loadStaffingBasicsScenario(ctx)
	case "capacity-conflict":
		err = h.loadCapacityConflictScenario(ctx)
	case "competing-requests":
		err = h.loadCompetingRequestsScenario(ctx)
	case "quarter-wrap":
		err = h.loadQuarterWrapScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "unknown scenario")
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to load scenario: %v", err))
		return
	}

	h.setCurrentScenario(req.ScenarioID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================
// Dates are anchored on today so dashboards show live data regardless of
// when the scenario is loaded. Records are written in their target state
// directly; the lifecycle service is for real traffic.

const demoRequester = "pm@example.com"

func (h *Handler) seedTeam(ctx context.Context, employees []allocation.Employee, projects []allocation.Project) error {
	for _, e := range employees {
		if err := h.Directory.SaveEmployee(ctx, e); err != nil {
			return err
		}
	}
	for _, p := range projects {
		if err := h.Directory.SaveProject(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func demoEmployee(id, name, department string, rate int) allocation.Employee {
	return allocation.Employee{
		ID:         allocation.EmployeeID(id),
		Name:       name,
		Department: department,
		HourlyRate: decimal.NewFromInt(int64(rate)),
		Active:     true,
	}
}

// writeAllocation persists an allocation and, when it is approved, the
// matching assignment.
func (h *Handler) writeAllocation(ctx context.Context, alloc *allocation.Allocation) error {
	now := time.Now()
	alloc.RequestedBy = demoRequester
	alloc.CreatedAt = now
	alloc.UpdatedAt = now
	if alloc.Status != allocation.StatusDraft {
		alloc.RequestedAt = now
	}
	alloc.EstimatedCost = allocation.EstimateCost(alloc.Window, alloc.Percent, alloc.HourlyRate)

	if err := h.Store.Put(ctx, alloc); err != nil {
		return err
	}
	if alloc.Status != allocation.StatusApproved {
		return nil
	}
	return h.Store.CreateAssignment(ctx, &allocation.Assignment{
		ID:           allocation.AssignmentID("as-" + string(alloc.ID)),
		AllocationID: alloc.ID,
		Employee:     alloc.Employee,
		Project:      alloc.Project,
		Window:       alloc.Window,
		Percent:      alloc.Percent,
		Status:       allocation.AssignmentActive,
		CreatedAt:    now,
	})
}

func (h *Handler) loadStaffingBasicsScenario(ctx context.Context) error {
	err := h.seedTeam(ctx,
		[]allocation.Employee{
			demoEmployee("emp-001", "Alice Johnson", "Engineering", 95),
			demoEmployee("emp-002", "Ben Carter", "Engineering", 85),
			demoEmployee("emp-003", "Carol Davis", "Design", 75),
		},
		[]allocation.Project{
			{ID: "proj-platform", Name: "Platform Rebuild", Active: true},
			{ID: "proj-mobile", Name: "Mobile App", Active: true},
		})
	if err != nil {
		return err
	}

	// Alice is half-committed to the platform work for three weeks,
	// starting last week. Ben and Carol are on the bench.
	today := allocation.Today()
	return h.writeAllocation(ctx, &allocation.Allocation{
		ID:         "alloc-basics-1",
		Employee:   "emp-001",
		Project:    "proj-platform",
		Window:     allocation.NewPeriod(today.AddDays(-7), today.AddDays(14)),
		Percent:    allocation.PercentFromInt(50),
		Status:     allocation.StatusApproved,
		HourlyRate: decimal.NewFromInt(95),
	})
}

func (h *Handler) loadCapacityConflictScenario(ctx context.Context) error {
	err := h.seedTeam(ctx,
		[]allocation.Employee{
			demoEmployee("emp-001", "Alice Johnson", "Engineering", 95),
			demoEmployee("emp-002", "Ben Carter", "Engineering", 85),
		},
		[]allocation.Project{
			{ID: "proj-platform", Name: "Platform Rebuild", Active: true},
			{ID: "proj-mobile", Name: "Mobile App", Active: true},
		})
	if err != nil {
		return err
	}

	today := allocation.Today()

	// Alice holds 60% for two weeks. The pending request wants another
	// 50% over a window overlapping the committed one, so approving it
	// must fail on the first shared day.
	if err := h.writeAllocation(ctx, &allocation.Allocation{
		ID:         "alloc-committed",
		Employee:   "emp-001",
		Project:    "proj-platform",
		Window:     allocation.NewPeriod(today, today.AddDays(13)),
		Percent:    allocation.PercentFromInt(60),
		Status:     allocation.StatusApproved,
		HourlyRate: decimal.NewFromInt(95),
	}); err != nil {
		return err
	}
	return h.writeAllocation(ctx, &allocation.Allocation{
		ID:         "alloc-conflicting",
		Employee:   "emp-001",
		Project:    "proj-mobile",
		Window:     allocation.NewPeriod(today.AddDays(7), today.AddDays(20)),
		Percent:    allocation.PercentFromInt(50),
		Status:     allocation.StatusRequested,
		HourlyRate: decimal.NewFromInt(95),
	})
}

func (h *Handler) loadCompetingRequestsScenario(ctx context.Context) error {
	err := h.seedTeam(ctx,
		[]allocation.Employee{
			demoEmployee("emp-001", "Alice Johnson", "Engineering", 95),
		},
		[]allocation.Project{
			{ID: "proj-platform", Name: "Platform Rebuild", Active: true},
			{ID: "proj-mobile", Name: "Mobile App", Active: true},
		})
	if err != nil {
		return err
	}

	// Both requests looked feasible at request time because pending
	// requests hold no capacity. Approving one makes the other
	// infeasible; try approving both.
	today := allocation.Today()
	window := allocation.NewPeriod(today, today.AddDays(9))
	for _, alloc := range []*allocation.Allocation{
		{
			ID: "alloc-race-platform", Employee: "emp-001", Project: "proj-platform",
			Window: window, Percent: allocation.PercentFromInt(60),
			Status: allocation.StatusRequested, HourlyRate: decimal.NewFromInt(95),
		},
		{
			ID: "alloc-race-mobile", Employee: "emp-001", Project: "proj-mobile",
			Window: window, Percent: allocation.PercentFromInt(60),
			Status: allocation.StatusRequested, HourlyRate: decimal.NewFromInt(95),
		},
	} {
		if err := h.writeAllocation(ctx, alloc); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadQuarterWrapScenario(ctx context.Context) error {
	err := h.seedTeam(ctx,
		[]allocation.Employee{
			demoEmployee("emp-001", "Alice Johnson", "Engineering", 95),
			demoEmployee("emp-002", "Ben Carter", "Engineering", 85),
			demoEmployee("emp-003", "Carol Davis", "Design", 75),
			demoEmployee("emp-004", "David Wilson", "Design", 70),
		},
		[]allocation.Project{
			{ID: "proj-platform", Name: "Platform Rebuild", Active: true},
			{ID: "proj-mobile", Name: "Mobile App", Active: true},
		})
	if err != nil {
		return err
	}

	today := allocation.Today()

	// Two assignments end inside the 30-day dashboard horizon; David is
	// unallocated; one request is still pending review.
	if err := h.writeAllocation(ctx, &allocation.Allocation{
		ID: "alloc-ending-1", Employee: "emp-001", Project: "proj-platform",
		Window:  allocation.NewPeriod(today.AddDays(-30), today.AddDays(5)),
		Percent: allocation.PercentFromInt(80), Status: allocation.StatusApproved,
		HourlyRate: decimal.NewFromInt(95),
	}); err != nil {
		return err
	}
	if err := h.writeAllocation(ctx, &allocation.Allocation{
		ID: "alloc-ending-2", Employee: "emp-002", Project: "proj-mobile",
		Window:  allocation.NewPeriod(today.AddDays(-14), today.AddDays(12)),
		Percent: allocation.PercentFromInt(100), Status: allocation.StatusApproved,
		HourlyRate: decimal.NewFromInt(85),
	}); err != nil {
		return err
	}
	if err := h.writeAllocation(ctx, &allocation.Allocation{
		ID: "alloc-long-running", Employee: "emp-003", Project: "proj-platform",
		Window:  allocation.NewPeriod(today.AddDays(-10), today.AddDays(80)),
		Percent: allocation.PercentFromInt(40), Status: allocation.StatusApproved,
		HourlyRate: decimal.NewFromInt(75),
	}); err != nil {
		return err
	}
	return h.writeAllocation(ctx, &allocation.Allocation{
		ID: "alloc-pending-review", Employee: "emp-004", Project: "proj-mobile",
		Window:  allocation.NewPeriod(today.AddDays(10), today.AddDays(40)),
		Percent: allocation.PercentFromInt(50), Status: allocation.StatusRequested,
		HourlyRate: decimal.NewFromInt(70),
	})
}
