/*
handlers.go - HTTP API handlers for the allocation engine

PURPOSE:
  Exposes the allocation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Directory:
    GET    /api/employees                    List active employees
    POST   /api/employees                    Create employee
    GET    /api/employees/{id}/utilization   Per-day + average utilization
    GET    /api/projects                     List projects
    POST   /api/projects                     Create project

  Allocations:
    GET    /api/allocations                  List (filter by ?status=)
    POST   /api/allocations                  Create draft
    GET    /api/allocations/{id}             Get one
    DELETE /api/allocations/{id}             Delete draft (?actor=)
    GET    /api/allocations/candidates       Rank candidates for a window
    POST   /api/allocations/{id}/select      Select employee on a draft
    POST   /api/allocations/{id}/request     Draft -> Requested
    POST   /api/allocations/{id}/approve     Requested -> Approved
    POST   /api/allocations/{id}/reject      Requested -> Rejected

  Assignments and dashboards:
    GET    /api/assignments                  List (filter by ?status=)
    GET    /api/dashboard                    Approver dashboard data

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 403: Actor lacks the role for the attempted transition
  - 404: Record not found
  - 409: Invalid transition, capacity exceeded
  - 500: Internal errors
  Capacity violations include the offending day and numbers.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// DirectoryStore is the directory surface the API needs: lookups for the
// engine plus the admin writes that seed it.
type DirectoryStore interface {
	allocation.Directory
	SaveEmployee(ctx context.Context, e allocation.Employee) error
	SaveProject(ctx context.Context, p allocation.Project) error
	ListProjects(ctx context.Context) ([]allocation.Project, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service      *allocation.Service
	Availability *allocation.AvailabilityService
	Store        allocation.TxStore
	Directory    DirectoryStore

	// currentScenario is read and written from concurrent requests.
	scenarioMu      sync.Mutex
	currentScenario string
}

func (h *Handler) setCurrentScenario(id string) {
	h.scenarioMu.Lock()
	h.currentScenario = id
	h.scenarioMu.Unlock()
}

func (h *Handler) loadedScenario() string {
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()
	return h.currentScenario
}

// NewHandler wires the handler over one store implementing both the
// allocation store and the directory.
func NewHandler(service *allocation.Service, store allocation.TxStore, dir DirectoryStore) *Handler {
	return &Handler{
		Service:      service,
		Availability: &allocation.AvailabilityService{Store: store, Directory: dir},
		Store:        store,
		Directory:    dir,
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Directory.ActiveEmployees(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]EmployeeDTO, 0, len(employees))
	for _, e := range employees {
		dtos = append(dtos, toEmployeeDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required")
		return
	}

	emp := allocation.Employee{
		ID:         allocation.EmployeeID(req.ID),
		Name:       req.Name,
		Department: req.Department,
		HourlyRate: decimal.NewFromFloat(req.HourlyRate),
		Active:     true,
	}
	if err := h.Directory.SaveEmployee(r.Context(), emp); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

func (h *Handler) GetUtilization(w http.ResponseWriter, r *http.Request) {
	employee := allocation.EmployeeID(chi.URLParam(r, "id"))
	window, ok := parseWindow(w, r)
	if !ok {
		return
	}

	utilization, err := h.Availability.GetUtilization(r.Context(), employee, window)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUtilizationDTO(utilization))
}

// =============================================================================
// PROJECTS
// =============================================================================

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Directory.ListProjects(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]ProjectDTO, 0, len(projects))
	for _, p := range projects {
		dtos = append(dtos, toProjectDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required")
		return
	}

	project := allocation.Project{ID: allocation.ProjectID(req.ID), Name: req.Name, Active: true}
	if err := h.Directory.SaveProject(r.Context(), project); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectDTO(project))
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

func (h *Handler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	statuses := []allocation.Status{
		allocation.StatusDraft, allocation.StatusRequested,
		allocation.StatusApproved, allocation.StatusRejected,
	}
	if filter := r.URL.Query().Get("status"); filter != "" {
		statuses = []allocation.Status{allocation.Status(filter)}
	}

	allocs, err := h.Store.ListByStatus(r.Context(), statuses)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]AllocationDTO, 0, len(allocs))
	for i := range allocs {
		dtos = append(dtos, toAllocationDTO(&allocs[i]))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateAllocation(w http.ResponseWriter, r *http.Request) {
	var req CreateAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	window, ok := parseWindowFields(w, req.StartDate, req.EndDate)
	if !ok {
		return
	}

	alloc, err := h.Service.CreateDraft(r.Context(), allocation.DraftInput{
		Project:     allocation.ProjectID(req.Project),
		Employee:    allocation.EmployeeID(req.Employee),
		Window:      window,
		Percent:     decimal.NewFromFloat(req.Percent),
		RequestedBy: req.RequestedBy,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllocationDTO(alloc))
}

func (h *Handler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	alloc, err := h.Store.Get(r.Context(), allocation.AllocationID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(alloc))
}

func (h *Handler) DeleteAllocation(w http.ResponseWriter, r *http.Request) {
	actor := r.URL.Query().Get("actor")
	if actor == "" {
		writeError(w, http.StatusBadRequest, "actor is required")
		return
	}
	id := allocation.AllocationID(chi.URLParam(r, "id"))
	if err := h.Service.DeleteDraft(r.Context(), id, actor); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetCandidates(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	project := allocation.ProjectID(query.Get("project"))
	window, ok := parseWindowFields(w, query.Get("start_date"), query.Get("end_date"))
	if !ok {
		return
	}
	percent, err := strconv.ParseFloat(query.Get("allocation_percentage"), 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "allocation_percentage must be a number")
		return
	}
	exclude := allocation.AllocationID(query.Get("exclude"))

	ranking, err := h.Availability.RankCandidates(r.Context(), project, window,
		decimal.NewFromFloat(percent), exclude)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := CandidatesResponse{
		Available:   make([]CandidateDTO, 0, len(ranking.Available)),
		Unavailable: make([]CandidateDTO, 0, len(ranking.Unavailable)),
	}
	for _, c := range ranking.Available {
		resp.Available = append(resp.Available, toCandidateDTO(c))
	}
	for _, c := range ranking.Unavailable {
		resp.Unavailable = append(resp.Unavailable, toCandidateDTO(c))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SelectEmployee(w http.ResponseWriter, r *http.Request) {
	var req SelectEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Actor == "" || req.Employee == "" {
		writeError(w, http.StatusBadRequest, "actor and employee are required")
		return
	}

	id := allocation.AllocationID(chi.URLParam(r, "id"))
	alloc, err := h.Service.SelectEmployee(r.Context(), id, allocation.EmployeeID(req.Employee), req.Actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(alloc))
}

func (h *Handler) RequestAllocation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, allocation.StatusRequested)
}

func (h *Handler) ApproveAllocation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, allocation.StatusApproved)
}

func (h *Handler) RejectAllocation(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, allocation.StatusRejected)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, target allocation.Status) {
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Actor == "" {
		writeError(w, http.StatusBadRequest, "actor is required")
		return
	}

	id := allocation.AllocationID(chi.URLParam(r, "id"))
	alloc, err := h.Service.Transition(r.Context(), id, target, req.Actor, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(alloc))
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	status := allocation.AssignmentStatus(r.URL.Query().Get("status"))
	assignments, err := h.Store.ListAssignments(r.Context(), status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]AssignmentDTO, 0, len(assignments))
	for _, a := range assignments {
		dtos = append(dtos, toAssignmentDTO(a))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// DASHBOARD
// =============================================================================

// GetDashboard composes the read-only views the approver dashboard
// shows: assignments ending in the next 30 days, employees with no
// active assignment today, pending requests, and a per-department
// summary of today's committed capacity.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	today := allocation.Today()
	horizon := today.AddDays(30)

	active, err := h.Store.ListAssignments(ctx, allocation.AssignmentActive)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	employees, err := h.Directory.ActiveEmployees(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	pending, err := h.Store.ListByStatus(ctx, []allocation.Status{allocation.StatusRequested})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := DashboardResponse{
		EndingSoon:        []EndingAssignmentDTO{},
		Unallocated:       []EmployeeDTO{},
		PendingRequests:   []AllocationDTO{},
		AllocationSummary: []DepartmentSummaryDTO{},
	}

	allocatedToday := make(map[allocation.EmployeeID]bool)
	departments := make(map[string]*DepartmentSummaryDTO)
	byEmployee := make(map[allocation.EmployeeID]allocation.Employee, len(employees))
	for _, e := range employees {
		byEmployee[e.ID] = e
	}

	for _, a := range active {
		if a.Window.Contains(today) {
			allocatedToday[a.Employee] = true

			dept := byEmployee[a.Employee].Department
			summary, ok := departments[dept]
			if !ok {
				summary = &DepartmentSummaryDTO{Department: dept}
				departments[dept] = summary
			}
			summary.ActiveAssignments++
			summary.TotalPercent += a.Percent.InexactFloat64()
		}

		if a.Window.End.AfterOrEqual(today) && a.Window.End.BeforeOrEqual(horizon) {
			resp.EndingSoon = append(resp.EndingSoon, EndingAssignmentDTO{
				AssignmentDTO: toAssignmentDTO(a),
				RemainingDays: allocation.DaysBetween(today, a.Window.End),
			})
		}
	}

	for _, e := range employees {
		if !allocatedToday[e.ID] {
			resp.Unallocated = append(resp.Unallocated, toEmployeeDTO(e))
		}
	}
	for i := range pending {
		resp.PendingRequests = append(resp.PendingRequests, toAllocationDTO(&pending[i]))
	}
	for _, summary := range departments {
		resp.AllocationSummary = append(resp.AllocationSummary, *summary)
	}
	sort.Slice(resp.AllocationSummary, func(i, j int) bool {
		return resp.AllocationSummary[i].Department < resp.AllocationSummary[j].Department
	})

	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseWindow(w http.ResponseWriter, r *http.Request) (allocation.Period, bool) {
	query := r.URL.Query()
	return parseWindowFields(w, query.Get("start_date"), query.Get("end_date"))
}

func parseWindowFields(w http.ResponseWriter, startDate, endDate string) (allocation.Period, bool) {
	start, err := allocation.ParseDay(startDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return allocation.Period{}, false
	}
	end, err := allocation.ParseDay(endDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return allocation.Period{}, false
	}
	return allocation.NewPeriod(start, end), true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps the engine's error taxonomy onto HTTP statuses.
// Capacity violations carry the offending day and both percentages.
func writeDomainError(w http.ResponseWriter, err error) {
	var capErr *allocation.CapacityExceededError
	if errors.As(err, &capErr) {
		existing := capErr.Existing.InexactFloat64()
		requested := capErr.Requested.InexactFloat64()
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:     capErr.Error(),
			Day:       capErr.Day.String(),
			Existing:  &existing,
			Requested: &requested,
		})
		return
	}

	switch {
	case errors.Is(err, allocation.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, err.Error())
	case allocation.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, allocation.ErrInvalidTransition),
		errors.Is(err, allocation.ErrDuplicateAssignment):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, allocation.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
