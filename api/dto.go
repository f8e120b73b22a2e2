/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/allocation-engine/allocation"
)

// =============================================================================
// EMPLOYEES AND PROJECTS
// =============================================================================

type EmployeeDTO struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Department string  `json:"department,omitempty"`
	HourlyRate float64 `json:"hourly_cost_rate"`
	Active     bool    `json:"active"`
}

type CreateEmployeeRequest struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Department string  `json:"department"`
	HourlyRate float64 `json:"hourly_cost_rate"`
}

type ProjectDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type CreateProjectRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// =============================================================================
// ALLOCATIONS
// =============================================================================

type AllocationDTO struct {
	ID            string    `json:"id"`
	Employee      string    `json:"employee,omitempty"`
	Project       string    `json:"project"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	Percent       float64   `json:"allocation_percentage"`
	Status        string    `json:"status"`
	HourlyRate    float64   `json:"hourly_cost_rate"`
	EstimatedCost float64   `json:"estimated_total_cost"`
	RequestedBy   string    `json:"requested_by"`
	RequestedAt   string    `json:"request_date,omitempty"`
	Notes         []NoteDTO `json:"notes,omitempty"`
}

type NoteDTO struct {
	Date  string `json:"date"`
	Actor string `json:"actor"`
	Text  string `json:"text"`
}

type CreateAllocationRequest struct {
	Project     string  `json:"project"`
	Employee    string  `json:"employee,omitempty"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Percent     float64 `json:"allocation_percentage"`
	RequestedBy string  `json:"requested_by"`
}

type SelectEmployeeRequest struct {
	Employee string `json:"employee"`
	Actor    string `json:"actor"`
}

// TransitionRequest drives the single mutation entry point. Reason is
// required only when rejecting.
type TransitionRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason,omitempty"`
}

// =============================================================================
// CANDIDATES AND UTILIZATION
// =============================================================================

type CandidateDTO struct {
	Employee          string  `json:"employee"`
	Name              string  `json:"employee_name"`
	Department        string  `json:"department,omitempty"`
	HourlyRate        float64 `json:"hourly_cost_rate"`
	CurrentAllocation float64 `json:"current_allocation"`
	AvailableAlloc    float64 `json:"available_allocation"`
	EstimatedCost     float64 `json:"estimated_cost"`
}

type CandidatesResponse struct {
	Available   []CandidateDTO `json:"available_employees"`
	Unavailable []CandidateDTO `json:"unavailable_employees"`
}

type UtilizationDTO struct {
	Employee  string             `json:"employee"`
	StartDate string             `json:"start_date"`
	EndDate   string             `json:"end_date"`
	PerDay    map[string]float64 `json:"per_day"`
	Average   float64            `json:"average"`
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

type AssignmentDTO struct {
	ID           string  `json:"id"`
	AllocationID string  `json:"allocation_id"`
	Employee     string  `json:"employee"`
	Project      string  `json:"project"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
	Percent      float64 `json:"allocation_percentage"`
	Status       string  `json:"status"`
}

// =============================================================================
// DASHBOARD
// =============================================================================

type DashboardResponse struct {
	EndingSoon        []EndingAssignmentDTO  `json:"ending_soon"`
	Unallocated       []EmployeeDTO          `json:"unallocated"`
	PendingRequests   []AllocationDTO        `json:"allocation_requests"`
	AllocationSummary []DepartmentSummaryDTO `json:"allocation_summary"`
}

type EndingAssignmentDTO struct {
	AssignmentDTO
	RemainingDays int `json:"remaining_days"`
}

type DepartmentSummaryDTO struct {
	Department        string  `json:"department"`
	ActiveAssignments int     `json:"active_assignments"`
	TotalPercent      float64 `json:"total_allocation_percentage"`
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error string `json:"error"`

	// Set for capacity violations so the caller can display the
	// offending day and numbers.
	Day       string   `json:"day,omitempty"`
	Existing  *float64 `json:"existing_allocation,omitempty"`
	Requested *float64 `json:"requested_allocation,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toEmployeeDTO(e allocation.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:         string(e.ID),
		Name:       e.Name,
		Department: e.Department,
		HourlyRate: e.HourlyRate.InexactFloat64(),
		Active:     e.Active,
	}
}

func toProjectDTO(p allocation.Project) ProjectDTO {
	return ProjectDTO{ID: string(p.ID), Name: p.Name, Active: p.Active}
}

func toAllocationDTO(a *allocation.Allocation) AllocationDTO {
	dto := AllocationDTO{
		ID:            string(a.ID),
		Employee:      string(a.Employee),
		Project:       string(a.Project),
		StartDate:     a.Window.Start.String(),
		EndDate:       a.Window.End.String(),
		Percent:       a.Percent.InexactFloat64(),
		Status:        string(a.Status),
		HourlyRate:    a.HourlyRate.InexactFloat64(),
		EstimatedCost: a.EstimatedCost.InexactFloat64(),
		RequestedBy:   a.RequestedBy,
	}
	if !a.RequestedAt.IsZero() {
		dto.RequestedAt = a.RequestedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	for _, n := range a.Notes {
		dto.Notes = append(dto.Notes, NoteDTO{Date: n.At.String(), Actor: n.Actor, Text: n.Text})
	}
	return dto
}

func toCandidateDTO(c allocation.Candidate) CandidateDTO {
	return CandidateDTO{
		Employee:          string(c.Employee),
		Name:              c.Name,
		Department:        c.Department,
		HourlyRate:        c.HourlyRate.InexactFloat64(),
		CurrentAllocation: c.CurrentPercent.InexactFloat64(),
		AvailableAlloc:    c.AvailablePercent.InexactFloat64(),
		EstimatedCost:     c.EstimatedCost.InexactFloat64(),
	}
}

func toAssignmentDTO(a allocation.Assignment) AssignmentDTO {
	return AssignmentDTO{
		ID:           string(a.ID),
		AllocationID: string(a.AllocationID),
		Employee:     string(a.Employee),
		Project:      string(a.Project),
		StartDate:    a.Window.Start.String(),
		EndDate:      a.Window.End.String(),
		Percent:      a.Percent.InexactFloat64(),
		Status:       string(a.Status),
	}
}

func toUtilizationDTO(u *allocation.Utilization) UtilizationDTO {
	perDay := make(map[string]float64, len(u.PerDay))
	for day, pct := range u.PerDay {
		perDay[day.String()] = pct.InexactFloat64()
	}
	return UtilizationDTO{
		Employee:  string(u.Employee),
		StartDate: u.Window.Start.String(),
		EndDate:   u.Window.End.String(),
		PerDay:    perDay,
		Average:   u.Average.InexactFloat64(),
	}
}
