package phases

import (
	"time"

	"github.com/arqops/studio-tracker/internal/db"
	"github.com/arqops/studio-tracker/internal/services/phases"
)

// Request DTOs

type CreatePhaseRequest struct {
	ProjectID        uint    `json:"projectId" binding:"required"`
	Name             string  `json:"name" binding:"required"`
	AllocatedHours   float64 `json:"allocatedHours" binding:"required"`
	AssignedWorkerID *string `json:"assignedWorkerId"`
	SupervisorID     *string `json:"supervisorId"`
	StartDate        *string `json:"startDate"` // YYYY-MM-DD
	DueDate          *string `json:"dueDate"`   // YYYY-MM-DD
}

func (r *CreatePhaseRequest) ToInput() (*phases.CreatePhaseInput, error) {
	startDate, err := parseOptionalDate(r.StartDate)
	if err != nil {
		return nil, err
	}
	dueDate, err := parseOptionalDate(r.DueDate)
	if err != nil {
		return nil, err
	}
	return &phases.CreatePhaseInput{
		ProjectID:        r.ProjectID,
		Name:             r.Name,
		AllocatedHours:   r.AllocatedHours,
		AssignedWorkerID: r.AssignedWorkerID,
		SupervisorID:     r.SupervisorID,
		StartDate:        startDate,
		DueDate:          dueDate,
	}, nil
}

type UpdatePhaseRequest struct {
	Name             *string  `json:"name"`
	AllocatedHours   *float64 `json:"allocatedHours"`
	Status           *string  `json:"status"`
	AssignedWorkerID *string  `json:"assignedWorkerId"`
	SupervisorID     *string  `json:"supervisorId"`
	StartDate        *string  `json:"startDate"`
	DueDate          *string  `json:"dueDate"`
}

func (r *UpdatePhaseRequest) ToInput() (*phases.UpdatePhaseInput, error) {
	startDate, err := parseOptionalDate(r.StartDate)
	if err != nil {
		return nil, err
	}
	dueDate, err := parseOptionalDate(r.DueDate)
	if err != nil {
		return nil, err
	}
	return &phases.UpdatePhaseInput{
		Name:             r.Name,
		AllocatedHours:   r.AllocatedHours,
		Status:           r.Status,
		AssignedWorkerID: r.AssignedWorkerID,
		SupervisorID:     r.SupervisorID,
		StartDate:        startDate,
		DueDate:          dueDate,
	}, nil
}

// Response DTOs

type PhaseResponse struct {
	ID               uint       `json:"id"`
	ProjectID        uint       `json:"projectId"`
	Name             string     `json:"name"`
	AllocatedHours   float64    `json:"allocatedHours"`
	ExecutedHours    float64    `json:"executedHours"`
	Status           string     `json:"status"`
	AssignedWorkerID *string    `json:"assignedWorkerId"`
	SupervisorID     *string    `json:"supervisorId"`
	StartDate        *time.Time `json:"startDate"`
	DueDate          *time.Time `json:"dueDate"`
	OrderIndex       int        `json:"orderIndex"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Conversion methods

// PhaseToResponse maps a bare phase row; executed hours default to zero and
// the stored status is reported unchanged.
func PhaseToResponse(phase *db.Phase) PhaseResponse {
	return PhaseResponse{
		ID:               phase.ID,
		ProjectID:        phase.ProjectID,
		Name:             phase.Name,
		AllocatedHours:   phase.AllocatedHours,
		Status:           phase.Status,
		AssignedWorkerID: phase.AssignedWorkerID,
		SupervisorID:     phase.SupervisorID,
		StartDate:        phase.StartDate,
		DueDate:          phase.DueDate,
		OrderIndex:       phase.OrderIndex,
		CreatedAt:        phase.CreatedAt,
		UpdatedAt:        phase.UpdatedAt,
	}
}

// EnrichedPhaseToResponse reports the derived executed hours and the
// read-time corrected status.
func EnrichedPhaseToResponse(enriched *phases.PhaseWithHours) PhaseResponse {
	response := PhaseToResponse(&enriched.Phase)
	response.ExecutedHours = enriched.ExecutedHours
	response.Status = enriched.EffectiveStatus
	return response
}

func EnrichedPhasesToResponse(enriched []phases.PhaseWithHours) []PhaseResponse {
	responses := make([]PhaseResponse, len(enriched))
	for i := range enriched {
		responses[i] = EnrichedPhaseToResponse(&enriched[i])
	}
	return responses
}

func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", *value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
