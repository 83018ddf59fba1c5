package projects

import (
	"time"

	"github.com/arqops/studio-tracker/internal/db"
	"github.com/arqops/studio-tracker/internal/services/projects"
)

// Request DTOs

type CreateProjectRequest struct {
	Title           string  `json:"title" binding:"required"`
	ClientName      *string `json:"clientName"`
	ContractedValue float64 `json:"contractedValue"`
	ContractedHours float64 `json:"contractedHours"`
}

func (r *CreateProjectRequest) ToInput() *projects.CreateProjectInput {
	return &projects.CreateProjectInput{
		Title:           r.Title,
		ClientName:      r.ClientName,
		ContractedValue: r.ContractedValue,
		ContractedHours: r.ContractedHours,
	}
}

type UpdateProjectRequest struct {
	Title           string  `json:"title"`
	ClientName      *string `json:"clientName"`
	ContractedValue float64 `json:"contractedValue"`
	ContractedHours float64 `json:"contractedHours"`
	IsActive        bool    `json:"isActive"`
}

func (r *UpdateProjectRequest) ToProject() *db.Project {
	return &db.Project{
		Title:           r.Title,
		ClientName:      r.ClientName,
		ContractedValue: r.ContractedValue,
		ContractedHours: r.ContractedHours,
		IsActive:        r.IsActive,
	}
}

// Response DTOs

type ProjectResponse struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	ClientName      *string   `json:"clientName"`
	ContractedValue float64   `json:"contractedValue"`
	ContractedHours float64   `json:"contractedHours"`
	IsActive        bool      `json:"isActive"`
	PhaseCount      int       `json:"phaseCount"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Conversion methods

func ProjectToResponse(project *db.Project) ProjectResponse {
	return ProjectResponse{
		ID:              project.ID,
		Title:           project.Title,
		ClientName:      project.ClientName,
		ContractedValue: project.ContractedValue,
		ContractedHours: project.ContractedHours,
		IsActive:        project.IsActive,
		PhaseCount:      len(project.Phases),
		CreatedAt:       project.CreatedAt,
		UpdatedAt:       project.UpdatedAt,
	}
}

func ProjectsToResponse(projects []db.Project) []ProjectResponse {
	responses := make([]ProjectResponse, len(projects))
	for i, project := range projects {
		responses[i] = ProjectToResponse(&project)
	}
	return responses
}
