package projects

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/JorgeSaicoski/pgconnect"
	"github.com/arqops/studio-tracker/internal/db"
)

/* ------------------------------------------------------------------ */
/*  Logger                                                            */
/* ------------------------------------------------------------------ */

var log = slog.Default().With(
	slog.String("layer", "service"),
	slog.String("service", "ProjectService"),
)

/* ------------------------------------------------------------------ */
/*  Errors                                                            */
/* ------------------------------------------------------------------ */

var ErrProjectHasOpenSessions = errors.New("cannot delete a project with running time sessions")

/* ------------------------------------------------------------------ */
/*  Service definition & constructor                                  */
/* ------------------------------------------------------------------ */

type ProjectService struct {
	projectRepo *pgconnect.Repository[db.Project]
	phaseRepo   *pgconnect.Repository[db.Phase]
	sessionRepo *pgconnect.Repository[db.TimeSession]
}

func NewProjectService(database *pgconnect.DB) *ProjectService {
	return &ProjectService{
		projectRepo: pgconnect.NewRepository[db.Project](database),
		phaseRepo:   pgconnect.NewRepository[db.Phase](database),
		sessionRepo: pgconnect.NewRepository[db.TimeSession](database),
	}
}

/* ------------------------------------------------------------------ */
/*  DTOs                                                              */
/* ------------------------------------------------------------------ */

type CreateProjectInput struct {
	Title           string  `json:"title"`
	ClientName      *string `json:"clientName,omitempty"`
	ContractedValue float64 `json:"contractedValue"`
	ContractedHours float64 `json:"contractedHours"`
}

// ProjectSummary carries the derived figures a project detail screen needs.
// Hours are recomputed from closed sessions on every read.
type ProjectSummary struct {
	ProjectID           uint      `json:"projectId"`
	Title               string    `json:"title"`
	ContractedValue     float64   `json:"contractedValue"`
	ContractedHours     float64   `json:"contractedHours"`
	TotalAllocatedHours float64   `json:"totalAllocatedHours"`
	TotalExecutedHours  float64   `json:"totalExecutedHours"`
	WorkSessions        int       `json:"workSessions"`
	LastActivity        time.Time `json:"lastActivity"`
}

/* ------------------------------------------------------------------ */
/*  CRUD                                                              */
/* ------------------------------------------------------------------ */

func (s *ProjectService) CreateProject(in *CreateProjectInput) (*db.Project, error) {
	log.Info("create-project:start", "title", in.Title)

	now := time.Now()
	project := &db.Project{
		Title:           in.Title,
		ClientName:      in.ClientName,
		ContractedValue: in.ContractedValue,
		ContractedHours: in.ContractedHours,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.projectRepo.Create(project); err != nil {
		log.Error("create-project:db-insert-failed", "err", err)
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	log.Info("create-project:success", "projectID", project.ID)
	return project, nil
}

func (s *ProjectService) GetProject(id uint) (*db.Project, error) {
	log.Debug("get-project", "projectID", id)

	var project db.Project
	if err := s.projectRepo.FindByID(id, &project); err != nil {
		log.Error("get-project:not-found", "err", err)
		return nil, fmt.Errorf("project not found: %w", err)
	}

	if err := s.phaseRepo.FindWhere(&project.Phases, "project_id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to load project phases: %w", err)
	}
	return &project, nil
}

func (s *ProjectService) UpdateProject(id uint, updates *db.Project) (*db.Project, error) {
	log.Info("update-project:start", "projectID", id)

	var project db.Project
	if err := s.projectRepo.FindByID(id, &project); err != nil {
		log.Error("update-project:not-found", "err", err)
		return nil, fmt.Errorf("project not found: %w", err)
	}

	if updates.Title != "" {
		project.Title = updates.Title
	}
	if updates.ClientName != nil {
		project.ClientName = updates.ClientName
	}
	if updates.ContractedValue > 0 {
		project.ContractedValue = updates.ContractedValue
	}
	if updates.ContractedHours > 0 {
		project.ContractedHours = updates.ContractedHours
	}
	if updates.IsActive != project.IsActive {
		project.IsActive = updates.IsActive
	}
	project.UpdatedAt = time.Now()

	if err := s.projectRepo.Update(&project); err != nil {
		log.Error("update-project:db-update-failed", "err", err)
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	log.Info("update-project:success", "projectID", id)
	return &project, nil
}

func (s *ProjectService) DeleteProject(id uint) error {
	log.Info("delete-project:start", "projectID", id)

	var project db.Project
	if err := s.projectRepo.FindByID(id, &project); err != nil {
		log.Error("delete-project:not-found", "err", err)
		return fmt.Errorf("project not found: %w", err)
	}

	var openSessions []db.TimeSession
	if err := s.sessionRepo.FindWhere(&openSessions,
		"project_id = ? AND end_time IS NULL", id); err != nil {
		log.Error("delete-project:session-check-failed", "err", err)
		return fmt.Errorf("failed to check open sessions: %w", err)
	}
	if len(openSessions) > 0 {
		log.Warn("delete-project:open-sessions", "count", len(openSessions))
		return ErrProjectHasOpenSessions
	}

	if err := s.projectRepo.Delete(&project); err != nil {
		log.Error("delete-project:db-delete-failed", "err", err)
		return fmt.Errorf("failed to delete project: %w", err)
	}

	log.Info("delete-project:success", "projectID", id)
	return nil
}

func (s *ProjectService) ListProjects() ([]db.Project, error) {
	log.Debug("list-projects")

	var projects []db.Project
	if err := s.projectRepo.FindAll(&projects); err != nil {
		log.Error("list-projects:query-failed", "err", err)
		return nil, fmt.Errorf("failed to retrieve projects: %w", err)
	}
	return projects, nil
}

/* ------------------------------------------------------------------ */
/*  Derived figures                                                   */
/* ------------------------------------------------------------------ */

// Summary recomputes the project's executed hours from closed sessions,
// covering both sessions tracked directly against the project and those
// tracked against its phases.
func (s *ProjectService) Summary(projectID uint) (*ProjectSummary, error) {
	log.Debug("project-summary", "projectID", projectID)

	var project db.Project
	if err := s.projectRepo.FindByID(projectID, &project); err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}

	var phases []db.Phase
	if err := s.phaseRepo.FindWhere(&phases, "project_id = ?", projectID); err != nil {
		return nil, fmt.Errorf("failed to load project phases: %w", err)
	}

	summary := &ProjectSummary{
		ProjectID:       projectID,
		Title:           project.Title,
		ContractedValue: project.ContractedValue,
		ContractedHours: project.ContractedHours,
	}
	for _, phase := range phases {
		summary.TotalAllocatedHours += phase.AllocatedHours
	}

	sessions, err := s.projectSessions(projectID, phases)
	if err != nil {
		return nil, err
	}
	totalMinutes := 0
	for _, session := range sessions {
		if session.EndTime == nil {
			continue
		}
		totalMinutes += session.DurationMinutes
		summary.WorkSessions++
		if session.CreatedAt.After(summary.LastActivity) {
			summary.LastActivity = session.CreatedAt
		}
	}
	summary.TotalExecutedHours = float64(totalMinutes) / 60.0

	log.Info("project-summary:success", "projectID", projectID,
		"executedHours", summary.TotalExecutedHours)
	return summary, nil
}

func (s *ProjectService) projectSessions(projectID uint, phases []db.Phase) ([]db.TimeSession, error) {
	var sessions []db.TimeSession
	if err := s.sessionRepo.FindWhere(&sessions, "project_id = ?", projectID); err != nil {
		return nil, fmt.Errorf("failed to load project sessions: %w", err)
	}
	for _, phase := range phases {
		var phaseSessions []db.TimeSession
		if err := s.sessionRepo.FindWhere(&phaseSessions, "phase_id = ?", phase.ID); err != nil {
			return nil, fmt.Errorf("failed to load phase sessions: %w", err)
		}
		sessions = append(sessions, phaseSessions...)
	}
	return sessions, nil
}
