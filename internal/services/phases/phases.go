package phases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"log/slog"

	"github.com/JorgeSaicoski/pgconnect"
	clients "github.com/arqops/studio-tracker/internal/client"
	"github.com/arqops/studio-tracker/internal/db"
)

/* ------------------------------------------------------------------ */
/*  Logger                                                            */
/* ------------------------------------------------------------------ */

var log = slog.Default().With(
	slog.String("layer", "service"),
	slog.String("service", "PhaseService"),
)

/* ------------------------------------------------------------------ */
/*  Errors                                                            */
/* ------------------------------------------------------------------ */

var (
	ErrForbidden             = errors.New("actor is not allowed to manage this phase")
	ErrHoursNotMet           = errors.New("phase cannot be completed before its allocated hours are executed")
	ErrHoursExceedContract   = errors.New("allocated hours would exceed the project's contracted hours")
	ErrInvalidAllocatedHours = errors.New("allocated hours must be greater than zero")
	ErrInvalidDateRange      = errors.New("phase start date must not be after its due date")
	ErrPhaseHasSessions      = errors.New("cannot delete a phase with recorded time sessions")
	ErrPhaseTerminal         = errors.New("completed and cancelled phases are terminal")
	ErrUnknownStatus         = errors.New("unknown phase status")
)

/* ------------------------------------------------------------------ */
/*  Storage interfaces                                                */
/* ------------------------------------------------------------------ */

// Narrow store interfaces let tests run the service against in-memory data;
// production wires pgconnect repositories.

type phaseStore interface {
	Create(phase *db.Phase) error
	Update(phase *db.Phase) error
	Delete(phase *db.Phase) error
	FindByID(id uint, dest *db.Phase) error
	FindWhere(dest *[]db.Phase, query string, args ...interface{}) error
}

type projectStore interface {
	FindByID(id uint, dest *db.Project) error
}

type sessionStore interface {
	FindWhere(dest *[]db.TimeSession, query string, args ...interface{}) error
}

type pgPhaseStore struct{ repo *pgconnect.Repository[db.Phase] }

func (s pgPhaseStore) Create(phase *db.Phase) error { return s.repo.Create(phase) }
func (s pgPhaseStore) Update(phase *db.Phase) error { return s.repo.Update(phase) }
func (s pgPhaseStore) Delete(phase *db.Phase) error { return s.repo.Delete(phase) }
func (s pgPhaseStore) FindByID(id uint, dest *db.Phase) error {
	return s.repo.FindByID(id, dest)
}
func (s pgPhaseStore) FindWhere(dest *[]db.Phase, query string, args ...interface{}) error {
	return s.repo.FindWhere(dest, query, args...)
}

type pgProjectStore struct{ repo *pgconnect.Repository[db.Project] }

func (s pgProjectStore) FindByID(id uint, dest *db.Project) error {
	return s.repo.FindByID(id, dest)
}

type pgSessionStore struct{ repo *pgconnect.Repository[db.TimeSession] }

func (s pgSessionStore) FindWhere(dest *[]db.TimeSession, query string, args ...interface{}) error {
	return s.repo.FindWhere(dest, query, args...)
}

/* ------------------------------------------------------------------ */
/*  Service definition & constructor                                  */
/* ------------------------------------------------------------------ */

type PhaseService struct {
	phaseRepo   phaseStore
	projectRepo projectStore
	sessionRepo sessionStore

	authz clients.PhaseAuthorizer
	calc  Calculator
}

func NewPhaseService(
	database *pgconnect.DB,
	authz clients.PhaseAuthorizer,
	calc Calculator,
) *PhaseService {
	return &PhaseService{
		phaseRepo:   pgPhaseStore{repo: pgconnect.NewRepository[db.Phase](database)},
		projectRepo: pgProjectStore{repo: pgconnect.NewRepository[db.Project](database)},
		sessionRepo: pgSessionStore{repo: pgconnect.NewRepository[db.TimeSession](database)},
		authz:       authz,
		calc:        calc,
	}
}

/* ------------------------------------------------------------------ */
/*  DTOs                                                              */
/* ------------------------------------------------------------------ */

type CreatePhaseInput struct {
	ProjectID        uint       `json:"projectId"`
	Name             string     `json:"name"`
	AllocatedHours   float64    `json:"allocatedHours"`
	AssignedWorkerID *string    `json:"assignedWorkerId,omitempty"`
	SupervisorID     *string    `json:"supervisorId,omitempty"`
	StartDate        *time.Time `json:"startDate,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
}

type UpdatePhaseInput struct {
	Name             *string    `json:"name,omitempty"`
	AllocatedHours   *float64   `json:"allocatedHours,omitempty"`
	Status           *string    `json:"status,omitempty"` // completed is only reachable through Complete
	AssignedWorkerID *string    `json:"assignedWorkerId,omitempty"`
	SupervisorID     *string    `json:"supervisorId,omitempty"`
	StartDate        *time.Time `json:"startDate,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
}

// PhaseWithHours pairs a phase with its derived executed hours and the
// read-time corrected status.
type PhaseWithHours struct {
	Phase           db.Phase `json:"phase"`
	ExecutedHours   float64  `json:"executedHours"`
	EffectiveStatus string   `json:"effectiveStatus"`
}

/* ------------------------------------------------------------------ */
/*  CRUD                                                              */
/* ------------------------------------------------------------------ */

func (s *PhaseService) CreatePhase(in *CreatePhaseInput) (*db.Phase, error) {
	log.Info("create-phase:start", "projectID", in.ProjectID, "name", in.Name)

	if in.AllocatedHours <= 0 {
		return nil, ErrInvalidAllocatedHours
	}
	if err := validateDateRange(in.StartDate, in.DueDate); err != nil {
		return nil, err
	}

	var project db.Project
	if err := s.projectRepo.FindByID(in.ProjectID, &project); err != nil {
		log.Error("create-phase:project-not-found", "err", err)
		return nil, fmt.Errorf("project not found: %w", err)
	}

	siblings, err := s.projectPhases(in.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := checkContractBudget(project, siblings, 0, in.AllocatedHours); err != nil {
		log.Warn("create-phase:budget-exceeded", "projectID", in.ProjectID)
		return nil, err
	}

	now := time.Now()
	phase := &db.Phase{
		ProjectID:        in.ProjectID,
		Name:             in.Name,
		AllocatedHours:   in.AllocatedHours,
		Status:           db.PhaseStatusPending,
		AssignedWorkerID: in.AssignedWorkerID,
		SupervisorID:     in.SupervisorID,
		StartDate:        in.StartDate,
		DueDate:          in.DueDate,
		OrderIndex:       nextOrderIndex(siblings),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.phaseRepo.Create(phase); err != nil {
		log.Error("create-phase:db-insert-failed", "err", err)
		return nil, fmt.Errorf("failed to create phase: %w", err)
	}

	log.Info("create-phase:success", "phaseID", phase.ID)
	return phase, nil
}

func (s *PhaseService) UpdatePhase(id uint, in *UpdatePhaseInput) (*db.Phase, error) {
	log.Info("update-phase:start", "phaseID", id)

	var phase db.Phase
	if err := s.phaseRepo.FindByID(id, &phase); err != nil {
		log.Error("update-phase:not-found", "err", err)
		return nil, fmt.Errorf("phase not found: %w", err)
	}

	if in.Name != nil {
		phase.Name = *in.Name
	}
	if in.AssignedWorkerID != nil {
		phase.AssignedWorkerID = in.AssignedWorkerID
	}
	if in.SupervisorID != nil {
		phase.SupervisorID = in.SupervisorID
	}
	if in.StartDate != nil {
		phase.StartDate = in.StartDate
	}
	if in.DueDate != nil {
		phase.DueDate = in.DueDate
	}
	if err := validateDateRange(phase.StartDate, phase.DueDate); err != nil {
		return nil, err
	}

	if in.Status != nil {
		if err := validateStatusEdit(phase.Status, *in.Status); err != nil {
			return nil, err
		}
		phase.Status = *in.Status
	}

	if in.AllocatedHours != nil {
		if *in.AllocatedHours <= 0 {
			return nil, ErrInvalidAllocatedHours
		}
		var project db.Project
		if err := s.projectRepo.FindByID(phase.ProjectID, &project); err != nil {
			return nil, fmt.Errorf("project not found: %w", err)
		}
		siblings, err := s.projectPhases(phase.ProjectID)
		if err != nil {
			return nil, err
		}
		if err := checkContractBudget(project, siblings, phase.ID, *in.AllocatedHours); err != nil {
			log.Warn("update-phase:budget-exceeded", "phaseID", id)
			return nil, err
		}
		phase.AllocatedHours = *in.AllocatedHours
	}

	phase.UpdatedAt = time.Now()
	if err := s.phaseRepo.Update(&phase); err != nil {
		log.Error("update-phase:db-update-failed", "err", err)
		return nil, fmt.Errorf("failed to update phase: %w", err)
	}

	log.Info("update-phase:success", "phaseID", id)
	return &phase, nil
}

func (s *PhaseService) GetPhase(id uint) (*PhaseWithHours, error) {
	log.Debug("get-phase", "phaseID", id)

	var phase db.Phase
	if err := s.phaseRepo.FindByID(id, &phase); err != nil {
		return nil, fmt.Errorf("phase not found: %w", err)
	}
	return s.withHours(phase)
}

func (s *PhaseService) ListProjectPhases(projectID uint) ([]PhaseWithHours, error) {
	log.Debug("list-project-phases", "projectID", projectID)

	phases, err := s.projectPhases(projectID)
	if err != nil {
		return nil, err
	}
	sort.Slice(phases, func(i, j int) bool {
		return phases[i].OrderIndex < phases[j].OrderIndex
	})

	result := make([]PhaseWithHours, 0, len(phases))
	for _, phase := range phases {
		enriched, err := s.withHours(phase)
		if err != nil {
			return nil, err
		}
		result = append(result, *enriched)
	}
	return result, nil
}

func (s *PhaseService) DeletePhase(id uint) error {
	log.Info("delete-phase:start", "phaseID", id)

	var phase db.Phase
	if err := s.phaseRepo.FindByID(id, &phase); err != nil {
		return fmt.Errorf("phase not found: %w", err)
	}

	sessions, err := s.phaseSessions(id)
	if err != nil {
		return err
	}
	if len(sessions) > 0 {
		log.Warn("delete-phase:blocked", "phaseID", id, "sessions", len(sessions))
		return ErrPhaseHasSessions
	}

	if err := s.phaseRepo.Delete(&phase); err != nil {
		log.Error("delete-phase:db-delete-failed", "err", err)
		return fmt.Errorf("failed to delete phase: %w", err)
	}

	log.Info("delete-phase:success", "phaseID", id)
	return nil
}

/* ------------------------------------------------------------------ */
/*  Ledger: executed hours & completion                               */
/* ------------------------------------------------------------------ */

// ExecutedHours recomputes the phase's executed hours from its closed
// sessions. There is no stored counter to drift.
func (s *PhaseService) ExecutedHours(phaseID uint) (float64, error) {
	sessions, err := s.phaseSessions(phaseID)
	if err != nil {
		return 0, err
	}
	return executedHours(sessions), nil
}

// Complete performs the one-directional completion transition, gated by the
// external manage-phase capability and by the hour budget being met. Returns
// a confirmation message for the caller to display.
func (s *PhaseService) Complete(ctx context.Context, phaseID uint, actorID string) (string, error) {
	log.Info("complete-phase:start", "phaseID", phaseID, "actorID", actorID)

	var phase db.Phase
	if err := s.phaseRepo.FindByID(phaseID, &phase); err != nil {
		return "", fmt.Errorf("phase not found: %w", err)
	}

	// Terminal statuses never transition again: a completed phase cannot be
	// re-completed and a cancelled one cannot be revived into completed.
	if isTerminalStatus(phase.Status) {
		log.Warn("complete-phase:terminal", "phaseID", phaseID, "status", phase.Status)
		return "", fmt.Errorf("%w: phase is already %s", ErrPhaseTerminal, phase.Status)
	}

	allowed, err := s.authz.CanManagePhase(ctx, phaseID, actorID)
	if err != nil {
		log.Error("complete-phase:authz-failed", "err", err)
		return "", fmt.Errorf("authorization check failed: %w", err)
	}
	if !allowed {
		log.Warn("complete-phase:forbidden", "phaseID", phaseID, "actorID", actorID)
		return "", ErrForbidden
	}

	executed, err := s.ExecutedHours(phaseID)
	if err != nil {
		return "", err
	}
	if executed < phase.AllocatedHours {
		log.Warn("complete-phase:hours-not-met",
			"phaseID", phaseID, "executed", executed, "allocated", phase.AllocatedHours)
		return "", fmt.Errorf("%w: %.1f of %.1f hours executed",
			ErrHoursNotMet, executed, phase.AllocatedHours)
	}

	phase.Status = db.PhaseStatusCompleted
	phase.UpdatedAt = time.Now()
	if err := s.phaseRepo.Update(&phase); err != nil {
		log.Error("complete-phase:db-update-failed", "err", err)
		return "", fmt.Errorf("failed to complete phase: %w", err)
	}

	msg := fmt.Sprintf("Phase %q completed with %.1f of %.1f allocated hours",
		phase.Name, executed, phase.AllocatedHours)
	log.Info("complete-phase:success", "phaseID", phaseID)
	return msg, nil
}

/* ------------------------------------------------------------------ */
/*  Variance                                                          */
/* ------------------------------------------------------------------ */

// ComputeVariance prices the phase's hour overrun or underrun against its
// project's contracted hourly rate.
func (s *PhaseService) ComputeVariance(phaseID uint) (*Variance, error) {
	log.Debug("compute-variance", "phaseID", phaseID)

	var phase db.Phase
	if err := s.phaseRepo.FindByID(phaseID, &phase); err != nil {
		return nil, fmt.Errorf("phase not found: %w", err)
	}

	var project db.Project
	if err := s.projectRepo.FindByID(phase.ProjectID, &project); err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}

	executed, err := s.ExecutedHours(phaseID)
	if err != nil {
		return nil, err
	}

	rate := s.calc.HourlyRate(project.ContractedValue, project.ContractedHours)
	variance := s.calc.Variance(phase.Status, phase.AllocatedHours, executed, rate)
	return &variance, nil
}

// PhaseVarianceEntry is one phase's line in a project variance report.
type PhaseVarianceEntry struct {
	PhaseID        uint     `json:"phaseId"`
	PhaseName      string   `json:"phaseName"`
	AllocatedHours float64  `json:"allocatedHours"`
	ExecutedHours  float64  `json:"executedHours"`
	Variance       Variance `json:"variance"`
}

// ProjectVarianceReport rolls phase variances up to a project-level figure.
type ProjectVarianceReport struct {
	ProjectID    uint                 `json:"projectId"`
	HourlyRate   float64              `json:"hourlyRate"`
	TotalLoss    float64              `json:"totalLoss"`
	TotalSavings float64              `json:"totalSavings"`
	NetImpact    float64              `json:"netImpact"` // savings minus losses
	Phases       []PhaseVarianceEntry `json:"phases"`
}

// ProjectVariance computes every phase's variance and the project roll-up.
func (s *PhaseService) ProjectVariance(projectID uint) (*ProjectVarianceReport, error) {
	log.Debug("project-variance", "projectID", projectID)

	var project db.Project
	if err := s.projectRepo.FindByID(projectID, &project); err != nil {
		return nil, fmt.Errorf("project not found: %w", err)
	}

	phases, err := s.projectPhases(projectID)
	if err != nil {
		return nil, err
	}

	rate := s.calc.HourlyRate(project.ContractedValue, project.ContractedHours)
	report := &ProjectVarianceReport{
		ProjectID:  projectID,
		HourlyRate: rate,
		Phases:     make([]PhaseVarianceEntry, 0, len(phases)),
	}

	for _, phase := range phases {
		executed, err := s.ExecutedHours(phase.ID)
		if err != nil {
			return nil, err
		}
		variance := s.calc.Variance(phase.Status, phase.AllocatedHours, executed, rate)
		if variance.Loss != nil {
			report.TotalLoss += variance.Loss.TotalLoss
		}
		if variance.Savings != nil {
			report.TotalSavings += variance.Savings.TotalSavings
		}
		report.Phases = append(report.Phases, PhaseVarianceEntry{
			PhaseID:        phase.ID,
			PhaseName:      phase.Name,
			AllocatedHours: phase.AllocatedHours,
			ExecutedHours:  executed,
			Variance:       variance,
		})
	}
	report.NetImpact = report.TotalSavings - report.TotalLoss

	log.Info("project-variance:success", "projectID", projectID,
		"totalLoss", report.TotalLoss, "totalSavings", report.TotalSavings)
	return report, nil
}

/* ------------------------------------------------------------------ */
/*  Helpers                                                           */
/* ------------------------------------------------------------------ */

func (s *PhaseService) projectPhases(projectID uint) ([]db.Phase, error) {
	var phases []db.Phase
	if err := s.phaseRepo.FindWhere(&phases, "project_id = ?", projectID); err != nil {
		return nil, fmt.Errorf("failed to load project phases: %w", err)
	}
	return phases, nil
}

func (s *PhaseService) phaseSessions(phaseID uint) ([]db.TimeSession, error) {
	var sessions []db.TimeSession
	if err := s.sessionRepo.FindWhere(&sessions, "phase_id = ?", phaseID); err != nil {
		return nil, fmt.Errorf("failed to load phase sessions: %w", err)
	}
	return sessions, nil
}

func (s *PhaseService) withHours(phase db.Phase) (*PhaseWithHours, error) {
	sessions, err := s.phaseSessions(phase.ID)
	if err != nil {
		return nil, err
	}
	return &PhaseWithHours{
		Phase:           phase,
		ExecutedHours:   executedHours(sessions),
		EffectiveStatus: EffectiveStatus(phase.Status, len(sessions) > 0),
	}, nil
}

// executedHours sums closed session durations; open sessions do not count
// until they are stopped.
func executedHours(sessions []db.TimeSession) float64 {
	total := 0
	for _, session := range sessions {
		if session.EndTime == nil {
			continue
		}
		total += session.DurationMinutes
	}
	return float64(total) / 60.0
}

func nextOrderIndex(siblings []db.Phase) int {
	max := 0
	for _, phase := range siblings {
		if phase.OrderIndex > max {
			max = phase.OrderIndex
		}
	}
	return max + 1
}

func isTerminalStatus(status string) bool {
	return status == db.PhaseStatusCompleted || status == db.PhaseStatusCancelled
}

// validateStatusEdit guards plain status edits: completion has its own gated
// transition, terminal phases never change status again (no reopen), and only
// known statuses are accepted.
func validateStatusEdit(stored, next string) error {
	switch next {
	case db.PhaseStatusPending, db.PhaseStatusInProgress, db.PhaseStatusCancelled:
	case db.PhaseStatusCompleted:
		return fmt.Errorf("%w: use the completion action instead", ErrForbidden)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStatus, next)
	}
	if isTerminalStatus(stored) {
		return fmt.Errorf("%w: cannot move a %s phase to %s", ErrPhaseTerminal, stored, next)
	}
	return nil
}

func validateDateRange(start, due *time.Time) error {
	if start != nil && due != nil && start.After(*due) {
		return ErrInvalidDateRange
	}
	return nil
}

// checkContractBudget verifies the project-wide allocation: the sum of every
// other phase's allocated hours plus the new value must fit the contract.
func checkContractBudget(project db.Project, siblings []db.Phase, editedPhaseID uint, newHours float64) error {
	if project.ContractedHours <= 0 {
		return nil
	}
	sum := newHours
	for _, phase := range siblings {
		if phase.ID == editedPhaseID {
			continue
		}
		sum += phase.AllocatedHours
	}
	if sum > project.ContractedHours {
		return fmt.Errorf("%w: %.1f allocated of %.1f contracted",
			ErrHoursExceedContract, sum, project.ContractedHours)
	}
	return nil
}
