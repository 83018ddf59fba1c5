package timers

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
	slog.String("service", "TimerService"),
)

/* ------------------------------------------------------------------ */
/*  Errors                                                            */
/* ------------------------------------------------------------------ */

var (
	ErrTimerAlreadyRunning = errors.New("worker already has a running timer for this tracking scope - stop it first")
	ErrNoActiveTimer       = errors.New("no running timer found for this tracking scope")
	ErrInvalidTarget       = errors.New("timer target must reference exactly one phase or one project")
	ErrTargetNotTrackable  = errors.New("cannot track time against a completed or cancelled phase")
)

/* ------------------------------------------------------------------ */
/*  Target (phase-or-project tracking scope)                          */
/* ------------------------------------------------------------------ */

// Target identifies what a timer accrues against. Exactly one of PhaseID or
// ProjectID must be set; which one determines the tracking scope, and the
// one-open-timer rule is enforced per (worker, scope).
type Target struct {
	PhaseID   *uint
	ProjectID *uint
}

// Resolve returns the scope name and target id, or ErrInvalidTarget.
func (t Target) Resolve() (string, uint, error) {
	switch {
	case t.PhaseID != nil && t.ProjectID == nil:
		return db.ScopePhase, *t.PhaseID, nil
	case t.ProjectID != nil && t.PhaseID == nil:
		return db.ScopeProject, *t.ProjectID, nil
	default:
		return "", 0, ErrInvalidTarget
	}
}

/* ------------------------------------------------------------------ */
/*  Storage interfaces                                                */
/* ------------------------------------------------------------------ */

// The service talks to storage through these narrow interfaces so tests can
// substitute in-memory stores; production wires pgconnect repositories.

type sessionStore interface {
	Create(session *db.TimeSession) error
	Update(session *db.TimeSession) error
	FindWhere(dest *[]db.TimeSession, query string, args ...interface{}) error
}

type claimStore interface {
	Create(claim *db.ActiveTimer) error
	Delete(claim *db.ActiveTimer) error
	FindWhere(dest *[]db.ActiveTimer, query string, args ...interface{}) error
}

type phaseStore interface {
	FindByID(id uint, dest *db.Phase) error
}

type projectStore interface {
	FindByID(id uint, dest *db.Project) error
}

type pgSessionStore struct{ repo *pgconnect.Repository[db.TimeSession] }

func (s pgSessionStore) Create(session *db.TimeSession) error { return s.repo.Create(session) }
func (s pgSessionStore) Update(session *db.TimeSession) error { return s.repo.Update(session) }
func (s pgSessionStore) FindWhere(dest *[]db.TimeSession, query string, args ...interface{}) error {
	return s.repo.FindWhere(dest, query, args...)
}

type pgClaimStore struct{ repo *pgconnect.Repository[db.ActiveTimer] }

func (s pgClaimStore) Create(claim *db.ActiveTimer) error { return s.repo.Create(claim) }
func (s pgClaimStore) Delete(claim *db.ActiveTimer) error { return s.repo.Delete(claim) }
func (s pgClaimStore) FindWhere(dest *[]db.ActiveTimer, query string, args ...interface{}) error {
	return s.repo.FindWhere(dest, query, args...)
}

type pgPhaseStore struct{ repo *pgconnect.Repository[db.Phase] }

func (s pgPhaseStore) FindByID(id uint, dest *db.Phase) error { return s.repo.FindByID(id, dest) }

type pgProjectStore struct{ repo *pgconnect.Repository[db.Project] }

func (s pgProjectStore) FindByID(id uint, dest *db.Project) error { return s.repo.FindByID(id, dest) }

/* ------------------------------------------------------------------ */
/*  Service definition & constructor                                  */
/* ------------------------------------------------------------------ */

type TimerService struct {
	sessionRepo sessionStore
	claimRepo   claimStore
	phaseRepo   phaseStore
	projectRepo projectStore
}

func NewTimerService(database *pgconnect.DB) *TimerService {
	return &TimerService{
		sessionRepo: pgSessionStore{repo: pgconnect.NewRepository[db.TimeSession](database)},
		claimRepo:   pgClaimStore{repo: pgconnect.NewRepository[db.ActiveTimer](database)},
		phaseRepo:   pgPhaseStore{repo: pgconnect.NewRepository[db.Phase](database)},
		projectRepo: pgProjectStore{repo: pgconnect.NewRepository[db.Project](database)},
	}
}

/* ------------------------------------------------------------------ */
/*  Start / Stop / Active                                             */
/* ------------------------------------------------------------------ */

// Start opens a new time session for the worker against the target. The
// ActiveTimer claim row is inserted before the session row: its composite
// primary key (worker, scope) turns two concurrent starts into exactly one
// winner, the loser gets ErrTimerAlreadyRunning. Start never clears a claim
// itself: a claim without a session may be another start mid-flight, so
// recovery from leftover claims belongs to Stop.
func (s *TimerService) Start(workerID string, target Target) (*db.TimeSession, error) {
	scope, targetID, err := target.Resolve()
	if err != nil {
		return nil, err
	}
	log.Info("timer-start:begin", "workerID", workerID, "scope", scope, "targetID", targetID)

	if err := s.validateTarget(scope, targetID); err != nil {
		return nil, err
	}

	// Friendly pre-check; the insert below is what actually decides races.
	if running, err := s.hasClaim(workerID, scope); err != nil {
		return nil, fmt.Errorf("failed to check running timer: %w", err)
	} else if running {
		return nil, ErrTimerAlreadyRunning
	}

	now := time.Now()
	claim := &db.ActiveTimer{
		WorkerID:  workerID,
		Scope:     scope,
		TargetID:  targetID,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := s.claimRepo.Create(claim); err != nil {
		// A concurrent start may have claimed the scope between the check
		// and the insert; the primary-key conflict is that exact signal.
		if running, checkErr := s.hasClaim(workerID, scope); checkErr == nil && running {
			log.Warn("timer-start:lost-race", "workerID", workerID, "scope", scope)
			return nil, ErrTimerAlreadyRunning
		}
		log.Error("timer-start:claim-insert-failed", "err", err)
		return nil, fmt.Errorf("failed to claim timer slot: %w", err)
	}

	session := &db.TimeSession{
		WorkerID:  workerID,
		StartTime: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if scope == db.ScopePhase {
		session.PhaseID = &targetID
	} else {
		session.ProjectID = &targetID
	}

	if err := s.sessionRepo.Create(session); err != nil {
		// Compensate the claim so the scope is not left locked.
		if delErr := s.claimRepo.Delete(claim); delErr != nil {
			log.Error("timer-start:claim-compensation-failed", "err", delErr)
		}
		log.Error("timer-start:session-insert-failed", "err", err)
		return nil, fmt.Errorf("failed to create time session: %w", err)
	}

	log.Info("timer-start:success", "sessionID", session.ID)
	return session, nil
}

// Stop closes the worker's open session for the target. The open row is
// looked up from persisted state only (end_time IS NULL), so a stop issued
// after a process restart still finds it. Closed sessions are immutable.
func (s *TimerService) Stop(workerID string, target Target) (*db.TimeSession, error) {
	scope, targetID, err := target.Resolve()
	if err != nil {
		return nil, err
	}
	log.Info("timer-stop:begin", "workerID", workerID, "scope", scope, "targetID", targetID)

	session, err := s.openSession(workerID, scope, targetID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		// Any claim left without an open session behind it is stale; clear it
		// so the scope recovers instead of rejecting both start and stop.
		s.releaseClaim(workerID, scope)
		return nil, ErrNoActiveTimer
	}

	now := time.Now()
	session.EndTime = &now
	session.DurationMinutes = SessionDuration(session.StartTime, now)
	session.UpdatedAt = now

	if err := s.sessionRepo.Update(session); err != nil {
		log.Error("timer-stop:session-update-failed", "err", err)
		return nil, fmt.Errorf("failed to close time session: %w", err)
	}

	s.releaseClaim(workerID, scope)

	log.Info("timer-stop:success", "sessionID", session.ID, "durationMinutes", session.DurationMinutes)
	return session, nil
}

// ActiveSession returns the worker's open session for the target, or nil when
// none exists. Recomputed from end_time IS NULL rows, never from a cache.
func (s *TimerService) ActiveSession(workerID string, target Target) (*db.TimeSession, error) {
	scope, targetID, err := target.Resolve()
	if err != nil {
		return nil, err
	}
	return s.openSession(workerID, scope, targetID)
}

/* ------------------------------------------------------------------ */
/*  History & listings                                                */
/* ------------------------------------------------------------------ */

// WorkerHistory returns the worker's sessions, optionally bounded by start date.
func (s *TimerService) WorkerHistory(workerID string, startDate, endDate *time.Time) ([]db.TimeSession, error) {
	query := "worker_id = ?"
	args := []interface{}{workerID}

	if startDate != nil {
		query += " AND start_time >= ?"
		args = append(args, *startDate)
	}
	if endDate != nil {
		query += " AND start_time <= ?"
		args = append(args, *endDate)
	}

	var sessions []db.TimeSession
	if err := s.sessionRepo.FindWhere(&sessions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to retrieve session history: %w", err)
	}
	return sessions, nil
}

// PhaseSessions returns every session recorded against a phase.
func (s *TimerService) PhaseSessions(phaseID uint) ([]db.TimeSession, error) {
	var sessions []db.TimeSession
	if err := s.sessionRepo.FindWhere(&sessions, "phase_id = ?", phaseID); err != nil {
		return nil, fmt.Errorf("failed to retrieve phase sessions: %w", err)
	}
	return sessions, nil
}

/* ------------------------------------------------------------------ */
/*  Helpers                                                           */
/* ------------------------------------------------------------------ */

// SessionDuration converts an interval to persisted whole minutes, rounding
// down. A 119 second session is 1 minute; live displays stay seconds-granular
// but what is stored is the floor.
func SessionDuration(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

func (s *TimerService) validateTarget(scope string, targetID uint) error {
	if scope == db.ScopePhase {
		var phase db.Phase
		if err := s.phaseRepo.FindByID(targetID, &phase); err != nil {
			return fmt.Errorf("phase not found: %w", err)
		}
		if phase.Status == db.PhaseStatusCompleted || phase.Status == db.PhaseStatusCancelled {
			return ErrTargetNotTrackable
		}
		return nil
	}
	var project db.Project
	if err := s.projectRepo.FindByID(targetID, &project); err != nil {
		return fmt.Errorf("project not found: %w", err)
	}
	return nil
}

func (s *TimerService) claimsFor(workerID, scope string) ([]db.ActiveTimer, error) {
	var claims []db.ActiveTimer
	if err := s.claimRepo.FindWhere(&claims, "worker_id = ? AND scope = ?", workerID, scope); err != nil {
		return nil, fmt.Errorf("query timer claim: %w", err)
	}
	return claims, nil
}

func (s *TimerService) hasClaim(workerID, scope string) (bool, error) {
	claims, err := s.claimsFor(workerID, scope)
	if err != nil {
		return false, err
	}
	return len(claims) > 0, nil
}

func (s *TimerService) openSession(workerID, scope string, targetID uint) (*db.TimeSession, error) {
	query := "worker_id = ? AND end_time IS NULL AND "
	if scope == db.ScopePhase {
		query += "phase_id = ?"
	} else {
		query += "project_id = ?"
	}

	var sessions []db.TimeSession
	if err := s.sessionRepo.FindWhere(&sessions, query, workerID, targetID); err != nil {
		return nil, fmt.Errorf("query open session: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	session := sessions[0]
	return &session, nil
}

func (s *TimerService) releaseClaim(workerID, scope string) {
	claims, err := s.claimsFor(workerID, scope)
	if err != nil {
		log.Warn("timer-stop:claim-lookup-failed", "err", err)
		return
	}
	for i := range claims {
		if err := s.claimRepo.Delete(&claims[i]); err != nil {
			log.Warn("timer-stop:claim-release-failed", "err", err)
		}
	}
}
