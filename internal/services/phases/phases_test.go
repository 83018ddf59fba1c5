package phases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arqops/studio-tracker/internal/db"
)

/* ------------------------------------------------------------------ */
/*  In-memory stores                                                  */
/* ------------------------------------------------------------------ */

type memPhaseStore struct {
	phases map[uint]db.Phase
	nextID uint
}

func newMemPhaseStore(phases ...db.Phase) *memPhaseStore {
	store := &memPhaseStore{phases: make(map[uint]db.Phase)}
	for _, phase := range phases {
		store.phases[phase.ID] = phase
		if phase.ID > store.nextID {
			store.nextID = phase.ID
		}
	}
	return store
}

func (s *memPhaseStore) Create(phase *db.Phase) error {
	s.nextID++
	phase.ID = s.nextID
	s.phases[phase.ID] = *phase
	return nil
}

func (s *memPhaseStore) Update(phase *db.Phase) error {
	if _, ok := s.phases[phase.ID]; !ok {
		return errors.New("record not found")
	}
	s.phases[phase.ID] = *phase
	return nil
}

func (s *memPhaseStore) Delete(phase *db.Phase) error {
	delete(s.phases, phase.ID)
	return nil
}

func (s *memPhaseStore) FindByID(id uint, dest *db.Phase) error {
	phase, ok := s.phases[id]
	if !ok {
		return errors.New("record not found")
	}
	*dest = phase
	return nil
}

func (s *memPhaseStore) FindWhere(dest *[]db.Phase, query string, args ...interface{}) error {
	*dest = nil
	for _, phase := range s.phases {
		if phase.ProjectID == args[0].(uint) {
			*dest = append(*dest, phase)
		}
	}
	return nil
}

type memProjectStore struct{ project db.Project }

func (s memProjectStore) FindByID(id uint, dest *db.Project) error {
	*dest = s.project
	return nil
}

type memSessionStore struct{ sessions []db.TimeSession }

func (s memSessionStore) FindWhere(dest *[]db.TimeSession, query string, args ...interface{}) error {
	*dest = nil
	for _, session := range s.sessions {
		if session.PhaseID != nil && *session.PhaseID == args[0].(uint) {
			*dest = append(*dest, session)
		}
	}
	return nil
}

type grantAllAuthorizer struct{}

func (grantAllAuthorizer) CanManagePhase(ctx context.Context, phaseID uint, actorID string) (bool, error) {
	return true, nil
}

func newTestPhaseService(store *memPhaseStore, sessions []db.TimeSession) *PhaseService {
	return &PhaseService{
		phaseRepo:   store,
		projectRepo: memProjectStore{project: db.Project{ID: 1, Title: "Casa Verde", ContractedValue: 15000, ContractedHours: 100}},
		sessionRepo: memSessionStore{sessions: sessions},
		authz:       grantAllAuthorizer{},
		calc:        NewCalculator(150),
	}
}

func closedSessions(phaseID uint, minutes ...int) []db.TimeSession {
	end := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	sessions := make([]db.TimeSession, len(minutes))
	for i, m := range minutes {
		sessions[i] = db.TimeSession{ID: uint(i + 1), WorkerID: "worker-1",
			PhaseID: &phaseID, DurationMinutes: m, EndTime: &end}
	}
	return sessions
}

/* ------------------------------------------------------------------ */
/*  Status transitions                                                */
/* ------------------------------------------------------------------ */

func TestValidateStatusEdit(t *testing.T) {
	cases := []struct {
		name    string
		stored  string
		next    string
		wantErr error
	}{
		{"pending to in_progress", db.PhaseStatusPending, db.PhaseStatusInProgress, nil},
		{"in_progress back to pending", db.PhaseStatusInProgress, db.PhaseStatusPending, nil},
		{"pending to cancelled", db.PhaseStatusPending, db.PhaseStatusCancelled, nil},
		{"completed via edit rejected", db.PhaseStatusInProgress, db.PhaseStatusCompleted, ErrForbidden},
		{"completed phase cannot reopen", db.PhaseStatusCompleted, db.PhaseStatusPending, ErrPhaseTerminal},
		{"cancelled phase cannot restart", db.PhaseStatusCancelled, db.PhaseStatusInProgress, ErrPhaseTerminal},
		{"cancelled phase cannot re-cancel", db.PhaseStatusCancelled, db.PhaseStatusCancelled, ErrPhaseTerminal},
		{"unknown status rejected", db.PhaseStatusPending, "archived", ErrUnknownStatus},
		{"empty status rejected", db.PhaseStatusPending, "", ErrUnknownStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateStatusEdit(tc.stored, tc.next)
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("validateStatusEdit(%q, %q) = %v, want nil", tc.stored, tc.next, err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("validateStatusEdit(%q, %q) = %v, want %v", tc.stored, tc.next, err, tc.wantErr)
			}
		})
	}
}

func TestUpdatePhaseRejectsReopen(t *testing.T) {
	store := newMemPhaseStore(db.Phase{
		ID: 5, ProjectID: 1, Name: "Concept design",
		AllocatedHours: 10, Status: db.PhaseStatusCompleted,
	})
	service := newTestPhaseService(store, nil)

	status := db.PhaseStatusPending
	_, err := service.UpdatePhase(5, &UpdatePhaseInput{Status: &status})
	if !errors.Is(err, ErrPhaseTerminal) {
		t.Fatalf("reopening a completed phase should fail with ErrPhaseTerminal, got %v", err)
	}
	if store.phases[5].Status != db.PhaseStatusCompleted {
		t.Errorf("stored status changed to %q, completion must be permanent", store.phases[5].Status)
	}
}

func TestCompleteRefusesTerminalPhases(t *testing.T) {
	for _, status := range []string{db.PhaseStatusCompleted, db.PhaseStatusCancelled} {
		store := newMemPhaseStore(db.Phase{
			ID: 5, ProjectID: 1, Name: "Concept design",
			AllocatedHours: 2, Status: status,
		})
		// Enough executed hours and a permissive authorizer: the terminal
		// status alone must block the transition.
		service := newTestPhaseService(store, closedSessions(5, 120))

		_, err := service.Complete(context.Background(), 5, "supervisor-1")
		if !errors.Is(err, ErrPhaseTerminal) {
			t.Errorf("Complete on a %s phase = %v, want ErrPhaseTerminal", status, err)
		}
		if store.phases[5].Status != status {
			t.Errorf("Complete on a %s phase mutated the status to %q", status, store.phases[5].Status)
		}
	}
}

func TestCompleteTransitionsWhenBudgetMet(t *testing.T) {
	store := newMemPhaseStore(db.Phase{
		ID: 5, ProjectID: 1, Name: "Concept design",
		AllocatedHours: 2, Status: db.PhaseStatusInProgress,
	})
	service := newTestPhaseService(store, closedSessions(5, 60, 60))

	message, err := service.Complete(context.Background(), 5, "supervisor-1")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if message == "" {
		t.Error("Complete should return a confirmation message")
	}
	if store.phases[5].Status != db.PhaseStatusCompleted {
		t.Errorf("stored status = %q, want completed", store.phases[5].Status)
	}
}

func TestCompleteStillGatesOnExecutedHours(t *testing.T) {
	store := newMemPhaseStore(db.Phase{
		ID: 5, ProjectID: 1, Name: "Concept design",
		AllocatedHours: 2, Status: db.PhaseStatusInProgress,
	})
	service := newTestPhaseService(store, closedSessions(5, 60))

	if _, err := service.Complete(context.Background(), 5, "supervisor-1"); !errors.Is(err, ErrHoursNotMet) {
		t.Fatalf("Complete with 1 of 2 hours should fail with ErrHoursNotMet, got %v", err)
	}
}
