package timers

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arqops/studio-tracker/internal/db"
)

/* ------------------------------------------------------------------ */
/*  In-memory stores                                                  */
/* ------------------------------------------------------------------ */

type memClaimStore struct {
	mu     sync.Mutex
	claims map[string]db.ActiveTimer
}

func newMemClaimStore() *memClaimStore {
	return &memClaimStore{claims: make(map[string]db.ActiveTimer)}
}

func claimKey(workerID, scope string) string { return workerID + "|" + scope }

func (s *memClaimStore) Create(claim *db.ActiveTimer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := claimKey(claim.WorkerID, claim.Scope)
	if _, exists := s.claims[key]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	s.claims[key] = *claim
	return nil
}

func (s *memClaimStore) Delete(claim *db.ActiveTimer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claims, claimKey(claim.WorkerID, claim.Scope))
	return nil
}

func (s *memClaimStore) FindWhere(dest *[]db.ActiveTimer, query string, args ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*dest = nil
	if claim, ok := s.claims[claimKey(args[0].(string), args[1].(string))]; ok {
		*dest = append(*dest, claim)
	}
	return nil
}

func (s *memClaimStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions []db.TimeSession
	nextID   uint
}

func (s *memSessionStore) Create(session *db.TimeSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	session.ID = s.nextID
	s.sessions = append(s.sessions, *session)
	return nil
}

func (s *memSessionStore) Update(session *db.TimeSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.sessions {
		if s.sessions[i].ID == session.ID {
			s.sessions[i] = *session
			return nil
		}
	}
	return errors.New("record not found")
}

func (s *memSessionStore) FindWhere(dest *[]db.TimeSession, query string, args ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*dest = nil
	for _, session := range s.sessions {
		switch {
		case strings.Contains(query, "end_time IS NULL"):
			if session.WorkerID != args[0].(string) || session.EndTime != nil {
				continue
			}
			targetID := args[1].(uint)
			if strings.Contains(query, "phase_id") {
				if session.PhaseID == nil || *session.PhaseID != targetID {
					continue
				}
			} else if session.ProjectID == nil || *session.ProjectID != targetID {
				continue
			}
		case strings.HasPrefix(query, "worker_id"):
			if session.WorkerID != args[0].(string) {
				continue
			}
		case strings.HasPrefix(query, "phase_id"):
			if session.PhaseID == nil || *session.PhaseID != args[0].(uint) {
				continue
			}
		}
		*dest = append(*dest, session)
	}
	return nil
}

func (s *memSessionStore) openCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	open := 0
	for _, session := range s.sessions {
		if session.EndTime == nil {
			open++
		}
	}
	return open
}

type memPhaseStore struct{ status string }

func (s memPhaseStore) FindByID(id uint, dest *db.Phase) error {
	*dest = db.Phase{ID: id, ProjectID: 1, Name: "Concept design", Status: s.status}
	return nil
}

type memProjectStore struct{}

func (memProjectStore) FindByID(id uint, dest *db.Project) error {
	*dest = db.Project{ID: id, Title: "Casa Verde", IsActive: true}
	return nil
}

func newTestTimerService() (*TimerService, *memClaimStore, *memSessionStore) {
	claims := newMemClaimStore()
	sessions := &memSessionStore{}
	service := &TimerService{
		sessionRepo: sessions,
		claimRepo:   claims,
		phaseRepo:   memPhaseStore{status: db.PhaseStatusInProgress},
		projectRepo: memProjectStore{},
	}
	return service, claims, sessions
}

/* ------------------------------------------------------------------ */
/*  Claim recovery & concurrency                                      */
/* ------------------------------------------------------------------ */

func TestStopClearsClaimWithoutOpenSession(t *testing.T) {
	service, claims, _ := newTestTimerService()
	phaseID := uint(7)

	// A claim with no open session behind it, as left by an interrupted start.
	claims.claims[claimKey("worker-1", db.ScopePhase)] = db.ActiveTimer{
		WorkerID: "worker-1", Scope: db.ScopePhase, TargetID: phaseID, StartedAt: time.Now(),
	}

	_, err := service.Stop("worker-1", Target{PhaseID: &phaseID})
	if !errors.Is(err, ErrNoActiveTimer) {
		t.Fatalf("Stop without an open session should report ErrNoActiveTimer, got %v", err)
	}
	if claims.count() != 0 {
		t.Error("stop must clear the leftover claim so the scope recovers")
	}

	// The scope is usable again.
	session, err := service.Start("worker-1", Target{PhaseID: &phaseID})
	if err != nil {
		t.Fatalf("Start after recovery failed: %v", err)
	}
	if session.PhaseID == nil || *session.PhaseID != phaseID {
		t.Errorf("recovered start tracked the wrong target: %+v", session)
	}
}

func TestStartLeavesLeftoverClaimToStop(t *testing.T) {
	service, claims, sessions := newTestTimerService()
	phaseID := uint(7)

	claims.claims[claimKey("worker-1", db.ScopePhase)] = db.ActiveTimer{
		WorkerID: "worker-1", Scope: db.ScopePhase, TargetID: phaseID, StartedAt: time.Now(),
	}

	// Start cannot tell a leftover claim from a concurrent start mid-flight,
	// so it reports the scope as running; Stop is the recovery path.
	if _, err := service.Start("worker-1", Target{PhaseID: &phaseID}); !errors.Is(err, ErrTimerAlreadyRunning) {
		t.Fatalf("Start on a claimed scope should report ErrTimerAlreadyRunning, got %v", err)
	}
	if sessions.openCount() != 0 {
		t.Errorf("open sessions = %d, want 0", sessions.openCount())
	}

	if _, err := service.Stop("worker-1", Target{PhaseID: &phaseID}); !errors.Is(err, ErrNoActiveTimer) {
		t.Fatalf("Stop should report ErrNoActiveTimer, got %v", err)
	}
	if _, err := service.Start("worker-1", Target{PhaseID: &phaseID}); err != nil {
		t.Fatalf("Start after the stop recovery failed: %v", err)
	}
}

func TestStartStillRejectsBackedClaim(t *testing.T) {
	service, _, _ := newTestTimerService()
	phaseID := uint(7)

	if _, err := service.Start("worker-1", Target{PhaseID: &phaseID}); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if _, err := service.Start("worker-1", Target{PhaseID: &phaseID}); !errors.Is(err, ErrTimerAlreadyRunning) {
		t.Fatalf("second start should report ErrTimerAlreadyRunning, got %v", err)
	}
}

func TestConcurrentStartsAdmitOneSession(t *testing.T) {
	service, claims, sessions := newTestTimerService()
	phaseID := uint(7)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = service.Start("worker-1", Target{PhaseID: &phaseID})
		}(i)
	}
	wg.Wait()

	var started, rejected int
	for _, err := range results {
		switch {
		case err == nil:
			started++
		case errors.Is(err, ErrTimerAlreadyRunning):
			rejected++
		default:
			t.Fatalf("unexpected start error: %v", err)
		}
	}
	if started != 1 || rejected != 1 {
		t.Fatalf("got %d starts and %d rejections, want exactly one of each", started, rejected)
	}
	if sessions.openCount() != 1 {
		t.Errorf("open sessions = %d, want 1", sessions.openCount())
	}
	if claims.count() != 1 {
		t.Errorf("claims = %d, want 1", claims.count())
	}
}
