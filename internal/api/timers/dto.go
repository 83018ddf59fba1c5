package timers

import (
	"time"

	"github.com/arqops/studio-tracker/internal/db"
	"github.com/arqops/studio-tracker/internal/services/timers"
)

// Request DTOs

type TimerTargetRequest struct {
	PhaseID   *uint `json:"phaseId"`
	ProjectID *uint `json:"projectId"`
}

func (r TimerTargetRequest) ToTarget() timers.Target {
	return timers.Target{
		PhaseID:   r.PhaseID,
		ProjectID: r.ProjectID,
	}
}

// Response DTOs

type TimeSessionResponse struct {
	ID              uint       `json:"id"`
	WorkerID        string     `json:"workerId"`
	PhaseID         *uint      `json:"phaseId"`
	ProjectID       *uint      `json:"projectId"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime"`
	DurationMinutes int        `json:"durationMinutes"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// ActiveTimerEnvelope lets clients restore timer state after reconnect with a
// single call; Session is nil when nothing is running.
type ActiveTimerEnvelope struct {
	Active  bool                 `json:"active"`
	Session *TimeSessionResponse `json:"session"`
}

// Conversion methods

func TimeSessionToResponse(session *db.TimeSession) TimeSessionResponse {
	return TimeSessionResponse{
		ID:              session.ID,
		WorkerID:        session.WorkerID,
		PhaseID:         session.PhaseID,
		ProjectID:       session.ProjectID,
		StartTime:       session.StartTime,
		EndTime:         session.EndTime,
		DurationMinutes: session.DurationMinutes,
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
	}
}

func TimeSessionsToResponse(sessions []db.TimeSession) []TimeSessionResponse {
	responses := make([]TimeSessionResponse, len(sessions))
	for i, session := range sessions {
		responses[i] = TimeSessionToResponse(&session)
	}
	return responses
}
