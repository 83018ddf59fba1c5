package timers

import (
	"errors"
	"strconv"
	"time"

	keycloakauth "github.com/JorgeSaicoski/keycloak-auth"
	"github.com/JorgeSaicoski/microservice-commons/responses"
	"github.com/arqops/studio-tracker/internal/services/timers"
	"github.com/gin-gonic/gin"
)

type TimerHandler struct {
	timerService *timers.TimerService
}

func NewTimerHandler(timerService *timers.TimerService) *TimerHandler {
	return &TimerHandler{
		timerService: timerService,
	}
}

func (h *TimerHandler) StartTimer(c *gin.Context) {
	var req TimerTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	workerID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	session, err := h.timerService.Start(workerID, req.ToTarget())
	if err != nil {
		switch {
		case errors.Is(err, timers.ErrTimerAlreadyRunning):
			responses.Conflict(c, err.Error())
		case errors.Is(err, timers.ErrInvalidTarget), errors.Is(err, timers.ErrTargetNotTrackable):
			responses.BadRequest(c, err.Error())
		default:
			responses.InternalError(c, err.Error())
		}
		return
	}

	response := TimeSessionToResponse(session)
	responses.Created(c, "Timer started successfully", response)
}

func (h *TimerHandler) StopTimer(c *gin.Context) {
	var req TimerTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	workerID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	session, err := h.timerService.Stop(workerID, req.ToTarget())
	if err != nil {
		switch {
		case errors.Is(err, timers.ErrNoActiveTimer):
			responses.NotFound(c, err.Error())
		case errors.Is(err, timers.ErrInvalidTarget):
			responses.BadRequest(c, err.Error())
		default:
			responses.InternalError(c, err.Error())
		}
		return
	}

	response := TimeSessionToResponse(session)
	responses.Success(c, "Timer stopped successfully", response)
}

func (h *TimerHandler) GetActiveTimer(c *gin.Context) {
	workerID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	target, ok := targetFromQuery(c)
	if !ok {
		responses.BadRequest(c, "Provide exactly one of phaseId or projectId")
		return
	}

	session, err := h.timerService.ActiveSession(workerID, target)
	if err != nil {
		if errors.Is(err, timers.ErrInvalidTarget) {
			responses.BadRequest(c, err.Error())
			return
		}
		responses.InternalError(c, "failed to get active timer")
		return
	}

	// No open session still answers 200 with {active:false, session:null}
	if session == nil {
		responses.Success(c, "ok", ActiveTimerEnvelope{
			Active:  false,
			Session: nil,
		})
		return
	}

	resp := TimeSessionToResponse(session)
	responses.Success(c, "ok", ActiveTimerEnvelope{
		Active:  true,
		Session: &resp,
	})
}

func (h *TimerHandler) GetWorkerHistory(c *gin.Context) {
	workerID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	// Parse optional date filters
	var startDate, endDate *time.Time

	if startDateStr := c.Query("startDate"); startDateStr != "" {
		if parsed, err := time.Parse("2006-01-02", startDateStr); err == nil {
			startDate = &parsed
		}
	}

	if endDateStr := c.Query("endDate"); endDateStr != "" {
		if parsed, err := time.Parse("2006-01-02", endDateStr); err == nil {
			endDate = &parsed
		}
	}

	sessions, err := h.timerService.WorkerHistory(workerID, startDate, endDate)
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	sessionResponses := TimeSessionsToResponse(sessions)
	responses.Success(c, "Session history retrieved successfully", gin.H{
		"sessions": sessionResponses,
		"total":    len(sessionResponses),
	})
}

func (h *TimerHandler) GetPhaseSessions(c *gin.Context) {
	phaseIDParam := c.Param("phaseId")
	phaseID, err := strconv.ParseUint(phaseIDParam, 10, 32)
	if err != nil {
		responses.BadRequest(c, "Invalid phase ID")
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	sessions, err := h.timerService.PhaseSessions(uint(phaseID))
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	sessionResponses := TimeSessionsToResponse(sessions)
	responses.Success(c, "Phase sessions retrieved successfully", gin.H{
		"sessions": sessionResponses,
		"total":    len(sessionResponses),
	})
}

// targetFromQuery builds a tracking target from phaseId/projectId query
// params; ok is false when neither is present or parseable.
func targetFromQuery(c *gin.Context) (timers.Target, bool) {
	var target timers.Target

	if phaseIDStr := c.Query("phaseId"); phaseIDStr != "" {
		id, err := strconv.ParseUint(phaseIDStr, 10, 32)
		if err != nil {
			return target, false
		}
		phaseID := uint(id)
		target.PhaseID = &phaseID
	}
	if projectIDStr := c.Query("projectId"); projectIDStr != "" {
		id, err := strconv.ParseUint(projectIDStr, 10, 32)
		if err != nil {
			return target, false
		}
		projectID := uint(id)
		target.ProjectID = &projectID
	}

	if (target.PhaseID == nil) == (target.ProjectID == nil) {
		return target, false
	}
	return target, true
}
