package phases

import (
	"errors"
	"strconv"

	keycloakauth "github.com/JorgeSaicoski/keycloak-auth"
	"github.com/JorgeSaicoski/microservice-commons/responses"
	"github.com/arqops/studio-tracker/internal/services/phases"
	"github.com/gin-gonic/gin"
)

type PhaseHandler struct {
	phaseService *phases.PhaseService
}

func NewPhaseHandler(phaseService *phases.PhaseService) *PhaseHandler {
	return &PhaseHandler{
		phaseService: phaseService,
	}
}

func (h *PhaseHandler) CreatePhase(c *gin.Context) {
	var req CreatePhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	input, err := req.ToInput()
	if err != nil {
		responses.BadRequest(c, "Invalid date format. Use YYYY-MM-DD")
		return
	}

	phase, err := h.phaseService.CreatePhase(input)
	if err != nil {
		if isValidationError(err) {
			responses.BadRequest(c, err.Error())
			return
		}
		responses.InternalError(c, err.Error())
		return
	}

	response := PhaseToResponse(phase)
	responses.Created(c, "Phase created successfully", response)
}

func (h *PhaseHandler) GetPhase(c *gin.Context) {
	id, ok := phaseIDParam(c)
	if !ok {
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	enriched, err := h.phaseService.GetPhase(id)
	if err != nil {
		responses.NotFound(c, err.Error())
		return
	}

	response := EnrichedPhaseToResponse(enriched)
	responses.Success(c, "Phase retrieved successfully", response)
}

func (h *PhaseHandler) UpdatePhase(c *gin.Context) {
	id, ok := phaseIDParam(c)
	if !ok {
		return
	}

	var req UpdatePhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	input, err := req.ToInput()
	if err != nil {
		responses.BadRequest(c, "Invalid date format. Use YYYY-MM-DD")
		return
	}

	phase, err := h.phaseService.UpdatePhase(id, input)
	if err != nil {
		switch {
		case isValidationError(err):
			responses.BadRequest(c, err.Error())
		case errors.Is(err, phases.ErrForbidden):
			responses.Forbidden(c, err.Error())
		case errors.Is(err, phases.ErrPhaseTerminal):
			responses.Conflict(c, err.Error())
		default:
			responses.InternalError(c, err.Error())
		}
		return
	}

	response := PhaseToResponse(phase)
	responses.Success(c, "Phase updated successfully", response)
}

func (h *PhaseHandler) DeletePhase(c *gin.Context) {
	id, ok := phaseIDParam(c)
	if !ok {
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	if err := h.phaseService.DeletePhase(id); err != nil {
		if errors.Is(err, phases.ErrPhaseHasSessions) {
			responses.Conflict(c, err.Error())
			return
		}
		responses.InternalError(c, err.Error())
		return
	}

	responses.Success(c, "Phase deleted successfully", nil)
}

func (h *PhaseHandler) ListProjectPhases(c *gin.Context) {
	projectIDParam := c.Param("projectId")
	projectID, err := strconv.ParseUint(projectIDParam, 10, 32)
	if err != nil {
		responses.BadRequest(c, "Invalid project ID")
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	enriched, err := h.phaseService.ListProjectPhases(uint(projectID))
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	phaseResponses := EnrichedPhasesToResponse(enriched)
	responses.Success(c, "Project phases retrieved successfully", gin.H{
		"phases": phaseResponses,
		"total":  len(phaseResponses),
	})
}

func (h *PhaseHandler) CompletePhase(c *gin.Context) {
	id, ok := phaseIDParam(c)
	if !ok {
		return
	}

	actorID, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	message, err := h.phaseService.Complete(c.Request.Context(), id, actorID)
	if err != nil {
		switch {
		case errors.Is(err, phases.ErrForbidden):
			responses.Forbidden(c, err.Error())
		case errors.Is(err, phases.ErrHoursNotMet), errors.Is(err, phases.ErrPhaseTerminal):
			responses.Conflict(c, err.Error())
		default:
			responses.InternalError(c, err.Error())
		}
		return
	}

	responses.Success(c, message, nil)
}

func (h *PhaseHandler) GetPhaseVariance(c *gin.Context) {
	id, ok := phaseIDParam(c)
	if !ok {
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	variance, err := h.phaseService.ComputeVariance(id)
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	responses.Success(c, "Phase variance computed successfully", variance)
}

// phaseIDParam parses the :id path parameter, writing the error response on
// failure.
func phaseIDParam(c *gin.Context) (uint, bool) {
	idParam := c.Param("id")
	id, err := strconv.ParseUint(idParam, 10, 32)
	if err != nil {
		responses.BadRequest(c, "Invalid phase ID")
		return 0, false
	}
	return uint(id), true
}

func isValidationError(err error) bool {
	return errors.Is(err, phases.ErrInvalidAllocatedHours) ||
		errors.Is(err, phases.ErrInvalidDateRange) ||
		errors.Is(err, phases.ErrHoursExceedContract) ||
		errors.Is(err, phases.ErrUnknownStatus)
}
