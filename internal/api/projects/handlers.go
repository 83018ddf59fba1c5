package projects

import (
	"errors"
	"strconv"

	keycloakauth "github.com/JorgeSaicoski/keycloak-auth"
	"github.com/JorgeSaicoski/microservice-commons/responses"
	phasesService "github.com/arqops/studio-tracker/internal/services/phases"
	"github.com/arqops/studio-tracker/internal/services/projects"
	"github.com/gin-gonic/gin"
)

type ProjectHandler struct {
	projectService *projects.ProjectService
	phaseService   *phasesService.PhaseService
}

func NewProjectHandler(
	projectService *projects.ProjectService,
	phaseService *phasesService.PhaseService,
) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		phaseService:   phaseService,
	}
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	project, err := h.projectService.CreateProject(req.ToInput())
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	response := ProjectToResponse(project)
	responses.Created(c, "Project created successfully", response)
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := projectIDParam(c)
	if !ok {
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	project, err := h.projectService.GetProject(id)
	if err != nil {
		responses.NotFound(c, err.Error())
		return
	}

	response := ProjectToResponse(project)
	responses.Success(c, "Project retrieved successfully", response)
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, ok := projectIDParam(c)
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.BadRequest(c, err.Error())
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	project, err := h.projectService.UpdateProject(id, req.ToProject())
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	response := ProjectToResponse(project)
	responses.Success(c, "Project updated successfully", response)
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := projectIDParam(c)
	if !ok {
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	if err := h.projectService.DeleteProject(id); err != nil {
		if errors.Is(err, projects.ErrProjectHasOpenSessions) {
			responses.Conflict(c, err.Error())
			return
		}
		responses.InternalError(c, err.Error())
		return
	}

	responses.Success(c, "Project deleted successfully", nil)
}

func (h *ProjectHandler) ListProjects(c *gin.Context) {
	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	projectList, err := h.projectService.ListProjects()
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	projectResponses := ProjectsToResponse(projectList)
	responses.Success(c, "Projects retrieved successfully", gin.H{
		"projects": projectResponses,
		"total":    len(projectResponses),
	})
}

func (h *ProjectHandler) GetProjectSummary(c *gin.Context) {
	id, ok := projectIDParam(c)
	if !ok {
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	summary, err := h.projectService.Summary(id)
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	responses.Success(c, "Project summary generated successfully", summary)
}

func (h *ProjectHandler) GetProjectVariance(c *gin.Context) {
	id, ok := projectIDParam(c)
	if !ok {
		return
	}

	_, exists := keycloakauth.GetUserID(c)
	if !exists {
		responses.Unauthorized(c, "User not authenticated")
		return
	}

	report, err := h.phaseService.ProjectVariance(id)
	if err != nil {
		responses.InternalError(c, err.Error())
		return
	}

	responses.Success(c, "Project variance computed successfully", report)
}

func projectIDParam(c *gin.Context) (uint, bool) {
	idParam := c.Param("id")
	id, err := strconv.ParseUint(idParam, 10, 32)
	if err != nil {
		responses.BadRequest(c, "Invalid project ID")
		return 0, false
	}
	return uint(id), true
}
