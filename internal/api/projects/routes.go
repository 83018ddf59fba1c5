package projects

import (
	"github.com/JorgeSaicoski/microservice-commons/middleware"
	"github.com/arqops/studio-tracker/internal/api"
	phasesService "github.com/arqops/studio-tracker/internal/services/phases"
	"github.com/arqops/studio-tracker/internal/services/projects"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all project related routes
func RegisterRoutes(
	router *gin.RouterGroup,
	projectService *projects.ProjectService,
	phaseService *phasesService.PhaseService,
) {
	handler := NewProjectHandler(projectService, phaseService)

	projectsGroup := router.Group("/projects")
	projectsGroup.Use(
		middleware.DefaultLoggingMiddleware(),
		api.AuthMiddleware(),
	)
	{
		// Project management
		projectsGroup.POST("", handler.CreateProject)
		projectsGroup.GET("", handler.ListProjects)
		projectsGroup.GET("/:id", handler.GetProject)
		projectsGroup.PUT("/:id", handler.UpdateProject)
		projectsGroup.DELETE("/:id", handler.DeleteProject)

		// Derived figures
		projectsGroup.GET("/:id/summary", handler.GetProjectSummary)   // Executed hours recomputed from sessions
		projectsGroup.GET("/:id/variance", handler.GetProjectVariance) // Phase loss/savings roll-up
	}
}
