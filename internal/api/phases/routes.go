package phases

import (
	"github.com/JorgeSaicoski/microservice-commons/middleware"
	"github.com/arqops/studio-tracker/internal/api"
	"github.com/arqops/studio-tracker/internal/services/phases"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all phase related routes
func RegisterRoutes(router *gin.RouterGroup, phaseService *phases.PhaseService) {
	handler := NewPhaseHandler(phaseService)

	phasesGroup := router.Group("/phases")
	phasesGroup.Use(
		middleware.DefaultLoggingMiddleware(),
		api.AuthMiddleware(),
	)
	{
		// Phase management
		phasesGroup.POST("", handler.CreatePhase)
		phasesGroup.GET("/:id", handler.GetPhase)
		phasesGroup.PUT("/:id", handler.UpdatePhase)
		phasesGroup.DELETE("/:id", handler.DeletePhase)
		phasesGroup.GET("/project/:projectId", handler.ListProjectPhases)

		// Lifecycle and reconciliation
		phasesGroup.POST("/:id/complete", handler.CompletePhase)   // Gated completion transition
		phasesGroup.GET("/:id/variance", handler.GetPhaseVariance) // Loss/savings against the contract rate
	}
}
