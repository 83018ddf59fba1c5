package timers

import (
	"github.com/JorgeSaicoski/microservice-commons/middleware"
	"github.com/arqops/studio-tracker/internal/api"
	"github.com/arqops/studio-tracker/internal/services/timers"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all timer related routes
func RegisterRoutes(router *gin.RouterGroup, timerService *timers.TimerService) {
	handler := NewTimerHandler(timerService)

	timersGroup := router.Group("/timers")
	timersGroup.Use(
		middleware.DefaultLoggingMiddleware(),
		api.AuthMiddleware(),
	)
	{
		// Timer lifecycle
		timersGroup.POST("/start", handler.StartTimer)     // Start a timer against a phase or project
		timersGroup.POST("/stop", handler.StopTimer)       // Stop the running timer
		timersGroup.GET("/active", handler.GetActiveTimer) // Restore running timer state

		// History and listings
		timersGroup.GET("/history", handler.GetWorkerHistory)        // Worker's session history
		timersGroup.GET("/phase/:phaseId", handler.GetPhaseSessions) // Sessions recorded against a phase
	}
}
