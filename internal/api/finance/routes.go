package finance

import (
	"github.com/JorgeSaicoski/microservice-commons/middleware"
	"github.com/arqops/studio-tracker/internal/api"
	"github.com/arqops/studio-tracker/internal/services/finance"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all income obligation related routes
func RegisterRoutes(router *gin.RouterGroup, financeService *finance.FinanceService) {
	handler := NewFinanceHandler(financeService)

	financeGroup := router.Group("/finance")
	financeGroup.Use(
		middleware.DefaultLoggingMiddleware(),
		api.AuthMiddleware(),
	)
	{
		// Obligations
		financeGroup.POST("/obligations", handler.CreateObligation)
		financeGroup.PATCH("/obligations/:id/status", handler.UpdateObligationStatus)
		financeGroup.POST("/obligations/sweep-overdue", handler.SweepOverdue)

		// Installment series
		financeGroup.POST("/installments", handler.GenerateInstallments) // Cent-exact split into monthly obligations
		financeGroup.GET("/overview", handler.GetOverview)               // Series regrouped for display
	}
}
