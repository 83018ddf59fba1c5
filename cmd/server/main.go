package main

import (
	"strconv"

	"github.com/JorgeSaicoski/microservice-commons/config"
	"github.com/JorgeSaicoski/microservice-commons/database"
	"github.com/JorgeSaicoski/microservice-commons/server"
	"github.com/JorgeSaicoski/microservice-commons/utils"
	financeAPI "github.com/arqops/studio-tracker/internal/api/finance"
	phasesAPI "github.com/arqops/studio-tracker/internal/api/phases"
	projectsAPI "github.com/arqops/studio-tracker/internal/api/projects"
	timersAPI "github.com/arqops/studio-tracker/internal/api/timers"
	clients "github.com/arqops/studio-tracker/internal/client"
	"github.com/arqops/studio-tracker/internal/db"
	financeService "github.com/arqops/studio-tracker/internal/services/finance"
	phasesService "github.com/arqops/studio-tracker/internal/services/phases"
	projectsService "github.com/arqops/studio-tracker/internal/services/projects"
	timersService "github.com/arqops/studio-tracker/internal/services/timers"
	"github.com/gin-gonic/gin"
)

// fallbackHourlyRate prices variances when a project has no contracted hours.
const fallbackHourlyRate = 150.0

func main() {
	server := server.NewServer(server.ServerOptions{
		ServiceName:    "studio-tracker",
		ServiceVersion: "1.0.0",
		SetupRoutes:    setupRoutes,
	})
	server.Start()
}

func setupRoutes(router *gin.Engine, cfg *config.Config) {
	// Connect to database using microservice-commons
	dbConnection, err := database.ConnectWithConfig(cfg.DatabaseConfig)
	if err != nil {
		panic("Failed to connect to database: " + err.Error())
	}

	authzURL := utils.GetEnv("PHASE_AUTHZ_URL", "http://localhost:8000/api/internal")
	authzClient := clients.NewPhaseAuthorizerHTTPClient(authzURL)

	defaultRate := fallbackHourlyRate
	if raw := utils.GetEnv("DEFAULT_HOURLY_RATE", ""); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			defaultRate = parsed
		}
	}

	// Auto-migrate models
	if err := database.QuickMigrate(dbConnection,
		&db.Project{},
		&db.Phase{},
		&db.TimeSession{},
		&db.ActiveTimer{},
		&db.IncomeObligation{},
	); err != nil {
		panic("Failed to migrate database: " + err.Error())
	}

	// Initialize services
	calculator := phasesService.NewCalculator(defaultRate)
	projectService := projectsService.NewProjectService(dbConnection)
	phaseService := phasesService.NewPhaseService(dbConnection, authzClient, calculator)
	timerService := timersService.NewTimerService(dbConnection)
	finService := financeService.NewFinanceService(dbConnection)

	// Setup routes
	api := router.Group("/api")
	projectsAPI.RegisterRoutes(api, projectService, phaseService)
	phasesAPI.RegisterRoutes(api, phaseService)
	timersAPI.RegisterRoutes(api, timerService)
	financeAPI.RegisterRoutes(api, finService)

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "studio-tracker",
			"version": "1.0.0",
		})
	})
}
