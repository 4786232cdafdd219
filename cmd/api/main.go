package main

import (
	"fmt"
	"os"

	"investorportal/internal/config"
	"investorportal/internal/database"
	"investorportal/internal/logger"
	"investorportal/internal/middleware"
	"investorportal/internal/router"
	"investorportal/internal/services"
	"investorportal/internal/validator"

	"github.com/gin-gonic/gin"

	_ "investorportal/internal/docs" // Import swagger docs
)

// @title           Investor Portal API
// @version         1.0
// @description     Position ledger, portfolio analytics and audit trail for the investor portal.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if appConfig.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() { _ = dbManager.Close() }()

	if err := dbManager.RunMigrations(database.DefaultMigrationsPath); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	db := dbManager.DB()
	auditService := services.NewAuditService(db)
	engine := router.New(router.Dependencies{
		Positions:      services.NewPositionService(db, auditService),
		Audit:          auditService,
		Profiles:       services.NewProfileService(db),
		Tokens:         middleware.NewTokenIssuer(appConfig.JWTSecret, appConfig.JWTExpirationDur),
		PipelineAPIKey: appConfig.PipelineAPIKey,
		EnableSwagger:  appConfig.Env != "production",
	})

	if appConfig.PipelineAPIKey == "" {
		log.Warn("PIPELINE_API_KEY is not set; pipeline endpoints are disabled")
	}

	log.Infof("Starting investor portal API on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return engine.Run(":" + appConfig.Port)
}
