// Package router assembles the HTTP API: middleware, route groups and the
// role gates in front of each handler.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"investorportal/internal/handlers"
	"investorportal/internal/middleware"
	"investorportal/internal/services"
)

// Dependencies are the services and settings the router wires into handlers.
type Dependencies struct {
	Positions      services.PositionServicer
	Audit          services.AuditServicer
	Profiles       services.ProfileServicer
	Tokens         *middleware.TokenIssuer
	PipelineAPIKey string
	EnableSwagger  bool
}

// New builds the Gin engine for the portal API.
func New(deps Dependencies) *gin.Engine {
	positionHandler := handlers.NewPositionHandler(deps.Positions)
	auditHandler := handlers.NewAuditHandler(deps.Audit)
	authHandler := handlers.NewAuthHandler(deps.Profiles, deps.Tokens)
	profileHandler := handlers.NewProfileHandler(deps.Profiles)
	pipelineHandler := handlers.NewPipelineHandler(deps.Positions)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	if deps.EnableSwagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Price oracle
	pipeline := v1.Group("/pipeline", middleware.PipelineAuthMiddleware(deps.PipelineAPIKey))
	pipeline.GET("/positions", pipelineHandler.GetPricingTargets)
	pipeline.POST("/prices", pipelineHandler.RecordPrices)

	// Authenticated routes; the role is resolved once per request
	protected := v1.Group("", middleware.AuthMiddleware(deps.Tokens), middleware.ResolveRole(deps.Profiles))
	protected.GET("/profile", profileHandler.GetProfile)

	positions := protected.Group("/positions")
	positions.GET("", positionHandler.ListPositions)
	positions.GET("/summary", positionHandler.GetSummary)
	positions.GET("/:id", positionHandler.GetPosition)

	admin := protected.Group("/admin", middleware.RequireAdmin())
	admin.POST("/positions", positionHandler.CreatePosition)
	admin.PUT("/positions/:id", positionHandler.UpdatePosition)
	admin.POST("/positions/:id/close", positionHandler.ClosePosition)
	admin.POST("/positions/:id/archive", positionHandler.ArchivePosition)
	admin.PUT("/positions/:id/visibility", positionHandler.SetVisibility)
	admin.PUT("/positions/:id/price", positionHandler.UpdateMarketPrice)
	admin.GET("/audit-logs", auditHandler.ListAuditLogs)
	admin.PUT("/profiles/:id/role", profileHandler.SetRole)

	return router
}
