package router

import (
	"github.com/gin-gonic/gin"

	"scoreparse/internal/handler"
	"scoreparse/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	validator middleware.TokenValidator,
	corsOrigins []string,
	parseH *handler.ParseHandler,
	recordsH *handler.RecordsHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Protected routes - require valid JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(validator))

	parse := protected.Group("/parse")
	parse.POST("/preview", parseH.Preview)
	parse.GET("/sessions/:id", parseH.GetSession)
	parse.POST("/sessions/:id/confirm", parseH.Confirm)
	parse.GET("/sessions/:id/records", parseH.Records)

	records := protected.Group("/records")
	records.POST("/enrich", recordsH.Enrich)
	records.POST("/export", recordsH.Export)

	return r
}
