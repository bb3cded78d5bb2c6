package api

import (
	"github.com/gin-gonic/gin"
	"github.com/trailmesh/traceflow/internal/api/handler"
	"github.com/trailmesh/traceflow/internal/api/middleware"
	"github.com/trailmesh/traceflow/internal/config"
	"github.com/trailmesh/traceflow/internal/logger"
	"github.com/trailmesh/traceflow/internal/pipeline"
	"github.com/trailmesh/traceflow/internal/repository"
	"github.com/trailmesh/traceflow/internal/storage"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	orchestrator *pipeline.Orchestrator,
	documents *repository.DocumentRepository,
	operations *repository.OperationRepository,
	objects storage.ObjectStorage,
	cfg *config.Config,
	log *logger.Logger,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	documentHandler := handler.NewDocumentHandler(orchestrator, documents, objects)
	operationHandler := handler.NewOperationHandler(operations)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Documents
		v1.POST("/documents", documentHandler.Ingest)
		v1.GET("/documents", documentHandler.List)
		v1.GET("/documents/:id", documentHandler.Get)
		v1.POST("/documents/:id/reprocess", documentHandler.Reprocess)

		// Audit ledger
		v1.GET("/documents/:id/status", operationHandler.Status)
		v1.GET("/documents/:id/operations", operationHandler.ListByDocument)
		v1.GET("/operations", operationHandler.List)
	}

	return r
}
