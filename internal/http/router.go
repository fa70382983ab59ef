// Package http assembles the gin.Engine: route table plus the ambient
// middleware every request passes through.
package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/Lenniott/FITTNESS-BUILDER/internal/http/handlers"
	httpMW "github.com/Lenniott/FITTNESS-BUILDER/internal/http/middleware"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/observability"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	HealthHandler   *httpH.HealthHandler
	IngestHandler   *httpH.IngestionHandler
	JobHandler      *httpH.JobHandler
	ExerciseHandler *httpH.ExerciseHandler
	RoutineHandler  *httpH.RoutineHandler
	SearchHandler   *httpH.SearchHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("fittness-builder"))
	r.Use(httpMW.AttachRequestContext())
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	r.GET("/metrics", gin.WrapH(observability.MetricsHandler()))

	api := r.Group("/api")
	{
		if cfg.IngestHandler != nil {
			api.POST("/ingest", cfg.IngestHandler.Ingest)
		}
		if cfg.JobHandler != nil {
			api.GET("/jobs", cfg.JobHandler.List)
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
		if cfg.ExerciseHandler != nil {
			api.GET("/exercises", cfg.ExerciseHandler.List)
			api.GET("/exercises/search_by_url", cfg.ExerciseHandler.SearchByURL)
			api.POST("/exercises/bulk_get", cfg.ExerciseHandler.BulkGet)
			api.GET("/exercises/:id", cfg.ExerciseHandler.Get)
			api.DELETE("/exercises/:id", cfg.ExerciseHandler.Delete)
		}
		if cfg.RoutineHandler != nil {
			api.POST("/routines", cfg.RoutineHandler.Create)
			api.GET("/routines", cfg.RoutineHandler.List)
			api.GET("/routines/:id", cfg.RoutineHandler.Get)
			api.DELETE("/routines/:id", cfg.RoutineHandler.Delete)
			api.POST("/routines/bulk_get_exercises", cfg.RoutineHandler.BulkGetExercises)
		}
		if cfg.SearchHandler != nil {
			api.POST("/search/diverse", cfg.SearchHandler.DiverseSearch)
			api.POST("/search/routine", cfg.SearchHandler.RoutineSearch)
		}
	}

	return r
}
