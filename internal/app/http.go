package app

import (
	"github.com/gin-gonic/gin"

	fbhttp "github.com/Lenniott/FITTNESS-BUILDER/internal/http"
	httpH "github.com/Lenniott/FITTNESS-BUILDER/internal/http/handlers"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Ingest   *httpH.IngestionHandler
	Job      *httpH.JobHandler
	Exercise *httpH.ExerciseHandler
	Routine  *httpH.RoutineHandler
	Search   *httpH.SearchHandler
}

func wireHandlers(services Services, repos Repos, clients Clients) Handlers {
	return Handlers{
		Health:   httpH.NewHealthHandler(),
		Ingest:   httpH.NewIngestionHandler(repos.Jobs, services.URLs, clients.IngestLock),
		Job:      httpH.NewJobHandler(repos.Jobs),
		Exercise: httpH.NewExerciseHandler(repos.Exercises, services.Deleter),
		Routine:  httpH.NewRoutineHandler(services.Curator),
		Search:   httpH.NewSearchHandler(services.Searcher, services.Stories),
	}
}

func wireRouter(log *logger.Logger, handlers Handlers) *gin.Engine {
	return fbhttp.NewRouter(fbhttp.RouterConfig{
		Log:             log,
		HealthHandler:   handlers.Health,
		IngestHandler:   handlers.Ingest,
		JobHandler:      handlers.Job,
		ExerciseHandler: handlers.Exercise,
		RoutineHandler:  handlers.Routine,
		SearchHandler:   handlers.Search,
	})
}
