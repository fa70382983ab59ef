package app

import (
	"github.com/Lenniott/FITTNESS-BUILDER/internal/jobs/worker"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/pipeline"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/retrieval"
)

// Services bundles every domain service built on top of Repos and Clients.
type Services struct {
	Orchestrator *pipeline.Orchestrator
	Deleter      *pipeline.Deleter
	Searcher     *retrieval.Searcher
	Stories      *retrieval.StoryGenerator
	Curator      *retrieval.Curator
	Worker       *worker.Worker
	URLs         *urlRegistry
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, repos Repos) Services {
	pipelineCfg := pipeline.Config{ContentRoot: cfg.ContentRoot, TempRoot: cfg.TempRoot}

	orchestrator := pipeline.NewOrchestrator(
		log,
		pipelineCfg,
		clients.Downloaders,
		clients.Transcriber,
		clients.Tools,
		clients.Extractor,
		clients.Analyzer,
		clients.Fallback,
		clients.Embedder,
		clients.Materializer,
		repos.Exercises,
		clients.Vectors,
	)
	if clients.VideoIntel != nil {
		orchestrator = orchestrator.WithVideoIntel(clients.VideoIntel)
	}
	if clients.IngestLock != nil {
		orchestrator = orchestrator.WithFingerprintCache(clients.IngestLock)
	}

	deleter := pipeline.NewDeleter(log, repos.Exercises, clients.Vectors, cfg.ContentRoot)
	searcher := retrieval.NewSearcher(log, clients.Embedder, clients.Vectors, repos.Exercises)
	stories := retrieval.NewStoryGenerator(clients.LLM)
	curator := retrieval.NewCurator(repos.Exercises, repos.Routines)

	urls := newURLRegistry()
	jobWorker := worker.New(log, repos.Jobs, orchestrator, urls, clients.IngestLock, cfg.MaxConcurrentRequests)

	return Services{
		Orchestrator: orchestrator,
		Deleter:      deleter,
		Searcher:     searcher,
		Stories:      stories,
		Curator:      curator,
		Worker:       jobWorker,
		URLs:         urls,
	}
}
