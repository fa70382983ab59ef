package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/canon"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/analyze"
	analyzeopenai "github.com/Lenniott/FITTNESS-BUILDER/internal/capability/analyze/openai"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/analyze/fallback"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/download"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/download/ytdlp"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/embed"
	embedopenai "github.com/Lenniott/FITTNESS-BUILDER/internal/capability/embed/openai"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/analyze/videointel"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/transcribe"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/transcribe/gcpspeech"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/media/clip"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/media/keyframe"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/envutil"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/gcp"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/idlock"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/localmedia"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
	llm "github.com/Lenniott/FITTNESS-BUILDER/internal/platform/openai"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/pinecone"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/qdrant"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/vectorstore"
)

// Clients bundles every external collaborator constructed once at process
// start and passed by reference into the services that use them.
type Clients struct {
	LLM          llm.Client
	LLMBackup    llm.Client
	Tools        localmedia.Tools
	Extractor    *keyframe.Extractor
	Materializer *clip.Materializer
	Downloaders  map[canon.Platform]download.Downloader
	Transcriber  transcribe.Transcriber
	Analyzer     analyze.Analyzer
	Fallback     analyze.Analyzer
	Embedder     embed.Embedder
	Vectors      vectorstore.VectorStore
	IngestLock   *idlock.Locker
	VideoIntel   *videointel.Annotator
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	tools := localmedia.New(log)
	if err := tools.AssertReady(context.Background()); err != nil {
		return Clients{}, fmt.Errorf("media tools not ready: %w", err)
	}

	vectors, err := wireVectorStore(log)
	if err != nil {
		return Clients{}, err
	}

	ingestLock, err := idlock.New(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init ingest lock: %w", err)
	}

	downloaders := map[canon.Platform]download.Downloader{
		canon.PlatformTikTok:        ytdlp.NewTikTok(log),
		canon.PlatformInstagram:     ytdlp.NewInstagram(log),
		canon.PlatformYouTubeShorts: ytdlp.NewYouTubeShorts(log),
	}

	var clients Clients
	switch strings.ToLower(cfg.AIProvider) {
	case "gcp":
		clients, err = wireGCPClients(log, tools, vectors, downloaders)
	default:
		clients, err = wireOpenAIClients(log, tools, vectors, downloaders)
	}
	if err != nil {
		return Clients{}, err
	}
	clients.IngestLock = ingestLock
	return clients, nil
}

func wireOpenAIClients(log *logger.Logger, tools localmedia.Tools, vectors vectorstore.VectorStore, downloaders map[canon.Platform]download.Downloader) (Clients, error) {
	primary, err := llm.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}
	backup, err := llm.NewBackupClient(log)
	if err != nil {
		log.Warn("no backup openai credential configured", "error", err.Error())
		backup = primary
	}

	return Clients{
		LLM:          primary,
		LLMBackup:    backup,
		Tools:        tools,
		Extractor:    keyframe.NewExtractor(log, tools),
		Materializer: clip.NewMaterializer(log, tools),
		Downloaders:  downloaders,
		Transcriber:  nil, // OpenAI backend ships no audio transcription capability; see DESIGN.md
		Analyzer:     analyzeopenai.New(primary, backup),
		Fallback:     fallback.New(),
		Embedder:     embedopenai.New(primary),
		Vectors:      vectors,
	}, nil
}

func wireGCPClients(log *logger.Logger, tools localmedia.Tools, vectors vectorstore.VectorStore, downloaders map[canon.Platform]download.Downloader) (Clients, error) {
	primary, err := llm.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client (embeddings/text): %w", err)
	}

	staging, err := gcp.NewStaging(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init gcs staging: %w", err)
	}
	speech, err := gcp.NewSpeech(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init gcp speech: %w", err)
	}

	transcriber := gcpspeech.New(log, tools, staging, speech)

	extractor := keyframe.NewExtractor(log, tools)
	if scorer, err := gcp.NewFrameScorer(log); err != nil {
		log.Warn("gcp vision frame scorer unavailable, ceiling ties break on histogram diff only", "error", err.Error())
	} else {
		extractor = extractor.WithFrameScorer(scorer)
	}

	var videoIntel *videointel.Annotator
	if video, err := gcp.NewVideo(log); err != nil {
		log.Warn("gcp video intelligence unavailable, analyzer runs without shot/label hints", "error", err.Error())
	} else {
		videoIntel = videointel.New(log, staging, video)
	}

	return Clients{
		LLM:          primary,
		LLMBackup:    primary,
		Tools:        tools,
		Extractor:    extractor,
		Materializer: clip.NewMaterializer(log, tools),
		Downloaders:  downloaders,
		Transcriber:  transcriber,
		Analyzer:     analyzeopenai.New(primary, primary),
		Fallback:     fallback.New(),
		Embedder:     embedopenai.New(primary),
		Vectors:      vectors,
		VideoIntel:   videoIntel,
	}, nil
}

func wireVectorStore(log *logger.Logger) (vectorstore.VectorStore, error) {
	provider := strings.ToLower(envutil.GetEnv("VECTOR_PROVIDER", "qdrant", log))
	switch provider {
	case "pinecone":
		cfg := pinecone.Config{
			APIKey:    envutil.GetEnv("PINECONE_API_KEY", "", log),
			IndexHost: envutil.GetEnv("PINECONE_INDEX_HOST", "", log),
			Namespace: envutil.GetEnv("PINECONE_NAMESPACE", "", log),
		}
		if err := pinecone.ValidateConfig(cfg); err != nil {
			return nil, err
		}
		return pinecone.NewVectorStore(log, cfg)
	default:
		cfg := qdrant.Config{
			URL:        envutil.GetEnv("QDRANT_URL", "http://localhost:6333", log),
			Collection: envutil.GetEnv("QDRANT_COLLECTION", "exercises", log),
			VectorDim:  envutil.GetEnvAsInt("VECTOR_DIM", 1536, log),
		}
		if err := qdrant.ValidateConfig(cfg); err != nil {
			return nil, err
		}
		return qdrant.NewVectorStore(log, cfg)
	}
}
