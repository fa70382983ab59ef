// Package pipeline's Orchestrator drives one ingestion end to end: it is
// the only component allowed to mutate the Exercise Store, Vector Store,
// and clip filesystem in concert. The state machine is linear per media
// item (no DAG, no resumable child jobs): received -> normalized ->
// classified -> downloaded -> {transcribed -> frames_extracted -> analyzed
// -> normalized_segments -> materialized -> persisted} per item.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/apierr"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/canon"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/analyze"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/download"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/embed"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/capability/transcribe"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/data/repos/exercises"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/media/clip"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/media/keyframe"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/observability"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/dbctx"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/localmedia"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/vectorstore"
	"go.opentelemetry.io/otel/attribute"
)

// Config bounds the Orchestrator's resource use; MaxConcurrentRequests is
// enforced by whatever admits pipelines (the job worker pool), not here.
type Config struct {
	ContentRoot string
	TempRoot    string
}

// Orchestrator wires one instance of every capability/store collaborator.
// Downloaders is keyed by canon.Platform so classification can route to
// the right variant.
type Orchestrator struct {
	log *logger.Logger
	cfg Config

	downloaders map[canon.Platform]download.Downloader
	transcriber transcribe.Transcriber
	tools       localmedia.Tools
	extractor   *keyframe.Extractor
	analyzer    analyze.Analyzer
	fallback    analyze.Analyzer
	embedder    embed.Embedder
	materializer *clip.Materializer

	exercises ExerciseRepo
	vectors   vectorstore.VectorStore

	videoIntel   VideoIntel
	fingerprints FingerprintCache
}

// FingerprintCache short-circuits the common rapid-duplicate case (the same
// URL ingested twice before the first run has persisted anything) without a
// database round trip. Declared locally, matching ExerciseRepo and
// VideoIntel; nil disables it and every candidate falls through to
// ExerciseRepo.FindByFingerprint alone.
type FingerprintCache interface {
	FingerprintInFlight(ctx context.Context, normalizedURL string, carouselIndex int, name string) (bool, error)
}

// VideoIntel optionally enriches the Analyzer's context bundle with shot
// boundaries and labels (the GCP Video Intelligence backend, AI_PROVIDER
// =gcp). Declared locally, matching ExerciseRepo, so a fake needs no
// import from the gcp/videointel packages. Nil means no such hints.
type VideoIntel interface {
	Annotate(ctx context.Context, mediaFile string) (shotBoundaries []float64, labels []string, err error)
}

// ExerciseRepo is the subset of exercises.ExerciseRepo the Orchestrator
// needs; declared locally so tests can supply a fake without importing gorm.
type ExerciseRepo interface {
	FindByFingerprint(dbc dbctx.Context, fp domain.Fingerprint) (*domain.Exercise, error)
	Insert(dbc dbctx.Context, row *domain.Exercise) (*domain.Exercise, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*domain.Exercise, error)
	SetVectorID(dbc dbctx.Context, id uuid.UUID, vectorID uuid.UUID) error
	Delete(dbc dbctx.Context, id uuid.UUID) (*domain.Exercise, error)
}

func NewOrchestrator(
	log *logger.Logger,
	cfg Config,
	downloaders map[canon.Platform]download.Downloader,
	transcriber transcribe.Transcriber,
	tools localmedia.Tools,
	extractor *keyframe.Extractor,
	analyzer analyze.Analyzer,
	fallbackAnalyzer analyze.Analyzer,
	embedder embed.Embedder,
	materializer *clip.Materializer,
	exerciseRepo ExerciseRepo,
	vectors vectorstore.VectorStore,
) *Orchestrator {
	return &Orchestrator{
		log:          log.With("service", "pipeline.Orchestrator"),
		cfg:          cfg,
		downloaders:  downloaders,
		transcriber:  transcriber,
		tools:        tools,
		extractor:    extractor,
		analyzer:     analyzer,
		fallback:     fallbackAnalyzer,
		embedder:     embedder,
		materializer: materializer,
		exercises:    exerciseRepo,
		vectors:      vectors,
	}
}

// WithVideoIntel attaches the optional GCP Video Intelligence hint source;
// a nil argument (the default) disables it.
func (o *Orchestrator) WithVideoIntel(vi VideoIntel) *Orchestrator {
	o.videoIntel = vi
	return o
}

// WithFingerprintCache attaches the optional rapid-duplicate fast-path; a
// nil argument (the default) disables it and every candidate is checked
// against the Exercise Store directly.
func (o *Orchestrator) WithFingerprintCache(fc FingerprintCache) *Orchestrator {
	o.fingerprints = fc
	return o
}

// ItemResult is one carousel item's (or single video's) outcome, aggregated
// into the Job's terminal result payload by the caller.
type ItemResult struct {
	Status      domain.JobItemStatus
	Exercises   []*domain.Exercise
	ErrorKind   apierr.Kind
	ErrorReason string
}

// Ingest drives the full state machine for one URL. jobID is used only for
// temp-directory naming and trace correlation; the caller owns Job Ledger
// transitions.
func (o *Orchestrator) Ingest(ctx context.Context, rawURL, jobID string) ([]ItemResult, error) {
	ctx, endSpan := observability.StartSpan(ctx, "pipeline.Ingest", attribute.String("job_id", jobID))
	defer endSpan()

	start := time.Now()
	defer func() { observability.IngestDurationSeconds.Observe(time.Since(start).Seconds()) }()

	normalizedURL, err := canon.Normalize(rawURL)
	if err != nil {
		observability.IngestStageFailuresTotal.WithLabelValues("normalize", string(apierr.KindInputInvalid)).Inc()
		return nil, apierr.Wrap(apierr.KindInputInvalid, "normalize url", err)
	}

	classification := canon.Classify(rawURL)
	if classification == canon.ClassificationUnsupported {
		return nil, apierr.New(apierr.KindInputInvalid, "unsupported platform")
	}

	platform := canon.DetectPlatform(rawURL)
	downloader, ok := o.downloaders[platform]
	if !ok {
		return nil, apierr.New(apierr.KindInputInvalid, fmt.Sprintf("no downloader configured for platform %q", platform))
	}

	pipelineDir := filepath.Join(o.cfg.TempRoot, "pipeline_"+jobID)
	if err := os.MkdirAll(pipelineDir, 0o755); err != nil {
		return nil, apierr.Wrap(apierr.KindInternal, "create pipeline temp dir", err)
	}
	defer os.RemoveAll(pipelineDir)

	downloads, err := downloader.Download(ctx, normalizedURL)
	if err != nil {
		observability.IngestStageFailuresTotal.WithLabelValues("download", string(apierr.KindDownloadFailed)).Inc()
		return nil, apierr.Wrap(apierr.KindDownloadFailed, "download", err)
	}

	results := make([]ItemResult, 0, len(downloads))
	for i, item := range downloads {
		carouselIndex := i + 1
		if idx, ok := canon.CarouselIndex(rawURL); ok {
			carouselIndex = idx
		}
		isHook := len(downloads) > 1 && i == 0

		res := o.ingestOne(ctx, pipelineDir, normalizedURL, rawURL, carouselIndex, len(downloads), isHook, platform, item)
		if res.Status == domain.JobItemFailed {
			observability.IngestStageFailuresTotal.WithLabelValues("ingest_item", string(res.ErrorKind)).Inc()
		}
		results = append(results, res)
	}
	return results, nil
}

// ingestOne runs transcribe -> frames -> analyze -> normalize ->
// materialize -> persist for a single downloaded media item. It never
// returns an error: failures are reported through the returned ItemResult
// so sibling carousel items keep running. An item whose every candidate
// failed to persist reports the last persistence failure; failures beside
// at least one created exercise are only logged.
func (o *Orchestrator) ingestOne(ctx context.Context, pipelineDir, normalizedURL, rawURL string, carouselIndex, carouselCount int, isHook bool, platform canon.Platform, item download.Result) ItemResult {
	log := o.log.With("normalized_url", normalizedURL, "carousel_index", carouselIndex)

	if len(item.MediaFiles) == 0 {
		return ItemResult{Status: domain.JobItemFailed, ErrorKind: apierr.KindDecodeFailed, ErrorReason: "no media file produced"}
	}
	mediaFile := item.MediaFiles[0]

	probe, err := o.tools.Probe(ctx, mediaFile)
	if err != nil || !probe.HasVideo {
		return ItemResult{Status: domain.JobItemFailed, ErrorKind: apierr.KindDecodeFailed, ErrorReason: "media probe failed or has no video stream"}
	}

	var transcript []domain.TranscriptSegment
	if o.transcriber != nil {
		transcript, err = o.transcriber.Transcribe(ctx, mediaFile)
		if err != nil {
			log.Warn("transcription failed, continuing with empty transcript", "error", err.Error())
			transcript = nil
		}
	}
	if !transcribe.PassesQualityGate(transcript) {
		transcript = nil
	}

	frames, err := o.extractor.Extract(ctx, mediaFile, pipelineDir, probe.DurationSec)
	if err != nil {
		return ItemResult{Status: domain.JobItemFailed, ErrorKind: apierr.KindAnalyzeFailed, ErrorReason: "keyframe extraction failed: " + err.Error()}
	}

	analyzerCtx := domain.AnalyzerContext{
		Platform:       string(platform),
		CarouselIndex:  carouselIndex,
		CarouselCount:  carouselCount,
		CarouselIsHook: isHook,
		VideoDuration:  probe.DurationSec,
	}
	if o.videoIntel != nil {
		shots, labels, err := o.videoIntel.Annotate(ctx, mediaFile)
		if err != nil {
			log.Warn("video intelligence annotation failed, analyzing without its hints", "error", err.Error())
		} else {
			analyzerCtx.ShotBoundaries = shots
			analyzerCtx.Labels = labels
		}
	}

	candidates, err := o.analyzer.Analyze(ctx, frames, transcript, analyzerCtx)
	if err != nil {
		log.Warn("multimodal analyzer failed, falling back to keyword analyzer", "error", err.Error())
		candidates, err = o.fallback.Analyze(ctx, frames, transcript, analyzerCtx)
		if err != nil {
			return ItemResult{Status: domain.JobItemFailed, ErrorKind: apierr.KindAnalyzeFailed, ErrorReason: err.Error()}
		}
	}

	normalized := NormalizeSegments(candidates, probe.DurationSec)
	if len(normalized) == 0 {
		return ItemResult{Status: domain.JobItemDuplicateSkip}
	}

	var persisted []*domain.Exercise
	var failKind apierr.Kind
	var failReason string
	for _, cand := range normalized {
		exercise, status, kind, errReason := o.persistOne(ctx, mediaFile, normalizedURL, rawURL, carouselIndex, cand)
		if status == domain.JobItemCreated {
			persisted = append(persisted, exercise)
			continue
		}
		if status == domain.JobItemFailed {
			log.Warn("exercise persistence failed", "name", cand.Name, "reason", errReason)
			failKind, failReason = kind, errReason
		}
	}

	if len(persisted) == 0 {
		if failKind != "" {
			return ItemResult{Status: domain.JobItemFailed, ErrorKind: failKind, ErrorReason: failReason}
		}
		return ItemResult{Status: domain.JobItemDuplicateSkip}
	}
	return ItemResult{Status: domain.JobItemCreated, Exercises: persisted}
}

// persistOne runs the four-step transaction and its rollback ladder for one
// normalized candidate: materialize the clip, insert the row, upsert the
// vector, then backfill the row's vector_id. Failure at any step undoes
// every step that already succeeded.
func (o *Orchestrator) persistOne(ctx context.Context, sourceMedia, normalizedURL, rawURL string, carouselIndex int, cand domain.Candidate) (*domain.Exercise, domain.JobItemStatus, apierr.Kind, string) {
	ctx, endSpan := observability.StartSpan(ctx, "pipeline.persistOne", attribute.String("name", cand.Name))
	defer endSpan()

	fp := domain.Fingerprint{NormalizedURL: normalizedURL, CarouselIndex: carouselIndex, Name: cand.Name}
	dbc := dbctx.Background(nil)
	dbc.Ctx = ctx

	if o.fingerprints != nil {
		if inFlight, err := o.fingerprints.FingerprintInFlight(ctx, normalizedURL, carouselIndex, cand.Name); err == nil && inFlight {
			return nil, domain.JobItemDuplicateSkip, "", ""
		}
	}

	if existing, err := o.exercises.FindByFingerprint(dbc, fp); err == nil && existing != nil {
		return existing, domain.JobItemDuplicateSkip, "", ""
	}

	clipPath, err := o.materializer.Materialize(ctx, sourceMedia, o.cfg.ContentRoot, cand.Name, cand.Start, cand.End)
	if err != nil {
		return nil, domain.JobItemFailed, apierr.KindOf(err), err.Error()
	}

	relClipPath, err := filepath.Rel(o.cfg.ContentRoot, clipPath)
	if err != nil {
		os.Remove(clipPath)
		return nil, domain.JobItemFailed, apierr.KindPersistenceFailed, fmt.Sprintf("clip path %q not under content root: %v", clipPath, err)
	}

	exercise := &domain.Exercise{
		SourceURL:     rawURL,
		NormalizedURL: normalizedURL,
		CarouselIndex: carouselIndex,
		Name:          cand.Name,
		StartTime:     cand.Start,
		EndTime:       cand.End,
		ClipPath:      relClipPath,
		HowTo:         cand.HowTo,
		Benefits:      cand.Benefits,
		Counteracts:   cand.Counteracts,
		RoundsReps:    cand.RoundsReps,
		FitnessLevel:  cand.FitnessLevel,
		Intensity:     cand.Intensity,
	}

	inserted, err := o.exercises.Insert(dbc, exercise)
	if err != nil {
		os.Remove(clipPath)
		if _, ok := err.(*exercises.DuplicateError); ok {
			return nil, domain.JobItemDuplicateSkip, apierr.KindDuplicate, err.Error()
		}
		return nil, domain.JobItemFailed, apierr.KindPersistenceFailed, err.Error()
	}

	vectorID := uuid.New()
	payload := map[string]any{
		vectorstore.DatabaseIDKey: inserted.ID.String(),
		"name":                    inserted.Name,
		"how_to":                  inserted.HowTo,
		"benefits":                inserted.Benefits,
		"counteracts":             inserted.Counteracts,
		"fitness_level":           inserted.FitnessLevel,
		"intensity":               inserted.Intensity,
	}

	vectors, err := o.embedder.Embed(ctx, []string{embeddingText(inserted)})
	if err != nil || len(vectors) != 1 {
		o.rollbackExercise(ctx, inserted.ID, clipPath)
		return nil, domain.JobItemFailed, apierr.KindPersistenceFailed, "embedding failed"
	}

	if err := o.vectors.Upsert(ctx, vectorID.String(), vectors[0], payload); err != nil {
		o.rollbackExercise(ctx, inserted.ID, clipPath)
		return nil, domain.JobItemFailed, apierr.KindPersistenceFailed, err.Error()
	}

	if err := o.exercises.SetVectorID(dbc, inserted.ID, vectorID); err != nil {
		o.vectors.Delete(ctx, vectorID.String())
		o.rollbackExercise(ctx, inserted.ID, clipPath)
		return nil, domain.JobItemFailed, apierr.KindPersistenceFailed, err.Error()
	}

	inserted.VectorID = &vectorID
	return inserted, domain.JobItemCreated, "", ""
}

func (o *Orchestrator) rollbackExercise(ctx context.Context, id uuid.UUID, clipPath string) {
	dbc := dbctx.Background(nil)
	dbc.Ctx = ctx
	if _, err := o.exercises.Delete(dbc, id); err != nil {
		o.log.Warn("rollback: failed to delete exercise row", "exercise_id", id.String(), "error", err.Error())
	}
	if err := os.Remove(clipPath); err != nil && !os.IsNotExist(err) {
		o.log.Warn("rollback: failed to delete clip file", "clip_path", clipPath, "error", err.Error())
	}
}

func embeddingText(e *domain.Exercise) string {
	return e.Name + ". " + e.HowTo + " " + e.Benefits
}
