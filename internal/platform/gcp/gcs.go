package gcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

// Staging uploads local ingestion artifacts (downloaded video, extracted
// audio) to the GCS bucket that the Speech and Video Intelligence APIs
// require a gs:// URI for, and removes them once the call completes.
type Staging interface {
	Upload(ctx context.Context, localPath, objectKey string) (gcsURI string, err error)
	Delete(ctx context.Context, objectKey string) error
	Close() error
}

type staging struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
}

func NewStaging(log *logger.Logger) (Staging, error) {
	if log == nil {
		return nil, fmt.Errorf("gcp: logger required")
	}
	bucket := strings.TrimSpace(os.Getenv("GCP_STAGING_BUCKET"))
	if bucket == "" {
		return nil, fmt.Errorf("gcp: missing env var GCP_STAGING_BUCKET")
	}

	ctx := context.Background()
	c, err := storage.NewClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("gcp storage client: %w", err)
	}
	return &staging{log: log.With("service", "gcp.Staging"), client: c, bucket: bucket}, nil
}

func (s *staging) Upload(ctx context.Context, localPath, objectKey string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("gcp staging: open %q: %w", localPath, err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(objectKey).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcp staging: upload %q: %w", objectKey, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcp staging: finalize %q: %w", objectKey, err)
	}

	uri := fmt.Sprintf("gs://%s/%s", s.bucket, objectKey)
	s.log.Debug("staged object uploaded", "gcs_uri", uri)
	return uri, nil
}

func (s *staging) Delete(ctx context.Context, objectKey string) error {
	err := s.client.Bucket(s.bucket).Object(objectKey).Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		return fmt.Errorf("gcp staging: delete %q: %w", objectKey, err)
	}
	return nil
}

func (s *staging) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
