package videointel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/gcp"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

type fakeStaging struct {
	uploadURI    string
	uploadErr    error
	deletedKeys  []string
	deleteErr    error
	uploadCalled string
}

func (f *fakeStaging) Upload(ctx context.Context, localPath, objectKey string) (string, error) {
	f.uploadCalled = objectKey
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadURI, nil
}

func (f *fakeStaging) Delete(ctx context.Context, objectKey string) error {
	f.deletedKeys = append(f.deletedKeys, objectKey)
	return f.deleteErr
}

func (f *fakeStaging) Close() error { return nil }

type fakeVideo struct {
	result *gcp.VideoAIResult
	err    error
	gotURI string
}

func (f *fakeVideo) AnnotateVideoGCS(ctx context.Context, gcsURI string) (*gcp.VideoAIResult, error) {
	f.gotURI = gcsURI
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeVideo) Close() error { return nil }

func newTestLogger() *logger.Logger {
	return &logger.Logger{SugaredLogger: zap.NewNop().Sugar()}
}

func TestAnnotator_Annotate_Success(t *testing.T) {
	staging := &fakeStaging{uploadURI: "gs://bucket/video-intel/abc.mp4"}
	video := &fakeVideo{result: &gcp.VideoAIResult{
		ShotBoundaries: []float64{0, 4.5, 9.2},
		Labels:         []string{"push up", "exercise"},
	}}

	a := New(newTestLogger(), staging, video)
	shots, labels, err := a.Annotate(context.Background(), "/tmp/clip.mp4")

	require.NoError(t, err)
	require.Equal(t, []float64{0, 4.5, 9.2}, shots)
	require.Equal(t, []string{"push up", "exercise"}, labels)
	require.Equal(t, staging.uploadURI, video.gotURI)
	require.Len(t, staging.deletedKeys, 1, "the staged object must always be cleaned up")
	require.Equal(t, staging.uploadCalled, staging.deletedKeys[0])
}

func TestAnnotator_Annotate_UploadFails(t *testing.T) {
	staging := &fakeStaging{uploadErr: errors.New("bucket unreachable")}
	video := &fakeVideo{}

	a := New(newTestLogger(), staging, video)
	_, _, err := a.Annotate(context.Background(), "/tmp/clip.mp4")

	require.Error(t, err)
	require.Empty(t, staging.deletedKeys, "nothing was staged, nothing to clean up")
}

func TestAnnotator_Annotate_AnnotateFailsStillCleansUp(t *testing.T) {
	staging := &fakeStaging{uploadURI: "gs://bucket/video-intel/abc.mp4"}
	video := &fakeVideo{err: errors.New("quota exceeded")}

	a := New(newTestLogger(), staging, video)
	_, _, err := a.Annotate(context.Background(), "/tmp/clip.mp4")

	require.Error(t, err)
	require.Len(t, staging.deletedKeys, 1, "a failed annotation must not leak the staged object")
}
