package idlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

func setupLocker(t *testing.T) (*miniredis.Miniredis, *Locker) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	if err := mr.Start(); err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	return mr, &Locker{
		log:   &logger.Logger{SugaredLogger: zap.NewNop().Sugar()},
		rdb:   goredis.NewClient(&goredis.Options{Addr: mr.Addr()}),
		ttl:   10 * time.Minute,
		fpTTL: 2 * time.Minute,
	}
}

func TestLocker_TryAcquire_SecondCallerBlocked(t *testing.T) {
	_, l := setupLocker(t)
	ctx := context.Background()

	first, err := l.TryAcquire(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.True(t, first)

	second, err := l.TryAcquire(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.False(t, second)

	// a distinct URL is unaffected
	other, err := l.TryAcquire(ctx, "https://example.com/b")
	require.NoError(t, err)
	require.True(t, other)
}

func TestLocker_Release_AllowsReacquire(t *testing.T) {
	_, l := setupLocker(t)
	ctx := context.Background()

	ok, err := l.TryAcquire(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.True(t, ok)

	l.Release(ctx, "https://example.com/a")

	ok, err = l.TryAcquire(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestLocker_NilReceiver_AlwaysProceeds(t *testing.T) {
	var l *Locker
	ctx := context.Background()

	ok, err := l.TryAcquire(ctx, "https://example.com/a")
	require.NoError(t, err)
	require.True(t, ok)

	// Release must not panic on a nil receiver either.
	l.Release(ctx, "https://example.com/a")
}

func TestLocker_FingerprintInFlight(t *testing.T) {
	_, l := setupLocker(t)
	ctx := context.Background()

	seen, err := l.FingerprintInFlight(ctx, "https://example.com/a", 1, "push up")
	require.NoError(t, err)
	require.False(t, seen, "first sighting should not be reported as already in flight")

	seen, err = l.FingerprintInFlight(ctx, "https://example.com/a", 1, "push up")
	require.NoError(t, err)
	require.True(t, seen, "second sighting within the window should be reported as in flight")

	// a distinct carousel index is a distinct fingerprint
	seen, err = l.FingerprintInFlight(ctx, "https://example.com/a", 2, "push up")
	require.NoError(t, err)
	require.False(t, seen)
}

func TestLocker_NilReceiver_FingerprintNeverInFlight(t *testing.T) {
	var l *Locker
	seen, err := l.FingerprintInFlight(context.Background(), "https://example.com/a", 1, "push up")
	require.NoError(t, err)
	require.False(t, seen)
}
