// Package idlock serializes concurrent ingestion admissions for the same
// normalized URL ahead of the Exercise Store's uniqueness constraint, and
// short-circuits the common rapid-duplicate case (a user double-clicking
// submit) without a metadata-store round trip.
package idlock

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/envutil"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

// Locker holds a per-URL admission lock keyed by normalized URL, backed by
// a Redis SETNX with a TTL so a crashed holder can't wedge the key forever.
type Locker struct {
	log   *logger.Logger
	rdb   *goredis.Client
	ttl   time.Duration
	fpTTL time.Duration
}

// New connects to Redis using REDIS_ADDR; if unset, returns (nil, nil) and
// callers treat a nil *Locker as "locking disabled" rather than an error,
// since deduplication is a fast-path optimization, not a correctness
// requirement (the Exercise Store's unique index is the real guard).
func New(log *logger.Logger) (*Locker, error) {
	addr := envutil.GetEnv("REDIS_ADDR", "", log)
	if strings.TrimSpace(addr) == "" {
		log.Info("REDIS_ADDR not set, ingestion dedup lock disabled")
		return nil, nil
	}

	rdb := goredis.NewClient(&goredis.Options{Addr: addr, DialTimeout: 5 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Locker{log: log.With("service", "idlock.Locker"), rdb: rdb, ttl: 10 * time.Minute, fpTTL: 2 * time.Minute}, nil
}

// TryAcquire reports whether the caller won the lock for normalizedURL. A
// nil *Locker always reports true (locking disabled degrades to "always
// proceed", never to "always reject").
func (l *Locker) TryAcquire(ctx context.Context, normalizedURL string) (bool, error) {
	if l == nil {
		return true, nil
	}
	ok, err := l.rdb.SetNX(ctx, lockKey(normalizedURL), "1", l.ttl).Result()
	if err != nil {
		l.log.Warn("lock acquire failed, proceeding without it", "url", normalizedURL, "error", err.Error())
		return true, nil
	}
	return ok, nil
}

// Release frees the lock so a later, legitimately distinct ingestion of
// the same URL (e.g. after the first was deleted) isn't blocked forever by
// the TTL. A nil *Locker is a no-op.
func (l *Locker) Release(ctx context.Context, normalizedURL string) {
	if l == nil {
		return
	}
	if err := l.rdb.Del(ctx, lockKey(normalizedURL)).Err(); err != nil {
		l.log.Warn("lock release failed, it will expire via TTL", "url", normalizedURL, "error", err.Error())
	}
}

// FingerprintInFlight reports whether (normalizedURL, carouselIndex, name)
// was already admitted within the short fingerprint-cache window, without a
// round trip to the Exercise Store. A false negative (cache miss on a real
// duplicate) is always caught downstream by FindByFingerprint against the
// database, so this cache only needs to be fast, not exhaustive. A nil
// *Locker always reports false (no cache, every candidate reaches the DB
// check).
func (l *Locker) FingerprintInFlight(ctx context.Context, normalizedURL string, carouselIndex int, name string) (bool, error) {
	if l == nil {
		return false, nil
	}
	ok, err := l.rdb.SetNX(ctx, fingerprintKey(normalizedURL, carouselIndex, name), "1", l.fpTTL).Result()
	if err != nil {
		l.log.Warn("fingerprint cache check failed, falling back to the database check", "name", name, "error", err.Error())
		return false, nil
	}
	return !ok, nil
}

func lockKey(normalizedURL string) string {
	return "fittness-builder:ingest-lock:" + normalizedURL
}

func fingerprintKey(normalizedURL string, carouselIndex int, name string) string {
	return fmt.Sprintf("fittness-builder:ingest-fp:%s:%d:%s", normalizedURL, carouselIndex, name)
}
