// Package cache implements the hybrid two-tier read/write path for the
// active listing set: a Redis fast cache in front of the durable store.
// The fast cache is a disposable accelerator; it may be absent or down
// without correctness loss, only latency loss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/shirinalapati/Internship-App/internal/model"
)

// ErrNoData is returned when neither tier can produce the active set. It is
// distinct from a legitimately empty active set, which is not an error.
var ErrNoData = errors.New("active listings unavailable: fast cache and durable store unreachable")

// Fast-cache keys: one blob for the serialized active set, one marker for
// the last completed refresh.
const (
	activeSetKey   = "listings:active_set"
	lastRefreshKey = "listings:last_refresh"
)

// Tiers reported by ReadActiveSet.
const (
	SourceCache = "cache"
	SourceStore = "store"
)

// ListingStore is the durable-store surface the cache service consumes.
type ListingStore interface {
	ActiveListings(ctx context.Context) ([]model.Listing, error)
	Stats(ctx context.Context) (model.StoreStats, error)
	LatestRun(ctx context.Context) (*model.CacheRun, error)
	Ping(ctx context.Context) error
}

// Redis is the subset of *redis.Client the service uses.
type Redis interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// ─── Service ───────────────────────────────────────────────────────────────

// Service is the explicit handle for the two-tier listing cache. It holds
// the fast-cache client (nil disables the tier) and the durable store, is
// constructed once at process start, and is passed to every consumer; there
// is no package-level state.
type Service struct {
	rdb   Redis
	store ListingStore
	ttl   time.Duration
	group singleflight.Group
}

// NewService returns a configured Service. Pass a nil Redis to run
// store-only.
func NewService(rdb Redis, store ListingStore, ttl time.Duration) *Service {
	return &Service{rdb: rdb, store: store, ttl: ttl}
}

// ─── Read path ─────────────────────────────────────────────────────────────

// ReadActiveSet returns the current active set and which tier served it.
// Fast-cache hit: deserialize and return. Miss or fast-cache failure: read
// the durable store and, only when that read succeeded and was non-empty,
// re-warm the blob before returning. Concurrent misses collapse into a
// single store read. Both tiers failing yields ErrNoData, never a silent
// empty set.
func (s *Service) ReadActiveSet(ctx context.Context) ([]model.Listing, string, error) {
	if listings, ok := s.readFast(ctx); ok {
		return listings, SourceCache, nil
	}

	v, err, _ := s.group.Do(activeSetKey, func() (interface{}, error) {
		listings, err := s.store.ActiveListings(ctx)
		if err != nil {
			return nil, err
		}
		if len(listings) > 0 {
			s.warm(ctx, listings)
		}
		return listings, nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNoData, err)
	}
	listings, _ := v.([]model.Listing)
	if listings == nil {
		listings = []model.Listing{}
	}
	return listings, SourceStore, nil
}

// GetActiveListings returns the active set filtered to maxAgeDays (listings
// with unknown age pass the filter) and windowed by offset/limit, ordered by
// last_seen descending.
func (s *Service) GetActiveListings(ctx context.Context, maxAgeDays, limit, offset int) ([]model.Listing, string, error) {
	listings, source, err := s.ReadActiveSet(ctx)
	if err != nil {
		return nil, source, err
	}
	return model.Window(model.FilterByMaxAge(listings, maxAgeDays), offset, limit), source, nil
}

func (s *Service) readFast(ctx context.Context) ([]model.Listing, bool) {
	if s.rdb == nil {
		return nil, false
	}
	payload, err := s.rdb.Get(ctx, activeSetKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("fast cache read failed, falling back to store", "error", err)
		}
		return nil, false
	}
	var listings []model.Listing
	if err := json.Unmarshal([]byte(payload), &listings); err != nil {
		slog.Warn("fast cache blob corrupt, falling back to store", "error", err)
		return nil, false
	}
	return listings, true
}

// ─── Write path ────────────────────────────────────────────────────────────

// WriteThrough re-reads the FULL active set from the durable store and
// overwrites the fast-cache blob wholesale with a fresh expiry. The sweeps
// can deactivate rows that were never in the incoming batch, so patching
// the blob incrementally is never correct.
func (s *Service) WriteThrough(ctx context.Context) error {
	listings, err := s.store.ActiveListings(ctx)
	if err != nil {
		return fmt.Errorf("re-read active set: %w", err)
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	s.warm(ctx, listings)
	return nil
}

// warm serialises the set into the blob with the fixed expiry. Fast-cache
// failures are logged and swallowed.
func (s *Service) warm(ctx context.Context, listings []model.Listing) {
	if s.rdb == nil {
		return
	}
	payload, err := json.Marshal(listings)
	if err != nil {
		slog.Warn("active set not serialisable for fast cache", "error", err)
		return
	}
	if err := s.rdb.Set(ctx, activeSetKey, payload, s.ttl).Err(); err != nil {
		slog.Warn("fast cache write failed", "error", err)
	}
}

// Clear drops the cached blob. The last-refresh marker is kept; the blob is
// rebuilt by the next write-through or fallback read.
func (s *Service) Clear(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, activeSetKey).Err(); err != nil {
		slog.Warn("fast cache clear failed", "error", err)
	}
}

// ─── Last-refresh marker ───────────────────────────────────────────────────

// LastRefresh returns the completion time of the most recent refresh pass,
// or ok=false when the marker is absent, corrupt, or unreadable.
func (s *Service) LastRefresh(ctx context.Context) (time.Time, bool) {
	if s.rdb == nil {
		return time.Time{}, false
	}
	v, err := s.rdb.Get(ctx, lastRefreshKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("last-refresh marker read failed", "error", err)
		}
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		slog.Warn("last-refresh marker corrupt", "value", v, "error", err)
		return time.Time{}, false
	}
	return t, true
}

// MarkRefreshed records the completion time of a refresh pass. The marker
// has no expiry; it survives until overwritten.
func (s *Service) MarkRefreshed(ctx context.Context, at time.Time) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Set(ctx, lastRefreshKey, at.UTC().Format(time.RFC3339), 0).Err(); err != nil {
		slog.Warn("last-refresh marker write failed", "error", err)
	}
}

// ─── Status ────────────────────────────────────────────────────────────────

// Status reports availability flags and summary counts for both tiers.
func (s *Service) Status(ctx context.Context) model.CacheStatus {
	var st model.CacheStatus

	if s.rdb != nil && s.rdb.Ping(ctx).Err() == nil {
		st.FastCacheUp = true

		if payload, err := s.rdb.Get(ctx, activeSetKey).Result(); err == nil {
			var listings []model.Listing
			if json.Unmarshal([]byte(payload), &listings) == nil {
				st.Cached = true
				st.CachedListings = len(listings)
			}
		}
		if ttl, err := s.rdb.TTL(ctx, activeSetKey).Result(); err == nil && ttl > 0 {
			st.TTLSeconds = int64(ttl.Seconds())
		}
		if t, ok := s.LastRefresh(ctx); ok {
			st.LastRefresh = &t
		}
	}

	if err := s.store.Ping(ctx); err != nil {
		slog.Warn("durable store unreachable", "error", err)
		return st
	}
	st.DurableStoreUp = true

	if stats, err := s.store.Stats(ctx); err != nil {
		slog.Warn("store stats unavailable", "error", err)
	} else {
		st.Store = &stats
	}
	if run, err := s.store.LatestRun(ctx); err != nil {
		slog.Warn("latest cache run unavailable", "error", err)
	} else {
		st.LatestRun = run
	}

	return st
}
