// Package refresh coordinates one scrape-and-store pass: mode selection,
// the bulk upsert, and the cache write-through that follows it.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shirinalapati/Internship-App/internal/model"
)

// ErrRefreshInProgress is returned when a pass is requested while another
// one is still running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// passTimeout bounds one whole pass, fetch through write-through.
const passTimeout = 60 * time.Second

// Mode selects how much of the feed a pass pushes through the store.
type Mode string

const (
	// ModeAuto decides between full and incremental from the age of the
	// last-refresh marker.
	ModeAuto Mode = "auto"
	// ModeFull pushes the entire batch through and rebuilds the cache blob.
	ModeFull Mode = "full"
	// ModeIncremental upserts only listings not yet present in the store.
	ModeIncremental Mode = "incremental"
)

// ParseMode maps a wire or flag value onto a Mode. Empty means auto.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "auto":
		return ModeAuto, nil
	case "full":
		return ModeFull, nil
	case "incremental":
		return ModeIncremental, nil
	default:
		return "", fmt.Errorf("unknown refresh mode %q", s)
	}
}

// Source produces the raw listings batch for a pass.
type Source interface {
	Fetch(ctx context.Context) ([]model.RawListing, error)
	Name() string
}

// Store is the durable-store surface a pass drives. ApplyBatch records its
// own audit row, success or failure; RecordRun is only for passes aborted
// before the upsert starts.
type Store interface {
	ApplyBatch(ctx context.Context, runKind string, raws []model.RawListing) (model.UpsertCounts, error)
	FilterNew(ctx context.Context, raws []model.RawListing) ([]model.RawListing, error)
	RecordRun(ctx context.Context, run model.CacheRun) error
}

// FastCache is the cache surface a pass maintains after the store commit.
type FastCache interface {
	WriteThrough(ctx context.Context) error
	Clear(ctx context.Context)
	LastRefresh(ctx context.Context) (time.Time, bool)
	MarkRefreshed(ctx context.Context, at time.Time)
}

// Result summarizes one completed pass.
type Result struct {
	Mode   Mode               `json:"mode"`
	Counts model.UpsertCounts `json:"counts"`
}

// Orchestrator runs refresh passes one at a time against a source, the
// durable store and the fast cache.
type Orchestrator struct {
	source Source
	store  Store
	cache  FastCache

	// fullAfter is the marker age beyond which an auto pass goes full.
	fullAfter time.Duration

	mu sync.Mutex
}

// New wires an orchestrator. fullAfter should match the scheduled refresh
// cadence so the daily scheduled pass is the full one and intra-day
// on-demand passes stay incremental.
func New(source Source, store Store, cache FastCache, fullAfter time.Duration) *Orchestrator {
	return &Orchestrator{source: source, store: store, cache: cache, fullAfter: fullAfter}
}

// Run executes one pass. kind labels the audit row (startup, scheduled,
// on_demand, manual). Only one pass runs at a time; concurrent callers get
// ErrRefreshInProgress immediately instead of queueing.
func (o *Orchestrator) Run(ctx context.Context, kind string, mode Mode) (Result, error) {
	if !o.mu.TryLock() {
		return Result{}, ErrRefreshInProgress
	}
	defer o.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, passTimeout)
	defer cancel()

	resolved := o.resolveMode(ctx, mode)
	log.Printf("[refresh] %s %s pass starting (source %s)", kind, resolved, o.source.Name())

	raws, err := o.source.Fetch(ctx)
	if err != nil {
		err = fmt.Errorf("source fetch: %w", err)
		o.recordAborted(kind, 0, err)
		return Result{Mode: resolved}, err
	}

	if resolved == ModeFull && len(raws) == 0 {
		// An empty full scrape means the feed or the parser broke. Pushing
		// it through would eventually deactivate every listing.
		err := errors.New("full scrape returned no listings")
		o.recordAborted(kind, 0, err)
		return Result{Mode: resolved}, err
	}

	batch := raws
	if resolved == ModeIncremental {
		batch, err = o.store.FilterNew(ctx, raws)
		if err != nil {
			err = fmt.Errorf("filter new: %w", err)
			o.recordAborted(kind, len(raws), err)
			return Result{Mode: resolved}, err
		}
		log.Printf("[refresh] incremental pass: %d of %d listings are new", len(batch), len(raws))
	} else {
		o.cache.Clear(ctx)
	}

	counts, err := o.store.ApplyBatch(ctx, kind, batch)
	if err != nil {
		return Result{Mode: resolved, Counts: counts}, err
	}

	if err := o.cache.WriteThrough(ctx); err != nil {
		log.Printf("[refresh] cache write-through failed: %v", err)
	}
	o.cache.MarkRefreshed(ctx, time.Now().UTC())

	log.Printf("[refresh] %s pass done: seen=%d new=%d updated=%d stale=%d aged=%d",
		resolved, counts.Seen, counts.New, counts.Updated, counts.DeactivatedStale, counts.DeactivatedAged)
	return Result{Mode: resolved, Counts: counts}, nil
}

// resolveMode applies the auto heuristic: no marker yet or a marker older
// than fullAfter means a full pass, anything fresher an incremental one.
func (o *Orchestrator) resolveMode(ctx context.Context, mode Mode) Mode {
	if mode == ModeFull || mode == ModeIncremental {
		return mode
	}
	last, ok := o.cache.LastRefresh(ctx)
	if !ok || time.Since(last) > o.fullAfter {
		return ModeFull
	}
	return ModeIncremental
}

// recordAborted writes the audit row for a pass that never reached the
// upsert. It runs on a fresh context so the row lands even when the pass
// context has already expired.
func (o *Orchestrator) recordAborted(kind string, seen int, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	run := model.CacheRun{
		RunKind:      kind,
		ListingsSeen: seen,
		Status:       model.RunStatusFailed,
		Detail:       cause.Error(),
	}
	if err := o.store.RecordRun(ctx, run); err != nil {
		log.Printf("[refresh] could not record aborted run: %v", err)
	}
}
