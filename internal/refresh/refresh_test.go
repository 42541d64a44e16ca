package refresh_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shirinalapati/Internship-App/internal/model"
	"github.com/shirinalapati/Internship-App/internal/refresh"
)

// callLog records fake invocations in order so tests can assert the pass
// sequencing (fetch, clear, upsert, write-through, marker).
type callLog struct{ events []string }

func (l *callLog) add(e string) { l.events = append(l.events, e) }

func (l *callLog) joined() string { return strings.Join(l.events, ",") }

func (l *callLog) has(e string) bool {
	for _, got := range l.events {
		if got == e {
			return true
		}
	}
	return false
}

// ── fakes ──────────────────────────────────────────────────────────────────

type fakeSource struct {
	log      *callLog
	listings []model.RawListing
	err      error
}

func (f *fakeSource) Fetch(ctx context.Context) ([]model.RawListing, error) {
	f.log.add("fetch")
	if f.err != nil {
		return nil, f.err
	}
	return f.listings, nil
}

func (f *fakeSource) Name() string { return "fake_board" }

type memRow struct {
	raw    model.RawListing
	active bool
}

// memStore mimics the durable store's lifecycle semantics in memory:
// insert-or-update by identity key, then an age sweep against retention.
type memStore struct {
	log       *callLog
	retention int
	rows      map[string]*memRow
	order     []string
	runs      []model.CacheRun
	applyErr  error
	filterErr error
}

func (m *memStore) seed(raws ...model.RawListing) {
	for _, r := range raws {
		k := r.IdentityKey()
		m.rows[k] = &memRow{raw: r, active: true}
		m.order = append(m.order, k)
	}
}

func (m *memStore) activeKeys() []string {
	var keys []string
	for _, k := range m.order {
		if m.rows[k].active {
			keys = append(keys, k)
		}
	}
	return keys
}

func (m *memStore) ApplyBatch(ctx context.Context, runKind string, raws []model.RawListing) (model.UpsertCounts, error) {
	m.log.add("apply")
	if m.applyErr != nil {
		m.runs = append(m.runs, model.CacheRun{RunKind: runKind, Status: model.RunStatusFailed, Detail: m.applyErr.Error()})
		return model.UpsertCounts{Seen: len(raws)}, m.applyErr
	}

	counts := model.UpsertCounts{Seen: len(raws)}
	inBatch := make(map[string]bool)
	for _, r := range raws {
		k := r.IdentityKey()
		if inBatch[k] {
			continue
		}
		inBatch[k] = true
		if row, ok := m.rows[k]; ok {
			row.raw.Posting = r.Posting
			row.active = true
			counts.Updated++
		} else {
			m.rows[k] = &memRow{raw: r, active: true}
			m.order = append(m.order, k)
			counts.New++
		}
	}
	for _, k := range m.order {
		row := m.rows[k]
		age := row.raw.Posting.DaysSincePosted
		if row.active && age != nil && *age > m.retention {
			row.active = false
			counts.DeactivatedAged++
		}
	}

	m.runs = append(m.runs, model.CacheRun{
		RunKind:      runKind,
		ListingsSeen: counts.Seen,
		NewListings:  counts.New,
		Status:       model.RunStatusSuccess,
	})
	return counts, nil
}

func (m *memStore) FilterNew(ctx context.Context, raws []model.RawListing) ([]model.RawListing, error) {
	m.log.add("filter_new")
	if m.filterErr != nil {
		return nil, m.filterErr
	}
	var fresh []model.RawListing
	for _, r := range raws {
		if _, ok := m.rows[r.IdentityKey()]; !ok {
			fresh = append(fresh, r)
		}
	}
	return fresh, nil
}

func (m *memStore) RecordRun(ctx context.Context, run model.CacheRun) error {
	m.log.add("record_run")
	m.runs = append(m.runs, run)
	return nil
}

type fakeCache struct {
	log     *callLog
	store   *memStore
	blob    []string
	marker  time.Time
	hasMark bool
	wtErr   error
}

func (c *fakeCache) WriteThrough(ctx context.Context) error {
	c.log.add("write_through")
	if c.wtErr != nil {
		return c.wtErr
	}
	c.blob = c.store.activeKeys()
	return nil
}

func (c *fakeCache) Clear(ctx context.Context) {
	c.log.add("clear")
	c.blob = nil
}

func (c *fakeCache) LastRefresh(ctx context.Context) (time.Time, bool) {
	return c.marker, c.hasMark
}

func (c *fakeCache) MarkRefreshed(ctx context.Context, at time.Time) {
	c.log.add("mark_refreshed")
	c.marker, c.hasMark = at, true
}

type fixture struct {
	log   *callLog
	src   *fakeSource
	store *memStore
	cache *fakeCache
	orch  *refresh.Orchestrator
}

func newFixture(feed ...model.RawListing) *fixture {
	lg := &callLog{}
	src := &fakeSource{log: lg, listings: feed}
	st := &memStore{log: lg, retention: 30, rows: map[string]*memRow{}}
	ca := &fakeCache{log: lg, store: st}
	return &fixture{
		log:   lg,
		src:   src,
		store: st,
		cache: ca,
		orch:  refresh.New(src, st, ca, 24*time.Hour),
	}
}

func rawListing(employer, role string, ageDays int) model.RawListing {
	age := ageDays
	return model.RawListing{
		Employer:   employer,
		RoleTitle:  role,
		Location:   "Remote",
		ApplyLink:  "https://jobs.example.com/" + strings.ToLower(employer),
		SourceName: "fake_board",
		Posting:    model.PostingMetadata{DaysSincePosted: &age},
	}
}

// ── mode resolution ────────────────────────────────────────────────────────

func TestRun_AutoWithoutMarkerGoesFull(t *testing.T) {
	f := newFixture(rawListing("Stripe", "SWE Intern", 1))

	res, err := f.orch.Run(context.Background(), model.RunKindStartup, refresh.ModeAuto)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Mode != refresh.ModeFull {
		t.Errorf("resolved mode = %s, want full", res.Mode)
	}
	if !f.log.has("clear") {
		t.Error("full pass did not clear the cache blob")
	}
}

func TestRun_AutoWithFreshMarkerGoesIncremental(t *testing.T) {
	f := newFixture(rawListing("Stripe", "SWE Intern", 1))
	f.cache.marker, f.cache.hasMark = time.Now().Add(-time.Hour), true

	res, err := f.orch.Run(context.Background(), model.RunKindOnDemand, refresh.ModeAuto)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Mode != refresh.ModeIncremental {
		t.Errorf("resolved mode = %s, want incremental", res.Mode)
	}
	if f.log.has("clear") {
		t.Error("incremental pass must not clear the cache blob")
	}
	if !f.log.has("filter_new") {
		t.Error("incremental pass did not filter against existing keys")
	}
}

func TestRun_AutoWithStaleMarkerGoesFull(t *testing.T) {
	f := newFixture(rawListing("Stripe", "SWE Intern", 1))
	f.cache.marker, f.cache.hasMark = time.Now().Add(-25*time.Hour), true

	res, err := f.orch.Run(context.Background(), model.RunKindScheduled, refresh.ModeAuto)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Mode != refresh.ModeFull {
		t.Errorf("resolved mode = %s, want full for a stale marker", res.Mode)
	}
}

func TestRun_ExplicitModeOverridesMarker(t *testing.T) {
	f := newFixture(rawListing("Stripe", "SWE Intern", 1))
	f.cache.marker, f.cache.hasMark = time.Now().Add(-time.Minute), true

	res, err := f.orch.Run(context.Background(), model.RunKindManual, refresh.ModeFull)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Mode != refresh.ModeFull {
		t.Errorf("resolved mode = %s, want full despite fresh marker", res.Mode)
	}
}

// ── pass sequencing ────────────────────────────────────────────────────────

func TestRun_FullPassOrdering(t *testing.T) {
	f := newFixture(rawListing("Stripe", "SWE Intern", 1))

	if _, err := f.orch.Run(context.Background(), model.RunKindStartup, refresh.ModeFull); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := "fetch,clear,apply,write_through,mark_refreshed"
	if got := f.log.joined(); got != want {
		t.Errorf("full pass sequence = %s, want %s", got, want)
	}
}

func TestRun_IncrementalPassOrdering(t *testing.T) {
	f := newFixture(rawListing("Stripe", "SWE Intern", 1))

	if _, err := f.orch.Run(context.Background(), model.RunKindOnDemand, refresh.ModeIncremental); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	want := "fetch,filter_new,apply,write_through,mark_refreshed"
	if got := f.log.joined(); got != want {
		t.Errorf("incremental pass sequence = %s, want %s", got, want)
	}
}

// ── incremental semantics ──────────────────────────────────────────────────

func TestRun_IncrementalKeepsOnlyUnseenListings(t *testing.T) {
	known := rawListing("Stripe", "SWE Intern", 1)
	feed := []model.RawListing{known, rawListing("Datadog", "SRE Intern", 2), rawListing("Ramp", "Backend Intern", 3)}
	f := newFixture(feed...)
	f.store.seed(known)

	res, err := f.orch.Run(context.Background(), model.RunKindOnDemand, refresh.ModeIncremental)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Counts.Seen != 2 || res.Counts.New != 2 {
		t.Errorf("counts = %+v, want seen=2 new=2", res.Counts)
	}
	if len(f.store.rows) != 3 {
		t.Errorf("store holds %d rows, want 3", len(f.store.rows))
	}
}

func TestRun_EmptyIncrementalBatchStillCompletes(t *testing.T) {
	known := rawListing("Stripe", "SWE Intern", 1)
	f := newFixture(known)
	f.store.seed(known)

	res, err := f.orch.Run(context.Background(), model.RunKindOnDemand, refresh.ModeIncremental)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Counts.Seen != 0 {
		t.Errorf("counts.Seen = %d, want 0", res.Counts.Seen)
	}
	for _, e := range []string{"apply", "write_through", "mark_refreshed"} {
		if !f.log.has(e) {
			t.Errorf("empty incremental batch skipped %q; sweeps and marker must still run", e)
		}
	}
	if len(f.store.runs) != 1 || f.store.runs[0].Status != model.RunStatusSuccess {
		t.Errorf("runs = %+v, want one success run", f.store.runs)
	}
}

// ── aborted passes ─────────────────────────────────────────────────────────

func TestRun_EmptyFullScrapeAborts(t *testing.T) {
	f := newFixture() // feed is empty
	f.store.seed(rawListing("Stripe", "SWE Intern", 1))

	_, err := f.orch.Run(context.Background(), model.RunKindScheduled, refresh.ModeFull)
	if err == nil {
		t.Fatal("empty full scrape expected error, got nil")
	}
	if f.log.has("apply") || f.log.has("clear") {
		t.Error("aborted pass must leave store and cache untouched")
	}
	if len(f.store.runs) != 1 || f.store.runs[0].Status != model.RunStatusFailed {
		t.Errorf("runs = %+v, want one failed run", f.store.runs)
	}
	if got := f.store.activeKeys(); len(got) != 1 {
		t.Errorf("active rows after aborted pass = %d, want 1", len(got))
	}
}

func TestRun_SourceFailureRecordsFailedRun(t *testing.T) {
	f := newFixture()
	f.src.err = errors.New("feed unreachable")

	_, err := f.orch.Run(context.Background(), model.RunKindScheduled, refresh.ModeAuto)
	if err == nil {
		t.Fatal("source failure expected error, got nil")
	}
	if len(f.store.runs) != 1 || f.store.runs[0].Status != model.RunStatusFailed {
		t.Errorf("runs = %+v, want one failed run", f.store.runs)
	}
	if f.store.runs[0].RunKind != model.RunKindScheduled {
		t.Errorf("failed run kind = %q, want scheduled", f.store.runs[0].RunKind)
	}
	if f.log.has("mark_refreshed") {
		t.Error("failed pass must not bump the last-refresh marker")
	}
}

func TestRun_ApplyFailureIsNotDoubleRecorded(t *testing.T) {
	f := newFixture(rawListing("Stripe", "SWE Intern", 1))
	f.store.applyErr = errors.New("commit failed")

	_, err := f.orch.Run(context.Background(), model.RunKindStartup, refresh.ModeFull)
	if err == nil {
		t.Fatal("apply failure expected error, got nil")
	}
	// ApplyBatch records its own failed run; the orchestrator must not add
	// a second one on top.
	if len(f.store.runs) != 1 {
		t.Fatalf("recorded %d runs, want exactly 1", len(f.store.runs))
	}
	if f.log.has("mark_refreshed") || f.log.has("write_through") {
		t.Error("failed upsert must not reach the cache stage")
	}
}

// ── cache degradation ──────────────────────────────────────────────────────

func TestRun_WriteThroughFailureStillMarksRefreshed(t *testing.T) {
	f := newFixture(rawListing("Stripe", "SWE Intern", 1))
	f.cache.wtErr = errors.New("redis down")

	_, err := f.orch.Run(context.Background(), model.RunKindScheduled, refresh.ModeFull)
	if err != nil {
		t.Fatalf("Run returned error: %v; a cache failure must not fail the pass", err)
	}
	if !f.log.has("mark_refreshed") {
		t.Error("completed pass did not bump the last-refresh marker")
	}
}

// ── concurrency guard ──────────────────────────────────────────────────────

type blockingSource struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSource) Fetch(ctx context.Context) ([]model.RawListing, error) {
	close(b.entered)
	<-b.release
	return nil, errors.New("released")
}

func (b *blockingSource) Name() string { return "blocking" }

func TestRun_ConcurrentPassRejected(t *testing.T) {
	f := newFixture()
	src := &blockingSource{entered: make(chan struct{}), release: make(chan struct{})}
	orch := refresh.New(src, f.store, f.cache, 24*time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		orch.Run(context.Background(), model.RunKindScheduled, refresh.ModeFull)
	}()

	<-src.entered
	_, err := orch.Run(context.Background(), model.RunKindOnDemand, refresh.ModeAuto)
	if !errors.Is(err, refresh.ErrRefreshInProgress) {
		t.Errorf("second Run error = %v, want ErrRefreshInProgress", err)
	}

	close(src.release)
	<-done
}

// ── lifecycle scenario ─────────────────────────────────────────────────────

func TestRun_LifecycleScenario(t *testing.T) {
	fresh := rawListing("Stripe", "SWE Intern", 1)
	week := rawListing("Datadog", "SRE Intern", 10)
	ancient := rawListing("Ramp", "Backend Intern", 40)
	f := newFixture(fresh, week, ancient)

	res, err := f.orch.Run(context.Background(), model.RunKindStartup, refresh.ModeAuto)
	if err != nil {
		t.Fatalf("first pass returned error: %v", err)
	}
	if res.Mode != refresh.ModeFull {
		t.Fatalf("first pass mode = %s, want full", res.Mode)
	}
	if res.Counts.New != 3 || res.Counts.DeactivatedAged != 1 {
		t.Errorf("first pass counts = %+v, want new=3 aged=1", res.Counts)
	}
	if got := len(f.cache.blob); got != 2 {
		t.Errorf("cache blob holds %d listings, want 2 after the 40-day one aged out", got)
	}
	if !f.cache.hasMark {
		t.Error("first pass did not set the last-refresh marker")
	}

	// The same feed an hour later: auto resolves incremental, every key is
	// already present (even the deactivated one), so nothing is re-applied.
	res, err = f.orch.Run(context.Background(), model.RunKindOnDemand, refresh.ModeAuto)
	if err != nil {
		t.Fatalf("second pass returned error: %v", err)
	}
	if res.Mode != refresh.ModeIncremental {
		t.Fatalf("second pass mode = %s, want incremental", res.Mode)
	}
	if res.Counts.Seen != 0 || res.Counts.New != 0 {
		t.Errorf("second pass counts = %+v, want an empty batch", res.Counts)
	}
	if got := len(f.cache.blob); got != 2 {
		t.Errorf("cache blob holds %d listings after second pass, want 2", got)
	}
}

func TestRun_ReseenListingPastRetentionDoesNotSurvive(t *testing.T) {
	f := newFixture(rawListing("Stripe", "SWE Intern", 40))
	f.store.seed(rawListing("Stripe", "SWE Intern", 10))

	// A full pass re-sees the listing and overwrites its metadata with the
	// fresh 40-day age. The same pass's age sweep then takes it back out.
	res, err := f.orch.Run(context.Background(), model.RunKindManual, refresh.ModeFull)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Counts.Updated != 1 || res.Counts.New != 0 {
		t.Errorf("counts = %+v, want updated=1 new=0", res.Counts)
	}
	if res.Counts.DeactivatedAged != 1 {
		t.Errorf("counts.DeactivatedAged = %d, want 1; the fresh age must win over the re-sighting", res.Counts.DeactivatedAged)
	}
	if got := len(f.cache.blob); got != 0 {
		t.Errorf("cache blob holds %d listings, want 0", got)
	}
}

// ── ParseMode ──────────────────────────────────────────────────────────────

func TestParseMode_Values(t *testing.T) {
	cases := []struct {
		in   string
		want refresh.Mode
	}{
		{"", refresh.ModeAuto},
		{"auto", refresh.ModeAuto},
		{"full", refresh.ModeFull},
		{"incremental", refresh.ModeIncremental},
	}
	for _, c := range cases {
		got, err := refresh.ParseMode(c.in)
		if err != nil {
			t.Errorf("ParseMode(%q) returned unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ParseMode(%q) = %s, want %s", c.in, got, c.want)
		}
	}
	if _, err := refresh.ParseMode("everything"); err == nil {
		t.Error("ParseMode(\"everything\") expected error, got nil")
	}
}
