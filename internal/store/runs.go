package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shirinalapati/Internship-App/internal/model"
)

// ─── Refresh audit trail ───────────────────────────────────────────────────

// RecordRun appends one audit row. Rows are never mutated afterwards.
func (s *Store) RecordRun(ctx context.Context, run model.CacheRun) error {
	if run.RunTime.IsZero() {
		run.RunTime = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO cache_runs (run_kind, run_time, listings_seen, new_listings, status, detail)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.RunKind, run.RunTime, run.ListingsSeen, run.NewListings, run.Status, run.Detail)
	if err != nil {
		return fmt.Errorf("record cache run: %w", err)
	}
	return nil
}

// recordRunBestEffort writes the audit row for an upsert pass. The audit
// trail must not mask the pass outcome, so a failed write is only logged.
func (s *Store) recordRunBestEffort(ctx context.Context, kind string, at time.Time, counts model.UpsertCounts, status, detail string) {
	err := s.RecordRun(ctx, model.CacheRun{
		RunKind:      kind,
		RunTime:      at,
		ListingsSeen: counts.Seen,
		NewListings:  counts.New,
		Status:       status,
		Detail:       detail,
	})
	if err != nil {
		log.Printf("[store] cache run not recorded (%s, %s): %v", kind, status, err)
	}
}

// LatestRun returns the most recent audit row, or nil when none exist.
func (s *Store) LatestRun(ctx context.Context) (*model.CacheRun, error) {
	var run model.CacheRun
	err := s.pool.QueryRow(ctx,
		`SELECT id, run_kind, run_time, listings_seen, new_listings, status, detail
		 FROM cache_runs
		 ORDER BY run_time DESC, id DESC
		 LIMIT 1`).
		Scan(&run.ID, &run.RunKind, &run.RunTime, &run.ListingsSeen,
			&run.NewListings, &run.Status, &run.Detail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest cache run: %w", err)
	}
	return &run, nil
}

// PruneRuns deletes audit rows older than the cutoff and returns how many
// were removed.
func (s *Store) PruneRuns(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cache_runs WHERE run_time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune cache runs: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ─── Summary stats ─────────────────────────────────────────────────────────

// Stats returns the durable-store summary used by the status surface.
func (s *Store) Stats(ctx context.Context) (model.StoreStats, error) {
	var st model.StoreStats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE is_active),
		        COUNT(*) FILTER (WHERE NOT is_active),
		        COUNT(*) FILTER (WHERE first_seen > now() - interval '24 hours')
		 FROM listings`).
		Scan(&st.TotalListings, &st.ActiveListings, &st.InactiveListings, &st.NewLast24h)
	if err != nil {
		return st, fmt.Errorf("listing stats: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT source_name, COUNT(*) FROM listings WHERE is_active = TRUE GROUP BY source_name`)
	if err != nil {
		return st, fmt.Errorf("per-source stats: %w", err)
	}
	defer rows.Close()

	st.BySource = make(map[string]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return st, fmt.Errorf("scan per-source stats: %w", err)
		}
		st.BySource[source] = n
	}
	return st, rows.Err()
}
