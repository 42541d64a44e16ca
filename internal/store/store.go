// Package store implements the durable system of record for listings:
// the bulk upsert/lifecycle pipeline, active-set queries, and the
// append-only refresh audit trail. The fast cache is always derived from
// this store, never the other way around.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shirinalapati/Internship-App/internal/model"
)

// ─── Store ─────────────────────────────────────────────────────────────────

// Store wraps the Postgres pool together with the lifecycle policy it
// enforces on every upsert pass.
type Store struct {
	pool           *pgxpool.Pool
	retentionDays  int // max reported age before the age sweep deactivates
	staleGraceDays int // last_seen grace before the staleness sweep deactivates
}

// New returns a configured Store.
func New(pool *pgxpool.Pool, retentionDays, staleGraceDays int) *Store {
	return &Store{pool: pool, retentionDays: retentionDays, staleGraceDays: staleGraceDays}
}

// Ping reports durable-store reachability.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// ─── Bulk upsert / lifecycle pipeline ──────────────────────────────────────

const insertListingSQL = `
	INSERT INTO listings
	  (identity_key, employer, role_title, location, apply_link, description,
	   skills, extra_requirements, source_name, posting_metadata,
	   first_seen, last_seen, is_active)
	VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10::jsonb, $11, $12, TRUE)
	ON CONFLICT (identity_key) DO NOTHING`

// Re-sighting refreshes last_seen, replaces the metadata bag wholesale and
// reactivates the row; the age sweep that runs later in the same pass
// re-evaluates it against the fresh age.
const updateReseenSQL = `
	UPDATE listings
	SET last_seen = $2, posting_metadata = $3::jsonb, is_active = TRUE
	WHERE identity_key = $1`

// ApplyBatch runs one full upsert pass for a scrape batch: bulk key read,
// partition, transactional insert/update, then the staleness and age sweeps,
// and finally the audit record. The batch commit is atomic; the sweeps are
// separate statements and one failing does not stop the other or the audit
// record (the run is then recorded with partial status).
func (s *Store) ApplyBatch(ctx context.Context, runKind string, raws []model.RawListing) (model.UpsertCounts, error) {
	now := time.Now().UTC()
	counts := model.UpsertCounts{Seen: len(raws)}

	existing, err := s.existingKeySet(ctx, batchKeys(raws))
	if err != nil {
		err = fmt.Errorf("bulk key read: %w", err)
		s.recordRunBestEffort(ctx, runKind, now, counts, model.RunStatusFailed, err.Error())
		return counts, err
	}

	plan := planBatch(raws, existing, now)

	if err := s.commitBatch(ctx, plan, now, &counts); err != nil {
		err = fmt.Errorf("batch commit: %w", err)
		s.recordRunBestEffort(ctx, runKind, now, counts, model.RunStatusFailed, err.Error())
		return counts, err
	}

	status := model.RunStatusSuccess
	var sweepErrs []string

	staleCutoff := now.Add(-time.Duration(s.staleGraceDays) * 24 * time.Hour)
	if n, err := s.DeactivateStale(ctx, staleCutoff); err != nil {
		log.Printf("[store] staleness sweep failed: %v", err)
		status = model.RunStatusPartial
		sweepErrs = append(sweepErrs, err.Error())
	} else {
		counts.DeactivatedStale = n
	}

	if n, err := s.DeactivateAged(ctx, s.retentionDays); err != nil {
		log.Printf("[store] age sweep failed: %v", err)
		status = model.RunStatusPartial
		sweepErrs = append(sweepErrs, err.Error())
	} else {
		counts.DeactivatedAged = n
	}

	s.recordRunBestEffort(ctx, runKind, now, counts, status, strings.Join(sweepErrs, "; "))
	return counts, nil
}

// commitBatch applies the staged inserts and updates in one transaction.
func (s *Store) commitBatch(ctx context.Context, plan upsertPlan, now time.Time, counts *model.UpsertCounts) error {
	if len(plan.inserts) == 0 && len(plan.reseen) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, l := range plan.inserts {
		batch.Queue(insertListingSQL,
			l.IdentityKey, l.Employer, l.RoleTitle, l.Location, l.ApplyLink, l.Description,
			marshalJSON(l.Skills, "[]"), l.ExtraRequirements, l.SourceName,
			marshalJSON(l.Posting, "{}"), l.FirstSeen, l.LastSeen)
	}
	for _, u := range plan.reseen {
		batch.Queue(updateReseenSQL, u.key, now, marshalJSON(u.posting, "{}"))
	}

	// Counts are tallied locally and only published once the transaction
	// commits; a rolled-back batch contributes nothing.
	var inserted, updated int

	br := tx.SendBatch(ctx, batch)
	for range plan.inserts {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return fmt.Errorf("insert listing: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	for range plan.reseen {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return fmt.Errorf("update listing: %w", err)
		}
		updated += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	counts.New = inserted
	counts.Updated = updated
	return nil
}

// marshalJSON serialises v for a ::jsonb parameter, substituting empty for
// nil slices/maps so the column never stores JSON null.
func marshalJSON(v any, empty string) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return empty
	}
	return string(b)
}

// ─── Sweeps ────────────────────────────────────────────────────────────────

// DeactivateStale flips is_active off for rows not re-observed since the
// cutoff. Catches listings the source silently removed.
func (s *Store) DeactivateStale(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET is_active = FALSE WHERE is_active = TRUE AND last_seen < $1`,
		cutoff)
	if err != nil {
		return 0, fmt.Errorf("staleness sweep: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// DeactivateAged flips is_active off for rows whose reported age exceeds
// maxAgeDays. Rows with no reported age are left alone.
func (s *Store) DeactivateAged(ctx context.Context, maxAgeDays int) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET is_active = FALSE
		 WHERE is_active = TRUE
		   AND posting_metadata->>'days_since_posted' IS NOT NULL
		   AND (posting_metadata->>'days_since_posted')::int > $1`,
		maxAgeDays)
	if err != nil {
		return 0, fmt.Errorf("age sweep: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ─── Queries ───────────────────────────────────────────────────────────────

const selectActiveSQL = `
	SELECT id, identity_key, employer, role_title, location, apply_link, description,
	       skills, extra_requirements, source_name, posting_metadata,
	       first_seen, last_seen, is_active
	FROM listings
	WHERE is_active = TRUE
	ORDER BY last_seen DESC, id DESC`

// ActiveListings returns the full active set, newest last_seen first.
func (s *Store) ActiveListings(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx, selectActiveSQL)
	if err != nil {
		return nil, fmt.Errorf("query active listings: %w", err)
	}
	defer rows.Close()

	var listings []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// FilterNew keeps only the raw listings whose identity key is not in the
// store yet. Incremental refreshes push just these through the upsert;
// duplicate keys within the batch collapse to their first occurrence.
func (s *Store) FilterNew(ctx context.Context, raws []model.RawListing) ([]model.RawListing, error) {
	existing, err := s.existingKeySet(ctx, batchKeys(raws))
	if err != nil {
		return nil, fmt.Errorf("bulk key read: %w", err)
	}

	out := make([]model.RawListing, 0, len(raws))
	staged := make(map[string]bool, len(raws))
	for _, raw := range raws {
		key := raw.IdentityKey()
		if existing[key] || staged[key] {
			continue
		}
		staged[key] = true
		out = append(out, raw)
	}
	return out, nil
}

// existingKeySet is the point-in-time snapshot read of step 2: one bulk
// membership query instead of a lookup per listing.
func (s *Store) existingKeySet(ctx context.Context, keys []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return existing, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT identity_key FROM listings WHERE identity_key = ANY($1)`, keys)
	if err != nil {
		return nil, fmt.Errorf("query existing keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan identity key: %w", err)
		}
		existing[k] = true
	}
	return existing, rows.Err()
}

func scanListing(rows pgx.Rows) (model.Listing, error) {
	var l model.Listing
	var skillsJSON, postingJSON []byte
	if err := rows.Scan(
		&l.ID, &l.IdentityKey, &l.Employer, &l.RoleTitle, &l.Location,
		&l.ApplyLink, &l.Description, &skillsJSON, &l.ExtraRequirements,
		&l.SourceName, &postingJSON, &l.FirstSeen, &l.LastSeen, &l.IsActive,
	); err != nil {
		return model.Listing{}, fmt.Errorf("scan listing: %w", err)
	}

	// A malformed stored payload degrades that field to absent, never the row.
	if err := json.Unmarshal(skillsJSON, &l.Skills); err != nil {
		log.Printf("[store] bad skills payload on %s: %v", l.IdentityKey, err)
		l.Skills = nil
	}
	if err := json.Unmarshal(postingJSON, &l.Posting); err != nil {
		log.Printf("[store] bad posting_metadata payload on %s: %v", l.IdentityKey, err)
		l.Posting = model.PostingMetadata{}
	}
	return l, nil
}
