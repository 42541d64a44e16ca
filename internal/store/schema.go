package store

import (
	"context"
	"fmt"
)

// Schema is bootstrapped at startup. Statements are idempotent so repeated
// starts (and parallel service instances) are safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS listings (
		id                 BIGSERIAL PRIMARY KEY,
		identity_key       TEXT NOT NULL UNIQUE,
		employer           TEXT NOT NULL,
		role_title         TEXT NOT NULL,
		location           TEXT NOT NULL DEFAULT '',
		apply_link         TEXT NOT NULL DEFAULT '',
		description        TEXT NOT NULL DEFAULT '',
		skills             JSONB NOT NULL DEFAULT '[]',
		extra_requirements TEXT NOT NULL DEFAULT '',
		source_name        TEXT NOT NULL DEFAULT '',
		posting_metadata   JSONB NOT NULL DEFAULT '{}',
		first_seen         TIMESTAMPTZ NOT NULL,
		last_seen          TIMESTAMPTZ NOT NULL,
		is_active          BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_active_seen ON listings (is_active, last_seen DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_employer_role ON listings (employer, role_title)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_source ON listings (source_name)`,
	`CREATE TABLE IF NOT EXISTS cache_runs (
		id            BIGSERIAL PRIMARY KEY,
		run_kind      TEXT NOT NULL,
		run_time      TIMESTAMPTZ NOT NULL DEFAULT now(),
		listings_seen INT NOT NULL DEFAULT 0,
		new_listings  INT NOT NULL DEFAULT 0,
		status        TEXT NOT NULL DEFAULT 'success',
		detail        TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_runs_time ON cache_runs (run_time DESC)`,
}

// InitSchema creates the listings and cache_runs tables if they do not
// exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema bootstrap: %w", err)
		}
	}
	return nil
}
