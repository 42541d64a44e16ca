// Package model defines the shared data structures for the listings service.
package model

import "time"

// PostingMetadata is the freshness/context bag attached to every listing.
// It is serialized as one JSONB value and fully overwritten on every
// re-sighting, never merged, so a corrected posting date takes effect on
// the next scrape pass.
type PostingMetadata struct {
	DaysSincePosted *int    `json:"days_since_posted,omitempty"`
	DatePostedRaw   *string `json:"date_posted_raw,omitempty"`
	JobType         string  `json:"job_type,omitempty"`
	LocationType    string  `json:"location_type,omitempty"`
	Sponsorship     string  `json:"sponsorship,omitempty"`
}

// RawListing is one listing as produced by a source adapter, before it has
// an identity in the store.
type RawListing struct {
	Employer          string          `json:"employer"`
	RoleTitle         string          `json:"role_title"`
	Location          string          `json:"location"`
	ApplyLink         string          `json:"apply_link"`
	Description       string          `json:"description"`
	Skills            []string        `json:"skills"`
	ExtraRequirements string          `json:"extra_requirements"`
	SourceName        string          `json:"source_name"`
	Posting           PostingMetadata `json:"posting_metadata"`
}

// Listing mirrors one row of the listings table. Rows are never deleted;
// lifecycle is tracked through last_seen and is_active.
type Listing struct {
	ID                int64           `json:"id"`
	IdentityKey       string          `json:"identity_key"`
	Employer          string          `json:"employer"`
	RoleTitle         string          `json:"role_title"`
	Location          string          `json:"location"`
	ApplyLink         string          `json:"apply_link"`
	Description       string          `json:"description"`
	Skills            []string        `json:"skills"`
	ExtraRequirements string          `json:"extra_requirements"`
	SourceName        string          `json:"source_name"`
	Posting           PostingMetadata `json:"posting_metadata"`
	FirstSeen         time.Time       `json:"first_seen"`
	LastSeen          time.Time       `json:"last_seen"`
	IsActive          bool            `json:"is_active"`
}

// Run kinds recorded in the cache_runs audit trail.
const (
	RunKindStartup   = "startup"
	RunKindScheduled = "scheduled"
	RunKindOnDemand  = "on_demand"
	RunKindManual    = "manual"
)

// Run statuses.
const (
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

// CacheRun is one append-only audit row per refresh pass.
type CacheRun struct {
	ID           int64     `json:"id"`
	RunKind      string    `json:"run_kind"`
	RunTime      time.Time `json:"run_time"`
	ListingsSeen int       `json:"listings_seen"`
	NewListings  int       `json:"new_listings"`
	Status       string    `json:"status"`
	Detail       string    `json:"detail,omitempty"`
}

// UpsertCounts summarises one bulk upsert pass.
type UpsertCounts struct {
	Seen             int `json:"seen"`
	New              int `json:"new"`
	Updated          int `json:"updated"`
	DeactivatedStale int `json:"deactivated_stale"`
	DeactivatedAged  int `json:"deactivated_aged"`
}

// StoreStats is the durable-store summary reported by the status surface.
type StoreStats struct {
	TotalListings    int            `json:"total_listings"`
	ActiveListings   int            `json:"active_listings"`
	InactiveListings int            `json:"inactive_listings"`
	NewLast24h       int            `json:"new_last_24h"`
	BySource         map[string]int `json:"by_source,omitempty"`
}

// CacheStatus is the two-tier availability/summary document returned to
// operators and the matching pipeline.
type CacheStatus struct {
	FastCacheUp    bool        `json:"fast_cache_up"`
	DurableStoreUp bool        `json:"durable_store_up"`
	Cached         bool        `json:"cached"`
	CachedListings int         `json:"cached_listings"`
	TTLSeconds     int64       `json:"ttl_seconds"`
	LastRefresh    *time.Time  `json:"last_refresh,omitempty"`
	Store          *StoreStats `json:"store,omitempty"`
	LatestRun      *CacheRun   `json:"latest_run,omitempty"`
}
