package store

import (
	"time"

	"github.com/shirinalapati/Internship-App/internal/model"
)

// reseenUpdate stages the step-5 update for one re-observed listing:
// last_seen refreshed and the metadata bag fully replaced.
type reseenUpdate struct {
	key     string
	posting model.PostingMetadata
}

// upsertPlan is the partitioned batch staged for one transaction.
type upsertPlan struct {
	inserts []model.Listing
	reseen  []reseenUpdate
}

// planBatch partitions one scrape batch against a point-in-time snapshot of
// the keys already present in the store. Listings whose key is absent become
// full insert rows with first_seen = last_seen = now and is_active = true;
// listings whose key is present become last_seen/metadata updates. Duplicate
// keys within the batch collapse to their first occurrence, so a dirty
// scrape cannot stage the same row twice.
func planBatch(raws []model.RawListing, existing map[string]bool, now time.Time) upsertPlan {
	var plan upsertPlan
	staged := make(map[string]bool, len(raws))

	for _, raw := range raws {
		key := raw.IdentityKey()
		if staged[key] {
			continue
		}
		staged[key] = true

		if existing[key] {
			plan.reseen = append(plan.reseen, reseenUpdate{key: key, posting: raw.Posting})
			continue
		}

		plan.inserts = append(plan.inserts, model.Listing{
			IdentityKey:       key,
			Employer:          raw.Employer,
			RoleTitle:         raw.RoleTitle,
			Location:          raw.Location,
			ApplyLink:         raw.ApplyLink,
			Description:       raw.Description,
			Skills:            raw.Skills,
			ExtraRequirements: raw.ExtraRequirements,
			SourceName:        raw.SourceName,
			Posting:           raw.Posting,
			FirstSeen:         now,
			LastSeen:          now,
			IsActive:          true,
		})
	}

	return plan
}

// batchKeys returns the deduplicated identity keys of a raw batch, in
// first-occurrence order.
func batchKeys(raws []model.RawListing) []string {
	seen := make(map[string]bool, len(raws))
	keys := make([]string, 0, len(raws))
	for _, raw := range raws {
		k := raw.IdentityKey()
		if seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}
