package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// IdentityKey derives the stable dedup key for a listing from its
// semantically significant fields. Employer, role title and location are
// lower-cased and trimmed; the apply link contributes only its host, so
// tracking parameters that churn between scrapes do not create duplicate
// rows. The function is pure: equal inputs always produce equal keys, and
// equal keys define "the same listing".
func IdentityKey(employer, roleTitle, location, applyLink string) string {
	parts := []string{
		normalizeField(employer),
		normalizeField(roleTitle),
		normalizeField(location),
		linkDomain(applyLink),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// IdentityKey computes the dedup key for a raw listing.
func (r RawListing) IdentityKey() string {
	return IdentityKey(r.Employer, r.RoleTitle, r.Location, r.ApplyLink)
}

func normalizeField(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// linkDomain reduces an apply link to its network location. Links that do
// not parse at all fall back to their first 50 characters so a malformed
// link still yields a stable key component.
func linkDomain(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		lowered := strings.ToLower(link)
		if len(lowered) > 50 {
			lowered = lowered[:50]
		}
		return lowered
	}
	return strings.ToLower(u.Host)
}
