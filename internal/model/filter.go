package model

// FilterByMaxAge keeps listings whose reported age does not exceed
// maxAgeDays. Listings with no reported age pass the filter: an unknown
// posting date is given the benefit of the doubt rather than hidden.
// Input order is preserved.
func FilterByMaxAge(listings []Listing, maxAgeDays int) []Listing {
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if l.Posting.DaysSincePosted != nil && *l.Posting.DaysSincePosted > maxAgeDays {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Window applies offset/limit pagination. Offset past the end yields an
// empty slice; limit <= 0 means no limit.
func Window(listings []Listing, offset, limit int) []Listing {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(listings) {
		return []Listing{}
	}
	rest := listings[offset:]
	if limit > 0 && limit < len(rest) {
		rest = rest[:limit]
	}
	return rest
}
