package scraper

import "strings"

// JobType classifies a role title into the posting taxonomy. Internship is
// the default because the feeds are internship boards.
func JobType(roleTitle string) string {
	t := strings.ToLower(roleTitle)
	switch {
	case strings.Contains(t, "co-op") || strings.Contains(t, "coop"):
		return "Co-op"
	case strings.Contains(t, "intern"):
		return "Internship"
	case strings.Contains(t, "program"):
		return "Program"
	case strings.Contains(t, "associate"):
		return "Associate"
	default:
		return "Internship"
	}
}

// LocationType reads the work arrangement out of the location text.
func LocationType(location string) string {
	l := strings.ToLower(location)
	switch {
	case strings.Contains(l, "remote"):
		return "Remote"
	case strings.Contains(l, "hybrid"):
		return "Hybrid"
	default:
		return "On-site"
	}
}

// Sponsorship maps the board's visa emoji onto a readable label. Empty
// means the posting does not say.
func Sponsorship(roleTitle string) string {
	switch {
	case strings.Contains(roleTitle, "🛂"):
		return "No Sponsorship"
	case strings.Contains(roleTitle, "🇺🇸"):
		return "US Citizenship Required"
	default:
		return ""
	}
}
