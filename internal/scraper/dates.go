package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Relative ages show up in several shapes ("5d", "5 days ago", "2w", "3mo").
var (
	relDays   = regexp.MustCompile(`(\d+)\s*d`)
	relWeeks  = regexp.MustCompile(`(\d+)\s*w`)
	relMonths = regexp.MustCompile(`(\d+)\s*mo`)
	relYears  = regexp.MustCompile(`(\d+)\s*y`)
)

// DaysSincePosted normalizes the free-form posting-date column into whole
// days elapsed as of now. It accepts relative forms ("today", "yesterday",
// "5d", "3 weeks ago"), ISO dates, "Oct 21" with or without a year, and
// slash dates (US order tried first). The second return is false when the
// value carries no parseable date; callers must treat that as absent, never
// as zero, because zero days means posted today.
func DaysSincePosted(raw string, now time.Time) (int, bool) {
	s := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if s == "" || s == "unknown" {
		return 0, false
	}

	switch {
	case strings.Contains(s, "today") || strings.Contains(s, "just now"):
		return 0, true
	case strings.Contains(s, "yesterday"):
		return 1, true
	case strings.Contains(s, "day") || strings.HasSuffix(s, "d"):
		if m := relDays.FindStringSubmatch(s); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n, true
		}
	case strings.Contains(s, "week") || strings.HasSuffix(s, "w"):
		if m := relWeeks.FindStringSubmatch(s); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n * 7, true
		}
	case strings.Contains(s, "month") || strings.Contains(s, "mo"):
		if m := relMonths.FindStringSubmatch(s); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n * 30, true
		}
	case strings.Contains(s, "year") || strings.HasSuffix(s, "y"):
		if m := relYears.FindStringSubmatch(s); m != nil {
			n, _ := strconv.Atoi(m[1])
			return n * 365, true
		}
	}

	if posted, err := time.Parse("2006-01-02", s); err == nil {
		return daysBetween(posted, now), true
	}

	// The reference layouts match month names case-sensitively while the
	// board mixes "Oct 21" with "oct 21".
	titled := capitalizeFirst(s)

	// "Oct 21" carries no year: assume the current one, and roll back a
	// year when that lands in the future.
	if posted, err := time.Parse("Jan 2 2006", fmt.Sprintf("%s %d", titled, now.Year())); err == nil {
		if startOfDay(posted).After(startOfDay(now)) {
			prev, err := time.Parse("Jan 2 2006", fmt.Sprintf("%s %d", titled, now.Year()-1))
			if err != nil {
				return 0, false
			}
			posted = prev
		}
		return daysBetween(posted, now), true
	}

	if posted, err := time.Parse("Jan 2, 2006", titled); err == nil {
		return daysBetween(posted, now), true
	}

	if posted, err := time.Parse("01/02/2006", s); err == nil {
		return daysBetween(posted, now), true
	}
	if posted, err := time.Parse("02/01/2006", s); err == nil {
		return daysBetween(posted, now), true
	}

	return 0, false
}

// daysBetween is the whole-calendar-day distance from posted up to now,
// clamped at zero so a slightly-future date never yields a negative age.
func daysBetween(posted, now time.Time) int {
	if d := int(startOfDay(now).Sub(startOfDay(posted)).Hours() / 24); d > 0 {
		return d
	}
	return 0
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
