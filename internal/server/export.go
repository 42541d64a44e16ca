package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/shirinalapati/Internship-App/internal/cache"
	"github.com/shirinalapati/Internship-App/internal/model"
)

// exportRow flattens a listing for the ops CSV export. Days since posted is
// a string so an absent age renders as an empty field instead of 0.
type exportRow struct {
	Employer        string `csv:"employer"`
	RoleTitle       string `csv:"role_title"`
	Location        string `csv:"location"`
	ApplyLink       string `csv:"apply_link"`
	SourceName      string `csv:"source_name"`
	DaysSincePosted string `csv:"days_since_posted"`
	FirstSeen       string `csv:"first_seen"`
	LastSeen        string `csv:"last_seen"`
	IsActive        bool   `csv:"is_active"`
}

func toExportRow(l model.Listing) exportRow {
	row := exportRow{
		Employer:   l.Employer,
		RoleTitle:  l.RoleTitle,
		Location:   l.Location,
		ApplyLink:  l.ApplyLink,
		SourceName: l.SourceName,
		FirstSeen:  l.FirstSeen.UTC().Format(time.RFC3339),
		LastSeen:   l.LastSeen.UTC().Format(time.RFC3339),
		IsActive:   l.IsActive,
	}
	if l.Posting.DaysSincePosted != nil {
		row.DaysSincePosted = strconv.Itoa(*l.Posting.DaysSincePosted)
	}
	return row
}

// handleExport handles GET /api/listings/export: the whole active set as
// CSV, cache-first like every other read.
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	listings, _, err := h.cache.ReadActiveSet(r.Context())
	if errors.Is(err, cache.ErrNoData) {
		log.Printf("[server] export unavailable: %v", err)
		jsonError(w, "listings temporarily unavailable, try again later", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		log.Printf("[server] export read error: %v", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	rows := make([]exportRow, 0, len(listings))
	for _, l := range listings {
		rows = append(rows, toExportRow(l))
	}

	data, err := csvutil.Marshal(rows)
	if err != nil {
		log.Printf("[server] csv marshal error: %v", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="active_listings.csv"`)
	w.Write(data)
}
