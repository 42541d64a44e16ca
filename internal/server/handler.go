// Package server implements the HTTP surface of the listings cache.
//
// Routes:
//
//	GET  /health               → liveness probe
//	GET  /api/listings         → filtered active set (cache-first)
//	GET  /api/listings/export  → CSV export of the active set
//	GET  /api/cache/status     → two-tier availability and freshness
//	POST /api/refresh          → synchronous on-demand refresh pass
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/shirinalapati/Internship-App/internal/cache"
	"github.com/shirinalapati/Internship-App/internal/model"
	"github.com/shirinalapati/Internship-App/internal/refresh"
)

// ─── Response types ──────────────────────────────────────────────────────────

// listingsResponse is the JSON shape for GET /api/listings.
type listingsResponse struct {
	Listings   []model.Listing `json:"listings"`
	Count      int             `json:"count"`
	ServedFrom string          `json:"served_from"`
}

// ─── Handler ─────────────────────────────────────────────────────────────────

// ListingReader is the cache surface the read endpoints are served from.
type ListingReader interface {
	GetActiveListings(ctx context.Context, maxAgeDays, limit, offset int) ([]model.Listing, string, error)
	ReadActiveSet(ctx context.Context) ([]model.Listing, string, error)
	Status(ctx context.Context) model.CacheStatus
}

// Refresher runs one synchronous refresh pass.
type Refresher interface {
	Run(ctx context.Context, kind string, mode refresh.Mode) (refresh.Result, error)
}

// Handler holds shared dependencies.
type Handler struct {
	cache     ListingReader
	refresher Refresher

	// maxAgeDays is the default freshness window when the query string
	// does not narrow it.
	maxAgeDays int
}

// NewHandler returns a configured Handler.
func NewHandler(cache ListingReader, refresher Refresher, maxAgeDays int) *Handler {
	return &Handler{cache: cache, refresher: refresher, maxAgeDays: maxAgeDays}
}

// RegisterRoutes mounts all routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/api/listings", h.handleListings)
	mux.HandleFunc("/api/listings/export", h.handleExport)
	mux.HandleFunc("/api/cache/status", h.handleStatus)
	mux.HandleFunc("/api/refresh", h.handleRefresh)
}

// ─── Individual handlers ─────────────────────────────────────────────────────

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, map[string]string{"status": "ok", "service": "listings-cache"})
}

// handleListings handles GET /api/listings?max_age_days=&limit=&offset=
func (h *Handler) handleListings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	maxAge, err := queryInt(r, "max_age_days", h.maxAgeDays)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	listings, servedFrom, err := h.cache.GetActiveListings(r.Context(), maxAge, limit, offset)
	if errors.Is(err, cache.ErrNoData) {
		log.Printf("[server] listings unavailable: %v", err)
		jsonError(w, "listings temporarily unavailable, try again later", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		log.Printf("[server] listings read error: %v", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	if listings == nil {
		listings = []model.Listing{}
	}
	jsonOK(w, listingsResponse{Listings: listings, Count: len(listings), ServedFrom: servedFrom})
}

// handleStatus handles GET /api/cache/status
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonOK(w, h.cache.Status(r.Context()))
}

// handleRefresh handles POST /api/refresh with an optional {"mode": ...}
// body. The pass runs synchronously; a pass already in flight is a 409.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	mode, err := refresh.ParseMode(body.Mode)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.refresher.Run(r.Context(), model.RunKindOnDemand, mode)
	switch {
	case errors.Is(err, refresh.ErrRefreshInProgress):
		jsonError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		log.Printf("[server] on-demand refresh failed: %v", err)
		jsonError(w, fmt.Sprintf("refresh failed: %v", err), http.StatusBadGateway)
		return
	}

	jsonOK(w, res)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
