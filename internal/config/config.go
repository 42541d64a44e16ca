// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, the process
// exits before touching any infrastructure.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultSourceURL is the listings document scraped when SOURCE_URL is
// unset. The README embeds the listings as literal HTML tables.
const DefaultSourceURL = "https://raw.githubusercontent.com/SimplifyJobs/Summer2026-Internships/dev/README.md"

// Config holds all runtime configuration for the listings service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string // empty disables the fast cache entirely
	SourceURL   string

	RefreshIntervalHours     int // how often the scheduled refresh fires
	FullScrapeAfterHours     int // auto mode picks a full scrape past this
	CacheTTLHours            int // fast-cache blob expiry
	RetentionDays            int // max listing age before the age sweep
	StaleGraceDays           int // last_seen grace before the staleness sweep
	RunRetentionDays         int // cache_runs rows older than this are pruned
	MaintenanceIntervalHours int // how often the maintenance sweeper fires
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// REDIS_URL is optional: the service runs store-only without it.
	redisURL := os.Getenv("REDIS_URL")

	sourceURL := os.Getenv("SOURCE_URL")
	if sourceURL == "" {
		sourceURL = DefaultSourceURL
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8083"
	}

	cfg := &Config{
		Port:        port,
		DatabaseURL: dbURL,
		RedisURL:    redisURL,
		SourceURL:   sourceURL,
	}

	ints := []struct {
		env string
		def int
		dst *int
	}{
		{"REFRESH_INTERVAL_HOURS", 24, &cfg.RefreshIntervalHours},
		{"FULL_SCRAPE_AFTER_HOURS", 24, &cfg.FullScrapeAfterHours},
		{"CACHE_TTL_HOURS", 4, &cfg.CacheTTLHours},
		{"RETENTION_DAYS", 30, &cfg.RetentionDays},
		{"STALE_GRACE_DAYS", 3, &cfg.StaleGraceDays},
		{"RUN_RETENTION_DAYS", 30, &cfg.RunRetentionDays},
		{"MAINTENANCE_INTERVAL_HOURS", 168, &cfg.MaintenanceIntervalHours},
	}
	for _, v := range ints {
		*v.dst = v.def
		if s := os.Getenv(v.env); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%s must be a positive integer, got %q", v.env, s)
			}
			*v.dst = n
		}
	}

	return cfg, nil
}
