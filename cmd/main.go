// internship-listings cache service
//
// Scrapes the SimplifyJobs internship board into PostgreSQL (the system
// of record), mirrors the active set into Redis for fast reads, and
// serves it over REST:
//   - GET  /api/listings          active listings, filterable by age
//   - GET  /api/listings/export   CSV snapshot of the active set
//   - GET  /api/cache/status      tier health, counts, last refresh
//   - POST /api/refresh           on-demand scrape pass
//
// Refresh passes run on a cron schedule. Redis being down degrades
// reads to store-only; PostgreSQL being down degrades them to 503.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/shirinalapati/Internship-App/internal/cache"
	"github.com/shirinalapati/Internship-App/internal/config"
	"github.com/shirinalapati/Internship-App/internal/db"
	"github.com/shirinalapati/Internship-App/internal/refresh"
	"github.com/shirinalapati/Internship-App/internal/scheduler"
	"github.com/shirinalapati/Internship-App/internal/scraper"
	"github.com/shirinalapati/Internship-App/internal/server"
	"github.com/shirinalapati/Internship-App/internal/store"
)

const version = "1.0.0"

func main() {
	// ── Config ──────────────────────────────────────────────────────────────
	if err := godotenv.Load(); err != nil {
		log.Println("[listings-cache] No .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[listings-cache] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	log.Println("[listings-cache] Connecting to PostgreSQL…")
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[listings-cache] PostgreSQL: %v", err)
	}
	defer pool.Close()

	st := store.New(pool, cfg.RetentionDays, cfg.StaleGraceDays)

	// The pool connects lazily, so an unreachable database is not fatal
	// here; reads return 503 until it comes back.
	if err := db.PingPostgres(ctx, pool); err != nil {
		log.Printf("[listings-cache] PostgreSQL unreachable at startup: %v", err)
	} else if err := st.InitSchema(ctx); err != nil {
		log.Printf("[listings-cache] Schema bootstrap failed: %v", err)
	} else {
		log.Println("[listings-cache] PostgreSQL connected, schema ready ✓")
	}

	// ── Redis (optional) ─────────────────────────────────────────────────────
	var fast cache.Redis
	if cfg.RedisURL == "" {
		log.Println("[listings-cache] REDIS_URL not set, running store-only")
	} else if rdb, err := db.NewRedisClient(ctx, cfg.RedisURL); err != nil {
		log.Printf("[listings-cache] Redis unavailable, running store-only: %v", err)
	} else {
		defer rdb.Close()
		fast = rdb
		log.Println("[listings-cache] Redis connected ✓")
	}

	// ── Wiring ───────────────────────────────────────────────────────────────
	svc := cache.NewService(fast, st, time.Duration(cfg.CacheTTLHours)*time.Hour)
	src := scraper.NewGitHubSource(cfg.SourceURL, 0)
	orch := refresh.New(src, st, svc, time.Duration(cfg.FullScrapeAfterHours)*time.Hour)

	sched := scheduler.New(orch, st, cfg.RefreshIntervalHours, cfg.MaintenanceIntervalHours, cfg.RunRetentionDays)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("[listings-cache] Scheduler: %v", err)
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	h := server.NewHandler(svc, orch, cfg.RetentionDays)
	h.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		// Must outlive a synchronous POST /api/refresh pass (60s ceiling).
		WriteTimeout: 90 * time.Second,
	}

	go func() {
		log.Printf("[listings-cache] v%s listening on :%s", version, cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[listings-cache] HTTP server error: %v", err)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[listings-cache] Shutting down…")
	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[listings-cache] Shutdown error: %v", err)
	}
	log.Println("[listings-cache] Stopped.")
}
