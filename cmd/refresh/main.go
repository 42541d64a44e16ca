// refresh is the one-shot operations tool for the listings cache. It
// runs a single manual refresh pass (or just reports status) against the
// same environment the service reads:
//
//	refresh               auto pass: full when the marker is stale, else incremental
//	refresh -full         force a full scrape
//	refresh -incremental  force an incremental pass
//	refresh -status-only  print tier status without refreshing
//	refresh -days 7       count only listings posted within 7 days
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/shirinalapati/Internship-App/internal/cache"
	"github.com/shirinalapati/Internship-App/internal/config"
	"github.com/shirinalapati/Internship-App/internal/db"
	"github.com/shirinalapati/Internship-App/internal/model"
	"github.com/shirinalapati/Internship-App/internal/refresh"
	"github.com/shirinalapati/Internship-App/internal/scraper"
	"github.com/shirinalapati/Internship-App/internal/store"
)

func main() {
	var (
		full        = flag.Bool("full", false, "force a full scrape pass")
		incremental = flag.Bool("incremental", false, "force an incremental pass")
		statusOnly  = flag.Bool("status-only", false, "print cache status without refreshing")
		days        = flag.Int("days", 0, "max listing age in days for the sample count (0 = retention window)")
	)
	flag.Parse()

	if *full && *incremental {
		log.Fatal("[refresh-cli] -full and -incremental are mutually exclusive")
	}

	if err := godotenv.Load(); err != nil {
		log.Println("[refresh-cli] No .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[refresh-cli] Config error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Stores ───────────────────────────────────────────────────────────────
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[refresh-cli] PostgreSQL: %v", err)
	}
	defer pool.Close()

	st := store.New(pool, cfg.RetentionDays, cfg.StaleGraceDays)
	if err := st.InitSchema(ctx); err != nil {
		log.Fatalf("[refresh-cli] Schema bootstrap: %v", err)
	}

	var fast cache.Redis
	if cfg.RedisURL == "" {
		log.Println("[refresh-cli] REDIS_URL not set, running store-only")
	} else if rdb, err := db.NewRedisClient(ctx, cfg.RedisURL); err != nil {
		log.Printf("[refresh-cli] Redis unavailable, running store-only: %v", err)
	} else {
		defer rdb.Close()
		fast = rdb
	}

	svc := cache.NewService(fast, st, time.Duration(cfg.CacheTTLHours)*time.Hour)

	// ── Pass ─────────────────────────────────────────────────────────────────
	if !*statusOnly {
		mode := refresh.ModeAuto
		switch {
		case *full:
			mode = refresh.ModeFull
		case *incremental:
			mode = refresh.ModeIncremental
		}

		src := scraper.NewGitHubSource(cfg.SourceURL, 0)
		orch := refresh.New(src, st, svc, time.Duration(cfg.FullScrapeAfterHours)*time.Hour)

		res, err := orch.Run(ctx, model.RunKindManual, mode)
		if err != nil {
			log.Fatalf("[refresh-cli] Refresh failed: %v", err)
		}
		fmt.Printf("refresh complete (mode=%s)\n", res.Mode)
		fmt.Printf("  seen=%d new=%d updated=%d deactivated_stale=%d deactivated_aged=%d\n",
			res.Counts.Seen, res.Counts.New, res.Counts.Updated,
			res.Counts.DeactivatedStale, res.Counts.DeactivatedAged)
	}

	// ── Status ───────────────────────────────────────────────────────────────
	status := svc.Status(ctx)
	fmt.Println("cache status:")
	fmt.Printf("  fast cache up:    %t\n", status.FastCacheUp)
	fmt.Printf("  durable store up: %t\n", status.DurableStoreUp)
	fmt.Printf("  cached blob:      %t (%d listings, ttl %ds)\n",
		status.Cached, status.CachedListings, status.TTLSeconds)
	if status.LastRefresh != nil {
		fmt.Printf("  last refresh:     %s\n", status.LastRefresh.Format(time.RFC3339))
	}
	if status.Store != nil {
		fmt.Printf("  store listings:   %d total, %d active, %d new in 24h\n",
			status.Store.TotalListings, status.Store.ActiveListings, status.Store.NewLast24h)
	}
	if status.LatestRun != nil {
		fmt.Printf("  latest run:       %s %s (%d seen, %d new)\n",
			status.LatestRun.RunKind, status.LatestRun.Status,
			status.LatestRun.ListingsSeen, status.LatestRun.NewListings)
	}

	maxAge := *days
	if maxAge <= 0 {
		maxAge = cfg.RetentionDays
	}
	listings, servedFrom, err := svc.GetActiveListings(ctx, maxAge, 0, 0)
	if err != nil {
		log.Fatalf("[refresh-cli] Listing read failed: %v", err)
	}
	fmt.Printf("active listings within %dd: %d (served from %s)\n", maxAge, len(listings), servedFrom)
}
