package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mandimonitor/core/internal/api"
	"github.com/mandimonitor/core/internal/chat"
	"github.com/mandimonitor/core/internal/config"
	"github.com/mandimonitor/core/internal/logging"
	"github.com/mandimonitor/core/internal/provider/paapi"
	"github.com/mandimonitor/core/internal/provider/scrape"
	"github.com/mandimonitor/core/internal/ratelimit"
	"github.com/mandimonitor/core/internal/service/enrichment"
	"github.com/mandimonitor/core/internal/service/feature"
	"github.com/mandimonitor/core/internal/service/filter"
	"github.com/mandimonitor/core/internal/service/oracle"
	"github.com/mandimonitor/core/internal/service/scheduler"
	"github.com/mandimonitor/core/internal/service/search"
	"github.com/mandimonitor/core/internal/storage"
	"github.com/mandimonitor/core/pkg/models"
)

const marketplace = "www.amazon.in"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := logging.Setup(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logger.Info("starting MandiMonitor core",
		slog.String("version", "0.1.0"),
		slog.Int("port", cfg.Server.Port))

	db, err := storage.New(cfg.Server.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	users := storage.NewUserStore(db)
	watches := storage.NewWatchStore(db)
	clicks := storage.NewClickStore(db)
	observations := storage.NewPriceObservationStore(db)
	priceCache := storage.NewPriceCacheStore(db)

	governor := ratelimit.New()

	paapiClient := paapi.New(
		cfg.PAAPI.AccessKey, cfg.PAAPI.SecretKey, cfg.PAAPI.PartnerTag,
		governor,
		paapi.WithLogger(logger),
	)
	scraper := scrape.New()

	priceOracle := oracle.New(priceCache, paapiClient, scraper,
		oracle.WithFreshness(cfg.Cache.FreshTTL),
		oracle.WithStaleWindow(cfg.Cache.StaleTTL),
		oracle.WithLogger(logger))

	searchPl := search.New(paapiClient,
		search.WithSessionTTL(cfg.Cache.SearchCacheTTL),
		search.WithLogger(logger))
	enrichmentSvc := enrichment.New(paapiClient, enrichment.WithLogger(logger))
	matcher := feature.NewGamingMonitorMatcher()
	selector := filter.New(matcher)

	outbound := newLoggingOutbound(logger)
	digests := chat.NewDigestBuilder(outbound, chat.WithDigestLogger(logger))

	eval := &evaluator{
		oracle:       priceOracle,
		searchPl:     searchPl,
		enrichment:   enrichmentSvc,
		matcher:      matcher,
		selector:     selector,
		observations: observations,
		outbound:     outbound,
		digests:      digests,
		marketplace:  marketplace,
		affiliateTag: cfg.Server.AffiliateTag,
		logger:       logger,
	}

	sched := scheduler.New(eval.run,
		scheduler.WithLogger(logger),
		scheduler.WithDigestTime(cfg.Worker.DigestTime),
		scheduler.WithJobTimeout(cfg.Worker.JobTimeout),
		scheduler.WithQuietHours(cfg.Worker.QuietHourStart, cfg.Worker.QuietHourEnd),
		scheduler.WithWorkerPoolSize(cfg.Worker.PoolSize))

	// Register watches already on file before accepting new work.
	for _, mode := range []models.WatchMode{models.ModeDaily, models.ModeRealtime} {
		existing, err := watches.ListByMode(ctx, mode)
		if err != nil {
			logger.Error("failed to list watches for registration",
				slog.String("mode", string(mode)), slog.String("error", err.Error()))
			continue
		}
		for _, w := range existing {
			if err := sched.Register(*w); err != nil {
				logger.Error("failed to register watch",
					slog.String("watch_id", w.ID), slog.String("error", err.Error()))
			}
		}
		logger.Info("registered watches", slog.String("mode", string(mode)), slog.Int("count", len(existing)))
	}

	server := api.New(users, watches, clicks, observations,
		cfg.Admin.User, cfg.Admin.Pass,
		api.WithLogger(logger),
		api.WithPort(cfg.Server.Port))

	sched.Start(ctx)
	server.SetReady(true)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")
		server.SetReady(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		sched.Stop()
		if digests.Pending() > 0 {
			if err := digests.Flush(shutdownCtx); err != nil {
				logger.Error("digest flush on shutdown failed", slog.String("error", err.Error()))
			}
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", slog.String("error", err.Error()))
		}
	}()

	if err := server.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
