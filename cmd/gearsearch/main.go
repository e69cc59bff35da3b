package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Cyclone1070/gearsearch/internal/api"
	"github.com/Cyclone1070/gearsearch/internal/catalog"
	"github.com/Cyclone1070/gearsearch/internal/config"
	"github.com/Cyclone1070/gearsearch/internal/logging"
	"github.com/Cyclone1070/gearsearch/internal/mock"
	"github.com/Cyclone1070/gearsearch/internal/search"
	"github.com/Cyclone1070/gearsearch/jobs"
	"github.com/Cyclone1070/gearsearch/pkg/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(exitWithError(err))
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("Shutdown complete")
}

func run(cfg config.Config, logger zerolog.Logger) error {
	ctx := context.Background()
	metrics := search.NewMetrics(prometheus.DefaultRegisterer)

	registry := search.NewRegistry()
	registry.Register(mock.New(nil))

	var store *catalog.Catalog
	if cfg.Catalog.Path != "" {
		if dir := filepath.Dir(cfg.Catalog.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		var err error
		store, err = catalog.Open(ctx, cfg.Catalog.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		registry.Register(store)
	}

	scrape, err := search.NewScrapeProvider(cfg.Search.Scrape, logger.With().Str("provider", search.ProviderScrape).Logger())
	if err != nil {
		return err
	}
	registry.Register(scrape)

	chain, err := registry.Chain(cfg.Search.Providers)
	if err != nil {
		return err
	}
	service := search.NewService(search.ServiceOptions{
		Router:         search.NewRouter(chain, logger, metrics),
		Cache:          search.NewCache(cfg.Search.Cache.Size, cfg.Search.Cache.TTL),
		Store:          storeOrNil(store),
		Logger:         logger,
		Metrics:        metrics,
		MaxConcurrency: cfg.Search.MaxConcurrency,
	})

	scheduler := jobs.NewScheduler(logger)
	if store != nil && cfg.Jobs.RefreshSpec != "" {
		err := scheduler.Add(cfg.Jobs.RefreshSpec, "refresh-catalog", func(ctx context.Context) error {
			_, err := jobs.RefreshCatalog(ctx, store, scrape, cfg.Jobs.RefreshQueries, logger)
			return err
		})
		if err != nil {
			return err
		}
	}
	scheduler.Start()

	server := api.New(service, api.Options{
		MaxResults:   cfg.Server.MaxResults,
		CORSOrigins:  cfg.Server.CORSOrigins,
		RateLimitRPS: cfg.Server.RateLimit.RPS,
		RateBurst:    cfg.Server.RateLimit.Burst,
		Frontend:     cfg.Server.Frontend,
		// leave a little of the write timeout for the response itself
		SearchTimeout: cfg.Server.WriteTimeout - time.Second,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Server.ListenAddr).
			Strs("providers", cfg.Search.Providers).
			Str("version", version.Version).
			Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-signals:
		logger.Info().Str("signal", s.String()).Msg("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("Jobs still running at shutdown")
	}
	return nil
}

// storeOrNil keeps a nil *catalog.Catalog from becoming a non-nil interface.
func storeOrNil(c *catalog.Catalog) search.Store {
	if c == nil {
		return nil
	}
	return c
}

func exitWithError(err error) int {
	_, _ = os.Stderr.WriteString("gearsearch error: " + err.Error() + "\n")
	return 1
}
