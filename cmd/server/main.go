package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/naperu/leadlens/internal/api"
	"github.com/naperu/leadlens/internal/attribution"
	"github.com/naperu/leadlens/internal/report"
	"github.com/naperu/leadlens/internal/repository"
	"github.com/naperu/leadlens/internal/revenue"
	"github.com/naperu/leadlens/internal/service"
	"github.com/naperu/leadlens/pkg/cache"
	"github.com/naperu/leadlens/pkg/config"
	"github.com/naperu/leadlens/pkg/database"
	"github.com/naperu/leadlens/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "leadlens: %v\n", err)
		os.Exit(1)
	}
}

// run owns every resource so that deferred cleanup runs before main exits.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	defer func() {
		if s, ok := log.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	repos := repository.NewRepositories(db)
	checks := map[string]api.HealthCheck{"database": db.Ping}

	// Redis is optional; without it reference data is read on every request.
	var store service.Store = repos
	if cfg.RedisURL != "" {
		redisCache, err := cache.New(cfg.RedisURL)
		if err != nil {
			log.Warn("redis unavailable, reference cache disabled", "error", err.Error())
		} else {
			defer redisCache.Close()
			store = service.NewCachedStore(repos, redisCache, cfg.ReferenceCacheTTL, log)
			checks["redis"] = redisCache.Ping
			log.Info("redis cache initialized")
		}
	}

	services := service.NewServices(store, service.Options{
		Loader: service.LoaderConfig{
			ChunkSize: cfg.FetchChunkSize,
			Timeout:   cfg.FetchTimeout,
		},
		Revenue: revenue.Options{
			Attribution: attribution.Options{
				Margin:        cfg.Dashboard.Attribution.ClickMargin(),
				LastClickWins: cfg.Dashboard.Attribution.LastClickWins,
			},
			ProximityWindow: cfg.Dashboard.Reconcile.ProximityWindow(),
		},
		Panels:   panelConfig(cfg.Dashboard.Panels),
		Location: loc,
	}, log)

	server := api.NewServer(cfg, services, checks, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown error", "error", err.Error())
		}
	}()

	log.Info("leadlens server starting", "port", cfg.Port, "timezone", loc.String())
	if err := server.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// panelConfig converts the file layout; an empty list keeps the defaults.
func panelConfig(panels []config.PanelConfig) report.Config {
	if len(panels) == 0 {
		return report.DefaultConfig()
	}
	out := report.Config{Panels: make([]report.Panel, 0, len(panels))}
	for _, p := range panels {
		out.Panels = append(out.Panels, report.Panel{ID: report.PanelID(p.ID), Visible: p.Visible, Order: p.Order})
	}
	return out
}
