package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/tribe-arena/ranking-service/app/eventbus"
	"github.com/tribe-arena/ranking-service/app/modules/leaderboard"
	"github.com/tribe-arena/ranking-service/config"
	"github.com/tribe-arena/ranking-service/db/bundb"
)

// App owns the shared infrastructure and the leaderboard module.
type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	db            *bundb.DBService
	redisClient   *redis.Client
	eventBus      eventbus.EventBus
	registry      *prometheus.Registry
	Leaderboard   *leaderboard.Module
	httpServer    *http.Server
	metricsServer *http.Server
}

// Initialize connects to Postgres, Redis, and NATS, then wires the module.
func (app *App) Initialize(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	app.Config = cfg
	app.Logger = logger

	dbService, err := bundb.NewBunDBService(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("failed to initialize database service: %w", err)
	}
	app.db = dbService

	app.redisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := app.redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	bus, err := eventbus.NewEventBus(ctx, cfg.NATS.URL, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}
	app.eventBus = bus
	if err := eventbus.InitializeStreams(ctx, bus, logger); err != nil {
		return fmt.Errorf("failed to initialize streams: %w", err)
	}

	app.registry = prometheus.NewRegistry()

	module, err := leaderboard.NewLeaderboardModule(
		ctx, cfg, logger, dbService.GetDB(), dbService.Ranking,
		app.redisClient, bus, app.registry,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize leaderboard module: %w", err)
	}
	app.Leaderboard = module

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Get("/healthz", app.handleHealth)
	router.Mount("/leaderboard", module.Routes())

	app.httpServer = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}))
		app.metricsServer = &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	return nil
}

// Run serves HTTP and the module's background jobs until ctx is canceled.
func (app *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(1)
	go app.Leaderboard.Run(ctx, &wg)

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Logger.Info("http server listening", slog.String("addr", app.httpServer.Addr))
		if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("http server failed", slog.Any("error", err))
		}
	}()

	if app.metricsServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := app.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				app.Logger.Error("metrics server failed", slog.Any("error", err))
			}
		}()
	}

	<-ctx.Done()
	app.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("http shutdown failed", slog.Any("error", err))
	}
	if app.metricsServer != nil {
		if err := app.metricsServer.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error("metrics shutdown failed", slog.Any("error", err))
		}
	}

	wg.Wait()
	return app.Close()
}

func (app *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := app.redisClient.Ping(r.Context()).Err(); err != nil {
		http.Error(w, "score cache unreachable", http.StatusServiceUnavailable)
		return
	}
	if err := app.db.GetDB().PingContext(r.Context()); err != nil {
		http.Error(w, "database unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Close releases connections in reverse order of acquisition.
func (app *App) Close() error {
	var errs []error
	if app.Leaderboard != nil {
		if err := app.Leaderboard.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if app.eventBus != nil {
		if err := app.eventBus.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.GetDB().Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
