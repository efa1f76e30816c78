package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"

	"github.com/tribe-arena/ranking-service/app/eventbus"
	leaderboardservice "github.com/tribe-arena/ranking-service/app/modules/leaderboard/application"
	leaderboardhandlers "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/handlers"
	leaderboardmetrics "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/metrics"
	leaderboardqueue "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/queue"
	leaderboarddb "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/repositories"
	"github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/realtime"
	"github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/scorecache"
	"github.com/tribe-arena/ranking-service/config"
)

// Module assembles the ranking subsystem: service, score cache, realtime
// publisher, scheduled jobs, and the HTTP surface.
type Module struct {
	RankingService leaderboardservice.Service
	QueueService   *leaderboardqueue.Service
	cancelFunc     context.CancelFunc
	logger         *slog.Logger
	routes         chi.Router
}

// NewLeaderboardModule wires the module from shared infrastructure.
func NewLeaderboardModule(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *bun.DB,
	repo leaderboarddb.Repository,
	redisClient *redis.Client,
	bus eventbus.EventBus,
	registry *prometheus.Registry,
) (*Module, error) {
	metrics := leaderboardmetrics.NewPrometheusMetrics(registry)
	cache := scorecache.NewRedisCache(redisClient, logger)
	publisher := realtime.NewPublisher(bus, logger, metrics)

	rankingService := leaderboardservice.NewRankingService(
		repo, cache, publisher, logger, metrics,
		leaderboardservice.WithSnapshotTopN(cfg.Leaderboard.SnapshotTopN),
		leaderboardservice.WithTokenRetention(cfg.Leaderboard.TokenRetention),
		leaderboardservice.WithTracer(otel.Tracer("leaderboard")),
	)

	queueService, err := leaderboardqueue.NewService(ctx, db, logger, cfg.Postgres.DSN, rankingService, leaderboardqueue.Config{
		ReconcileInterval:   cfg.Leaderboard.ReconcileInterval,
		RankRefreshInterval: cfg.Leaderboard.RankRefreshInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize leaderboard queue: %w", err)
	}

	handlers := leaderboardhandlers.NewLeaderboardHandlers(rankingService, logger)
	verifier := leaderboardhandlers.NewTokenVerifier(cfg.JWT.Secret)

	return &Module{
		RankingService: rankingService,
		QueueService:   queueService,
		logger:         logger,
		routes:         handlers.Routes(verifier),
	}, nil
}

// Routes returns the module's HTTP router, to be mounted by the app.
func (m *Module) Routes() chi.Router {
	return m.routes
}

// Run starts the scheduled jobs and blocks until the context is canceled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	if wg != nil {
		defer wg.Done()
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if err := m.QueueService.Start(ctx); err != nil {
		m.logger.ErrorContext(ctx, "failed to start leaderboard queue", slog.Any("error", err))
		return
	}

	m.logger.InfoContext(ctx, "leaderboard module running")
	<-ctx.Done()
	m.logger.InfoContext(ctx, "leaderboard module stopped")
}

// Close stops the module's background work.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	if err := m.QueueService.Stop(context.Background()); err != nil {
		return fmt.Errorf("failed to stop leaderboard queue: %w", err)
	}
	return nil
}
