package leaderboardservice

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	scorecache "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/scorecache"
	leaderboarddb "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/repositories"
)

const (
	// DefaultSnapshotTopN is how many standings a rollover snapshot freezes.
	DefaultSnapshotTopN = 100

	// DefaultTokenRetention is how long applied dedup tokens are kept before
	// pruning. Long enough to absorb upstream queue redelivery.
	DefaultTokenRetention = 7 * 24 * time.Hour
)

// RankingService implements the award, query, rollover, and reconciliation
// contracts of the ranking subsystem.
type RankingService struct {
	repo      leaderboarddb.Repository
	cache     scorecache.ScoreCache
	publisher EventPublisher
	logger    *slog.Logger
	metrics   Metrics
	tracer    trace.Tracer

	snapshotTopN   int
	tokenRetention time.Duration
	now            func() time.Time
}

var _ Service = (*RankingService)(nil)

// Option tweaks a RankingService at construction.
type Option func(*RankingService)

// WithSnapshotTopN caps how many standings a rollover snapshot freezes.
// Non-positive values fall back to the default.
func WithSnapshotTopN(n int) Option {
	return func(s *RankingService) {
		if n <= 0 {
			n = DefaultSnapshotTopN
		}
		s.snapshotTopN = n
	}
}

func WithTokenRetention(d time.Duration) Option {
	return func(s *RankingService) { s.tokenRetention = d }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *RankingService) { s.tracer = tracer }
}

// WithClock replaces the time source. Tests pin it.
func WithClock(now func() time.Time) Option {
	return func(s *RankingService) { s.now = now }
}

// NewRankingService wires the service from injected collaborators. Nothing is
// ambient: callers own the cache client, the repository, and the publisher.
func NewRankingService(
	repo leaderboarddb.Repository,
	cache scorecache.ScoreCache,
	publisher EventPublisher,
	logger *slog.Logger,
	metrics Metrics,
	opts ...Option,
) *RankingService {
	s := &RankingService{
		repo:           repo,
		cache:          cache,
		publisher:      publisher,
		logger:         logger,
		metrics:        metrics,
		tracer:         noop.NewTracerProvider().Tracer("leaderboard"),
		snapshotTopN:   DefaultSnapshotTopN,
		tokenRetention: DefaultTokenRetention,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NoopMetrics{}
	}
	return s
}
