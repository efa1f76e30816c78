package leaderboardqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/uptrace/bun"

	leaderboardservice "github.com/tribe-arena/ranking-service/app/modules/leaderboard/application"
)

const queueName = "leaderboard"

// Config carries the schedule knobs for the periodic ranking jobs.
type Config struct {
	// ReconcileInterval between cache drift sweeps.
	ReconcileInterval time.Duration
	// RankRefreshInterval between persisted rank recomputations.
	RankRefreshInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.ReconcileInterval <= 0 {
		c.ReconcileInterval = 10 * time.Minute
	}
	if c.RankRefreshInterval <= 0 {
		c.RankRefreshInterval = 5 * time.Minute
	}
}

// Service owns the River client running the ranking subsystem's scheduled
// jobs: the weekly rollover, the reconciliation sweep, and the rank refresh.
type Service struct {
	client *river.Client[pgx.Tx]
	pool   *pgxpool.Pool
	db     *bun.DB
	logger *slog.Logger
}

// NewService builds the queue service. River needs its own pgx pool; the bun
// handle is only used for health queries against the river_job table.
func NewService(ctx context.Context, bunDB *bun.DB, logger *slog.Logger, dsn string, ranking leaderboardservice.Service, cfg Config) (*Service, error) {
	cfg.applyDefaults()

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewRolloverWorker(ranking, logger))
	river.AddWorker(workers, NewReconcileWorker(ranking, logger))
	river.AddWorker(workers, NewRankRefreshWorker(ranking, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
			queueName:          {MaxWorkers: 5},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				weeklyAt(time.Monday, 0, 5),
				func() (river.JobArgs, *river.InsertOpts) {
					return RolloverJob{}, &river.InsertOpts{Queue: queueName}
				},
				&river.PeriodicJobOpts{RunOnStart: false},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.ReconcileInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return ReconcileJob{}, &river.InsertOpts{Queue: queueName}
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(cfg.RankRefreshInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return RankRefreshJob{}, &river.InsertOpts{Queue: queueName}
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &Service{
		client: riverClient,
		pool:   pool,
		db:     bunDB,
		logger: logger,
	}, nil
}

// Start begins job processing.
func (s *Service) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.logger.InfoContext(ctx, "leaderboard queue service started")
	return nil
}

// Stop drains in-flight jobs and releases the pool.
func (s *Service) Stop(ctx context.Context) error {
	if err := s.client.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.pool.Close()
	s.logger.InfoContext(ctx, "leaderboard queue service stopped")
	return nil
}

// TriggerRollover enqueues an immediate rollover run, for operator use after
// a mid-clear failure.
func (s *Service) TriggerRollover(ctx context.Context) error {
	if _, err := s.client.Insert(ctx, RolloverJob{}, &river.InsertOpts{Queue: queueName}); err != nil {
		return fmt.Errorf("failed to enqueue rollover: %w", err)
	}
	return nil
}

// HealthCheck verifies the queue tables are reachable.
func (s *Service) HealthCheck(ctx context.Context) error {
	var count int
	err := s.db.NewSelect().
		Table("river_job").
		ColumnExpr("COUNT(*)").
		Scan(ctx, &count)
	if err != nil {
		return fmt.Errorf("queue health check failed: %w", err)
	}
	return nil
}

// weeklySchedule fires once per week at a fixed weekday and UTC time.
type weeklySchedule struct {
	weekday time.Weekday
	hour    int
	minute  int
}

func weeklyAt(weekday time.Weekday, hour, minute int) weeklySchedule {
	return weeklySchedule{weekday: weekday, hour: hour, minute: minute}
}

func (s weeklySchedule) Next(t time.Time) time.Time {
	t = t.UTC()
	next := time.Date(t.Year(), t.Month(), t.Day(), s.hour, s.minute, 0, 0, time.UTC)
	daysAhead := (int(s.weekday) - int(t.Weekday()) + 7) % 7
	next = next.AddDate(0, 0, daysAhead)
	if !next.After(t) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}
