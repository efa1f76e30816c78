package leaderboardqueue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"

	leaderboardservice "github.com/tribe-arena/ranking-service/app/modules/leaderboard/application"
)

// RolloverWorker runs the weekly transition when its periodic job fires.
type RolloverWorker struct {
	river.WorkerDefaults[RolloverJob]
	service leaderboardservice.Service
	logger  *slog.Logger
}

func NewRolloverWorker(service leaderboardservice.Service, logger *slog.Logger) *RolloverWorker {
	return &RolloverWorker{service: service, logger: logger}
}

func (w *RolloverWorker) Work(ctx context.Context, job *river.Job[RolloverJob]) error {
	snapshot, err := w.service.RunRollover(ctx)
	if err != nil {
		return fmt.Errorf("rollover job: %w", err)
	}
	w.logger.InfoContext(ctx, "rollover job completed",
		slog.String("period_key", snapshot.PeriodKey),
		slog.Int("top_users", len(snapshot.TopUsers)))
	return nil
}

// ReconcileWorker repairs score cache drift on its interval.
type ReconcileWorker struct {
	river.WorkerDefaults[ReconcileJob]
	service leaderboardservice.Service
	logger  *slog.Logger
}

func NewReconcileWorker(service leaderboardservice.Service, logger *slog.Logger) *ReconcileWorker {
	return &ReconcileWorker{service: service, logger: logger}
}

func (w *ReconcileWorker) Work(ctx context.Context, job *river.Job[ReconcileJob]) error {
	report, err := w.service.RunReconciliation(ctx)
	if err != nil {
		return fmt.Errorf("reconcile job: %w", err)
	}
	w.logger.InfoContext(ctx, "reconciliation completed",
		slog.Int("namespaces", report.Namespaces),
		slog.Int("repaired", report.Repaired),
		slog.Int("orphans", report.Orphans),
		slog.Int("pruned_tokens", report.PrunedTokens))
	return nil
}

// RankRefreshWorker persists rank columns on its interval.
type RankRefreshWorker struct {
	river.WorkerDefaults[RankRefreshJob]
	service leaderboardservice.Service
	logger  *slog.Logger
}

func NewRankRefreshWorker(service leaderboardservice.Service, logger *slog.Logger) *RankRefreshWorker {
	return &RankRefreshWorker{service: service, logger: logger}
}

func (w *RankRefreshWorker) Work(ctx context.Context, job *river.Job[RankRefreshJob]) error {
	if err := w.service.RefreshRanks(ctx); err != nil {
		return fmt.Errorf("rank refresh job: %w", err)
	}
	w.logger.DebugContext(ctx, "rank refresh completed")
	return nil
}
