package leaderboardservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
	leaderboardevents "github.com/tribe-arena/ranking-service/app/modules/leaderboard/events"
	leaderboarddb "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/repositories"
)

// rolloverState names the phases of the weekly transition, for logging and
// failure triage. The job is retriable from the start of any phase.
type rolloverState string

const (
	stateSnapshotPending rolloverState = "snapshot_pending"
	stateSnapshotted     rolloverState = "snapshotted"
	stateWeeklyCleared   rolloverState = "weekly_cleared"
)

// RunRollover snapshots the week that just ended and resets the weekly
// period. The snapshot read comes from the aggregate store inside one
// transaction, not the cache, so in-flight awards cannot tear the standings.
// Snapshot creation is idempotent per period: a duplicate trigger (or a
// retry after a mid-clear failure of a previous run that did clear) finds
// the existing snapshot; only the run that created it performs the clear,
// so a second trigger cannot wipe the new week's awards.
func (s *RankingService) RunRollover(ctx context.Context) (*leaderboarddb.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "leaderboard.RunRollover")
	defer span.End()

	now := s.now()
	window := leaderboarddomain.PreviousWeekWindow(now)
	logger := s.logger.With(slog.String("period_key", window.Key()))

	logger.InfoContext(ctx, "rollover starting", slog.String("state", string(stateSnapshotPending)))

	var snapshot *leaderboarddb.Snapshot
	var created bool
	err := s.repo.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		built, err := s.buildSnapshot(ctx, tx, window, now)
		if err != nil {
			return err
		}
		snapshot, created, err = s.repo.CreateSnapshot(ctx, tx, built)
		return err
	})
	if err != nil {
		s.metrics.RecordRollover(ctx, "snapshot_failed")
		return nil, fmt.Errorf("rollover: snapshot: %w", err)
	}

	if !created {
		logger.InfoContext(ctx, "rollover already ran for period, skipping clear")
		s.metrics.RecordRollover(ctx, "duplicate")
		return snapshot, nil
	}

	logger.InfoContext(ctx, "rollover snapshot written", slog.String("state", string(stateSnapshotted)))

	if err := s.clearWeekly(ctx); err != nil {
		// The snapshot exists but the clear did not finish. The next trigger
		// will find the snapshot and skip, so operators must re-run the
		// clear; surface that loudly.
		s.metrics.RecordRollover(ctx, "clear_failed")
		return snapshot, fmt.Errorf("rollover: clear after snapshot %s: %w", window.Key(), err)
	}

	logger.InfoContext(ctx, "weekly period cleared", slog.String("state", string(stateWeeklyCleared)))

	s.publisher.PublishReset(ctx, leaderboardevents.ResetPayload{
		Event:       "reset",
		LastResetAt: now,
	})

	s.metrics.RecordRollover(ctx, "completed")
	return snapshot, nil
}

func (s *RankingService) buildSnapshot(ctx context.Context, tx bun.Tx, window leaderboarddomain.PeriodWindow, now time.Time) (*leaderboarddb.Snapshot, error) {
	topUsers, err := s.repo.TopByScore(ctx, tx, leaderboarddomain.ScopeUsers, leaderboarddomain.PeriodWeekly, "", s.snapshotTopN)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	topTribes, err := s.repo.TopByScore(ctx, tx, leaderboarddomain.ScopeTribes, leaderboarddomain.PeriodWeekly, "", s.snapshotTopN)
	if err != nil {
		return nil, fmt.Errorf("top tribes: %w", err)
	}
	userCount, userPoints, err := s.repo.PeriodTotals(ctx, tx, leaderboarddomain.ScopeUsers, leaderboarddomain.PeriodWeekly)
	if err != nil {
		return nil, fmt.Errorf("user totals: %w", err)
	}
	tribeCount, tribePoints, err := s.repo.PeriodTotals(ctx, tx, leaderboarddomain.ScopeTribes, leaderboarddomain.PeriodWeekly)
	if err != nil {
		return nil, fmt.Errorf("tribe totals: %w", err)
	}

	return &leaderboarddb.Snapshot{
		PeriodKey:        window.Key(),
		PeriodStart:      window.Start,
		PeriodEnd:        window.End,
		TopUsers:         snapshotEntries(topUsers, leaderboarddomain.PeriodWeekly),
		TopTribes:        snapshotEntries(topTribes, leaderboarddomain.PeriodWeekly),
		TotalUsers:       userCount,
		TotalTribes:      tribeCount,
		TotalUserPoints:  userPoints,
		TotalTribePoints: tribePoints,
		CreatedAt:        now,
	}, nil
}

// clearWeekly drops the weekly cache namespaces, then sweeps the store's
// weekly fields, for both scopes. An award landing between the two steps is
// a transient inconsistency that reconciliation repairs; the award itself is
// never lost because the store increment happens after the store sweep or is
// replayed by the caller on error.
func (s *RankingService) clearWeekly(ctx context.Context) error {
	now := s.now()
	for _, scope := range []leaderboarddomain.Scope{leaderboarddomain.ScopeUsers, leaderboarddomain.ScopeTribes} {
		countries, err := s.repo.DistinctCountries(ctx, nil, scope)
		if err != nil {
			return fmt.Errorf("list countries for %s: %w", scope, err)
		}
		namespaces := make([]leaderboarddomain.Namespace, 0, len(countries)+1)
		namespaces = append(namespaces, leaderboarddomain.Namespace{Scope: scope, Period: leaderboarddomain.PeriodWeekly})
		for _, country := range countries {
			namespaces = append(namespaces, leaderboarddomain.Namespace{Scope: scope, Period: leaderboarddomain.PeriodWeekly, Country: country})
		}
		for _, ns := range namespaces {
			if err := s.cache.Clear(ctx, ns); err != nil {
				return fmt.Errorf("clear cache %s: %w", ns, err)
			}
		}
		if err := s.repo.ResetWeekly(ctx, nil, scope, now); err != nil {
			return fmt.Errorf("reset store %s: %w", scope, err)
		}
	}
	return nil
}

// RefreshRanks persists the cached rank columns for every scope and period.
// Runs as a scheduled job: the original design recomputed ranks as a
// detached write after reads, which hid failures.
func (s *RankingService) RefreshRanks(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "leaderboard.RefreshRanks")
	defer span.End()

	for _, scope := range []leaderboarddomain.Scope{leaderboarddomain.ScopeUsers, leaderboarddomain.ScopeTribes} {
		for _, period := range []leaderboarddomain.Period{leaderboarddomain.PeriodWeekly, leaderboarddomain.PeriodAllTime} {
			if err := s.repo.RefreshRanks(ctx, nil, scope, period); err != nil {
				return fmt.Errorf("refresh ranks %s/%s: %w", scope, period, err)
			}
		}
	}
	return nil
}

func snapshotEntries(rows []leaderboarddb.AggregateRow, period leaderboarddomain.Period) []leaderboarddb.SnapshotEntry {
	entries := make([]leaderboarddb.SnapshotEntry, len(rows))
	for i, row := range rows {
		entries[i] = leaderboarddb.SnapshotEntry{
			EntityID:    row.ID,
			DisplayName: row.DisplayName,
			Avatar:      row.Avatar,
			Country:     row.Country,
			Points:      periodPoints(row, period),
			Rank:        i + 1,
		}
	}
	return entries
}
