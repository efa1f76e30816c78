package leaderboardservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
	leaderboarddb "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/repositories"
	scorecache "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/scorecache"
)

const placeholderName = "unknown"

// GetLeaderboard serves one cursor-delimited page of a namespace ordering.
// The score cache provides the ordering; the aggregate store provides display
// fields in a single batch fetch. When the cache is unreachable the read
// falls back to the durable ordering so leaderboards stay available.
func (s *RankingService) GetLeaderboard(ctx context.Context, scope leaderboarddomain.Scope, period leaderboarddomain.Period, limit int, cursor, country string) (*LeaderboardPage, error) {
	ctx, span := s.tracer.Start(ctx, "leaderboard.GetLeaderboard")
	defer span.End()
	start := s.now()

	if limit < 1 || limit > 100 {
		s.metrics.RecordQueryFailure(ctx, "get_leaderboard")
		return nil, ErrInvalidLimit
	}
	startRank, err := leaderboarddomain.DecodeCursor(cursor)
	if err != nil {
		s.metrics.RecordQueryFailure(ctx, "get_leaderboard")
		return nil, err
	}

	ns := leaderboarddomain.Namespace{Scope: scope, Period: period, Country: country}
	endRank := startRank + limit - 1

	entries, err := s.cache.RangeDesc(ctx, ns, startRank, endRank)
	if err != nil {
		s.logger.WarnContext(ctx, "score cache unavailable, serving leaderboard from store",
			slog.String("namespace", ns.String()),
			slog.Any("error", err))
		s.metrics.RecordCacheFallback(ctx, "get_leaderboard")
		return s.leaderboardFromStore(ctx, ns, startRank, limit)
	}

	total, err := s.cache.Cardinality(ctx, ns)
	if err != nil {
		s.metrics.RecordQueryFailure(ctx, "get_leaderboard")
		return nil, fmt.Errorf("get leaderboard: cardinality: %w", err)
	}

	ids := make([]leaderboarddomain.EntityID, len(entries))
	for i, e := range entries {
		ids[i] = e.EntityID
	}
	rows, err := s.repo.GetByIDs(ctx, nil, scope, ids)
	if err != nil {
		s.metrics.RecordQueryFailure(ctx, "get_leaderboard")
		return nil, fmt.Errorf("get leaderboard: display fetch: %w", err)
	}

	items := make([]LeaderboardItem, 0, len(entries))
	for i, entry := range entries {
		item := LeaderboardItem{
			Rank:     startRank + i + 1,
			EntityID: entry.EntityID,
			Points:   entry.Score,
		}
		if row, ok := rows[entry.EntityID]; ok {
			fillDisplay(&item, row)
		} else {
			// Present in the cache, missing from the store. Render a
			// placeholder so pages stay gap-free; reconciliation decides
			// whether the cache entry is an orphan.
			item.DisplayName = placeholderName
			item.Placeholder = true
		}
		items = append(items, item)
	}

	page := &LeaderboardPage{Period: period, Items: items, Total: total}
	if total > endRank+1 {
		next := leaderboarddomain.EncodeCursor(endRank + 1)
		page.NextCursor = &next
	}

	s.metrics.RecordQuery(ctx, "get_leaderboard", s.now().Sub(start))
	return page, nil
}

// leaderboardFromStore is the cache-outage read path: the durable ordering
// from TopByScore, paged in memory.
func (s *RankingService) leaderboardFromStore(ctx context.Context, ns leaderboarddomain.Namespace, startRank, limit int) (*LeaderboardPage, error) {
	rows, err := s.repo.TopByScore(ctx, nil, ns.Scope, ns.Period, ns.Country, 0)
	if err != nil {
		s.metrics.RecordQueryFailure(ctx, "get_leaderboard")
		return nil, fmt.Errorf("get leaderboard: store fallback: %w", err)
	}

	total := len(rows)
	items := make([]LeaderboardItem, 0, limit)
	for i := startRank; i < total && len(items) < limit; i++ {
		row := rows[i]
		item := LeaderboardItem{
			Rank:     i + 1,
			EntityID: leaderboarddomain.EntityID(row.ID),
			Points:   float64(periodPoints(row, ns.Period)),
		}
		fillDisplay(&item, row)
		items = append(items, item)
	}

	page := &LeaderboardPage{Period: ns.Period, Items: items, Total: total}
	if endRank := startRank + limit - 1; total > endRank+1 {
		next := leaderboarddomain.EncodeCursor(endRank + 1)
		page.NextCursor = &next
	}
	return page, nil
}

// GetRank returns a single entity's rank and points in a namespace, or
// ErrNotRanked when it has never scored there.
func (s *RankingService) GetRank(ctx context.Context, scope leaderboarddomain.Scope, entityID leaderboarddomain.EntityID, period leaderboarddomain.Period, country string) (*RankInfo, error) {
	ctx, span := s.tracer.Start(ctx, "leaderboard.GetRank")
	defer span.End()
	start := s.now()

	ns := leaderboarddomain.Namespace{Scope: scope, Period: period, Country: country}

	rank, score, err := s.cache.RankOf(ctx, ns, entityID)
	if err == nil {
		total, err := s.cache.Cardinality(ctx, ns)
		if err != nil {
			s.metrics.RecordQueryFailure(ctx, "get_rank")
			return nil, fmt.Errorf("get rank: cardinality: %w", err)
		}
		s.metrics.RecordQuery(ctx, "get_rank", s.now().Sub(start))
		return &RankInfo{Rank: rank + 1, Points: score, Total: total}, nil
	}
	if errors.Is(err, scorecache.ErrNotRanked) {
		return nil, ErrNotRanked
	}

	// Cache unreachable: cross-check against the durable store.
	s.logger.WarnContext(ctx, "score cache unavailable, computing rank from store",
		slog.String("namespace", ns.String()),
		slog.Any("error", err))
	s.metrics.RecordCacheFallback(ctx, "get_rank")

	ahead, err := s.repo.CountWithHigherScore(ctx, nil, scope, period, country, entityID)
	if err != nil {
		if errors.Is(err, leaderboarddb.ErrAggregateNotFound) {
			return nil, ErrNotRanked
		}
		s.metrics.RecordQueryFailure(ctx, "get_rank")
		return nil, fmt.Errorf("get rank: store fallback: %w", err)
	}
	row, err := s.repo.GetAggregate(ctx, nil, scope, entityID)
	if err != nil {
		s.metrics.RecordQueryFailure(ctx, "get_rank")
		return nil, fmt.Errorf("get rank: store fallback: %w", err)
	}
	points := periodPoints(*row, period)
	if points == 0 {
		return nil, ErrNotRanked
	}
	total, _, err := s.repo.PeriodTotals(ctx, nil, scope, period)
	if err != nil {
		s.metrics.RecordQueryFailure(ctx, "get_rank")
		return nil, fmt.Errorf("get rank: store fallback: %w", err)
	}

	s.metrics.RecordQuery(ctx, "get_rank", s.now().Sub(start))
	return &RankInfo{Rank: ahead + 1, Points: float64(points), Total: total}, nil
}

// GetMyRank resolves the authenticated caller's standing. User scope is a
// direct rank lookup; tribe scope resolves the caller's tribe membership
// first and returns ErrNoTribe when there is none.
func (s *RankingService) GetMyRank(ctx context.Context, userID leaderboarddomain.EntityID, scope leaderboarddomain.Scope, period leaderboarddomain.Period, country string) (*MyRank, error) {
	entityID := userID
	if scope == leaderboarddomain.ScopeTribes {
		row, err := s.repo.GetAggregate(ctx, nil, leaderboarddomain.ScopeUsers, userID)
		if err != nil {
			if errors.Is(err, leaderboarddb.ErrAggregateNotFound) {
				return nil, ErrNoTribe
			}
			return nil, fmt.Errorf("get my rank: resolve tribe: %w", err)
		}
		if row.TribeID == "" {
			return nil, ErrNoTribe
		}
		entityID = leaderboarddomain.EntityID(row.TribeID)
	}

	info, err := s.GetRank(ctx, scope, entityID, period, country)
	if err != nil {
		return nil, err
	}
	return &MyRank{Scope: scope, Period: period, Rank: info.Rank, Points: info.Points, Total: info.Total}, nil
}

// SearchRanked is reserved: name search over ranked entities is not built
// yet, and callers get an empty result rather than an error.
func (s *RankingService) SearchRanked(ctx context.Context, query string, scope leaderboarddomain.Scope, period leaderboarddomain.Period, country string) ([]LeaderboardItem, error) {
	_, span := s.tracer.Start(ctx, "leaderboard.SearchRanked")
	defer span.End()
	return []LeaderboardItem{}, nil
}

// WeeklyChampions returns the snapshot for the week containing weekStart.
func (s *RankingService) WeeklyChampions(ctx context.Context, weekStart time.Time) (*leaderboarddb.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "leaderboard.WeeklyChampions")
	defer span.End()

	key := leaderboarddomain.WeekWindow(weekStart).Key()
	snapshot, err := s.repo.GetSnapshot(ctx, nil, key)
	if err != nil {
		if errors.Is(err, leaderboarddb.ErrSnapshotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("weekly champions: %w", err)
	}
	return snapshot, nil
}

// RecentChampions returns the latest snapshots, newest first.
func (s *RankingService) RecentChampions(ctx context.Context, limit int) ([]leaderboarddb.Snapshot, error) {
	ctx, span := s.tracer.Start(ctx, "leaderboard.RecentChampions")
	defer span.End()

	if limit < 1 || limit > 10 {
		return nil, ErrInvalidLimit
	}
	snapshots, err := s.repo.ListSnapshots(ctx, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("recent champions: %w", err)
	}
	return snapshots, nil
}

func fillDisplay(item *LeaderboardItem, row leaderboarddb.AggregateRow) {
	item.DisplayName = row.DisplayName
	item.Avatar = row.Avatar
	item.TribeID = row.TribeID
	item.TribeName = row.TribeName
	item.Country = row.Country
	item.Streak = row.Streak
	item.MemberCount = row.MemberCount
	item.Stats = Stats{Wins: row.Wins, Losses: row.Losses, Votes: row.Votes}
}

func periodPoints(row leaderboarddb.AggregateRow, period leaderboarddomain.Period) int64 {
	if period == leaderboarddomain.PeriodWeekly {
		return row.WeeklyPoints
	}
	return row.AllTimePoints
}
