package leaderboardservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
)

func TestAwardIncrementsBothPeriods(t *testing.T) {
	svc, repo, cache, publisher := newTestService(t)
	ctx := context.Background()

	seedUser(t, svc, "u1", "BR", 0)

	result, err := svc.Award(ctx, AwardRequest{
		Scope:    leaderboarddomain.ScopeUsers,
		EntityID: "u1",
		Points:   100,
		Reason:   "battle_win",
		Ref:      "battle-42",
	})
	require.NoError(t, err)
	require.False(t, result.Duplicate)
	require.Equal(t, float64(100), result.WeeklyScore)
	require.Equal(t, float64(100), result.AllTimeScore)

	for _, ns := range []leaderboarddomain.Namespace{
		{Scope: leaderboarddomain.ScopeUsers, Period: leaderboarddomain.PeriodWeekly},
		{Scope: leaderboarddomain.ScopeUsers, Period: leaderboarddomain.PeriodAllTime},
		{Scope: leaderboarddomain.ScopeUsers, Period: leaderboarddomain.PeriodWeekly, Country: "BR"},
		{Scope: leaderboarddomain.ScopeUsers, Period: leaderboarddomain.PeriodAllTime, Country: "BR"},
	} {
		_, score, err := cache.RankOf(ctx, ns, "u1")
		require.NoError(t, err, "namespace %s", ns)
		require.Equal(t, float64(100), score, "namespace %s", ns)
	}

	row, err := repo.GetAggregate(ctx, nil, leaderboarddomain.ScopeUsers, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(100), row.WeeklyPoints)
	require.Equal(t, int64(100), row.AllTimePoints)

	require.Len(t, publisher.ScoreUpdates, 2)
	require.Equal(t, leaderboarddomain.PeriodWeekly, publisher.ScoreUpdates[0].Period)
	require.Equal(t, leaderboarddomain.PeriodAllTime, publisher.ScoreUpdates[1].Period)
	require.Equal(t, int64(100), publisher.ScoreUpdates[0].Delta)
}

func TestAwardAccumulates(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	seedUser(t, svc, "u1", "", 0)
	for i, points := range []int64{40, 35} {
		result, err := svc.Award(ctx, AwardRequest{
			Scope:    leaderboarddomain.ScopeUsers,
			EntityID: "u1",
			Points:   points,
			Reason:   "vote",
			Ref:      string(rune('a' + i)),
		})
		require.NoError(t, err)
		require.False(t, result.Duplicate)
	}

	info, err := svc.GetRank(ctx, leaderboarddomain.ScopeUsers, "u1", leaderboarddomain.PeriodWeekly, "")
	require.NoError(t, err)
	require.Equal(t, float64(75), info.Points)
}

func TestAwardDuplicateTokenIsNoOp(t *testing.T) {
	svc, repo, cache, publisher := newTestService(t)
	ctx := context.Background()

	seedUser(t, svc, "u1", "", 0)
	req := AwardRequest{
		Scope:      leaderboarddomain.ScopeUsers,
		EntityID:   "u1",
		Points:     100,
		Reason:     "battle_win",
		Ref:        "battle-42",
		DedupToken: "tok-1",
	}

	first, err := svc.Award(ctx, req)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := svc.Award(ctx, req)
	require.NoError(t, err)
	require.True(t, second.Duplicate)
	require.Equal(t, first.WeeklyScore, second.WeeklyScore)
	require.Equal(t, first.AllTimeScore, second.AllTimeScore)

	ns := leaderboarddomain.Namespace{Scope: leaderboarddomain.ScopeUsers, Period: leaderboarddomain.PeriodWeekly}
	_, score, err := cache.RankOf(ctx, ns, "u1")
	require.NoError(t, err)
	require.Equal(t, float64(100), score)

	row, err := repo.GetAggregate(ctx, nil, leaderboarddomain.ScopeUsers, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(100), row.WeeklyPoints)

	// Only the applied award broadcast.
	require.Len(t, publisher.ScoreUpdates, 2)
}

func TestAwardDerivesTokenFromRequest(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	seedUser(t, svc, "u1", "", 0)
	req := AwardRequest{
		Scope:    leaderboarddomain.ScopeUsers,
		EntityID: "u1",
		Points:   25,
		Reason:   "vote",
		Ref:      "poll-7",
	}

	first, err := svc.Award(ctx, req)
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := svc.Award(ctx, req)
	require.NoError(t, err)
	require.True(t, second.Duplicate)
}

func TestAwardRejectsNonPositivePoints(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	for _, points := range []int64{0, -5} {
		_, err := svc.Award(ctx, AwardRequest{
			Scope:    leaderboarddomain.ScopeUsers,
			EntityID: "u1",
			Points:   points,
		})
		require.ErrorIs(t, err, ErrInvalidPoints)
	}
}

func TestAwardRejectsUnknownScope(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Award(context.Background(), AwardRequest{
		Scope:    "guilds",
		EntityID: "g1",
		Points:   10,
	})
	require.Error(t, err)
}

func TestAwardStoreFailureReleasesTokenForRetry(t *testing.T) {
	svc, repo, cache, _ := newTestService(t)
	ctx := context.Background()

	seedUser(t, svc, "u1", "", 0)
	storeErr := errors.New("connection reset")
	repo.AwardPointsFunc = func(context.Context, leaderboarddomain.Scope, leaderboarddomain.EntityID, int64) error {
		return storeErr
	}

	req := AwardRequest{
		Scope:      leaderboarddomain.ScopeUsers,
		EntityID:   "u1",
		Points:     100,
		Reason:     "battle_win",
		Ref:        "battle-42",
		DedupToken: "tok-1",
	}
	_, err := svc.Award(ctx, req)
	require.ErrorIs(t, err, storeErr)
	require.Empty(t, repo.Tokens, "token must be freed so the caller can retry")

	// The retry applies cleanly; the extra cache increment from the failed
	// attempt is drift that reconciliation pulls back to the store's value.
	repo.AwardPointsFunc = nil
	result, err := svc.Award(ctx, req)
	require.NoError(t, err)
	require.False(t, result.Duplicate)

	row, err := repo.GetAggregate(ctx, nil, leaderboarddomain.ScopeUsers, "u1")
	require.NoError(t, err)
	require.Equal(t, int64(100), row.WeeklyPoints)

	_, err = svc.RunReconciliation(ctx)
	require.NoError(t, err)

	ns := leaderboarddomain.Namespace{Scope: leaderboarddomain.ScopeUsers, Period: leaderboarddomain.PeriodWeekly}
	_, score, err := cache.RankOf(ctx, ns, "u1")
	require.NoError(t, err)
	require.Equal(t, float64(100), score)
}

func TestAwardCacheFailureReleasesToken(t *testing.T) {
	svc, repo, cache, publisher := newTestService(t)
	ctx := context.Background()

	seedUser(t, svc, "u1", "", 0)
	cache.FailNext = errors.New("cache down")

	_, err := svc.Award(ctx, AwardRequest{
		Scope:      leaderboarddomain.ScopeUsers,
		EntityID:   "u1",
		Points:     100,
		DedupToken: "tok-1",
	})
	require.Error(t, err)
	require.Empty(t, repo.Tokens)
	require.Empty(t, publisher.ScoreUpdates)
}
