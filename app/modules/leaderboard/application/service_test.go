package leaderboardservice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
	leaderboarddb "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/repositories"
	scorecache "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/scorecache"
)

// A Wednesday; the surrounding week starts Monday 2026-08-24 and the previous
// week key is 2026-08-17.
var testNow = time.Date(2026, time.August, 26, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*RankingService, *FakeRepo, *scorecache.MemoryCache, *FakePublisher) {
	t.Helper()
	repo := NewFakeRepo()
	cache := scorecache.NewMemoryCache()
	publisher := &FakePublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewRankingService(repo, cache, publisher, logger, NoopMetrics{},
		WithClock(func() time.Time { return testNow }),
		WithSnapshotTopN(10),
	)
	return svc, repo, cache, publisher
}

func seedUser(t *testing.T, svc *RankingService, id, country string, points int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, svc.RegisterUser(ctx, &leaderboarddb.UserAggregate{
		ID:       id,
		Username: "name-" + id,
		Country:  country,
	}))
	if points > 0 {
		_, err := svc.Award(ctx, AwardRequest{
			Scope:    leaderboarddomain.ScopeUsers,
			EntityID: leaderboarddomain.EntityID(id),
			Points:   points,
			Reason:   "seed",
			Ref:      "seed-" + id,
		})
		require.NoError(t, err)
	}
}

func TestRegisterUserRefreshesIdentity(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	seedUser(t, svc, "u1", "BR", 40)
	require.NoError(t, svc.RegisterUser(ctx, &leaderboarddb.UserAggregate{
		ID:       "u1",
		Username: "renamed",
		Country:  "BR",
	}))

	row, err := repo.GetAggregate(ctx, nil, leaderboarddomain.ScopeUsers, "u1")
	require.NoError(t, err)
	require.Equal(t, "renamed", row.DisplayName)
	require.Equal(t, int64(40), row.WeeklyPoints)
}

func TestRegisterTribe(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RegisterTribe(ctx, &leaderboarddb.TribeAggregate{
		ID:          "t1",
		Name:        "night owls",
		Country:     "US",
		MemberCount: 12,
	}))

	row, err := repo.GetAggregate(ctx, nil, leaderboarddomain.ScopeTribes, "t1")
	require.NoError(t, err)
	require.Equal(t, "night owls", row.DisplayName)
	require.Equal(t, 12, row.MemberCount)
}

func TestWithSnapshotTopNClampsNonPositive(t *testing.T) {
	repo := NewFakeRepo()
	cache := scorecache.NewMemoryCache()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewRankingService(repo, cache, &FakePublisher{}, logger, NoopMetrics{},
		WithSnapshotTopN(0))
	require.Equal(t, DefaultSnapshotTopN, svc.snapshotTopN)

	svc = NewRankingService(repo, cache, &FakePublisher{}, logger, NoopMetrics{},
		WithSnapshotTopN(-5))
	require.Equal(t, DefaultSnapshotTopN, svc.snapshotTopN)

	svc = NewRankingService(repo, cache, &FakePublisher{}, logger, NoopMetrics{},
		WithSnapshotTopN(25))
	require.Equal(t, 25, svc.snapshotTopN)
}

func seedField(t *testing.T, svc *RankingService, count int) {
	t.Helper()
	for i := 1; i <= count; i++ {
		seedUser(t, svc, fmt.Sprintf("u%03d", i), "", int64(i*10))
	}
}
