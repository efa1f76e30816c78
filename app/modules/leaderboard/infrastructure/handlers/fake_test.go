package leaderboardhandlers

import (
	"context"
	"time"

	leaderboardservice "github.com/tribe-arena/ranking-service/app/modules/leaderboard/application"
	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
	leaderboarddb "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/repositories"
)

// fakeService stubs the application surface with overridable func fields.
type fakeService struct {
	GetLeaderboardFunc  func(ctx context.Context, scope leaderboarddomain.Scope, period leaderboarddomain.Period, limit int, cursor, country string) (*leaderboardservice.LeaderboardPage, error)
	GetRankFunc         func(ctx context.Context, scope leaderboarddomain.Scope, entityID leaderboarddomain.EntityID, period leaderboarddomain.Period, country string) (*leaderboardservice.RankInfo, error)
	GetMyRankFunc       func(ctx context.Context, userID leaderboarddomain.EntityID, scope leaderboarddomain.Scope, period leaderboarddomain.Period, country string) (*leaderboardservice.MyRank, error)
	WeeklyChampionsFunc func(ctx context.Context, weekStart time.Time) (*leaderboarddb.Snapshot, error)
	RecentChampionsFunc func(ctx context.Context, limit int) ([]leaderboarddb.Snapshot, error)
	ChampionsChartFunc  func(ctx context.Context, weekStart time.Time) ([]byte, error)
	SearchRankedFunc    func(ctx context.Context, query string, scope leaderboarddomain.Scope, period leaderboarddomain.Period, country string) ([]leaderboardservice.LeaderboardItem, error)
}

var _ leaderboardservice.Service = (*fakeService)(nil)

func (f *fakeService) Award(context.Context, leaderboardservice.AwardRequest) (*leaderboardservice.AwardResult, error) {
	return &leaderboardservice.AwardResult{}, nil
}

func (f *fakeService) GetLeaderboard(ctx context.Context, scope leaderboarddomain.Scope, period leaderboarddomain.Period, limit int, cursor, country string) (*leaderboardservice.LeaderboardPage, error) {
	if f.GetLeaderboardFunc != nil {
		return f.GetLeaderboardFunc(ctx, scope, period, limit, cursor, country)
	}
	return &leaderboardservice.LeaderboardPage{Period: period, Items: []leaderboardservice.LeaderboardItem{}}, nil
}

func (f *fakeService) GetRank(ctx context.Context, scope leaderboarddomain.Scope, entityID leaderboarddomain.EntityID, period leaderboarddomain.Period, country string) (*leaderboardservice.RankInfo, error) {
	if f.GetRankFunc != nil {
		return f.GetRankFunc(ctx, scope, entityID, period, country)
	}
	return &leaderboardservice.RankInfo{}, nil
}

func (f *fakeService) GetMyRank(ctx context.Context, userID leaderboarddomain.EntityID, scope leaderboarddomain.Scope, period leaderboarddomain.Period, country string) (*leaderboardservice.MyRank, error) {
	if f.GetMyRankFunc != nil {
		return f.GetMyRankFunc(ctx, userID, scope, period, country)
	}
	return &leaderboardservice.MyRank{Scope: scope, Period: period}, nil
}

func (f *fakeService) SearchRanked(ctx context.Context, query string, scope leaderboarddomain.Scope, period leaderboarddomain.Period, country string) ([]leaderboardservice.LeaderboardItem, error) {
	if f.SearchRankedFunc != nil {
		return f.SearchRankedFunc(ctx, query, scope, period, country)
	}
	return []leaderboardservice.LeaderboardItem{}, nil
}

func (f *fakeService) WeeklyChampions(ctx context.Context, weekStart time.Time) (*leaderboarddb.Snapshot, error) {
	if f.WeeklyChampionsFunc != nil {
		return f.WeeklyChampionsFunc(ctx, weekStart)
	}
	return &leaderboarddb.Snapshot{}, nil
}

func (f *fakeService) RecentChampions(ctx context.Context, limit int) ([]leaderboarddb.Snapshot, error) {
	if f.RecentChampionsFunc != nil {
		return f.RecentChampionsFunc(ctx, limit)
	}
	return nil, nil
}

func (f *fakeService) ChampionsChart(ctx context.Context, weekStart time.Time) ([]byte, error) {
	if f.ChampionsChartFunc != nil {
		return f.ChampionsChartFunc(ctx, weekStart)
	}
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func (f *fakeService) RegisterUser(context.Context, *leaderboarddb.UserAggregate) error   { return nil }
func (f *fakeService) RegisterTribe(context.Context, *leaderboarddb.TribeAggregate) error { return nil }

func (f *fakeService) RunRollover(context.Context) (*leaderboarddb.Snapshot, error) {
	return &leaderboarddb.Snapshot{}, nil
}

func (f *fakeService) RunReconciliation(context.Context) (*leaderboardservice.ReconcileReport, error) {
	return &leaderboardservice.ReconcileReport{}, nil
}

func (f *fakeService) RefreshRanks(context.Context) error { return nil }
