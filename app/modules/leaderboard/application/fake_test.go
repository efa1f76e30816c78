package leaderboardservice

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/uptrace/bun"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
	leaderboardevents "github.com/tribe-arena/ranking-service/app/modules/leaderboard/events"
	leaderboarddb "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/repositories"
)

// ------------------------
// Fake Repository
// ------------------------

// FakeRepo is an in-memory Repository. Default behavior is a faithful model
// of the durable store; individual methods can be overridden per test via
// the Func fields to inject failures.
type FakeRepo struct {
	mu    sync.Mutex
	trace []string

	Users     map[string]*leaderboarddb.UserAggregate
	Tribes    map[string]*leaderboarddb.TribeAggregate
	Snapshots map[string]*leaderboarddb.Snapshot
	Tokens    map[string]*leaderboarddb.AppliedAward

	AwardPointsFunc    func(ctx context.Context, scope leaderboarddomain.Scope, entityID leaderboarddomain.EntityID, points int64) error
	ClaimAwardFunc     func(ctx context.Context, award *leaderboarddb.AppliedAward) (bool, *leaderboarddb.AppliedAward, error)
	CreateSnapshotFunc func(ctx context.Context, snapshot *leaderboarddb.Snapshot) (*leaderboarddb.Snapshot, bool, error)
	ResetWeeklyFunc    func(ctx context.Context, scope leaderboarddomain.Scope) error
}

var _ leaderboarddb.Repository = (*FakeRepo)(nil)

func NewFakeRepo() *FakeRepo {
	return &FakeRepo{
		Users:     map[string]*leaderboarddb.UserAggregate{},
		Tribes:    map[string]*leaderboarddb.TribeAggregate{},
		Snapshots: map[string]*leaderboarddb.Snapshot{},
		Tokens:    map[string]*leaderboarddb.AppliedAward{},
	}
}

func (f *FakeRepo) record(step string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trace = append(f.trace, step)
}

func (f *FakeRepo) Trace() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeRepo) UpsertUser(_ context.Context, _ bun.IDB, user *leaderboarddb.UserAggregate) error {
	f.record("UpsertUser")
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.Users[user.ID]; ok {
		existing.Username = user.Username
		existing.Avatar = user.Avatar
		existing.Country = user.Country
		existing.TribeID = user.TribeID
		existing.TribeName = user.TribeName
		existing.UpdatedAt = user.UpdatedAt
		return nil
	}
	clone := *user
	f.Users[user.ID] = &clone
	return nil
}

func (f *FakeRepo) UpsertTribe(_ context.Context, _ bun.IDB, tribe *leaderboarddb.TribeAggregate) error {
	f.record("UpsertTribe")
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.Tribes[tribe.ID]; ok {
		existing.Name = tribe.Name
		existing.Emblem = tribe.Emblem
		existing.Country = tribe.Country
		existing.MemberCount = tribe.MemberCount
		existing.UpdatedAt = tribe.UpdatedAt
		return nil
	}
	clone := *tribe
	f.Tribes[tribe.ID] = &clone
	return nil
}

func (f *FakeRepo) AwardPoints(ctx context.Context, _ bun.IDB, scope leaderboarddomain.Scope, entityID leaderboarddomain.EntityID, points int64, now time.Time) error {
	f.record("AwardPoints")
	if f.AwardPointsFunc != nil {
		return f.AwardPointsFunc(ctx, scope, entityID, points)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if scope == leaderboarddomain.ScopeUsers {
		user, ok := f.Users[string(entityID)]
		if !ok {
			user = &leaderboarddb.UserAggregate{ID: string(entityID), Username: string(entityID), CreatedAt: now}
			f.Users[string(entityID)] = user
		}
		user.WeeklyPoints += points
		user.AllTimePoints += points
		user.WeeklyUpdatedAt = now
		user.AllTimeUpdatedAt = now
		user.UpdatedAt = now
		return nil
	}
	tribe, ok := f.Tribes[string(entityID)]
	if !ok {
		tribe = &leaderboarddb.TribeAggregate{ID: string(entityID), Name: string(entityID), CreatedAt: now}
		f.Tribes[string(entityID)] = tribe
	}
	tribe.WeeklyPoints += points
	tribe.AllTimePoints += points
	tribe.WeeklyUpdatedAt = now
	tribe.AllTimeUpdatedAt = now
	tribe.UpdatedAt = now
	return nil
}

func (f *FakeRepo) rows(scope leaderboarddomain.Scope) []leaderboarddb.AggregateRow {
	var rows []leaderboarddb.AggregateRow
	if scope == leaderboarddomain.ScopeUsers {
		for _, u := range f.Users {
			rows = append(rows, leaderboarddb.AggregateRow{
				ID: u.ID, DisplayName: u.Username, Avatar: u.Avatar, Country: u.Country,
				TribeID: u.TribeID, TribeName: u.TribeName,
				WeeklyPoints: u.WeeklyPoints, WeeklyRank: u.WeeklyRank,
				AllTimePoints: u.AllTimePoints, AllTimeRank: u.AllTimeRank,
				Wins: u.Wins, Losses: u.Losses, Votes: u.Votes, Streak: u.Streak,
			})
		}
		return rows
	}
	for _, t := range f.Tribes {
		rows = append(rows, leaderboarddb.AggregateRow{
			ID: t.ID, DisplayName: t.Name, Avatar: t.Emblem, Country: t.Country,
			MemberCount: t.MemberCount,
			WeeklyPoints: t.WeeklyPoints, WeeklyRank: t.WeeklyRank,
			AllTimePoints: t.AllTimePoints, AllTimeRank: t.AllTimeRank,
			Wins: t.Wins, Losses: t.Losses, Votes: t.Votes,
		})
	}
	return rows
}

func rowPoints(row leaderboarddb.AggregateRow, period leaderboarddomain.Period) int64 {
	if period == leaderboarddomain.PeriodWeekly {
		return row.WeeklyPoints
	}
	return row.AllTimePoints
}

func (f *FakeRepo) GetAggregate(_ context.Context, _ bun.IDB, scope leaderboarddomain.Scope, entityID leaderboarddomain.EntityID) (*leaderboarddb.AggregateRow, error) {
	f.record("GetAggregate")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows(scope) {
		if row.ID == string(entityID) {
			r := row
			return &r, nil
		}
	}
	return nil, leaderboarddb.ErrAggregateNotFound
}

func (f *FakeRepo) GetByIDs(_ context.Context, _ bun.IDB, scope leaderboarddomain.Scope, ids []leaderboarddomain.EntityID) (map[leaderboarddomain.EntityID]leaderboarddb.AggregateRow, error) {
	f.record("GetByIDs")
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[string(id)] = true
	}
	result := make(map[leaderboarddomain.EntityID]leaderboarddb.AggregateRow)
	for _, row := range f.rows(scope) {
		if want[row.ID] {
			result[leaderboarddomain.EntityID(row.ID)] = row
		}
	}
	return result, nil
}

func (f *FakeRepo) TopByScore(_ context.Context, _ bun.IDB, scope leaderboarddomain.Scope, period leaderboarddomain.Period, country string, limit int) ([]leaderboarddb.AggregateRow, error) {
	f.record("TopByScore")
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []leaderboarddb.AggregateRow
	for _, row := range f.rows(scope) {
		if rowPoints(row, period) <= 0 {
			continue
		}
		if country != "" && row.Country != country {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		pi, pj := rowPoints(rows[i], period), rowPoints(rows[j], period)
		if pi != pj {
			return pi > pj
		}
		return rows[i].ID < rows[j].ID
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *FakeRepo) CountWithHigherScore(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, period leaderboarddomain.Period, country string, entityID leaderboarddomain.EntityID) (int, error) {
	f.record("CountWithHigherScore")
	row, err := f.GetAggregate(ctx, db, scope, entityID)
	if err != nil {
		return 0, err
	}
	points := rowPoints(*row, period)
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, other := range f.rows(scope) {
		if country != "" && other.Country != country {
			continue
		}
		op := rowPoints(other, period)
		if op > points || (op == points && other.ID < string(entityID)) {
			count++
		}
	}
	return count, nil
}

func (f *FakeRepo) PeriodTotals(_ context.Context, _ bun.IDB, scope leaderboarddomain.Scope, period leaderboarddomain.Period) (int, int64, error) {
	f.record("PeriodTotals")
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	var sum int64
	for _, row := range f.rows(scope) {
		if p := rowPoints(row, period); p > 0 {
			count++
			sum += p
		}
	}
	return count, sum, nil
}

func (f *FakeRepo) DistinctCountries(_ context.Context, _ bun.IDB, scope leaderboarddomain.Scope) ([]string, error) {
	f.record("DistinctCountries")
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var countries []string
	for _, row := range f.rows(scope) {
		if row.Country != "" && !seen[row.Country] {
			seen[row.Country] = true
			countries = append(countries, row.Country)
		}
	}
	sort.Strings(countries)
	return countries, nil
}

func (f *FakeRepo) ResetWeekly(ctx context.Context, _ bun.IDB, scope leaderboarddomain.Scope, now time.Time) error {
	f.record("ResetWeekly")
	if f.ResetWeeklyFunc != nil {
		return f.ResetWeeklyFunc(ctx, scope)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if scope == leaderboarddomain.ScopeUsers {
		for _, u := range f.Users {
			u.WeeklyPoints = 0
			u.WeeklyRank = 0
			u.WeeklyUpdatedAt = now
		}
		return nil
	}
	for _, t := range f.Tribes {
		t.WeeklyPoints = 0
		t.WeeklyRank = 0
		t.WeeklyUpdatedAt = now
	}
	return nil
}

func (f *FakeRepo) RefreshRanks(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, period leaderboarddomain.Period) error {
	f.record("RefreshRanks")
	rows, err := f.TopByScore(ctx, db, scope, period, "", 0)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, row := range rows {
		if scope == leaderboarddomain.ScopeUsers {
			if period == leaderboarddomain.PeriodWeekly {
				f.Users[row.ID].WeeklyRank = i + 1
			} else {
				f.Users[row.ID].AllTimeRank = i + 1
			}
		} else {
			if period == leaderboarddomain.PeriodWeekly {
				f.Tribes[row.ID].WeeklyRank = i + 1
			} else {
				f.Tribes[row.ID].AllTimeRank = i + 1
			}
		}
	}
	return nil
}

func (f *FakeRepo) CreateSnapshot(ctx context.Context, _ bun.IDB, snapshot *leaderboarddb.Snapshot) (*leaderboarddb.Snapshot, bool, error) {
	f.record("CreateSnapshot")
	if f.CreateSnapshotFunc != nil {
		return f.CreateSnapshotFunc(ctx, snapshot)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.Snapshots[snapshot.PeriodKey]; ok {
		return existing, false, nil
	}
	clone := *snapshot
	f.Snapshots[snapshot.PeriodKey] = &clone
	return &clone, true, nil
}

func (f *FakeRepo) GetSnapshot(_ context.Context, _ bun.IDB, periodKey string) (*leaderboarddb.Snapshot, error) {
	f.record("GetSnapshot")
	f.mu.Lock()
	defer f.mu.Unlock()
	if snapshot, ok := f.Snapshots[periodKey]; ok {
		return snapshot, nil
	}
	return nil, leaderboarddb.ErrSnapshotNotFound
}

func (f *FakeRepo) ListSnapshots(_ context.Context, _ bun.IDB, limit int) ([]leaderboarddb.Snapshot, error) {
	f.record("ListSnapshots")
	f.mu.Lock()
	defer f.mu.Unlock()
	var snapshots []leaderboarddb.Snapshot
	for _, s := range f.Snapshots {
		snapshots = append(snapshots, *s)
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].PeriodStart.After(snapshots[j].PeriodStart)
	})
	if limit > 0 && len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}
	return snapshots, nil
}

func (f *FakeRepo) ClaimAwardToken(ctx context.Context, _ bun.IDB, award *leaderboarddb.AppliedAward) (bool, *leaderboarddb.AppliedAward, error) {
	f.record("ClaimAwardToken")
	if f.ClaimAwardFunc != nil {
		return f.ClaimAwardFunc(ctx, award)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.Tokens[award.Token]; ok {
		return false, existing, nil
	}
	clone := *award
	f.Tokens[award.Token] = &clone
	return true, nil, nil
}

func (f *FakeRepo) RecordAwardResult(_ context.Context, _ bun.IDB, token string, weeklyScore, allTimeScore float64) error {
	f.record("RecordAwardResult")
	f.mu.Lock()
	defer f.mu.Unlock()
	if award, ok := f.Tokens[token]; ok {
		award.WeeklyScore = weeklyScore
		award.AllTimeScore = allTimeScore
	}
	return nil
}

func (f *FakeRepo) ReleaseAwardToken(_ context.Context, _ bun.IDB, token string) error {
	f.record("ReleaseAwardToken")
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Tokens, token)
	return nil
}

func (f *FakeRepo) PruneAwardTokens(_ context.Context, _ bun.IDB, before time.Time) (int, error) {
	f.record("PruneAwardTokens")
	f.mu.Lock()
	defer f.mu.Unlock()
	pruned := 0
	for token, award := range f.Tokens {
		if award.AppliedAt.Before(before) {
			delete(f.Tokens, token)
			pruned++
		}
	}
	return pruned, nil
}

func (f *FakeRepo) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	f.record("RunInTx")
	return fn(ctx, bun.Tx{})
}

// ------------------------
// Fake Publisher
// ------------------------

type FakePublisher struct {
	mu           sync.Mutex
	ScoreUpdates []leaderboardevents.ScoreUpdatedPayload
	Resets       []leaderboardevents.ResetPayload
}

var _ EventPublisher = (*FakePublisher)(nil)

func (f *FakePublisher) PublishScoreUpdated(_ context.Context, payload leaderboardevents.ScoreUpdatedPayload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ScoreUpdates = append(f.ScoreUpdates, payload)
}

func (f *FakePublisher) PublishReset(_ context.Context, payload leaderboardevents.ResetPayload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Resets = append(f.Resets, payload)
}
