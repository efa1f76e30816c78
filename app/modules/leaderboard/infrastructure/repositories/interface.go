package leaderboarddb

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
)

// Repository is the durable store behind the ranking subsystem: aggregates,
// snapshots, and applied dedup tokens. Methods accept a bun.IDB so callers
// can run them inside a transaction; passing nil uses the pooled connection.
type Repository interface {
	// UpsertUser and UpsertTribe create or refresh an aggregate's denormalized
	// identity fields without touching point totals.
	UpsertUser(ctx context.Context, db bun.IDB, user *UserAggregate) error
	UpsertTribe(ctx context.Context, db bun.IDB, tribe *TribeAggregate) error

	// AwardPoints increments the weekly and all-time totals together in one
	// statement, creating the aggregate if absent. No observer can see one
	// period incremented without the other.
	AwardPoints(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, entityID leaderboarddomain.EntityID, points int64, now time.Time) error

	// GetAggregate returns a single entity's row, or ErrAggregateNotFound.
	GetAggregate(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, entityID leaderboarddomain.EntityID) (*AggregateRow, error)

	// GetByIDs batch-fetches display rows for the given ids. Missing ids are
	// simply absent from the result map.
	GetByIDs(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, ids []leaderboarddomain.EntityID) (map[leaderboarddomain.EntityID]AggregateRow, error)

	// TopByScore is the cache-independent read path, ordered by the period's
	// points descending with ascending id tie-break. limit<=0 means no limit.
	TopByScore(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, period leaderboarddomain.Period, country string, limit int) ([]AggregateRow, error)

	// CountWithHigherScore computes an entity's durable rank without the
	// cache: the number of entities strictly ahead of it in the ordering.
	CountWithHigherScore(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, period leaderboarddomain.Period, country string, entityID leaderboarddomain.EntityID) (int, error)

	// PeriodTotals returns the entity count and summed points for a period.
	PeriodTotals(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, period leaderboarddomain.Period) (count int, points int64, err error)

	// ResetWeekly zeroes weekly points and ranks for every aggregate of the
	// scope in a single sweep.
	ResetWeekly(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, now time.Time) error

	// RefreshRanks recomputes and persists the cached rank column for a
	// period from the current point totals.
	RefreshRanks(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, period leaderboarddomain.Period) error

	// DistinctCountries lists the countries present on aggregates of the
	// scope, used to enumerate country-filtered cache namespaces.
	DistinctCountries(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope) ([]string, error)

	// CreateSnapshot stores a period-end snapshot, at most once per period
	// key. The bool reports whether this call created it; if false the
	// existing snapshot is returned unchanged.
	CreateSnapshot(ctx context.Context, db bun.IDB, snapshot *Snapshot) (*Snapshot, bool, error)

	// GetSnapshot returns the snapshot for a period key, or ErrSnapshotNotFound.
	GetSnapshot(ctx context.Context, db bun.IDB, periodKey string) (*Snapshot, error)

	// ListSnapshots returns the most recent snapshots, newest first.
	ListSnapshots(ctx context.Context, db bun.IDB, limit int) ([]Snapshot, error)

	// ClaimAwardToken records a dedup token. The bool reports whether the
	// token was newly claimed; if false, the stored row carries the result
	// of the original award.
	ClaimAwardToken(ctx context.Context, db bun.IDB, award *AppliedAward) (bool, *AppliedAward, error)

	// RecordAwardResult stores the cache scores produced by a claimed award.
	RecordAwardResult(ctx context.Context, db bun.IDB, token string, weeklyScore, allTimeScore float64) error

	// ReleaseAwardToken frees a claimed token after a failed award so the
	// caller can retry with the same token.
	ReleaseAwardToken(ctx context.Context, db bun.IDB, token string) error

	// PruneAwardTokens deletes tokens applied before the cutoff.
	PruneAwardTokens(ctx context.Context, db bun.IDB, before time.Time) (int, error)

	// RunInTx executes fn inside a database transaction.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error
}

// Impl implements Repository on bun/PostgreSQL.
type Impl struct {
	db *bun.DB
}

var _ Repository = (*Impl)(nil)

func New(db *bun.DB) *Impl {
	return &Impl{db: db}
}
