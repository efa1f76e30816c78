package leaderboarddb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
)

func pointsColumn(period leaderboarddomain.Period) string {
	if period == leaderboarddomain.PeriodWeekly {
		return "weekly_points"
	}
	return "alltime_points"
}

func rankColumn(period leaderboarddomain.Period) string {
	if period == leaderboarddomain.PeriodWeekly {
		return "weekly_rank"
	}
	return "alltime_rank"
}

func tableName(scope leaderboarddomain.Scope) string {
	if scope == leaderboarddomain.ScopeUsers {
		return "user_aggregates"
	}
	return "tribe_aggregates"
}

// UpsertUser creates or refreshes a user's denormalized identity fields.
// Point totals are never written here; AwardPoints owns those.
func (r *Impl) UpsertUser(ctx context.Context, db bun.IDB, user *UserAggregate) error {
	if db == nil {
		db = r.db
	}
	_, err := db.NewInsert().
		Model(user).
		On("CONFLICT (id) DO UPDATE").
		Set("username = EXCLUDED.username").
		Set("avatar = EXCLUDED.avatar").
		Set("country = EXCLUDED.country").
		Set("tribe_id = EXCLUDED.tribe_id").
		Set("tribe_name = EXCLUDED.tribe_name").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("leaderboarddb.UpsertUser: %w", err)
	}
	return nil
}

// UpsertTribe creates or refreshes a tribe's denormalized identity fields.
func (r *Impl) UpsertTribe(ctx context.Context, db bun.IDB, tribe *TribeAggregate) error {
	if db == nil {
		db = r.db
	}
	_, err := db.NewInsert().
		Model(tribe).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("emblem = EXCLUDED.emblem").
		Set("country = EXCLUDED.country").
		Set("member_count = EXCLUDED.member_count").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("leaderboarddb.UpsertTribe: %w", err)
	}
	return nil
}

// AwardPoints increments weekly and all-time totals in a single statement so
// no reader can observe one period updated without the other. An aggregate is
// created on first award, with the entity id standing in for the display name
// until an identity refresh fills it.
func (r *Impl) AwardPoints(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, entityID leaderboarddomain.EntityID, points int64, now time.Time) error {
	if db == nil {
		db = r.db
	}

	var err error
	switch scope {
	case leaderboarddomain.ScopeUsers:
		user := &UserAggregate{
			ID:               string(entityID),
			Username:         string(entityID),
			WeeklyPoints:     points,
			AllTimePoints:    points,
			WeeklyUpdatedAt:  now,
			AllTimeUpdatedAt: now,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		_, err = db.NewInsert().
			Model(user).
			On("CONFLICT (id) DO UPDATE").
			Set("weekly_points = ua.weekly_points + EXCLUDED.weekly_points").
			Set("alltime_points = ua.alltime_points + EXCLUDED.alltime_points").
			Set("weekly_updated_at = EXCLUDED.weekly_updated_at").
			Set("alltime_updated_at = EXCLUDED.alltime_updated_at").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
	default:
		tribe := &TribeAggregate{
			ID:               string(entityID),
			Name:             string(entityID),
			WeeklyPoints:     points,
			AllTimePoints:    points,
			WeeklyUpdatedAt:  now,
			AllTimeUpdatedAt: now,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		_, err = db.NewInsert().
			Model(tribe).
			On("CONFLICT (id) DO UPDATE").
			Set("weekly_points = ta.weekly_points + EXCLUDED.weekly_points").
			Set("alltime_points = ta.alltime_points + EXCLUDED.alltime_points").
			Set("weekly_updated_at = EXCLUDED.weekly_updated_at").
			Set("alltime_updated_at = EXCLUDED.alltime_updated_at").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
	}
	if err != nil {
		return fmt.Errorf("leaderboarddb.AwardPoints: %w", err)
	}
	return nil
}

// GetAggregate returns one entity's row.
func (r *Impl) GetAggregate(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, entityID leaderboarddomain.EntityID) (*AggregateRow, error) {
	if db == nil {
		db = r.db
	}

	if scope == leaderboarddomain.ScopeUsers {
		user := new(UserAggregate)
		err := db.NewSelect().Model(user).Where("id = ?", string(entityID)).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrAggregateNotFound
			}
			return nil, fmt.Errorf("leaderboarddb.GetAggregate: %w", err)
		}
		row := user.row()
		return &row, nil
	}

	tribe := new(TribeAggregate)
	err := db.NewSelect().Model(tribe).Where("id = ?", string(entityID)).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAggregateNotFound
		}
		return nil, fmt.Errorf("leaderboarddb.GetAggregate: %w", err)
	}
	row := tribe.row()
	return &row, nil
}

// GetByIDs batch-fetches display rows. Ids without a record are absent from
// the result; the caller decides how to render the gap.
func (r *Impl) GetByIDs(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, ids []leaderboarddomain.EntityID) (map[leaderboarddomain.EntityID]AggregateRow, error) {
	if db == nil {
		db = r.db
	}
	result := make(map[leaderboarddomain.EntityID]AggregateRow, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}

	if scope == leaderboarddomain.ScopeUsers {
		var users []UserAggregate
		err := db.NewSelect().Model(&users).Where("id IN (?)", bun.In(raw)).Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("leaderboarddb.GetByIDs: %w", err)
		}
		for i := range users {
			result[leaderboarddomain.EntityID(users[i].ID)] = users[i].row()
		}
		return result, nil
	}

	var tribes []TribeAggregate
	err := db.NewSelect().Model(&tribes).Where("id IN (?)", bun.In(raw)).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboarddb.GetByIDs: %w", err)
	}
	for i := range tribes {
		result[leaderboarddomain.EntityID(tribes[i].ID)] = tribes[i].row()
	}
	return result, nil
}

// TopByScore reads the durable ordering directly, bypassing the cache. Used
// by rollover snapshots, reconciliation, and as the cache-outage fallback.
func (r *Impl) TopByScore(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, period leaderboarddomain.Period, country string, limit int) ([]AggregateRow, error) {
	if db == nil {
		db = r.db
	}
	col := pointsColumn(period)

	if scope == leaderboarddomain.ScopeUsers {
		var users []UserAggregate
		q := db.NewSelect().Model(&users).
			Where("? > 0", bun.Ident(col)).
			OrderExpr("? DESC, id ASC", bun.Ident(col))
		if country != "" {
			q = q.Where("country = ?", country)
		}
		if limit > 0 {
			q = q.Limit(limit)
		}
		if err := q.Scan(ctx); err != nil {
			return nil, fmt.Errorf("leaderboarddb.TopByScore: %w", err)
		}
		rows := make([]AggregateRow, len(users))
		for i := range users {
			rows[i] = users[i].row()
		}
		return rows, nil
	}

	var tribes []TribeAggregate
	q := db.NewSelect().Model(&tribes).
		Where("? > 0", bun.Ident(col)).
		OrderExpr("? DESC, id ASC", bun.Ident(col))
	if country != "" {
		q = q.Where("country = ?", country)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("leaderboarddb.TopByScore: %w", err)
	}
	rows := make([]AggregateRow, len(tribes))
	for i := range tribes {
		rows[i] = tribes[i].row()
	}
	return rows, nil
}

// CountWithHigherScore computes the durable rank cross-check: how many
// entities are strictly ahead of the given one under the descending-points,
// ascending-id ordering.
func (r *Impl) CountWithHigherScore(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, period leaderboarddomain.Period, country string, entityID leaderboarddomain.EntityID) (int, error) {
	if db == nil {
		db = r.db
	}

	row, err := r.GetAggregate(ctx, db, scope, entityID)
	if err != nil {
		return 0, err
	}
	points := row.WeeklyPoints
	if period == leaderboarddomain.PeriodAllTime {
		points = row.AllTimePoints
	}

	col := pointsColumn(period)
	q := db.NewSelect().
		Table(tableName(scope)).
		Where("(? > ?) OR (? = ? AND id < ?)", bun.Ident(col), points, bun.Ident(col), points, string(entityID))
	if country != "" {
		q = q.Where("country = ?", country)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("leaderboarddb.CountWithHigherScore: %w", err)
	}
	return count, nil
}

// PeriodTotals returns how many entities have scored in the period and the
// sum of their points.
func (r *Impl) PeriodTotals(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, period leaderboarddomain.Period) (int, int64, error) {
	if db == nil {
		db = r.db
	}
	col := pointsColumn(period)

	var totals struct {
		Count  int   `bun:"cnt"`
		Points int64 `bun:"pts"`
	}
	err := db.NewSelect().
		Table(tableName(scope)).
		ColumnExpr("COUNT(*) AS cnt, COALESCE(SUM(?), 0) AS pts", bun.Ident(col)).
		Where("? > 0", bun.Ident(col)).
		Scan(ctx, &totals)
	if err != nil {
		return 0, 0, fmt.Errorf("leaderboarddb.PeriodTotals: %w", err)
	}
	return totals.Count, totals.Points, nil
}

// DistinctCountries lists the countries present on aggregates of the scope.
func (r *Impl) DistinctCountries(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope) ([]string, error) {
	if db == nil {
		db = r.db
	}
	var countries []string
	err := db.NewSelect().
		Table(tableName(scope)).
		ColumnExpr("DISTINCT country").
		Where("country <> ''").
		Scan(ctx, &countries)
	if err != nil {
		return nil, fmt.Errorf("leaderboarddb.DistinctCountries: %w", err)
	}
	return countries, nil
}

// ResetWeekly zeroes the weekly fields for every aggregate of the scope in
// one sweep. A partial per-entity clear is never left behind.
func (r *Impl) ResetWeekly(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, now time.Time) error {
	if db == nil {
		db = r.db
	}

	var err error
	if scope == leaderboarddomain.ScopeUsers {
		_, err = db.NewUpdate().
			Model((*UserAggregate)(nil)).
			Set("weekly_points = 0").
			Set("weekly_rank = 0").
			Set("weekly_updated_at = ?", now).
			Where("weekly_points > 0 OR weekly_rank > 0").
			Exec(ctx)
	} else {
		_, err = db.NewUpdate().
			Model((*TribeAggregate)(nil)).
			Set("weekly_points = 0").
			Set("weekly_rank = 0").
			Set("weekly_updated_at = ?", now).
			Where("weekly_points > 0 OR weekly_rank > 0").
			Exec(ctx)
	}
	if err != nil {
		return fmt.Errorf("leaderboarddb.ResetWeekly: %w", err)
	}
	return nil
}

// RefreshRanks recomputes the cached rank column from the current totals.
// Entities without points in the period keep rank 0 (unranked).
func (r *Impl) RefreshRanks(ctx context.Context, db bun.IDB, scope leaderboarddomain.Scope, period leaderboarddomain.Period) error {
	if db == nil {
		db = r.db
	}
	table := tableName(scope)
	points := pointsColumn(period)
	rank := rankColumn(period)

	query := fmt.Sprintf(`
		UPDATE %[1]s t SET %[3]s = ranked.rnk
		FROM (
			SELECT id, ROW_NUMBER() OVER (ORDER BY %[2]s DESC, id ASC) AS rnk
			FROM %[1]s
			WHERE %[2]s > 0
		) ranked
		WHERE t.id = ranked.id`, table, points, rank)

	if _, err := db.NewRaw(query).Exec(ctx); err != nil {
		return fmt.Errorf("leaderboarddb.RefreshRanks: %w", err)
	}
	return nil
}

// RunInTx executes fn inside a transaction on the pooled connection.
func (r *Impl) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, fn)
}
