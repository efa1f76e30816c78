package leaderboarddb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ClaimAwardToken inserts a dedup token. Returns (true, nil) when the token
// was newly claimed, or (false, stored) when a previous award already
// consumed it, so the caller can replay the original result instead of
// double-counting.
func (r *Impl) ClaimAwardToken(ctx context.Context, db bun.IDB, award *AppliedAward) (bool, *AppliedAward, error) {
	if db == nil {
		db = r.db
	}

	res, err := db.NewInsert().
		Model(award).
		On("CONFLICT (token) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("leaderboarddb.ClaimAwardToken: %w", err)
	}

	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		return true, nil, nil
	}

	existing := new(AppliedAward)
	err = db.NewSelect().
		Model(existing).
		Where("token = ?", award.Token).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Claimed by a concurrent request whose row pruned between our
			// insert and read. Treat as duplicate with no recorded result.
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("leaderboarddb.ClaimAwardToken: %w", err)
	}
	return false, existing, nil
}

// RecordAwardResult stores the cache scores the award produced so duplicate
// requests can be answered with the original outcome.
func (r *Impl) RecordAwardResult(ctx context.Context, db bun.IDB, token string, weeklyScore, allTimeScore float64) error {
	if db == nil {
		db = r.db
	}
	_, err := db.NewUpdate().
		Model((*AppliedAward)(nil)).
		Set("weekly_score = ?", weeklyScore).
		Set("alltime_score = ?", allTimeScore).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("leaderboarddb.RecordAwardResult: %w", err)
	}
	return nil
}

// ReleaseAwardToken frees a claimed token after a failed award.
func (r *Impl) ReleaseAwardToken(ctx context.Context, db bun.IDB, token string) error {
	if db == nil {
		db = r.db
	}
	_, err := db.NewDelete().
		Model((*AppliedAward)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("leaderboarddb.ReleaseAwardToken: %w", err)
	}
	return nil
}

// PruneAwardTokens deletes tokens applied before the cutoff and reports how
// many were removed.
func (r *Impl) PruneAwardTokens(ctx context.Context, db bun.IDB, before time.Time) (int, error) {
	if db == nil {
		db = r.db
	}
	res, err := db.NewDelete().
		Model((*AppliedAward)(nil)).
		Where("applied_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("leaderboarddb.PruneAwardTokens: %w", err)
	}
	rows, _ := res.RowsAffected()
	return int(rows), nil
}
