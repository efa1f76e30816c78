package leaderboarddb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CreateSnapshot persists a period-end snapshot at most once per period key.
// A concurrent or repeated rollover for the same period finds the existing
// row and returns it instead of writing a duplicate.
func (r *Impl) CreateSnapshot(ctx context.Context, db bun.IDB, snapshot *Snapshot) (*Snapshot, bool, error) {
	if db == nil {
		db = r.db
	}
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}

	res, err := db.NewInsert().
		Model(snapshot).
		On("CONFLICT (period_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("leaderboarddb.CreateSnapshot: %w", err)
	}

	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		return snapshot, true, nil
	}

	existing, err := r.GetSnapshot(ctx, db, snapshot.PeriodKey)
	if err != nil {
		return nil, false, fmt.Errorf("leaderboarddb.CreateSnapshot: conflict re-read: %w", err)
	}
	return existing, false, nil
}

// GetSnapshot returns the snapshot for a period key.
func (r *Impl) GetSnapshot(ctx context.Context, db bun.IDB, periodKey string) (*Snapshot, error) {
	if db == nil {
		db = r.db
	}
	snapshot := new(Snapshot)
	err := db.NewSelect().
		Model(snapshot).
		Where("period_key = ?", periodKey).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("leaderboarddb.GetSnapshot: %w", err)
	}
	return snapshot, nil
}

// ListSnapshots returns the most recent snapshots, newest period first.
func (r *Impl) ListSnapshots(ctx context.Context, db bun.IDB, limit int) ([]Snapshot, error) {
	if db == nil {
		db = r.db
	}
	var snapshots []Snapshot
	q := db.NewSelect().
		Model(&snapshots).
		Order("period_start DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("leaderboarddb.ListSnapshots: %w", err)
	}
	return snapshots, nil
}
