package leaderboarddb

import "errors"

var (
	// ErrAggregateNotFound is returned when an entity has no aggregate record.
	ErrAggregateNotFound = errors.New("aggregate not found")

	// ErrSnapshotNotFound is returned when no snapshot exists for a period.
	ErrSnapshotNotFound = errors.New("snapshot not found")
)
