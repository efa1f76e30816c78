package scorecache

import (
	"context"
	"errors"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
)

// ErrNotRanked is returned by RankOf when the entity has never scored in the
// namespace. Distinct from a zero score: an unranked entity has no entry.
var ErrNotRanked = errors.New("entity not ranked in namespace")

// ScoreCache is the fast sorted structure used for ordering and rank lookup.
// It is a derived view of the aggregate store; reconciliation repairs drift.
// Implementations must propagate backend failures rather than degrade
// silently, since a skipped increment is an undetectable consistency gap.
type ScoreCache interface {
	// Increment adds delta to the entity's score, creating the entry at
	// delta if absent, and returns the new cumulative score.
	Increment(ctx context.Context, ns leaderboarddomain.Namespace, entityID leaderboarddomain.EntityID, delta float64) (float64, error)

	// Set overwrites the entity's score. Used by reconciliation repair.
	Set(ctx context.Context, ns leaderboarddomain.Namespace, entityID leaderboarddomain.EntityID, score float64) error

	// RangeDesc returns entries ranked startRank..endRank inclusive
	// (zero-based), highest score first.
	RangeDesc(ctx context.Context, ns leaderboarddomain.Namespace, startRank, endRank int) ([]leaderboarddomain.Entry, error)

	// RankOf returns the entity's zero-based descending rank and score.
	RankOf(ctx context.Context, ns leaderboarddomain.Namespace, entityID leaderboarddomain.EntityID) (rank int, score float64, err error)

	// Cardinality returns the number of ranked entities in the namespace.
	Cardinality(ctx context.Context, ns leaderboarddomain.Namespace) (int, error)

	// Remove deletes a single entity from the namespace.
	Remove(ctx context.Context, ns leaderboarddomain.Namespace, entityID leaderboarddomain.EntityID) error

	// Clear drops the whole namespace.
	Clear(ctx context.Context, ns leaderboarddomain.Namespace) error
}
