package leaderboardservice

import "errors"

var (
	// ErrInvalidPoints rejects non-positive award amounts.
	ErrInvalidPoints = errors.New("points must be a positive integer")

	// ErrInvalidLimit rejects page sizes outside 1..100.
	ErrInvalidLimit = errors.New("limit must be between 1 and 100")

	// ErrNotRanked is returned when a rank is requested for an entity that
	// has never scored in the namespace. Distinct from rank 1 with a low
	// score; callers map this to not-found.
	ErrNotRanked = errors.New("entity not ranked")

	// ErrNoTribe is returned by tribe-scoped personal rank lookups for a
	// caller who is not in a tribe.
	ErrNoTribe = errors.New("not in a tribe")
)
