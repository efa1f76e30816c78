package scorecache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
)

// Entries as ZREVRANGE hands them back: score descending, but equal scores in
// reverse-lexicographic member order.
func revRangeFixture() []leaderboarddomain.Entry {
	return []leaderboarddomain.Entry{
		{EntityID: "u3", Score: 200},
		{EntityID: "u4", Score: 100},
		{EntityID: "u2", Score: 100},
	}
}

func TestSliceWindowReordersTiedBucket(t *testing.T) {
	entries := sliceWindow(revRangeFixture(), 0, 0, 2)
	require.Len(t, entries, 3)
	assert.Equal(t, leaderboarddomain.EntityID("u3"), entries[0].EntityID)
	// Tied at 100: ascending id wins, not Redis's reverse-lex order.
	assert.Equal(t, leaderboarddomain.EntityID("u2"), entries[1].EntityID)
	assert.Equal(t, leaderboarddomain.EntityID("u4"), entries[2].EntityID)
}

func TestSliceWindowCutsPageInsideBucket(t *testing.T) {
	// A page boundary splitting the tied bucket still sees ascending ids: the
	// widened fetch starts at the bucket's first rank (offset 1) and the
	// requested single-row windows cut the canonical order.
	widened := []leaderboarddomain.Entry{
		{EntityID: "u4", Score: 100},
		{EntityID: "u2", Score: 100},
	}

	first := sliceWindow(widened, 1, 1, 1)
	require.Len(t, first, 1)
	assert.Equal(t, leaderboarddomain.EntityID("u2"), first[0].EntityID)

	second := sliceWindow([]leaderboarddomain.Entry{
		{EntityID: "u4", Score: 100},
		{EntityID: "u2", Score: 100},
	}, 1, 2, 2)
	require.Len(t, second, 1)
	assert.Equal(t, leaderboarddomain.EntityID("u4"), second[0].EntityID)
}

func TestSliceWindowClampsPastEnd(t *testing.T) {
	entries := sliceWindow(revRangeFixture(), 0, 1, 9)
	require.Len(t, entries, 2)
	assert.Equal(t, leaderboarddomain.EntityID("u2"), entries[0].EntityID)

	assert.Nil(t, sliceWindow(revRangeFixture(), 0, 5, 9))
}

func TestSliceWindowMatchesMemoryOrdering(t *testing.T) {
	// The memory cache is the ordering reference; the Redis window must agree
	// with it for the same seeded scores.
	want := []leaderboarddomain.Entry{
		{EntityID: "u3", Score: 200},
		{EntityID: "u2", Score: 100},
		{EntityID: "u4", Score: 100},
	}
	assert.Equal(t, want, sliceWindow(revRangeFixture(), 0, 0, 2))
}

func TestPositionInBucket(t *testing.T) {
	// ZRANGEBYSCORE returns equal scores in ascending member order, so the
	// index is the ascending-id tie-break position.
	bucket := []string{"u2", "u4", "u9"}

	pos, ok := positionInBucket(bucket, "u2")
	require.True(t, ok)
	assert.Equal(t, 0, pos)

	pos, ok = positionInBucket(bucket, "u9")
	require.True(t, ok)
	assert.Equal(t, 2, pos)

	_, ok = positionInBucket(bucket, "gone")
	assert.False(t, ok)
}

func TestFmtScoreAvoidsExponent(t *testing.T) {
	assert.Equal(t, "100", fmtScore(100))
	assert.Equal(t, "10.5", fmtScore(10.5))
	assert.Equal(t, "1000000000", fmtScore(1e9))
}
