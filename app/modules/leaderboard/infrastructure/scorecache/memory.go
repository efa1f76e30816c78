package scorecache

import (
	"context"
	"sync"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
)

// MemoryCache is an in-process ScoreCache with the same ordering semantics as
// the Redis implementation. It backs tests and local development runs without
// a live backend.
type MemoryCache struct {
	mu     sync.Mutex
	scores map[string]map[leaderboarddomain.EntityID]float64

	// FailNext forces the next operation to return this error, simulating an
	// unreachable backend.
	FailNext error
}

var _ ScoreCache = (*MemoryCache)(nil)

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{scores: make(map[string]map[leaderboarddomain.EntityID]float64)}
}

func (c *MemoryCache) takeFailure() error {
	err := c.FailNext
	c.FailNext = nil
	return err
}

func (c *MemoryCache) Increment(_ context.Context, ns leaderboarddomain.Namespace, entityID leaderboarddomain.EntityID, delta float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return 0, err
	}
	key := ns.String()
	if c.scores[key] == nil {
		c.scores[key] = make(map[leaderboarddomain.EntityID]float64)
	}
	c.scores[key][entityID] += delta
	return c.scores[key][entityID], nil
}

func (c *MemoryCache) Set(_ context.Context, ns leaderboarddomain.Namespace, entityID leaderboarddomain.EntityID, score float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}
	key := ns.String()
	if c.scores[key] == nil {
		c.scores[key] = make(map[leaderboarddomain.EntityID]float64)
	}
	c.scores[key][entityID] = score
	return nil
}

func (c *MemoryCache) sorted(ns leaderboarddomain.Namespace) []leaderboarddomain.Entry {
	entries := make([]leaderboarddomain.Entry, 0, len(c.scores[ns.String()]))
	for id, score := range c.scores[ns.String()] {
		entries = append(entries, leaderboarddomain.Entry{EntityID: id, Score: score})
	}
	leaderboarddomain.SortEntries(entries)
	return entries
}

func (c *MemoryCache) RangeDesc(_ context.Context, ns leaderboarddomain.Namespace, startRank, endRank int) ([]leaderboarddomain.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return nil, err
	}
	entries := c.sorted(ns)
	if startRank >= len(entries) || startRank > endRank {
		return nil, nil
	}
	if endRank >= len(entries) {
		endRank = len(entries) - 1
	}
	out := make([]leaderboarddomain.Entry, endRank-startRank+1)
	copy(out, entries[startRank:endRank+1])
	return out, nil
}

func (c *MemoryCache) RankOf(_ context.Context, ns leaderboarddomain.Namespace, entityID leaderboarddomain.EntityID) (int, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return 0, 0, err
	}
	for rank, entry := range c.sorted(ns) {
		if entry.EntityID == entityID {
			return rank, entry.Score, nil
		}
	}
	return 0, 0, ErrNotRanked
}

func (c *MemoryCache) Cardinality(_ context.Context, ns leaderboarddomain.Namespace) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return 0, err
	}
	return len(c.scores[ns.String()]), nil
}

func (c *MemoryCache) Remove(_ context.Context, ns leaderboarddomain.Namespace, entityID leaderboarddomain.EntityID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}
	delete(c.scores[ns.String()], entityID)
	return nil
}

func (c *MemoryCache) Clear(_ context.Context, ns leaderboarddomain.Namespace) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.takeFailure(); err != nil {
		return err
	}
	delete(c.scores, ns.String())
	return nil
}
