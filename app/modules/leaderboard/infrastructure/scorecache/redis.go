package scorecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
)

// RedisCache implements ScoreCache on a Redis sorted set per namespace.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

var _ ScoreCache = (*RedisCache)(nil)

// NewRedisCache wraps an already-connected client. The caller owns the
// client's lifecycle; the cache never closes it.
func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

// Key returns the sorted-set key for a namespace, e.g. "lb:users:weekly:BR".
func Key(ns leaderboarddomain.Namespace) string {
	return "lb:" + ns.String()
}

func (c *RedisCache) Increment(ctx context.Context, ns leaderboarddomain.Namespace, entityID leaderboarddomain.EntityID, delta float64) (float64, error) {
	score, err := c.client.ZIncrBy(ctx, Key(ns), delta, string(entityID)).Result()
	if err != nil {
		return 0, fmt.Errorf("scorecache.Increment %s: %w", ns, err)
	}
	return score, nil
}

func (c *RedisCache) Set(ctx context.Context, ns leaderboarddomain.Namespace, entityID leaderboarddomain.EntityID, score float64) error {
	err := c.client.ZAdd(ctx, Key(ns), redis.Z{Score: score, Member: string(entityID)}).Err()
	if err != nil {
		return fmt.Errorf("scorecache.Set %s: %w", ns, err)
	}
	return nil
}

func (c *RedisCache) RangeDesc(ctx context.Context, ns leaderboarddomain.Namespace, startRank, endRank int) ([]leaderboarddomain.Entry, error) {
	key := Key(ns)
	zs, err := c.client.ZRevRangeWithScores(ctx, key, int64(startRank), int64(endRank)).Result()
	if err != nil {
		return nil, fmt.Errorf("scorecache.RangeDesc %s: %w", ns, err)
	}
	if len(zs) == 0 {
		return nil, nil
	}

	// ZREVRANGE orders equal-score members reverse-lexicographically, the
	// opposite of the ascending-id tie-break. Widen the window to whole score
	// buckets at both edges, impose the canonical order, then cut the
	// requested slice back out.
	headScore := zs[0].Score
	tailScore := zs[len(zs)-1].Score
	bucketStart, err := c.client.ZCount(ctx, key, "("+fmtScore(headScore), "+inf").Result()
	if err != nil {
		return nil, fmt.Errorf("scorecache.RangeDesc %s: %w", ns, err)
	}
	bucketEnd, err := c.client.ZCount(ctx, key, fmtScore(tailScore), "+inf").Result()
	if err != nil {
		return nil, fmt.Errorf("scorecache.RangeDesc %s: %w", ns, err)
	}
	widened, err := c.client.ZRevRangeWithScores(ctx, key, bucketStart, bucketEnd-1).Result()
	if err != nil {
		return nil, fmt.Errorf("scorecache.RangeDesc %s: %w", ns, err)
	}

	return sliceWindow(toEntries(widened), int(bucketStart), startRank, endRank), nil
}

func (c *RedisCache) RankOf(ctx context.Context, ns leaderboarddomain.Namespace, entityID leaderboarddomain.EntityID) (int, float64, error) {
	key := Key(ns)
	score, err := c.client.ZScore(ctx, key, string(entityID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, ErrNotRanked
		}
		return 0, 0, fmt.Errorf("scorecache.RankOf %s: %w", ns, err)
	}

	// Rank is the count of strictly higher scores plus the entity's position
	// among ascending ids inside its own score bucket. ZREVRANK is unusable
	// here: its same-score ordering is reverse-lexicographic.
	var (
		higherCmd *redis.IntCmd
		bucketCmd *redis.StringSliceCmd
	)
	_, err = c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		higherCmd = pipe.ZCount(ctx, key, "("+fmtScore(score), "+inf")
		bucketCmd = pipe.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: fmtScore(score), Max: fmtScore(score)})
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("scorecache.RankOf %s: %w", ns, err)
	}

	pos, ok := positionInBucket(bucketCmd.Val(), string(entityID))
	if !ok {
		// Removed between the score read and the bucket read.
		return 0, 0, ErrNotRanked
	}
	return int(higherCmd.Val()) + pos, score, nil
}

// fmtScore renders a score the way ZCOUNT and ZRANGEBYSCORE bounds expect,
// never in exponent notation.
func fmtScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

func toEntries(zs []redis.Z) []leaderboarddomain.Entry {
	entries := make([]leaderboarddomain.Entry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, leaderboarddomain.Entry{
			EntityID: leaderboarddomain.EntityID(member),
			Score:    z.Score,
		})
	}
	return entries
}

// sliceWindow imposes the canonical ordering on a fetch widened to whole
// score buckets and cuts the requested rank window back out. offset is the
// rank of the widened fetch's first entry.
func sliceWindow(entries []leaderboarddomain.Entry, offset, startRank, endRank int) []leaderboarddomain.Entry {
	leaderboarddomain.SortEntries(entries)
	lo := startRank - offset
	hi := endRank - offset + 1
	if lo < 0 {
		lo = 0
	}
	if hi > len(entries) {
		hi = len(entries)
	}
	if lo >= hi {
		return nil
	}
	out := make([]leaderboarddomain.Entry, hi-lo)
	copy(out, entries[lo:hi])
	return out
}

// positionInBucket locates an id inside a ZRANGEBYSCORE result, which Redis
// returns in ascending lexicographic member order for equal scores.
func positionInBucket(members []string, id string) (int, bool) {
	for i, m := range members {
		if m == id {
			return i, true
		}
	}
	return 0, false
}

func (c *RedisCache) Cardinality(ctx context.Context, ns leaderboarddomain.Namespace) (int, error) {
	n, err := c.client.ZCard(ctx, Key(ns)).Result()
	if err != nil {
		return 0, fmt.Errorf("scorecache.Cardinality %s: %w", ns, err)
	}
	return int(n), nil
}

func (c *RedisCache) Remove(ctx context.Context, ns leaderboarddomain.Namespace, entityID leaderboarddomain.EntityID) error {
	if err := c.client.ZRem(ctx, Key(ns), string(entityID)).Err(); err != nil {
		return fmt.Errorf("scorecache.Remove %s: %w", ns, err)
	}
	return nil
}

func (c *RedisCache) Clear(ctx context.Context, ns leaderboarddomain.Namespace) error {
	if err := c.client.Del(ctx, Key(ns)).Err(); err != nil {
		return fmt.Errorf("scorecache.Clear %s: %w", ns, err)
	}
	c.logger.InfoContext(ctx, "score cache namespace cleared", slog.String("namespace", ns.String()))
	return nil
}
