package leaderboardservice

import (
	"context"

	leaderboardevents "github.com/tribe-arena/ranking-service/app/modules/leaderboard/events"
)

// EventPublisher is the real-time broadcast seam. Score deltas are advisory:
// implementations log failures instead of surfacing them, and may shed load
// under bursty award traffic. Reset events are always delivered or logged
// loudly.
type EventPublisher interface {
	PublishScoreUpdated(ctx context.Context, payload leaderboardevents.ScoreUpdatedPayload)
	PublishReset(ctx context.Context, payload leaderboardevents.ResetPayload)
}

// NoopPublisher drops everything. Used where broadcast is not wired.
type NoopPublisher struct{}

var _ EventPublisher = NoopPublisher{}

func (NoopPublisher) PublishScoreUpdated(context.Context, leaderboardevents.ScoreUpdatedPayload) {}
func (NoopPublisher) PublishReset(context.Context, leaderboardevents.ResetPayload)               {}
