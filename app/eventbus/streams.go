package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	leaderboardevents "github.com/tribe-arena/ranking-service/app/modules/leaderboard/events"
)

// InitializeStreams creates the streams the ranking service publishes on.
// Called once at startup, before any publisher runs.
func InitializeStreams(ctx context.Context, bus EventBus, logger *slog.Logger) error {
	if err := bus.CreateStream(ctx, leaderboardevents.LeaderboardStreamName,
		leaderboardevents.ScoreUpdatedSubject,
		leaderboardevents.ResetSubject,
	); err != nil {
		return fmt.Errorf("create leaderboard stream: %w", err)
	}
	logger.InfoContext(ctx, "event streams ready",
		slog.String("stream", leaderboardevents.LeaderboardStreamName))
	return nil
}
