package leaderboardevents

import (
	"time"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
)

// Stream name for all leaderboard subjects.
const LeaderboardStreamName = "leaderboard"

// Subjects published by the ranking service.
const (
	ScoreUpdatedSubject = "leaderboard.score.updated"
	ResetSubject        = "leaderboard.reset"
)

// ScoreUpdatedPayload is broadcast once per (period) after an award lands,
// carrying the entity's new cumulative score and the delta that produced it.
type ScoreUpdatedPayload struct {
	Scope     leaderboarddomain.Scope    `json:"scope"`
	Period    leaderboarddomain.Period   `json:"period"`
	EntityID  leaderboarddomain.EntityID `json:"entityId"`
	NewPoints float64                    `json:"newPoints"`
	Delta     int64                      `json:"delta"`
}

// ResetPayload is broadcast after a weekly rollover completes.
type ResetPayload struct {
	Event       string    `json:"event"`
	LastResetAt time.Time `json:"lastResetAt"`
}
