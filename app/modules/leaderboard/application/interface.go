package leaderboardservice

import (
	"context"
	"time"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
	leaderboarddb "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/repositories"
)

// AwardRequest is the ingestion contract the wallet and battle subsystems
// call. DedupToken is optional; when empty one is derived from the request
// fields so at-least-once callers cannot double-count.
type AwardRequest struct {
	Scope      leaderboarddomain.Scope
	EntityID   leaderboarddomain.EntityID
	Points     int64
	Reason     string
	Ref        string
	DedupToken string
}

// AwardResult reports the entity's new cumulative cache scores. Duplicate is
// set when the dedup token had already been consumed and no points moved.
type AwardResult struct {
	WeeklyScore  float64
	AllTimeScore float64
	Duplicate    bool
}

// Stats are the informational domain counters carried on leaderboard rows.
type Stats struct {
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Votes  int `json:"votes"`
}

// LeaderboardItem is one display row of a rank listing. Placeholder marks an
// entity present in the score cache but missing a backing aggregate; it is
// rendered rather than silently dropped so pages stay gap-free.
type LeaderboardItem struct {
	Rank        int                        `json:"rank"`
	EntityID    leaderboarddomain.EntityID `json:"entityId"`
	DisplayName string                     `json:"displayName"`
	Avatar      string                     `json:"avatar,omitempty"`
	TribeID     string                     `json:"tribeId,omitempty"`
	TribeName   string                     `json:"tribe,omitempty"`
	Country     string                     `json:"country,omitempty"`
	Points      float64                    `json:"points"`
	Streak      int                        `json:"streak,omitempty"`
	MemberCount int                        `json:"memberCount,omitempty"`
	Stats       Stats                      `json:"stats"`
	Placeholder bool                       `json:"placeholder,omitempty"`
}

// LeaderboardPage is one cursor-delimited slice of a namespace ordering.
type LeaderboardPage struct {
	Period     leaderboarddomain.Period `json:"period"`
	Items      []LeaderboardItem        `json:"items"`
	NextCursor *string                  `json:"nextCursor"`
	Total      int                      `json:"total"`
}

// RankInfo is a single entity's standing in one namespace.
type RankInfo struct {
	Rank   int     `json:"rank"`
	Points float64 `json:"points"`
	Total  int     `json:"total"`
}

// MyRank is the authenticated caller's standing, echoing the namespace it was
// resolved in. Tribe scope reports the caller's tribe.
type MyRank struct {
	Scope  leaderboarddomain.Scope  `json:"scope"`
	Period leaderboarddomain.Period `json:"period"`
	Rank   int                      `json:"rank"`
	Points float64                  `json:"points"`
	Total  int                      `json:"total"`
}

// ReconcileReport summarizes one reconciliation sweep.
type ReconcileReport struct {
	Namespaces   int
	Repaired     int
	Orphans      int
	PrunedTokens int
}

// Service is the ranking subsystem's application surface.
type Service interface {
	Award(ctx context.Context, req AwardRequest) (*AwardResult, error)

	GetLeaderboard(ctx context.Context, scope leaderboarddomain.Scope, period leaderboarddomain.Period, limit int, cursor, country string) (*LeaderboardPage, error)
	GetRank(ctx context.Context, scope leaderboarddomain.Scope, entityID leaderboarddomain.EntityID, period leaderboarddomain.Period, country string) (*RankInfo, error)
	GetMyRank(ctx context.Context, userID leaderboarddomain.EntityID, scope leaderboarddomain.Scope, period leaderboarddomain.Period, country string) (*MyRank, error)
	SearchRanked(ctx context.Context, query string, scope leaderboarddomain.Scope, period leaderboarddomain.Period, country string) ([]LeaderboardItem, error)

	WeeklyChampions(ctx context.Context, weekStart time.Time) (*leaderboarddb.Snapshot, error)
	RecentChampions(ctx context.Context, limit int) ([]leaderboarddb.Snapshot, error)
	ChampionsChart(ctx context.Context, weekStart time.Time) ([]byte, error)

	RegisterUser(ctx context.Context, user *leaderboarddb.UserAggregate) error
	RegisterTribe(ctx context.Context, tribe *leaderboarddb.TribeAggregate) error

	RunRollover(ctx context.Context) (*leaderboarddb.Snapshot, error)
	RunReconciliation(ctx context.Context) (*ReconcileReport, error)
	RefreshRanks(ctx context.Context) error
}
