package leaderboarddb

import (
	"time"

	"github.com/uptrace/bun"
)

// UserAggregate is the durable per-user ranking record. Identity fields are
// denormalized copies refreshed on demand; point totals are authoritative.
type UserAggregate struct {
	bun.BaseModel `bun:"table:user_aggregates,alias:ua"`

	ID        string `bun:"id,pk"`
	Username  string `bun:"username,notnull"`
	Avatar    string `bun:"avatar"`
	Country   string `bun:"country"`
	TribeID   string `bun:"tribe_id"`
	TribeName string `bun:"tribe_name"`

	WeeklyPoints     int64     `bun:"weekly_points,notnull,default:0"`
	WeeklyRank       int       `bun:"weekly_rank,notnull,default:0"`
	WeeklyUpdatedAt  time.Time `bun:"weekly_updated_at,nullzero"`
	AllTimePoints    int64     `bun:"alltime_points,notnull,default:0"`
	AllTimeRank      int       `bun:"alltime_rank,notnull,default:0"`
	AllTimeUpdatedAt time.Time `bun:"alltime_updated_at,nullzero"`

	Wins   int `bun:"wins,notnull,default:0"`
	Losses int `bun:"losses,notnull,default:0"`
	Votes  int `bun:"votes,notnull,default:0"`
	Streak int `bun:"streak,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// TribeAggregate mirrors UserAggregate for tribes.
type TribeAggregate struct {
	bun.BaseModel `bun:"table:tribe_aggregates,alias:ta"`

	ID          string `bun:"id,pk"`
	Name        string `bun:"name,notnull"`
	Emblem      string `bun:"emblem"`
	Country     string `bun:"country"`
	MemberCount int    `bun:"member_count,notnull,default:0"`

	WeeklyPoints     int64     `bun:"weekly_points,notnull,default:0"`
	WeeklyRank       int       `bun:"weekly_rank,notnull,default:0"`
	WeeklyUpdatedAt  time.Time `bun:"weekly_updated_at,nullzero"`
	AllTimePoints    int64     `bun:"alltime_points,notnull,default:0"`
	AllTimeRank      int       `bun:"alltime_rank,notnull,default:0"`
	AllTimeUpdatedAt time.Time `bun:"alltime_updated_at,nullzero"`

	Wins   int `bun:"wins,notnull,default:0"`
	Losses int `bun:"losses,notnull,default:0"`
	Votes  int `bun:"votes,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// SnapshotEntry is one row of a period-end standing, frozen with the display
// fields that were current at rollover time.
type SnapshotEntry struct {
	EntityID    string `json:"entityId"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
	Country     string `json:"country,omitempty"`
	Points      int64  `json:"points"`
	Rank        int    `json:"rank"`
}

// Snapshot is the immutable record of top standings at a weekly boundary.
// At most one exists per period key.
type Snapshot struct {
	bun.BaseModel `bun:"table:leaderboard_snapshots,alias:sn"`

	ID          string          `bun:"id,pk"`
	PeriodKey   string          `bun:"period_key,notnull,unique"`
	PeriodStart time.Time       `bun:"period_start,notnull"`
	PeriodEnd   time.Time       `bun:"period_end,notnull"`
	TopUsers    []SnapshotEntry `bun:"top_users,type:jsonb"`
	TopTribes   []SnapshotEntry `bun:"top_tribes,type:jsonb"`

	TotalUsers       int   `bun:"total_users,notnull,default:0"`
	TotalTribes      int   `bun:"total_tribes,notnull,default:0"`
	TotalUserPoints  int64 `bun:"total_user_points,notnull,default:0"`
	TotalTribePoints int64 `bun:"total_tribe_points,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// AppliedAward records a consumed dedup token together with the result the
// original award produced, so a retried request can be answered without
// re-applying points. Rows are pruned after a retention window.
type AppliedAward struct {
	bun.BaseModel `bun:"table:leaderboard_applied_awards,alias:aa"`

	Token        string    `bun:"token,pk"`
	Scope        string    `bun:"scope,notnull"`
	EntityID     string    `bun:"entity_id,notnull"`
	Points       int64     `bun:"points,notnull"`
	Reason       string    `bun:"reason"`
	Ref          string    `bun:"ref"`
	WeeklyScore  float64   `bun:"weekly_score,notnull,default:0"`
	AllTimeScore float64   `bun:"alltime_score,notnull,default:0"`
	AppliedAt    time.Time `bun:"applied_at,nullzero,notnull,default:current_timestamp"`
}

// AggregateRow is the scope-neutral projection the services work with.
type AggregateRow struct {
	ID          string
	DisplayName string
	Avatar      string
	Country     string
	TribeID     string
	TribeName   string
	MemberCount int

	WeeklyPoints  int64
	WeeklyRank    int
	AllTimePoints int64
	AllTimeRank   int

	Wins   int
	Losses int
	Votes  int
	Streak int
}

func (u *UserAggregate) row() AggregateRow {
	return AggregateRow{
		ID:            u.ID,
		DisplayName:   u.Username,
		Avatar:        u.Avatar,
		Country:       u.Country,
		TribeID:       u.TribeID,
		TribeName:     u.TribeName,
		WeeklyPoints:  u.WeeklyPoints,
		WeeklyRank:    u.WeeklyRank,
		AllTimePoints: u.AllTimePoints,
		AllTimeRank:   u.AllTimeRank,
		Wins:          u.Wins,
		Losses:        u.Losses,
		Votes:         u.Votes,
		Streak:        u.Streak,
	}
}

func (t *TribeAggregate) row() AggregateRow {
	return AggregateRow{
		ID:            t.ID,
		DisplayName:   t.Name,
		Avatar:        t.Emblem,
		Country:       t.Country,
		MemberCount:   t.MemberCount,
		WeeklyPoints:  t.WeeklyPoints,
		WeeklyRank:    t.WeeklyRank,
		AllTimePoints: t.AllTimePoints,
		AllTimeRank:   t.AllTimeRank,
		Wins:          t.Wins,
		Losses:        t.Losses,
		Votes:         t.Votes,
	}
}
