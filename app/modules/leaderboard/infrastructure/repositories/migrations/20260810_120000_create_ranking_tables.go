package leaderboardmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	leaderboarddb "github.com/tribe-arena/ranking-service/app/modules/leaderboard/infrastructure/repositories"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating ranking tables...")

		if _, err := db.NewCreateTable().Model((*leaderboarddb.UserAggregate)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*leaderboarddb.TribeAggregate)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*leaderboarddb.Snapshot)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*leaderboarddb.AppliedAward)(nil)).IfNotExists().Exec(ctx); err != nil {
			return err
		}

		indexes := []string{
			"CREATE INDEX IF NOT EXISTS idx_user_aggregates_weekly_points ON user_aggregates (weekly_points DESC, id ASC)",
			"CREATE INDEX IF NOT EXISTS idx_user_aggregates_alltime_points ON user_aggregates (alltime_points DESC, id ASC)",
			"CREATE INDEX IF NOT EXISTS idx_user_aggregates_country ON user_aggregates (country) WHERE country <> ''",
			"CREATE INDEX IF NOT EXISTS idx_tribe_aggregates_weekly_points ON tribe_aggregates (weekly_points DESC, id ASC)",
			"CREATE INDEX IF NOT EXISTS idx_tribe_aggregates_alltime_points ON tribe_aggregates (alltime_points DESC, id ASC)",
			"CREATE INDEX IF NOT EXISTS idx_tribe_aggregates_country ON tribe_aggregates (country) WHERE country <> ''",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_snapshots_period_key ON leaderboard_snapshots (period_key)",
			"CREATE INDEX IF NOT EXISTS idx_applied_awards_applied_at ON leaderboard_applied_awards (applied_at)",
		}
		for _, idx := range indexes {
			if _, err := db.NewRaw(idx).Exec(ctx); err != nil {
				return err
			}
		}

		fmt.Println("Ranking tables created successfully!")
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping ranking tables...")

		for _, model := range []interface{}{
			(*leaderboarddb.AppliedAward)(nil),
			(*leaderboarddb.Snapshot)(nil),
			(*leaderboarddb.TribeAggregate)(nil),
			(*leaderboarddb.UserAggregate)(nil),
		} {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return err
			}
		}

		fmt.Println("Ranking tables dropped successfully!")
		return nil
	})
}
