package leaderboardservice

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
)

const chartTopN = 10

// ChampionsChart renders a PNG bar chart of a week's top users, for embedding
// in recap posts. Returns ErrSnapshotNotFound via WeeklyChampions when the
// week has no snapshot.
func (s *RankingService) ChampionsChart(ctx context.Context, weekStart time.Time) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "leaderboard.ChampionsChart")
	defer span.End()

	snapshot, err := s.WeeklyChampions(ctx, weekStart)
	if err != nil {
		return nil, err
	}

	top := snapshot.TopUsers
	if len(top) == 0 {
		return nil, fmt.Errorf("champions chart: snapshot %s has no standings", snapshot.PeriodKey)
	}
	if len(top) > chartTopN {
		top = top[:chartTopN]
	}

	bars := make([]chart.Value, len(top))
	for i, entry := range top {
		bars[i] = chart.Value{
			Label: entry.DisplayName,
			Value: float64(entry.Points),
		}
	}

	graph := chart.BarChart{
		Title:    fmt.Sprintf("Weekly champions %s", snapshot.PeriodKey),
		Width:    900,
		Height:   450,
		BarWidth: 60,
		Bars:     bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("champions chart: render: %w", err)
	}
	return buf.Bytes(), nil
}
