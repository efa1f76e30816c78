package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"

	leaderboarddomain "github.com/tribe-arena/ranking-service/app/modules/leaderboard/domain"
	leaderboardevents "github.com/tribe-arena/ranking-service/app/modules/leaderboard/events"
)

type fakeBus struct {
	published []*message.Message
	failNext  error
}

func (f *fakeBus) Publish(_ context.Context, _ string, msg *message.Message) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeBus) Subscribe(context.Context, string, string, func(context.Context, *message.Message) error) error {
	return nil
}

func (f *fakeBus) CreateStream(context.Context, string, ...string) error { return nil }
func (f *fakeBus) Close() error                                          { return nil }

func newTestPublisher(t *testing.T) (*Publisher, *fakeBus) {
	t.Helper()
	bus := &fakeBus{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPublisher(bus, logger, nil), bus
}

func TestPublishScoreUpdated(t *testing.T) {
	publisher, bus := newTestPublisher(t)

	publisher.PublishScoreUpdated(context.Background(), leaderboardevents.ScoreUpdatedPayload{
		Scope:     leaderboarddomain.ScopeUsers,
		Period:    leaderboarddomain.PeriodWeekly,
		EntityID:  "u1",
		NewPoints: 150,
		Delta:     50,
	})

	require.Len(t, bus.published, 1)
	msg := bus.published[0]
	require.Equal(t, leaderboardevents.ScoreUpdatedSubject, msg.Metadata.Get("subject"))
	require.NotEmpty(t, msg.UUID)

	var payload leaderboardevents.ScoreUpdatedPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	require.Equal(t, leaderboarddomain.EntityID("u1"), payload.EntityID)
	require.Equal(t, float64(150), payload.NewPoints)
	require.Equal(t, int64(50), payload.Delta)
}

func TestPublishScoreUpdatedShedsBurst(t *testing.T) {
	publisher, bus := newTestPublisher(t)

	// Well past the limiter's burst allowance.
	for i := 0; i < DefaultScoreUpdateRate*3; i++ {
		publisher.PublishScoreUpdated(context.Background(), leaderboardevents.ScoreUpdatedPayload{
			EntityID: "u1",
		})
	}
	require.LessOrEqual(t, len(bus.published), DefaultScoreUpdateRate+1)
	require.NotEmpty(t, bus.published)
}

func TestPublishScoreUpdatedSwallowsBusError(t *testing.T) {
	publisher, bus := newTestPublisher(t)
	bus.failNext = errors.New("bus down")

	// Must not panic or surface the error.
	publisher.PublishScoreUpdated(context.Background(), leaderboardevents.ScoreUpdatedPayload{EntityID: "u1"})
	require.Empty(t, bus.published)
}

func TestPublishResetBypassesLimiter(t *testing.T) {
	publisher, bus := newTestPublisher(t)

	for i := 0; i < DefaultScoreUpdateRate*3; i++ {
		publisher.PublishScoreUpdated(context.Background(), leaderboardevents.ScoreUpdatedPayload{EntityID: "u1"})
	}
	before := len(bus.published)

	publisher.PublishReset(context.Background(), leaderboardevents.ResetPayload{Event: "reset"})
	require.Len(t, bus.published, before+1)
	require.Equal(t, leaderboardevents.ResetSubject, bus.published[len(bus.published)-1].Metadata.Get("subject"))
}
