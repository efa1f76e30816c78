package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// EventBus is the messaging surface the ranking service publishes through and
// consumers subscribe on. Backed by NATS JetStream via Watermill.
type EventBus interface {
	Publish(ctx context.Context, streamName string, msg *message.Message) error
	Subscribe(ctx context.Context, streamName string, subject string, handler func(ctx context.Context, msg *message.Message) error) error
	CreateStream(ctx context.Context, streamName string, subjects ...string) error
	Close() error
}

type eventBus struct {
	publisher      message.Publisher
	subscriber     message.Subscriber
	js             jetstream.JetStream
	natsConn       *nc.Conn
	logger         *slog.Logger
	createdStreams map[string]bool
	streamMutex    sync.Mutex
}

// NewEventBus connects to NATS and wires a Watermill publisher and subscriber
// over the connection.
func NewEventBus(ctx context.Context, natsURL string, logger *slog.Logger) (EventBus, error) {
	natsConn, err := nc.Connect(natsURL, nc.RetryOnFailedConnect(true))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(natsConn)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	watermillLogger := watermill.NewSlogLogger(logger)
	marshaler := &nats.NATSMarshaler{}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:       natsURL,
			Marshaler: marshaler,
			NatsOptions: []nc.Option{
				nc.RetryOnFailedConnect(true),
			},
		},
		watermillLogger,
	)
	if err != nil {
		natsConn.Close()
		return nil, fmt.Errorf("failed to create publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:         natsURL,
			Unmarshaler: marshaler,
			NatsOptions: []nc.Option{
				nc.RetryOnFailedConnect(true),
			},
		},
		watermillLogger,
	)
	if err != nil {
		natsConn.Close()
		publisher.Close()
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}

	return &eventBus{
		publisher:      publisher,
		subscriber:     subscriber,
		js:             js,
		natsConn:       natsConn,
		logger:         logger,
		createdStreams: make(map[string]bool),
	}, nil
}

// Publish sends a message to the subject carried in its metadata. The stream
// name is informational; JetStream routes by subject.
func (eb *eventBus) Publish(ctx context.Context, streamName string, msg *message.Message) error {
	if msg.UUID == "" {
		msg.UUID = watermill.NewUUID()
	}

	subject := msg.Metadata.Get("subject")
	if subject == "" {
		return fmt.Errorf("message %s has no subject in metadata", msg.UUID)
	}

	ack, err := eb.js.Publish(ctx, subject, msg.Payload)
	if err != nil {
		eb.logger.ErrorContext(ctx, "failed to publish message",
			slog.String("subject", subject),
			slog.String("stream_name", streamName),
			slog.Any("error", err),
		)
		return fmt.Errorf("failed to publish to JetStream: %w", err)
	}

	eb.logger.DebugContext(ctx, "message published",
		slog.String("stream_name", streamName),
		slog.String("subject", subject),
		slog.Uint64("sequence", ack.Sequence),
	)
	return nil
}

// Subscribe consumes a subject, acking on handler success and nacking on
// failure. The consumer goroutine exits when the subscription closes.
func (eb *eventBus) Subscribe(ctx context.Context, streamName string, subject string, handler func(ctx context.Context, msg *message.Message) error) error {
	messages, err := eb.subscriber.Subscribe(ctx, subject)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", subject, err)
	}

	eb.logger.InfoContext(ctx, "subscription started",
		slog.String("stream_name", streamName),
		slog.String("subject", subject))

	go func() {
		for msg := range messages {
			if err := handler(ctx, msg); err != nil {
				eb.logger.ErrorContext(ctx, "handler error",
					slog.String("subject", subject),
					slog.Any("error", err))
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}()

	return nil
}

// CreateStream ensures a JetStream stream exists and covers the given
// subjects, updating the subject list of an existing stream when needed.
func (eb *eventBus) CreateStream(ctx context.Context, streamName string, subjects ...string) error {
	eb.streamMutex.Lock()
	defer eb.streamMutex.Unlock()

	if eb.createdStreams[streamName] {
		return nil
	}

	stream, err := eb.js.Stream(ctx, streamName)
	if err != nil && err != jetstream.ErrStreamNotFound {
		return fmt.Errorf("failed to check if stream exists: %w", err)
	}

	if err == jetstream.ErrStreamNotFound {
		_, err = eb.js.CreateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: subjects,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		eb.logger.InfoContext(ctx, "stream created",
			slog.String("stream_name", streamName),
			slog.Any("subjects", subjects))
	} else {
		info, err := stream.Info(ctx)
		if err != nil {
			return fmt.Errorf("failed to get stream info: %w", err)
		}
		existing := make(map[string]bool, len(info.Config.Subjects))
		for _, s := range info.Config.Subjects {
			existing[s] = true
		}
		changed := false
		for _, s := range subjects {
			if !existing[s] {
				info.Config.Subjects = append(info.Config.Subjects, s)
				changed = true
			}
		}
		if changed {
			if _, err := eb.js.UpdateStream(ctx, info.Config); err != nil {
				return fmt.Errorf("failed to update stream subjects: %w", err)
			}
			eb.logger.InfoContext(ctx, "stream updated with new subjects",
				slog.String("stream_name", streamName))
		}
	}

	eb.createdStreams[streamName] = true
	return nil
}

// Close releases the Watermill endpoints and the NATS connection.
func (eb *eventBus) Close() error {
	if eb.publisher != nil {
		if err := eb.publisher.Close(); err != nil {
			eb.logger.Error("error closing publisher", slog.Any("error", err))
		}
	}
	if eb.subscriber != nil {
		if err := eb.subscriber.Close(); err != nil {
			eb.logger.Error("error closing subscriber", slog.Any("error", err))
		}
	}
	if eb.natsConn != nil {
		eb.natsConn.Close()
	}
	return nil
}
