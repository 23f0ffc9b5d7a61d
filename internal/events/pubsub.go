package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubConfig holds configuration for the Pub/Sub bridge.
type PubSubConfig struct {
	ProjectID string
	TopicName string
	Logger    zerolog.Logger
}

// PubSubPublisher forwards bus events to a Google Pub/Sub topic so external
// systems (status banners, on-call tooling) can react to rollback and phase
// changes without polling the API.
type PubSubPublisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
	topicName string
	logger    zerolog.Logger
}

// NewPubSubPublisher creates a new Pub/Sub bridge.
func NewPubSubPublisher(ctx context.Context, cfg PubSubConfig) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	return &PubSubPublisher{
		client:    client,
		publisher: client.Publisher(cfg.TopicName),
		topicName: cfg.TopicName,
		logger:    cfg.Logger,
	}, nil
}

// Handler returns a bus handler that forwards events to the topic.
// Publishing is asynchronous; failures are logged and never propagate back
// to the bus.
func (p *PubSubPublisher) Handler() Handler {
	return func(ev Event) {
		data, err := json.Marshal(ev)
		if err != nil {
			p.logger.Error().Err(err).Str("event", ev.Name).Msg("failed to encode event")
			return
		}

		result := p.publisher.Publish(context.Background(), &pubsub.Message{
			Data: data,
			Attributes: map[string]string{
				"event": ev.Name,
			},
		})

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := result.Get(ctx); err != nil {
				p.logger.Error().
					Err(err).
					Str("event", ev.Name).
					Str("topic", p.topicName).
					Msg("failed to publish event")
			}
		}()
	}
}

// Close stops the publisher and closes the underlying client.
func (p *PubSubPublisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
