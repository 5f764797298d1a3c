package events

import (
	"context"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/vantage6/console/pkg/observability"
)

// Subscriber bridges the platform's Redis event channel into a Hub.
type Subscriber struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  *observability.Logger
}

// NewSubscriber builds a subscriber for the given Redis channel.
func NewSubscriber(client *redis.Client, channel string, hub *Hub, logger *observability.Logger) *Subscriber {
	return &Subscriber{
		client:  client,
		channel: channel,
		hub:     hub,
		logger:  logger,
	}
}

// Run subscribes to the Redis channel and publishes every decoded event to
// the hub until ctx is cancelled. Malformed payloads are logged and skipped.
//
// Run blocks; start it with async.Go.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	// Fail fast if the subscription could not be established.
	if _, err := pubsub.Receive(ctx); err != nil {
		return errors.Wrapf(err, "subscribing to redis channel %q", s.channel)
	}

	s.logger.WithField("channel", s.channel).Info("listening for platform events")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("redis subscription channel closed")
			}
			event, err := Decode([]byte(msg.Payload))
			if err != nil {
				s.logger.WithError(err).
					WithField("channel", s.channel).
					Warn("dropping malformed platform event")
				continue
			}
			s.hub.Publish(event)
		}
	}
}
