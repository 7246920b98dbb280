package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/dentalclinic-api/pkg/messaging"
)

// Subscriber feeds messages from broker channels into a handler until the
// context is cancelled. A failing message is logged and dropped.
type Subscriber struct {
	broker   messaging.Broker
	channels []string
	handle   messaging.Handler
	logger   zerolog.Logger
}

func NewSubscriber(broker messaging.Broker, channels []string, handle messaging.Handler, logger zerolog.Logger) *Subscriber {
	return &Subscriber{
		broker:   broker,
		channels: channels,
		handle:   handle,
		logger:   logger.With().Str("component", "subscriber").Logger(),
	}
}

// Run subscribes to every channel and blocks until ctx is done and all
// in-flight messages have been handled.
func (s *Subscriber) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, channel := range s.channels {
		msgs, err := s.broker.Subscribe(ctx, channel)
		if err != nil {
			return fmt.Errorf("subscribe to %s: %w", channel, err)
		}

		wg.Add(1)
		go func(channel string, msgs <-chan []byte) {
			defer wg.Done()
			s.consume(ctx, channel, msgs)
		}(channel, msgs)
	}

	s.logger.Info().Strs("channels", s.channels).Msg("Subscriber started")
	wg.Wait()
	return nil
}

func (s *Subscriber) consume(ctx context.Context, channel string, msgs <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-msgs:
			if !ok {
				return
			}
			if err := s.handle(ctx, channel, payload); err != nil {
				s.logger.Error().Err(err).Str("channel", channel).Msg("Error handling message")
			}
		}
	}
}
