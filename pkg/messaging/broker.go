package messaging

import (
	"context"
)

// Broker publishes domain events and fans them out to subscribers.
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Handler consumes one message received on a channel.
type Handler func(ctx context.Context, channel string, payload []byte) error
