package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/umicp/internal/envelope"
)

// Subscription is an active inbox subscription.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	envelopes <-chan *envelope.Envelope
	errors    <-chan error
	cancel    func()
	once      sync.Once
}

// Envelopes returns the channel of received envelopes.
// The channel is closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Envelopes() <-chan *envelope.Envelope {
	return s.envelopes
}

// Errors returns the channel of decode failures.
// The subscription continues after errors; the offending message is skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe listens on peer's inbox and on the namespace broadcast channel.
// The subscription is confirmed with Redis before Subscribe returns, so an
// envelope published after Subscribe returns will be delivered.
//
// Envelopes are delivered on a buffered channel (size 10). A slow reader
// may miss messages; Redis Pub/Sub is at-most-once.
func (c *Client) Subscribe(ctx context.Context, peer string) (*Subscription, error) {
	if peer == "" || peer == Broadcast {
		return nil, fmt.Errorf("invalid peer id %q", peer)
	}

	pubsub := c.rdb.Subscribe(ctx, InboxChannel(c.namespace, peer), BroadcastChannel(c.namespace))
	for range 2 {
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			return nil, fmt.Errorf("failed to subscribe %s: %w", peer, err)
		}
	}

	envCh := make(chan *envelope.Envelope, 10)
	errCh := make(chan error, 10)
	subCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(envCh)
		defer close(errCh)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				env, err := decodeMessage(msg)
				if err != nil {
					select {
					case errCh <- err:
					case <-subCtx.Done():
						return
					}
					continue
				}
				select {
				case envCh <- env:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		envelopes: envCh,
		errors:    errCh,
		cancel:    cancel,
	}, nil
}

func decodeMessage(msg *redis.Message) (*envelope.Envelope, error) {
	env, err := envelope.Deserialize([]byte(msg.Payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode envelope on %s: %w", msg.Channel, err)
	}
	return env, nil
}
