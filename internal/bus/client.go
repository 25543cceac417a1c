package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/roach88/umicp/internal/envelope"
)

// DefaultMaxRetries bounds the publish retry loop.
const DefaultMaxRetries = 3

// Client publishes and subscribes to envelopes within one namespace.
// Safe for concurrent use; the underlying redis client pools connections.
type Client struct {
	rdb        *redis.Client
	namespace  string
	maxRetries uint64
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithMaxRetries sets how many times Publish retries a failed send.
// Zero disables retries.
func WithMaxRetries(n uint64) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a bus client for the given namespace.
// The namespace cannot be empty.
func NewClient(opts *redis.Options, namespace string, options ...Option) (*Client, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	if opts == nil {
		return nil, fmt.Errorf("redis options cannot be nil")
	}

	c := &Client{
		rdb:        redis.NewClient(opts),
		namespace:  namespace,
		maxRetries: DefaultMaxRetries,
		log:        slog.New(slog.DiscardHandler),
	}
	for _, o := range options {
		o(c)
	}
	return c, nil
}

// Namespace returns the namespace this client publishes into.
func (c *Client) Namespace() string {
	return c.namespace
}

// Close closes the Redis connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the Redis connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Publish validates env, sends its canonical form to the recipient's inbox
// and returns the number of subscribers that received it.
// Transient Redis failures are retried with exponential backoff.
func (c *Client) Publish(ctx context.Context, env *envelope.Envelope) (int64, error) {
	if env == nil {
		return 0, fmt.Errorf("envelope cannot be nil")
	}
	if err := env.Check(); err != nil {
		return 0, fmt.Errorf("publish: %w", err)
	}
	data, err := env.Serialize()
	if err != nil {
		return 0, fmt.Errorf("publish: %w", err)
	}

	channel := targetChannel(c.namespace, env.To())

	var receivers int64
	op := func() error {
		n, err := c.rdb.Publish(ctx, channel, data).Result()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, redis.ErrClosed) {
				return backoff.Permanent(err)
			}
			return err
		}
		receivers = n
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxElapsedTime = 5 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	notify := func(err error, wait time.Duration) {
		c.log.Debug("publish retry", "channel", channel, "wait", wait, "error", err)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return 0, fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return receivers, nil
}
