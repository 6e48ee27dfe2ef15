package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-sync/pkg/config"
	"github.com/angelmondragon/storefront-sync/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Client wraps the redis connection used by the cross-process event bridge.
type Client struct {
	raw *redis.Client
}

// New bootstraps a Redis client from config and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig, logg *logger.Logger) (*Client, error) {
	if !cfg.Enabled() {
		return nil, errors.New("redis url is required")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}

	raw := redis.NewClient(opts)
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "redis connection established")
	}
	return &Client{raw: raw}, nil
}

// Publish sends payload on the named channel.
func (c *Client) Publish(ctx context.Context, channel, payload string) error {
	if c == nil || c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Publish(ctx, channel, payload).Err()
}

// Listener consumes messages from one subscribed channel. The signature
// matches *redis.PubSub so subscriptions can be handed out directly.
type Listener interface {
	Channel(opts ...redis.ChannelOption) <-chan *redis.Message
	Close() error
}

var _ Listener = (*redis.PubSub)(nil)

// Subscribe opens a subscription on the named channel.
func (c *Client) Subscribe(ctx context.Context, channel string) Listener {
	return c.raw.Subscribe(ctx, channel)
}

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.raw == nil {
		return errors.New("redis client not initialized")
	}
	return c.raw.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if c == nil || c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
