package pubsub

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mascarpone/internal/ports"
)

// RedisPublisher implements ports.EventPublisher with Redis PUBLISH.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher wraps an existing client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Dial connects to the Redis server at url (redis://[:password@]host:port/db)
// and checks it answers before returning.
func Dial(ctx context.Context, url string) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisPublisher(client), nil
}

// Publish sends payload to every subscriber of channel.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := p.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

var _ ports.EventPublisher = (*RedisPublisher)(nil)
