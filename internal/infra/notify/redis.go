// Package notify broadcasts pipeline changes over Redis pub/sub so every
// dashboard instance sharing the store can refresh its board.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/boddenberg/agency-crm-go/internal/domain"
	"github.com/boddenberg/agency-crm-go/internal/port"
)

// DefaultChannel carries board events when none is configured.
const DefaultChannel = "crm:board"

// RedisPublisher publishes and receives board events on one channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
	logger  *zap.Logger
}

var _ port.BoardPublisher = (*RedisPublisher)(nil)

// NewRedisPublisher connects to redisURL and verifies the connection.
func NewRedisPublisher(redisURL, channel string, logger *zap.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed parsing redis URL: %w", err)
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed connecting to redis: %w", err)
	}

	return NewWithClient(rdb, channel, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(rdb *redis.Client, channel string, logger *zap.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{rdb: rdb, channel: channel, logger: logger}
}

// Publish sends evt to every subscriber.
func (p *RedisPublisher) Publish(ctx context.Context, evt domain.BoardEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode board event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish board event: %w", err)
	}
	p.logger.Debug("board event published",
		zap.String("channel", p.channel),
		zap.String("kind", evt.Kind),
		zap.String("lead_id", evt.LeadID),
	)
	return nil
}

// Subscribe calls fn for each event until ctx is done. Undecodable
// messages are logged and skipped.
func (p *RedisPublisher) Subscribe(ctx context.Context, fn func(domain.BoardEvent)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	// wait for the subscription to be confirmed before reading
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", p.channel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt domain.BoardEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				p.logger.Warn("board event: undecodable message",
					zap.String("channel", msg.Channel),
					zap.Error(err),
				)
				continue
			}
			fn(evt)
		}
	}
}

// Ping checks the Redis connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
