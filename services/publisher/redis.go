package publisher

import (
	"context"
	"encoding/base64"

	"github.com/redis/go-redis/v9"

	"github.com/dealmungchi/saleharvester/logger"
	"github.com/dealmungchi/saleharvester/pkg/errors"
)

const defaultMaxLength = 10000

// RedisPublisher implements Publisher on a single Redis stream
type RedisPublisher struct {
	client    *redis.Client
	ctx       context.Context
	stream    string
	maxLength int64
	logger    *logger.Logger
}

// NewRedisPublisher creates a new Redis publisher. maxLength <= 0 uses the default.
func NewRedisPublisher(ctx context.Context, addr string, db int, stream string, maxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if maxLength <= 0 {
		maxLength = defaultMaxLength
	}

	return &RedisPublisher{
		client:    client,
		ctx:       ctx,
		stream:    stream,
		maxLength: int64(maxLength),
		logger:    logger.ForPublisher().WithField("stream", stream),
	}
}

// Ping checks the connection
func (p *RedisPublisher) Ping() error {
	if err := p.client.Ping(p.ctx).Err(); err != nil {
		return errors.NewPublisher("redis", "ping failed", err)
	}
	return nil
}

// Publish adds a message to the stream
// The message is base64 encoded before publishing
func (p *RedisPublisher) Publish(key string, message []byte) error {
	encoded := base64.StdEncoding.EncodeToString(message)

	err := p.client.XAdd(p.ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			key: encoded,
		},
	}).Err()
	if err != nil {
		return errors.NewPublisher("redis", "xadd to "+p.stream, err)
	}
	return nil
}

// TrimStreams trims the stream to the configured maximum length
func (p *RedisPublisher) TrimStreams() error {
	trimmed, err := p.client.XTrimMaxLen(p.ctx, p.stream, p.maxLength).Result()
	if err != nil {
		return errors.NewPublisher("redis", "trim "+p.stream, err)
	}
	if trimmed > 0 {
		p.logger.Debug().Int64("trimmed", trimmed).Int64("max_length", p.maxLength).Msg("Stream trimmed")
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
