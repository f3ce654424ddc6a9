package publisher

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/saleharvester/pkg/errors"
)

// This test requires a running Redis instance
// If Redis is not available, the test will be skipped
func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	const stream = "test_stream_saleharvest"

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 0})
	defer client.Close()
	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}
	require.NoError(t, client.Del(ctx, stream).Err())
	defer client.Del(ctx, stream)

	pub := NewRedisPublisher(ctx, "localhost:6379", 0, stream, 2)
	defer pub.Close()

	require.NoError(t, pub.Ping())
	for _, msg := range []string{"first", "second", "test_message"} {
		require.NoError(t, pub.Publish("product", []byte(msg)))
	}
	require.NoError(t, pub.TrimStreams())

	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// base64 of "test_message"
	assert.Equal(t, "dGVzdF9tZXNzYWdl", entries[1].Values["product"])
}

func TestRedisPublisherUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pub := NewRedisPublisher(ctx, "127.0.0.1:1", 0, "nowhere", 0)
	defer pub.Close()

	err := pub.Publish("product", []byte("x"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypePublisher))
	assert.Equal(t, int64(defaultMaxLength), pub.maxLength)
}
