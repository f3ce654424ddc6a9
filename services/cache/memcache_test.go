package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/saleharvester/pkg/errors"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211")
	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	err := mc.Set("test_key", []byte("test_value"), 1*time.Second)
	assert.NoError(t, err)

	value, err := mc.Get("test_key")
	assert.NoError(t, err)
	assert.Equal(t, "test_value", string(value))

	err = mc.Delete("test_key")
	assert.NoError(t, err)

	_, err = mc.Get("test_key")
	assert.ErrorIs(t, err, ErrMiss)

	assert.NoError(t, mc.Delete("test_key"))
}

func TestMemcacheServiceUnreachable(t *testing.T) {
	mc := NewMemcacheService("127.0.0.1:1")

	assert.True(t, errors.IsType(mc.Ping(), errors.ErrorTypeCache))

	_, err := mc.Get(Key("https://shop.example/sale"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
	assert.True(t, errors.IsType(err, errors.ErrorTypeCache))

	assert.True(t, errors.IsType(mc.Set("k", []byte("v"), time.Minute), errors.ErrorTypeCache))
	assert.True(t, errors.IsType(mc.Delete("k"), errors.ErrorTypeCache))

	// an unreachable cache never puts a category on cooldown
	cooldown := NewCooldown(mc, time.Hour)
	assert.Error(t, cooldown.Start("https://shop.example/sale"))
	assert.False(t, cooldown.Active("https://shop.example/sale"))
}

func TestMemoryCache(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mc := NewMemoryCache()
	mc.now = func() time.Time { return now }

	_, err := mc.Get("missing")
	assert.ErrorIs(t, err, ErrMiss)

	assert.NoError(t, mc.Set("k", []byte("v"), time.Minute))
	value, err := mc.Get("k")
	assert.NoError(t, err)
	assert.Equal(t, "v", string(value))

	now = now.Add(time.Minute)
	_, err = mc.Get("k")
	assert.ErrorIs(t, err, ErrMiss)

	assert.NoError(t, mc.Set("forever", []byte("v"), 0))
	now = now.Add(24 * time.Hour)
	_, err = mc.Get("forever")
	assert.NoError(t, err)

	assert.NoError(t, mc.Delete("forever"))
	_, err = mc.Get("forever")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestCooldown(t *testing.T) {
	const category = "https://shop.example/sale/shoes"
	c := NewCooldown(NewMemoryCache(), time.Hour)

	assert.False(t, c.Active(category))
	assert.NoError(t, c.Start(category))
	assert.True(t, c.Active(category))
	assert.False(t, c.Active("https://shop.example/sale/bags"))

	disabled := NewCooldown(NewMemoryCache(), 0)
	assert.NoError(t, disabled.Start(category))
	assert.False(t, disabled.Active(category))

	var none *Cooldown
	assert.False(t, none.Active(category))
	assert.NoError(t, none.Start(category))
}

func TestKey(t *testing.T) {
	key := Key("https://shop.example/sale/shoes?page=1&sort=price")
	assert.Len(t, key, len("gate:")+32)
	assert.Equal(t, key, Key("https://shop.example/sale/shoes?page=1&sort=price"))
	assert.NotEqual(t, key, Key("https://shop.example/sale/shoes"))
}
