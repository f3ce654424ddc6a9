package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/dealmungchi/saleharvester/logger"
)

// Cooldown remembers categories that redirected to a gate so later runs can
// skip them until the entry expires.
type Cooldown struct {
	cache  CacheService
	ttl    time.Duration
	logger *logger.Logger
}

// NewCooldown creates a cooldown backed by c. A nil cache or non-positive ttl
// disables it.
func NewCooldown(c CacheService, ttl time.Duration) *Cooldown {
	return &Cooldown{cache: c, ttl: ttl, logger: logger.ForCache()}
}

// Key hashes the category URL into a memcache-safe key
func Key(categoryURL string) string {
	sum := sha256.Sum256([]byte(categoryURL))
	return "gate:" + hex.EncodeToString(sum[:16])
}

func (c *Cooldown) enabled() bool {
	return c != nil && c.cache != nil && c.ttl > 0
}

// Active reports whether categoryURL is cooling down. Cache failures count as inactive.
func (c *Cooldown) Active(categoryURL string) bool {
	if !c.enabled() {
		return false
	}
	_, err := c.cache.Get(Key(categoryURL))
	if err == nil {
		return true
	}
	if !errors.Is(err, ErrMiss) {
		c.logger.Warn().Err(err).Str("category", categoryURL).Msg("Cooldown lookup failed")
	}
	return false
}

// Start puts categoryURL on cooldown for the configured ttl
func (c *Cooldown) Start(categoryURL string) error {
	if !c.enabled() {
		return nil
	}
	until := strconv.FormatInt(time.Now().Add(c.ttl).Unix(), 10)
	return c.cache.Set(Key(categoryURL), []byte(until), c.ttl)
}
