package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"

	"github.com/dealmungchi/saleharvester/internal/browser"
	"github.com/dealmungchi/saleharvester/pkg/errors"
)

// DefaultConsentButtonPatterns are tried in order, matched case-insensitively
// against the visible text of buttons and links.
var DefaultConsentButtonPatterns = []string{
	`^\s*alle (cookies )?akzeptieren`,
	`^\s*accept all( cookies)?`,
	`^\s*tout accepter`,
	`^\s*(akzeptieren|zustimmen|einverstanden)\s*$`,
	`^\s*(accept|agree|i agree|ok)\s*$`,
}

const (
	defaultGatePattern  = `(?i)/(country-?selector|select-country|choose-country|geo-?block|unavailable|gate)(/|\?|$)`
	defaultItemSelector = `article[data-product-id], [data-testid="product-card"], li.product-item, div.product-tile, article.product`
)

// Config represents the application configuration
type Config struct {
	// Categories
	CategoryURLs        []string
	CategoriesFile      string
	MaxItemsPerCategory int
	ScrollSteps         int
	ItemSelector        string

	// Record filters
	MinSalePrice       decimal.Decimal
	MinDiscountPercent *int

	// Browser hints, passed through to the rendering backend
	Locale      string
	Timezone    string
	Geolocation string

	ConsentButtonPatterns []string
	GatePattern           string

	// Navigation and loading
	NavAttempts   int
	NavTimeout    time.Duration
	IdleTimeout   time.Duration
	RetryDelay    time.Duration
	SettleDelay   time.Duration
	RenderBackend string
	Headless      bool

	// Scheduling
	CrawlInterval time.Duration

	// Output sinks
	OutputPath  string
	SQLitePath  string
	RedisAddr   string
	RedisDB     int
	RedisStream string

	// Gate cooldown cache
	MemcacheAddr string
	GateCooldown time.Duration

	DebugDir    string
	MetricsAddr string

	// Environment
	Environment string

	// malformed holds environment keys whose values could not be parsed
	malformed []string
}

// CategoriesFile is the YAML document that may override list settings
type CategoriesFile struct {
	Categories     []string `yaml:"categories"`
	ConsentButtons []string `yaml:"consent_buttons"`
	GatePattern    string   `yaml:"gate_pattern"`
	ItemSelector   string   `yaml:"item_selector"`
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	env := &envReader{}
	cfg := &Config{
		CategoryURLs:          splitList(getEnv("CATEGORY_URLS", ""), ","),
		CategoriesFile:        getEnv("HARVEST_CATEGORIES_FILE", ""),
		MaxItemsPerCategory:   env.intValue("MAX_ITEMS_PER_CATEGORY", 60),
		ScrollSteps:           env.intValue("SCROLL_STEPS", 10),
		ItemSelector:          getEnv("ITEM_SELECTOR", defaultItemSelector),
		MinSalePrice:          env.decimalValue("MIN_SALE_PRICE", decimal.NewFromInt(1)),
		Locale:                getEnv("BROWSER_LOCALE", "de-AT"),
		Timezone:              getEnv("BROWSER_TIMEZONE", "Europe/Vienna"),
		Geolocation:           getEnv("BROWSER_GEOLOCATION", ""),
		ConsentButtonPatterns: DefaultConsentButtonPatterns,
		GatePattern:           getEnv("GATE_PATTERN", defaultGatePattern),
		NavAttempts:           env.intValue("NAV_ATTEMPTS", 3),
		NavTimeout:            time.Duration(env.intValue("NAV_TIMEOUT_SECONDS", 120)) * time.Second,
		IdleTimeout:           time.Duration(env.intValue("IDLE_TIMEOUT_SECONDS", 60)) * time.Second,
		RetryDelay:            time.Duration(env.intValue("RETRY_DELAY_MS", 2500)) * time.Millisecond,
		SettleDelay:           time.Duration(env.intValue("SETTLE_DELAY_MS", 1200)) * time.Millisecond,
		RenderBackend:         getEnv("RENDER_BACKEND", "chrome"),
		Headless:              getEnv("CHROME_HEADLESS", "true") != "false",
		CrawlInterval:         time.Duration(env.intValue("CRAWL_INTERVAL_SECONDS", 0)) * time.Second,
		OutputPath:            getEnv("OUTPUT_PATH", "output"),
		SQLitePath:            getEnv("SQLITE_PATH", ""),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisDB:               env.intValue("REDIS_DB", 0),
		RedisStream:           getEnv("REDIS_STREAM", "saleharvest"),
		MemcacheAddr:          getEnv("MEMCACHE_ADDR", ""),
		GateCooldown:          time.Duration(env.intValue("GATE_COOLDOWN_SECONDS", 21600)) * time.Second,
		DebugDir:              getEnv("DEBUG_DIR", "debug"),
		MetricsAddr:           getEnv("METRICS_ADDR", ""),
		Environment:           getEnv("HARVEST_ENVIRONMENT", "development"),
	}

	if raw := os.Getenv("CONSENT_BUTTON_PATTERNS"); raw != "" {
		cfg.ConsentButtonPatterns = splitList(raw, "|")
	}
	if raw := os.Getenv("MIN_DISCOUNT_PERCENT"); raw != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			cfg.MinDiscountPercent = &v
		} else {
			env.malformed = append(env.malformed, "MIN_DISCOUNT_PERCENT")
		}
	}
	cfg.malformed = env.malformed

	return cfg
}

// LoadCategoriesFile merges list settings from a YAML file into the config.
// Non-empty file values replace the environment values.
func (c *Config) LoadCategoriesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewConfiguration("read categories file", err)
	}

	var file CategoriesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return errors.NewConfiguration("parse categories file", err)
	}

	if len(file.Categories) > 0 {
		c.CategoryURLs = file.Categories
	}
	if len(file.ConsentButtons) > 0 {
		c.ConsentButtonPatterns = file.ConsentButtons
	}
	if file.GatePattern != "" {
		c.GatePattern = file.GatePattern
	}
	if file.ItemSelector != "" {
		c.ItemSelector = file.ItemSelector
	}
	return nil
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	if len(c.malformed) > 0 {
		return errors.NewValidation(c.malformed[0], "value is not a number")
	}
	if len(c.CategoryURLs) == 0 {
		return errors.NewValidation("CATEGORY_URLS", "no category URLs configured (CATEGORY_URLS or HARVEST_CATEGORIES_FILE)")
	}
	if c.MaxItemsPerCategory <= 0 {
		return errors.NewValidation("MAX_ITEMS_PER_CATEGORY", "must be positive")
	}
	if c.ScrollSteps <= 0 {
		return errors.NewValidation("SCROLL_STEPS", "must be positive")
	}
	if c.NavAttempts <= 0 {
		return errors.NewValidation("NAV_ATTEMPTS", "must be positive")
	}
	if c.NavTimeout <= 0 {
		return errors.NewValidation("NAV_TIMEOUT_SECONDS", "must be positive")
	}
	if c.IdleTimeout <= 0 {
		return errors.NewValidation("IDLE_TIMEOUT_SECONDS", "must be positive")
	}
	for key, d := range map[string]time.Duration{
		"RETRY_DELAY_MS":         c.RetryDelay,
		"SETTLE_DELAY_MS":        c.SettleDelay,
		"CRAWL_INTERVAL_SECONDS": c.CrawlInterval,
		"GATE_COOLDOWN_SECONDS":  c.GateCooldown,
	} {
		if d < 0 {
			return errors.NewValidation(key, "must not be negative")
		}
	}
	if c.MinSalePrice.IsNegative() {
		return errors.NewValidation("MIN_SALE_PRICE", "must not be negative")
	}
	if c.MinDiscountPercent != nil && (*c.MinDiscountPercent < 0 || *c.MinDiscountPercent > 100) {
		return errors.NewValidation("MIN_DISCOUNT_PERCENT", "must be between 0 and 100")
	}
	if _, err := regexp.Compile(c.GatePattern); err != nil {
		return errors.NewConfiguration("invalid GATE_PATTERN", err)
	}
	for _, p := range c.ConsentButtonPatterns {
		if _, err := browser.CompileTextPattern(p); err != nil {
			return errors.NewConfiguration(fmt.Sprintf("invalid consent button pattern %q", p), err)
		}
	}
	switch c.RenderBackend {
	case "chrome", "static":
	default:
		return errors.NewValidation("RENDER_BACKEND", "must be chrome or static")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// envReader parses typed environment values and remembers the keys it had to
// fall back on
type envReader struct {
	malformed []string
}

func (r *envReader) intValue(key string, defaultValue int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.malformed = append(r.malformed, key)
		return defaultValue
	}
	return v
}

func (r *envReader) decimalValue(key string, defaultValue decimal.Decimal) decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		r.malformed = append(r.malformed, key)
		return defaultValue
	}
	return v
}

func splitList(raw, sep string) []string {
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
