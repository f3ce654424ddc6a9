package crawler

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"time"

	"github.com/dealmungchi/saleharvester/internal/browser"
	"github.com/dealmungchi/saleharvester/logger"
	"github.com/dealmungchi/saleharvester/pkg/errors"
)

const (
	consentTimeout = 5 * time.Second
	consentSettle  = time.Second
	locateTimeout  = 10 * time.Second
)

// NavigatorConfig holds navigation limits and page-specific patterns
type NavigatorConfig struct {
	Attempts        int
	NavTimeout      time.Duration
	IdleTimeout     time.Duration
	RetryDelay      time.Duration
	ConsentPatterns []string
	GatePattern     *regexp.Regexp
}

// Outcome of opening a page. OK is false when the page redirected to a gate.
type Outcome struct {
	OK       bool
	FinalURL string
}

// Navigator opens pages with retries, dismisses consent prompts and detects gates
type Navigator struct {
	page   browser.Page
	cfg    NavigatorConfig
	logger *logger.Logger
	sleep  func(context.Context, time.Duration) error
}

// NewNavigator creates a navigator over page
func NewNavigator(page browser.Page, cfg NavigatorConfig, log *logger.Logger) *Navigator {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Navigator{page: page, cfg: cfg, logger: log, sleep: sleepCtx}
}

// Open loads url. It returns a navigation CrawlerError once all attempts
// failed; a gate redirect is not an error and yields Outcome{OK: false}.
func (n *Navigator) Open(ctx context.Context, url string) (Outcome, error) {
	if err := n.load(ctx, url); err != nil {
		return Outcome{}, err
	}

	idleCtx, cancel := context.WithTimeout(ctx, n.cfg.IdleTimeout)
	if err := n.page.WaitIdle(idleCtx); err != nil {
		n.logger.Debug().Err(err).Msg("Network did not settle, continuing")
	}
	cancel()

	n.dismissConsent(ctx)

	landed := n.landedURL(ctx, url)
	if n.cfg.GatePattern != nil && n.cfg.GatePattern.MatchString(landed) {
		n.logger.Info().Str("landed_url", landed).Msg("Redirected to gate")
		return Outcome{OK: false, FinalURL: landed}, nil
	}

	return Outcome{OK: true, FinalURL: landed}, nil
}

func (n *Navigator) load(ctx context.Context, url string) error {
	var lastErr error
	for attempt := 1; attempt <= n.cfg.Attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, n.cfg.NavTimeout)
		lastErr = n.page.Navigate(attemptCtx, url)
		cancel()
		if lastErr == nil {
			return nil
		}

		n.logger.Warn().
			Err(lastErr).
			Int("attempt", attempt).
			Int("max_attempts", n.cfg.Attempts).
			Msg("Navigation failed")

		var ce *errors.CrawlerError
		if stderrors.As(lastErr, &ce) && !ce.IsRetryable() {
			return errors.NewNavigation(url, fmt.Sprintf("gave up after attempt %d", attempt), lastErr)
		}

		if attempt < n.cfg.Attempts {
			if err := n.sleep(ctx, n.cfg.RetryDelay); err != nil {
				return errors.NewNavigation(url, "navigation cancelled", err)
			}
		}
	}
	return errors.NewNavigation(url, fmt.Sprintf("failed after %d attempts", n.cfg.Attempts), lastErr)
}

// dismissConsent clicks the first matching accept button. Absence and
// click failures are ignored.
func (n *Navigator) dismissConsent(ctx context.Context) {
	for _, pattern := range n.cfg.ConsentPatterns {
		clickCtx, cancel := context.WithTimeout(ctx, consentTimeout)
		clicked, err := n.page.ClickFirst(clickCtx, pattern)
		cancel()
		if err != nil {
			n.logger.Debug().Err(err).Str("pattern", pattern).Msg("Consent click failed")
			continue
		}
		if clicked {
			n.logger.Debug().Str("pattern", pattern).Msg("Consent dialog dismissed")
			_ = n.sleep(ctx, consentSettle)
			return
		}
	}
}

func (n *Navigator) landedURL(ctx context.Context, requested string) string {
	locCtx, cancel := context.WithTimeout(ctx, locateTimeout)
	defer cancel()
	landed, err := n.page.URL(locCtx)
	if err != nil || landed == "" {
		n.logger.Debug().Err(err).Msg("Could not read landed URL")
		return requested
	}
	return landed
}
