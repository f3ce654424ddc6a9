package crawler

import (
	"context"
	"time"

	"github.com/dealmungchi/saleharvester/internal/browser"
	"github.com/dealmungchi/saleharvester/logger"
)

// convergenceStep is the first step at which an unchanged count ends loading.
// Earlier steps tolerate a slow first render.
const convergenceStep = 3

// Loader scrolls a page until enough listing items are materialized
type Loader struct {
	page     browser.Page
	selector string
	settle   time.Duration
	logger   *logger.Logger
	sleep    func(context.Context, time.Duration) error
}

// NewLoader creates a loader counting elements that match selector
func NewLoader(page browser.Page, selector string, settle time.Duration, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{
		page:     page,
		selector: selector,
		settle:   settle,
		logger:   log,
		sleep:    sleepCtx,
	}
}

// LoadUntil runs at most maxSteps measure/reveal rounds. It stops when target
// items are present, or from the third step on when the count stopped
// growing. It returns the last measured count.
func (l *Loader) LoadUntil(ctx context.Context, target, maxSteps int) int {
	count, prev := 0, -1

	for step := 1; step <= maxSteps; step++ {
		n, err := l.page.Count(ctx, l.selector)
		if err != nil {
			l.logger.Debug().Err(err).Int("step", step).Msg("Item count failed")
			n = max(prev, 0)
		}
		count = n

		if count >= target {
			l.logger.Debug().Int("count", count).Int("step", step).Msg("Target count reached")
			return count
		}
		if step >= convergenceStep && count <= prev {
			l.logger.Debug().Int("count", count).Int("step", step).Msg("Item count converged")
			return count
		}
		prev = count

		if step == maxSteps {
			break
		}
		if err := l.page.RevealMore(ctx); err != nil {
			l.logger.Debug().Err(err).Int("step", step).Msg("Reveal failed")
		}
		if err := l.sleep(ctx, l.settle); err != nil {
			return count
		}
	}

	return count
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
