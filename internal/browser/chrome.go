package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/dealmungchi/saleharvester/logger"
)

// ChromeOptions configure a ChromeSession
type ChromeOptions struct {
	Headless bool
	// Locale, Timezone and Geolocation ("lat,lon") are applied as emulation
	// overrides for every page the session opens.
	Locale      string
	Timezone    string
	Geolocation string
	UserAgent   string
}

// ChromeSession drives a single Chrome tab through chromedp
type ChromeSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      *logger.Logger
}

const idleScript = `new Promise(resolve => {
	let last = performance.getEntriesByType('resource').length;
	let quiet = 0;
	const tick = () => {
		const n = performance.getEntriesByType('resource').length;
		if (n === last && document.readyState === 'complete') {
			quiet++;
		} else {
			quiet = 0;
			last = n;
		}
		if (quiet >= 2) {
			resolve(true);
			return;
		}
		setTimeout(tick, 250);
	};
	setTimeout(tick, 250);
})`

const controlSelector = `button, [role="button"], a, input[type="submit"], input[type="button"]`

// controlTextsScript lists the text of every control, empty for hidden ones
const controlTextsScript = `Array.from(document.querySelectorAll(%s), el =>
	el.offsetParent === null ? '' : (el.innerText || el.value || el.getAttribute('aria-label') || '').trim())`

const clickControlScript = `(() => {
	const el = document.querySelectorAll(%s)[%d];
	if (!el) return false;
	el.click();
	return true;
})()`

// NewChromeSession starts Chrome and applies locale, timezone and geolocation overrides
func NewChromeSession(opts ChromeOptions) (*ChromeSession, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1366, 900),
	)
	if opts.Locale != "" {
		allocOpts = append(allocOpts, chromedp.Flag("lang", opts.Locale))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	s := &ChromeSession{
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
		logger:      logger.ForComponent("chrome"),
	}

	actions, err := emulationActions(opts)
	if err != nil {
		s.Close()
		return nil, err
	}

	// the first Run launches the browser
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	s.logger.Info().
		Str("locale", opts.Locale).
		Str("timezone", opts.Timezone).
		Bool("headless", opts.Headless).
		Msg("Chrome session started")
	return s, nil
}

func emulationActions(opts ChromeOptions) ([]chromedp.Action, error) {
	var actions []chromedp.Action
	if opts.Timezone != "" {
		actions = append(actions, emulation.SetTimezoneOverride(opts.Timezone))
	}
	if opts.Locale != "" {
		actions = append(actions, emulation.SetLocaleOverride().WithLocale(strings.ReplaceAll(opts.Locale, "-", "_")))
	}
	if opts.Geolocation != "" {
		lat, lon, err := parseGeolocation(opts.Geolocation)
		if err != nil {
			return nil, err
		}
		actions = append(actions, emulation.SetGeolocationOverride().
			WithLatitude(lat).
			WithLongitude(lon).
			WithAccuracy(100))
	}
	if len(actions) == 0 {
		actions = append(actions, chromedp.Navigate("about:blank"))
	}
	return actions, nil
}

func parseGeolocation(raw string) (float64, float64, error) {
	latStr, lonStr, ok := strings.Cut(raw, ",")
	if !ok {
		return 0, 0, fmt.Errorf("geolocation %q must be \"lat,lon\"", raw)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude in %q: %w", raw, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude in %q: %w", raw, err)
	}
	return lat, lon, nil
}

// run executes actions on the tab, bounded by the caller's ctx
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url and waits for the body to be ready
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// WaitIdle waits until no new resources were requested for two polls
func (s *ChromeSession) WaitIdle(ctx context.Context) error {
	var idle bool
	return s.run(ctx, chromedp.Evaluate(idleScript, &idle, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
}

// URL returns the current location
func (s *ChromeSession) URL(ctx context.Context) (string, error) {
	var location string
	err := s.run(ctx, chromedp.Location(&location))
	return location, err
}

// ClickFirst clicks the first visible control whose text matches pattern.
// The pattern is evaluated with Go's regexp, not in the page.
func (s *ChromeSession) ClickFirst(ctx context.Context, pattern string) (bool, error) {
	re, err := CompileTextPattern(pattern)
	if err != nil {
		return false, err
	}
	quoted, err := json.Marshal(controlSelector)
	if err != nil {
		return false, err
	}

	var texts []string
	if err := s.run(ctx, chromedp.Evaluate(fmt.Sprintf(controlTextsScript, quoted), &texts)); err != nil {
		return false, err
	}
	i := firstMatch(texts, re)
	if i < 0 {
		return false, nil
	}

	var clicked bool
	err = s.run(ctx, chromedp.Evaluate(fmt.Sprintf(clickControlScript, quoted, i), &clicked))
	return clicked, err
}

// Count returns the number of elements matching selector
func (s *ChromeSession) Count(ctx context.Context, selector string) (int, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.run(ctx, chromedp.Evaluate(fmt.Sprintf("document.querySelectorAll(%s).length", quoted), &n))
	return n, err
}

// RevealMore scrolls to the bottom of the document
func (s *ChromeSession) RevealMore(ctx context.Context) error {
	return s.run(ctx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

// HTML returns the outer HTML of the document element
func (s *ChromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// Screenshot captures the full page
func (s *ChromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.FullScreenshot(&buf, 80))
	return buf, err
}

// Close shuts down the tab and the browser
func (s *ChromeSession) Close() error {
	s.cancelTab()
	s.cancelAlloc()
	return nil
}
