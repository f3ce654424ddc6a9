package crawler

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/dealmungchi/saleharvester/internal/browser"
)

// MockPage is a scripted browser.Page for testing
type MockPage struct {
	mu sync.Mutex

	// navigateErrs is consumed one entry per Navigate call; missing entries mean success
	navigateErrs []error
	idleErr      error
	landedURL    string
	// consent maps a pattern to whether a matching button exists
	consent  map[string]bool
	clickErr error
	// counts is consumed one entry per Count call; the last entry repeats
	counts   []int
	countErr error
	html     string
	htmlErr  error

	navigateCalls int
	countCalls    int
	revealCalls   int
	clicked       []string
	screenshots   int
}

// Ensure MockPage implements browser.Page
var _ browser.Page = (*MockPage)(nil)

func (m *MockPage) Navigate(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.navigateCalls
	m.navigateCalls++
	if i < len(m.navigateErrs) {
		return m.navigateErrs[i]
	}
	if m.landedURL == "" {
		m.landedURL = url
	}
	return nil
}

func (m *MockPage) WaitIdle(ctx context.Context) error {
	return m.idleErr
}

func (m *MockPage) URL(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.landedURL, nil
}

func (m *MockPage) ClickFirst(ctx context.Context, pattern string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clickErr != nil {
		return false, m.clickErr
	}
	if m.consent[pattern] {
		m.clicked = append(m.clicked, pattern)
		return true, nil
	}
	return false, nil
}

func (m *MockPage) Count(ctx context.Context, selector string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.countCalls
	m.countCalls++
	if m.countErr != nil {
		return 0, m.countErr
	}
	if len(m.counts) == 0 {
		return 0, nil
	}
	if i >= len(m.counts) {
		i = len(m.counts) - 1
	}
	return m.counts[i], nil
}

func (m *MockPage) RevealMore(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revealCalls++
	return nil
}

func (m *MockPage) HTML(ctx context.Context) (string, error) {
	return m.html, m.htmlErr
}

func (m *MockPage) Screenshot(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.screenshots++
	return nil, errors.New("no screenshots in tests")
}

func (m *MockPage) Close() error {
	return nil
}

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func testNavigatorConfig() NavigatorConfig {
	return NavigatorConfig{
		Attempts:        3,
		NavTimeout:      time.Second,
		IdleTimeout:     time.Second,
		RetryDelay:      time.Millisecond,
		ConsentPatterns: []string{"^alle akzeptieren", "^accept all"},
		GatePattern:     regexp.MustCompile(`(?i)/(country-selector|gate)(/|\?|$)`),
	}
}
