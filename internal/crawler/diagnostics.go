package crawler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dealmungchi/saleharvester/internal/browser"
	"github.com/dealmungchi/saleharvester/logger"
)

const captureTimeout = 20 * time.Second

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Diagnostics writes a screenshot and the page markup for categories that
// produced nothing. Every failure is logged and dropped.
type Diagnostics struct {
	dir    string
	page   browser.Page
	logger *logger.Logger
	now    func() time.Time
}

// NewDiagnostics creates a capture helper writing into dir; an empty dir disables it
func NewDiagnostics(dir string, page browser.Page, log *logger.Logger) *Diagnostics {
	if log == nil {
		log = logger.Nop()
	}
	return &Diagnostics{dir: dir, page: page, logger: log, now: time.Now}
}

// Capture stores <dir>/<timestamp>_<reason>_<category>.{png,html}
func (d *Diagnostics) Capture(ctx context.Context, categoryURL, reason string) {
	if d == nil || d.dir == "" {
		return
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		d.logger.Debug().Err(err).Msg("Cannot create debug directory")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	base := filepath.Join(d.dir, fmt.Sprintf("%s_%s_%s", d.now().Format("20060102_150405"), reason, slug(categoryURL)))

	if shot, err := d.page.Screenshot(ctx); err != nil {
		d.logger.Debug().Err(err).Msg("Screenshot capture failed")
	} else if err := os.WriteFile(base+".png", shot, 0o644); err != nil {
		d.logger.Debug().Err(err).Msg("Screenshot write failed")
	}

	if html, err := d.page.HTML(ctx); err != nil {
		d.logger.Debug().Err(err).Msg("HTML capture failed")
	} else if err := os.WriteFile(base+".html", []byte(html), 0o644); err != nil {
		d.logger.Debug().Err(err).Msg("HTML write failed")
	}

	d.logger.Info().Str("path", base).Str("reason", reason).Msg("Saved diagnostics")
}

func slug(rawURL string) string {
	s := strings.TrimPrefix(strings.TrimPrefix(rawURL, "https://"), "http://")
	s = strings.Trim(unsafeFileChars.ReplaceAllString(s, "_"), "_")
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}
