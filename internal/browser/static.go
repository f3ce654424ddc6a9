package browser

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealmungchi/saleharvester/helpers"
	"github.com/dealmungchi/saleharvester/pkg/errors"
)

// StaticPage renders nothing: it fetches server-side HTML over plain HTTP.
// Pages that materialize their listing through JavaScript yield fewer items.
type StaticPage struct {
	locale string

	mu   sync.Mutex
	url  string
	html string
	doc  *goquery.Document
}

// NewStaticPage creates a static page that sends Accept-Language for locale
func NewStaticPage(locale string) *StaticPage {
	return &StaticPage{locale: locale}
}

// Navigate fetches url and parses the response. A 4xx answer other than 408
// and 429 is reported as a validation error, which is not retried.
func (p *StaticPage) Navigate(ctx context.Context, url string) error {
	p.reset()

	body, finalURL, err := helpers.FetchWithRandomHeaders(ctx, url, p.locale)
	var statusErr *helpers.StatusError
	if stderrors.As(err, &statusErr) && statusErr.ClientError() {
		return errors.NewValidation(url, statusErr.Error())
	}
	if err != nil {
		return err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = finalURL
	p.html = string(raw)
	p.doc = doc
	return nil
}

func (p *StaticPage) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url, p.html, p.doc = "", "", nil
}

// WaitIdle returns immediately, a fetched document is already complete
func (p *StaticPage) WaitIdle(ctx context.Context) error {
	return ctx.Err()
}

// URL returns the landed URL
func (p *StaticPage) URL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return "", ErrNotLoaded
	}
	return p.url, nil
}

// ClickFirst never clicks, a static document has no script to react
func (p *StaticPage) ClickFirst(ctx context.Context, pattern string) (bool, error) {
	return false, nil
}

// Count returns the number of elements matching selector
func (p *StaticPage) Count(ctx context.Context, selector string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return 0, ErrNotLoaded
	}
	return p.doc.Find(selector).Length(), nil
}

// RevealMore is a no-op
func (p *StaticPage) RevealMore(ctx context.Context) error {
	return nil
}

// HTML returns the fetched markup
func (p *StaticPage) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.doc == nil {
		return "", ErrNotLoaded
	}
	return p.html, nil
}

// Screenshot is not available without a renderer
func (p *StaticPage) Screenshot(ctx context.Context) ([]byte, error) {
	return nil, ErrUnsupported
}

func (p *StaticPage) Close() error {
	return nil
}
