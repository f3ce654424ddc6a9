package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dealmungchi/saleharvester/helpers"
)

// ExtractFunc pulls a raw value out of a located element
type ExtractFunc func(*goquery.Selection) (string, bool)

// Strategy is one way of reading a logical field from a fragment.
// An empty Selector means the fragment itself.
type Strategy struct {
	Name     string
	Selector string
	Extract  ExtractFunc
}

// Resolve walks strategies in order and returns the first non-empty,
// whitespace-collapsed value. Missing elements, failed extractions and
// panicking extractors all fall through to the next strategy.
func Resolve(fragment *goquery.Selection, strategies []Strategy) string {
	for _, s := range strategies {
		if v := attempt(fragment, s); v != "" {
			return v
		}
	}
	return ""
}

func attempt(fragment *goquery.Selection, s Strategy) (value string) {
	defer func() {
		if recover() != nil {
			value = ""
		}
	}()

	target := fragment
	if s.Selector != "" {
		target = fragment.Find(s.Selector).First()
	}
	if target.Length() == 0 {
		return ""
	}

	raw, ok := s.Extract(target)
	if !ok {
		return ""
	}
	return helpers.NormalizeSpace(raw)
}

// Text extracts the element's text content
func Text() ExtractFunc {
	return func(s *goquery.Selection) (string, bool) {
		return s.Text(), true
	}
}

// Attr extracts a single attribute
func Attr(name string) ExtractFunc {
	return func(s *goquery.Selection) (string, bool) {
		return s.Attr(name)
	}
}

// FirstAttr extracts the first attribute in names that is present and not a
// data: URI placeholder.
func FirstAttr(names ...string) ExtractFunc {
	return func(s *goquery.Selection) (string, bool) {
		for _, name := range names {
			v, ok := s.Attr(name)
			v = strings.TrimSpace(v)
			if ok && v != "" && !strings.HasPrefix(v, "data:") {
				return v, true
			}
		}
		return "", false
	}
}

// SrcSetFirst extracts the first URL of a srcset attribute
func SrcSetFirst(name string) ExtractFunc {
	return func(s *goquery.Selection) (string, bool) {
		v, ok := s.Attr(name)
		if !ok {
			return "", false
		}
		first, _, _ := strings.Cut(strings.TrimSpace(v), ",")
		fields := strings.Fields(first)
		if len(fields) == 0 {
			return "", false
		}
		return fields[0], true
	}
}

// When guards an extractor with a predicate on the located element
func When(pred func(*goquery.Selection) bool, extract ExtractFunc) ExtractFunc {
	return func(s *goquery.Selection) (string, bool) {
		if !pred(s) {
			return "", false
		}
		return extract(s)
	}
}
