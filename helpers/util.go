package helpers

import (
	"net/url"
	"strings"
)

// NormalizeSpace collapses every run of Unicode whitespace (NBSP included)
// into a single space and trims the result.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ResolveURL resolves ref against base and returns an absolute URL.
// It returns false when either side cannot be parsed or the result is not absolute.
func ResolveURL(base, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "javascript:") || strings.HasPrefix(ref, "#") {
		return "", false
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	relURL, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	abs := baseURL.ResolveReference(relURL)
	if !abs.IsAbs() || abs.Host == "" {
		return "", false
	}
	return abs.String(), true
}

// StripQuery removes the query string and fragment from a URL
func StripQuery(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
			return rawURL[:i]
		}
		return rawURL
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}
