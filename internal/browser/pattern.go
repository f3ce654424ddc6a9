package browser

import "regexp"

// CompileTextPattern compiles a control text pattern. Matching is case-insensitive.
func CompileTextPattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// firstMatch returns the index of the first non-empty text matched by re, or -1
func firstMatch(texts []string, re *regexp.Regexp) int {
	for i, text := range texts {
		if text != "" && re.MatchString(text) {
			return i
		}
	}
	return -1
}
