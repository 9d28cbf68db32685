package feed

import (
	"html"
	"regexp"
	"strings"
)

// ExcerptLimit caps excerpt length in runes after HTML stripping.
const ExcerptLimit = 400

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// StripHTML removes markup and entity-escapes, collapsing runs of whitespace.
func StripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Excerpt produces a plain-text summary of at most ExcerptLimit runes.
func Excerpt(s string) string {
	return Truncate(StripHTML(s), ExcerptLimit)
}

// Truncate cuts s to at most max runes, never splitting a rune.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
