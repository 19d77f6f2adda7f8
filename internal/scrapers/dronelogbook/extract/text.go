// Package extract contains the pure pattern extractors used to pull flight
// and statistics fields out of dronelogbook.com pages. None of the functions
// here fail: a missing pattern is reported as a zero value or a false ok.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

var (
	scriptRegex     = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleRegex      = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	tagRegex        = regexp.MustCompile(`<[^>]*>`)
	commentRegex    = regexp.MustCompile(`(?s)<!--.*?-->`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// StripTags replaces every tag with a single space.
func StripTags(s string) string {
	return tagRegex.ReplaceAllString(s, " ")
}

// StripComments removes html comments, including commented out markup.
func StripComments(s string) string {
	return commentRegex.ReplaceAllString(s, "")
}

// CollapseWhitespace turns every run of whitespace into one space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// DecodeEntities decodes html character references like &amp; and &#39;.
func DecodeEntities(s string) string {
	return html.UnescapeString(s)
}

// CellText is the cleaned text content of a fragment of markup.
func CellText(fragment string) string {
	return CollapseWhitespace(DecodeEntities(StripTags(fragment)))
}

// PlainText drops comments, scripts and styles, turns tags into line
// breaks and collapses the result into a single line of text.
func PlainText(document string) string {
	document = StripComments(document)
	document = scriptRegex.ReplaceAllString(document, "")
	document = styleRegex.ReplaceAllString(document, "")
	document = tagRegex.ReplaceAllString(document, "\n")
	return CollapseWhitespace(DecodeEntities(document))
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
