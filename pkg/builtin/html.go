package builtin

import (
	"regexp"
	"strings"
)

var (
	tagRE        = regexp.MustCompile(`<[^>]+>`)
	whitespaceRE = regexp.MustCompile(`\s+`)
)

// stripHTML is a crude HTML-to-text conversion: remove tags and
// collapse whitespace.
func stripHTML(html string) string {
	text := tagRE.ReplaceAllString(html, " ")
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
}
