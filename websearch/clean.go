package websearch

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Engines wrap matched terms in markup; titles and snippets are display text.
var stripPolicy = bluemonday.StrictPolicy()

// stripTags removes every tag, decodes entities and collapses whitespace.
func stripTags(s string) string {
	if s == "" {
		return s
	}
	return strings.Join(strings.Fields(html.UnescapeString(stripPolicy.Sanitize(s))), " ")
}
