package feed

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

const maxCleanPasses = 8

var strictPolicy = bluemonday.StrictPolicy()

// CleanText decodes entities and strips markup until the text stops changing, so
// cleaning already-clean text is a no-op.
func CleanText(s string) string {
	s = normalizeSpace(s)
	for i := 0; i < maxCleanPasses; i++ {
		next := cleanPass(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func cleanPass(s string) string {
	s = html.UnescapeString(s)
	// StrictPolicy drops every tag and re-escapes the text it keeps.
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	return normalizeSpace(s)
}

func normalizeSpace(s string) string {
	// strings.Fields also splits on U+00A0, which is what &nbsp; decodes to.
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to limit runes and appends "..." when it was longer.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
