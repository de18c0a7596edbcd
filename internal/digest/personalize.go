package digest

import (
	"html"
	"strings"
)

// Personalize swaps the generic greeting for one addressed to firstName. The name is
// escaped; an empty name returns the document unchanged.
func Personalize(document, firstName string) string {
	firstName = strings.TrimSpace(firstName)
	if firstName == "" {
		return document
	}
	return strings.Replace(document, Greeting, "Hello "+html.EscapeString(firstName)+"!", 1)
}
