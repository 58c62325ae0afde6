// Package sanitize cleans user-supplied free text before it is stored.
// Tag values and fight locations are plain text; any markup a client sends
// is stripped with bluemonday's strict policy so an external presentation
// layer can render stored values without escaping surprises.
package sanitize

import (
	"html"
	"strings"
	"sync"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton strict policy. Initialized once via sync.Once.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text strips all HTML from input, unescapes the entities bluemonday emits,
// collapses runs of whitespace and control characters into single spaces,
// and trims the result.
func Text(input string) string {
	if input == "" {
		return ""
	}
	stripped := html.UnescapeString(getPolicy().Sanitize(input))
	return strings.Join(strings.FieldsFunc(stripped, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}), " ")
}
