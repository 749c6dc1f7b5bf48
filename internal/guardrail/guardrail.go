// Package guardrail enforces brand-safety rules on drafted reply text.
package guardrail

import (
	"strings"
	"unicode/utf8"
)

// MaxReplyLength is the storage limit applied to drafted replies.
const MaxReplyLength = 220

// DetectBannedTerms returns the members of banned that appear in text as a
// case-insensitive substring, in banned-list order. Detection is
// informational: hits drive the draft/approved status, they never block
// storage. Returns an empty slice when nothing matches.
func DetectBannedTerms(text string, banned []string) []string {
	low := strings.ToLower(text)
	hits := []string{}
	for _, b := range banned {
		if b == "" {
			continue
		}
		if strings.Contains(low, strings.ToLower(b)) {
			hits = append(hits, b)
		}
	}
	return hits
}

// EnforceLimits trims surrounding whitespace and truncates the reply to at
// most max bytes without splitting UTF-8 runes. Truncation is not
// word-boundary aware; cutting mid-word is expected.
func EnforceLimits(text string, max int) string {
	text = strings.TrimSpace(text)
	if len(text) <= max {
		return text
	}
	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	return text[:max]
}
