package engine

import (
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeString is the comparison form used for string equality filters:
// lowercase, with every run of non-alphanumeric characters collapsed to a
// single space and the ends trimmed. The store-side predicate applies the
// identical transform, so "OHTANI SHOHEI" matches a stored "Ohtani, Shohei".
func NormalizeString(value string) string {
	lowered := strings.ToLower(value)
	collapsed := nonAlphanumeric.ReplaceAllString(lowered, " ")
	return strings.TrimSpace(collapsed)
}
