// Package validate enforces chat input bounds and strips script fragments.
//
// Stripping <script>...</script> is a defense-in-depth measure only. It is not
// an HTML sanitizer: other tags, event-handler attributes and javascript: URLs
// pass through untouched, so renderers must still escape output.
package validate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinLength = 1
	MaxLength = 500
)

const (
	ReasonEmpty   = "Message cannot be empty"
	ReasonTooLong = "Message is too long (max 500 characters)"
)

var scriptPattern = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)

// Result is the outcome of validating raw user input.
type Result struct {
	Valid     bool
	Error     string
	Sanitized string
}

// Input trims raw, checks its length in characters and strips script fragments.
func Input(raw string) Result {
	trimmed := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(trimmed)

	if n < MinLength {
		return Result{Error: ReasonEmpty, Sanitized: trimmed}
	}
	if n > MaxLength {
		return Result{Error: ReasonTooLong, Sanitized: trimmed}
	}

	return Result{Valid: true, Sanitized: StripScripts(trimmed)}
}

// StripScripts removes every <script>...</script> fragment, matching the
// shortest closing tag.
func StripScripts(s string) string {
	return scriptPattern.ReplaceAllString(s, "")
}
