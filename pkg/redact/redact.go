// Package redact masks personal data in assistant speech before it reaches
// logs, the console overlay and timeline artifacts. Responses are read aloud,
// so besides written emails and phone numbers it also catches spelled out
// addresses ("ana at example dot com"), one-time codes and the coordinates a
// location-aware answer may quote.
package redact

import (
	"regexp"
	"strings"
	"sync/atomic"
	"unicode/utf8"
)

var enabled atomic.Bool

type rule struct {
	re   *regexp.Regexp
	repl string
}

// Applied in order; coordinates go before phone numbers so a long decimal
// pair is not read as digits.
var rules = []rule{
	{regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`(?i)\b[a-z0-9._\-]+ at [a-z0-9\-]+(?: dot [a-z0-9\-]+)* dot [a-z]{2,}\b`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`-?\b\d{1,2}\.\d{3,}\s*,\s*-?\d{1,3}\.\d{3,}\b`), "[REDACTED_LOCATION]"},
	{regexp.MustCompile(`(?i)\b((?:code|pin|passcode|otp)(?: is)?:?\s+)\d{4,8}\b`), "${1}[REDACTED_CODE]"},
	{regexp.MustCompile(`\+?\b\d[\d\s\-]{7,}\d\b`), "[REDACTED_PHONE]"},
}

// SetEnabled toggles PII redaction.
func SetEnabled(v bool) {
	enabled.Store(v)
}

func Enabled() bool {
	return enabled.Load()
}

// Text masks personal data when redaction is enabled.
func Text(in string) string {
	if !enabled.Load() || strings.TrimSpace(in) == "" {
		return in
	}
	out := in
	for _, r := range rules {
		out = r.re.ReplaceAllString(out, r.repl)
	}
	return out
}

// Preview redacts in and truncates it to at most max runes, appending "…"
// when cut. A non-positive max disables truncation.
func Preview(in string, max int) string {
	out := Text(in)
	if max <= 0 || utf8.RuneCountInString(out) <= max {
		return out
	}
	runes := []rune(out)
	return string(runes[:max]) + "…"
}
