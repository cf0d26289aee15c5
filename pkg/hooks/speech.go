package hooks

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/harunnryd/halo/pkg/turn"
)

// SpeechOptions shapes response text before it reaches the speech hook.
// Zero values disable the matching rule.
type SpeechOptions struct {
	// Replacements rewrites phrases, matched case-insensitively.
	Replacements map[string]string
	MaxSentences int
	MaxChars     int
}

type replacement struct {
	re *regexp.Regexp
	to string
}

// SpeechShaper rewrites and shortens response text, then delegates.
type SpeechShaper struct {
	turn.Hooks
	replacements []replacement
	maxSentences int
	maxChars     int
}

// ShapeSpeech wraps inner. Replacements apply in key order.
func ShapeSpeech(inner turn.Hooks, opts SpeechOptions) *SpeechShaper {
	if inner == nil {
		inner = turn.NoopHooks{}
	}
	keys := make([]string, 0, len(opts.Replacements))
	for from := range opts.Replacements {
		if strings.TrimSpace(from) != "" {
			keys = append(keys, from)
		}
	}
	sort.Strings(keys)
	reps := make([]replacement, 0, len(keys))
	for _, from := range keys {
		reps = append(reps, replacement{
			re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(from)),
			to: opts.Replacements[from],
		})
	}
	return &SpeechShaper{
		Hooks:        inner,
		replacements: reps,
		maxSentences: opts.MaxSentences,
		maxChars:     opts.MaxChars,
	}
}

func (s *SpeechShaper) StartSpeech(text string) (turn.Work, error) {
	return s.Hooks.StartSpeech(s.Shape(text))
}

// Shape applies replacements, then the sentence limit, then the character limit.
func (s *SpeechShaper) Shape(text string) string {
	for _, r := range s.replacements {
		text = r.re.ReplaceAllLiteralString(text, r.to)
	}
	text = strings.TrimSpace(text)
	if s.maxSentences > 0 {
		text = truncateSentences(text, s.maxSentences)
	}
	if s.maxChars > 0 && utf8.RuneCountInString(text) > s.maxChars {
		text = strings.TrimSpace(string([]rune(text)[:s.maxChars]))
	}
	return text
}

func truncateSentences(text string, max int) string {
	var out strings.Builder
	count := 0
	for _, r := range text {
		out.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			count++
			if count >= max {
				break
			}
		}
	}
	return strings.TrimSpace(out.String())
}
