package redact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextDisabledLeavesSpeechAlone(t *testing.T) {
	SetEnabled(false)
	in := "email a@b.com and phone +62 812 3456 7890"
	assert.Equal(t, in, Text(in))
}

func TestTextMasksSpokenResponses(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)

	cases := map[string]string{
		"write to a@b.com":                          "write to [REDACTED_EMAIL]",
		"call +62 812 3456 7890 after lunch":        "call [REDACTED_PHONE] after lunch",
		"send it to ana at example dot com please":  "send it to [REDACTED_EMAIL] please",
		"mail j.doe at mail dot example dot co":     "mail [REDACTED_EMAIL]",
		"your code is 482913":                       "your code is [REDACTED_CODE]",
		"PIN: 0420 unlocks the door":                "PIN: [REDACTED_CODE] unlocks the door",
		"you are at -6.20880, 106.84560 near Monas": "you are at [REDACTED_LOCATION] near Monas",
		"it is 21 degrees at 3 pm":                  "it is 21 degrees at 3 pm",
		"meet at the cafe at noon":                  "meet at the cafe at noon",
	}
	for in, want := range cases {
		assert.Equal(t, want, Text(in), in)
	}
}

func TestPreviewTruncatesAfterRedaction(t *testing.T) {
	SetEnabled(true)
	defer SetEnabled(false)

	got := Preview("reach me at a@b.com today", 20)
	assert.Equal(t, "reach me at [REDACTE…", got)
	assert.Equal(t, "héllo", Preview("héllo", 10))
	assert.Equal(t, "héllo", Preview("héllo", 0))
}
