package telemetry

import "regexp"

const promptPreviewLen = 100

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\b\d[\d\-\s().]{6,}\d\b`)
)

// SanitizePrompt truncates prompt text to 100 characters (appending "...")
// and redacts e-mail addresses and phone-like digit sequences, per the
// telemetry event surface's PII-sanitization rule.
func SanitizePrompt(s string) string {
	s = emailRe.ReplaceAllString(s, "[EMAIL]")
	s = phoneRe.ReplaceAllString(s, "[PHONE]")
	r := []rune(s)
	if len(r) > promptPreviewLen {
		s = string(r[:promptPreviewLen]) + "..."
	}
	return s
}
