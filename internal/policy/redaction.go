package policy

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
)

// MaskPhone shortens a phone number for logs: country prefix visible, the
// rest starred.
func MaskPhone(number string) string {
	number = strings.TrimPrefix(strings.TrimSpace(number), "whatsapp:")
	if len(number) <= 6 {
		return number
	}
	return number[:6] + "***"
}

// RedactPII masks common high-risk PII patterns in free text before it
// reaches logs.
func RedactPII(input string) (redacted string, changed bool) {
	out := input

	next := emailPattern.ReplaceAllString(out, "[REDACTED_EMAIL]")
	changed = changed || next != out
	out = next

	next = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	changed = changed || next != out
	out = next

	return out, changed
}
