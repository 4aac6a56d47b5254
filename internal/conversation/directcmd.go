package conversation

import (
	"regexp"
	"strings"

	"github.com/ent0n29/evafx/internal/messaging"
)

var sendMessagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)send_message to (\+\d+) saying "(.*?)"`),
	regexp.MustCompile(`(?s)send_message to (\+\d+) saying (.*)`),
	regexp.MustCompile(`(?s)send_message\s*\nrecipient:\s*(\+\d+)\s*\nmessage:\s*(.*)`),
	regexp.MustCompile(`(?s)[Ss]end a message to (\+\d+) saying "(.*?)"`),
	regexp.MustCompile(`(?s)[Ss]end a message to (\+\d+) saying (.*)`),
}

var reminderPattern = regexp.MustCompile(
	`(?s)(?:create_reminder|[Rr]emind me|[Ss]et a reminder).*?(.*?)(?:on|for|at)\s+(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4})`)

// parseDirectCommand recognizes explicit action phrasings so they skip the
// model entirely. Returns ("", nil) when the message is not a command.
func parseDirectCommand(text string) (string, map[string]any) {
	for _, p := range sendMessagePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return "send_message", map[string]any{
				"recipient": messaging.NormalizeWhatsApp(strings.TrimSpace(m[1])),
				"message":   strings.TrimSpace(m[2]),
			}
		}
	}

	if m := reminderPattern.FindStringSubmatch(text); m != nil {
		return "create_reminder", map[string]any{
			"message": strings.TrimSpace(m[1]),
			"date":    normalizeDate(strings.TrimSpace(m[2])),
		}
	}

	return "", nil
}

// normalizeDate converts m/d/yy and m/d/yyyy spellings to YYYY-MM-DD.
// ISO dates pass through unchanged.
func normalizeDate(date string) string {
	if !strings.Contains(date, "/") {
		return date
	}
	parts := strings.Split(date, "/")
	if len(parts) != 3 {
		return date
	}
	year := parts[2]
	if len(year) == 2 {
		year = "20" + year
	}
	return year + "-" + pad2(parts[0]) + "-" + pad2(parts[1])
}

func pad2(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
