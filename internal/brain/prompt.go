package brain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ent0n29/evafx/internal/memory"
)

const systemPromptTemplate = `You are a professional FX Trading Assistant specializing in currency exchange between XAF (Central African Franc) and major currencies (USD, AED, USDT, CNY, EUR), communicating via WhatsApp.

Primary Functions:
- Provide real-time exchange rates with service markup
- Calculate currency conversions for XAF and XOF against USD, AED, USDT, CNY, EUR
- Offer professional trading advice and market insights
- Handle client inquiries about exchange services

Trading Information:
- All rates include a service fee above market rates
- Rates sourced from Yahoo Finance for accuracy
- Operating 24/7 for client convenience
- Specializing in Cameroon (XAF) currency exchange

Response Style:
- Professional yet friendly trading assistant
- Use currency emojis and trading symbols
- Provide clear rate calculations
- Include contact information for transactions
- Focus on FX trading topics primarily

For non-FX topics, provide brief helpful responses but always redirect to currency services.
Recent User Information:
%s`

// buildMemoryContext groups records by category into readable sections for
// the system prompt.
func buildMemoryContext(memories []memory.Record) string {
	if len(memories) == 0 {
		return "No recent memories available."
	}

	byCategory := make(map[memory.Category][]memory.Record)
	for _, rec := range memories {
		byCategory[rec.Category] = append(byCategory[rec.Category], rec)
	}

	categories := make([]string, 0, len(byCategory))
	for c := range byCategory {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	sections := make([]string, 0, len(categories))
	for _, c := range categories {
		var lines []string
		for _, rec := range byCategory[memory.Category(c)] {
			lines = append(lines, "- "+string(rec.Content))
		}
		sections = append(sections, capitalize(c)+" memories:\n"+strings.Join(lines, "\n"))
	}
	return strings.Join(sections, "\n\n")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

const (
	historySummarizeAbove = 10
	historyKeepRecent     = 5
)

// summarizeHistory collapses everything but the most recent turns into one
// synthetic system turn so long conversations stay under the token budget.
func summarizeHistory(history []memory.Turn) []memory.Turn {
	if len(history) <= historySummarizeAbove {
		return history
	}
	older := history[:len(history)-historyKeepRecent]
	recent := history[len(history)-historyKeepRecent:]

	seen := make(map[string]bool)
	var topics []string
	for _, turn := range older {
		if turn.Role != memory.RoleUser {
			continue
		}
		topic := turn.Content
		if len(topic) > 20 {
			topic = topic[:20]
		}
		topic += "..."
		if seen[topic] {
			continue
		}
		seen[topic] = true
		topics = append(topics, topic)
	}

	summary := memory.Turn{
		Role: memory.RoleSystem,
		Content: fmt.Sprintf(
			"Prior conversation summary: The user and assistant have exchanged %d messages discussing various topics including %s",
			len(older), strings.Join(topics, ", ")),
	}
	out := make([]memory.Turn, 0, len(recent)+1)
	out = append(out, summary)
	out = append(out, recent...)
	return out
}

// actionToolParameters is the JSON schema for the execute_action tool.
func actionToolParameters(names []string) map[string]any {
	enum := make([]any, len(names))
	for i, n := range names {
		enum[i] = n
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action_name": map[string]any{
				"type": "string",
				"enum": enum,
			},
			"params": map[string]any{
				"type":                 "object",
				"additionalProperties": true,
			},
		},
		"required": []any{"action_name", "params"},
	}
}

type actionArguments struct {
	ActionName string          `json:"action_name"`
	Params     json.RawMessage `json:"params"`
}
