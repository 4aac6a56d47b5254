package actions

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Definition describes one executable action: what it does and which
// parameters it takes. The table is data so the model tool schema and the
// validator stay in sync.
type Definition struct {
	Name        string
	Description string
	Required    []string
	Optional    []string
}

var definitions = map[string]Definition{
	"create_reminder": {
		Name:        "create_reminder",
		Description: "Create a personal reminder",
		Required:    []string{"message", "date"},
		Optional:    []string{"time", "priority"},
	},
	"send_message": {
		Name:        "send_message",
		Description: "Send a message to another contact",
		Required:    []string{"recipient", "message"},
		Optional:    []string{"template_name"},
	},
	"schedule_event": {
		Name:        "schedule_event",
		Description: "Schedule an event in user's calendar",
		Required:    []string{"title", "date", "time"},
		Optional:    []string{"duration", "description", "location"},
	},
	"update_preference": {
		Name:        "update_preference",
		Description: "Update user preference setting",
		Required:    []string{"preference_name", "preference_value"},
		Optional:    []string{"category"},
	},
	"set_goal": {
		Name:        "set_goal",
		Description: "Set a personal or professional goal",
		Required:    []string{"goal_description", "target_date"},
		Optional:    []string{"milestones", "priority", "category"},
	},
}

// Definitions returns the action table sorted by name.
func Definitions() []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns every action name sorted.
func Names() []string {
	defs := Definitions()
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	return names
}

type Validation struct {
	Valid   bool
	Problem string
}

// Validate checks an invocation against the table without side effects.
func Validate(name string, params map[string]any) Validation {
	def, ok := definitions[name]
	if !ok {
		return Validation{Problem: fmt.Sprintf("Unknown action: %s", name)}
	}

	var missing []string
	for _, p := range def.Required {
		if _, ok := params[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return Validation{Problem: "Missing required parameters: " + strings.Join(missing, ", ")}
	}

	if v, ok := params["date"]; ok {
		if _, err := time.Parse("2006-01-02", stringParam(v)); err != nil {
			return Validation{Problem: "Invalid date format for 'date'. Use YYYY-MM-DD format."}
		}
	}
	if v, ok := params["time"]; ok {
		if _, err := time.Parse("15:04", stringParam(v)); err != nil {
			return Validation{Problem: "Invalid time format for 'time'. Use 24-hour HH:MM format."}
		}
	}
	return Validation{Valid: true}
}

func stringParam(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
