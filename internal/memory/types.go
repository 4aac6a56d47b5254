package memory

import (
	"encoding/json"
	"strings"
	"time"
)

// Category partitions a user's long-term records.
type Category string

const (
	CategoryPersonal   Category = "personal"
	CategoryReminder   Category = "reminder"
	CategoryEvent      Category = "event"
	CategoryContact    Category = "contact"
	CategoryPreference Category = "preference"
)

// Categories lists every valid category in declaration order.
func Categories() []Category {
	return []Category{CategoryPersonal, CategoryReminder, CategoryEvent, CategoryContact, CategoryPreference}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryPersonal, CategoryReminder, CategoryEvent, CategoryContact, CategoryPreference:
		return true
	default:
		return false
	}
}

// Record is one entry in an owner's append-only ledger.
type Record struct {
	ID        string          `json:"id"`
	Owner     string          `json:"owner"`
	Category  Category        `json:"type"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Turn is one conversational exchange entry.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// NormalizeOwner strips the transport addressing prefix so the same user maps
// to one ledger regardless of channel formatting.
func NormalizeOwner(owner string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(owner), "whatsapp:"))
}
