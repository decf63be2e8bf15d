// Package conversation provides durable, thread-isolated conversation
// history backed by PostgreSQL.
//
// Responsibilities: append-only message logs per thread, thread lifecycle,
// and resumption after restart (the database is the checkpoint).
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Role constants define valid message roles. No other value is persisted;
// the messages table carries a matching CHECK constraint.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TitleMaxLength bounds thread titles, including auto-generated ones.
const TitleMaxLength = 100

// Thread represents one isolated conversation. The id is caller-chosen and
// stable across restarts.
type Thread struct {
	ID           string
	Title        string
	PersonaID    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int
}

// Message is a single immutable conversation turn half. Within a thread,
// messages are ordered by CreatedAt with Seq breaking ties in insertion
// order.
type Message struct {
	ID        uuid.UUID
	ThreadID  string
	Role      string
	Content   string
	Seq       int64
	CreatedAt time.Time
}

// ValidRole reports whether role is one of the persistable roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// TruncateTitle derives a thread title from free text, cutting at
// TitleMaxLength runes.
func TruncateTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= TitleMaxLength {
		return text
	}
	return string(runes[:TitleMaxLength-3]) + "..."
}
