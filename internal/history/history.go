// Package history holds per-(user, session) conversation memory plus a
// per-user scratch slot recording the last category the classifier matched.
// Two interchangeable backends exist: an in-process store and a Redis-backed
// store with the same caller-observable contract.
package history

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in a session. Sequences are append-only and
// ordered by insertion time.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the conversation memory contract shared by both backends.
type Store interface {
	// Append adds a turn to the (user, session) sequence, creating it on
	// first access. Backend failures surface as errors, never as silent
	// drops.
	Append(ctx context.Context, userID, sessionID string, role Role, content string) error

	// SessionHistory returns the turns for (user, session) in insertion
	// order. A never-seen session yields an empty slice, not an error.
	SessionHistory(ctx context.Context, userID, sessionID string) ([]Turn, error)

	// LastMatched returns the user's last matched category, or "" when the
	// scratch slot has never been written.
	LastMatched(ctx context.Context, userID string) (string, error)

	// SetLastMatched overwrites the user's last matched category.
	SetLastMatched(ctx context.Context, userID, category string) error

	// ClearUser removes all sessions and scratch state for the user.
	ClearUser(ctx context.Context, userID string) error

	// ClearSession removes a single session's turns.
	ClearSession(ctx context.Context, userID, sessionID string) error

	// StartNewSession clears ALL prior state for the user, sibling sessions
	// included, then initialises the new session empty. One active session
	// per user is a deliberate policy: starting a session discards every
	// other session the user had.
	StartNewSession(ctx context.Context, userID, sessionID string) error
}

// Messages converts turns into chat messages usable as LLM context.
func Messages(turns []Turn) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			msgs = append(msgs, schema.UserMessage(t.Content))
		case RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
		}
	}
	return msgs
}

// Tail returns at most maxTurns of the most recent turns.
func Tail(turns []Turn, maxTurns int) []Turn {
	if maxTurns <= 0 || len(turns) <= maxTurns {
		return turns
	}
	return turns[len(turns)-maxTurns:]
}
