package advisor

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/finadvisor-poc/server/internal/history"
	logx "github.com/finadvisor-poc/server/pkg/logger"
)

// Config tunes the conversational layer.
type Config struct {
	// MaxTurns bounds how much session history handlers fold into prompts.
	MaxTurns int `envconfig:"ADVISOR_MAX_TURNS" default:"10"`
	// ClassifierMaxTurns bounds the history window for classification gates.
	ClassifierMaxTurns int `envconfig:"ADVISOR_CLASSIFIER_MAX_TURNS" default:"5"`
	// MaxToolCalls bounds tool executions within a single answer turn.
	MaxToolCalls int `envconfig:"ADVISOR_MAX_TOOL_CALLS" default:"6"`
}

// Handler produces an answer for one category of query.
type Handler interface {
	Handle(ctx context.Context, conv Conversation) (string, error)
}

// Conversation is the context handle for one inbound query: the session key,
// the query text, and the store backing the session's memory. Handlers and
// both classification gates share this one handle so multi-turn slot-filling
// always sees the same history.
type Conversation struct {
	UserID    string
	SessionID string
	Query     string
	Store     history.Store
}

// History returns the most recent turns as chat messages. A storage read
// failure degrades to an empty context rather than failing the turn.
func (c Conversation) History(ctx context.Context, maxTurns int) []*schema.Message {
	turns, err := c.Store.SessionHistory(ctx, c.UserID, c.SessionID)
	if err != nil {
		logx.Warn().Err(err).Str("user_id", c.UserID).Str("session_id", c.SessionID).
			Msg("failed to load session history, proceeding without context")
		return nil
	}
	return history.Messages(history.Tail(turns, maxTurns))
}
