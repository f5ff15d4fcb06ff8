package advisor

import (
	"context"
	"fmt"

	"github.com/finadvisor-poc/server/internal/classify"
	errx "github.com/finadvisor-poc/server/internal/core/error"
	logx "github.com/finadvisor-poc/server/pkg/logger"
)

// Status reports whether a query was answered or rejected.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Result is the routed outcome of one query. Message holds the handler's
// answer on success, or the rejection text on error. The raw verdict rides
// along for logging and tests.
type Result struct {
	Status     Status
	Category   Category
	Confidence float64
	Message    string
	Verdict    classify.Verdict
}

// Router owns the category registry and the fallback policy around the
// classification verdict. The registry is immutable after construction.
type Router struct {
	classifier *classify.Classifier
	handlers   map[Category]Handler
}

// NewRouter checks the registry exhaustively: every supported category must
// have a handler, so "classifier named an unregistered category" can only
// happen when the model emits a label outside the closed set.
func NewRouter(classifier *classify.Classifier, handlers map[Category]Handler) (*Router, error) {
	for _, label := range Categories() {
		if handlers[Category(label)] == nil {
			return nil, fmt.Errorf("%w: %s", errx.ErrNoHandler, label)
		}
	}
	return &Router{classifier: classifier, handlers: handlers}, nil
}

// Route classifies the query once and dispatches to exactly one handler.
// Rejections come back as an error-status Result, not a Go error; only
// handler failures are returned as errors. A verdict flagged not_supported
// still dispatches when its category is registered, which is how the stored
// last-matched fallback keeps a conversation going after a parse failure.
func (r *Router) Route(ctx context.Context, conv Conversation) (*Result, error) {
	v := r.classifier.Classify(ctx, conv.UserID, conv.SessionID, conv.Query)

	cat := Category(v.TopMatch)
	h, registered := r.handlers[cat]
	if !registered {
		if v.NotSupported {
			logx.Info().Str("user_id", conv.UserID).Str("top_match", v.TopMatch).
				Msg("query rejected: no supported category")
			return &Result{Status: StatusError, Message: errx.UnsupportedQueryMessage, Verdict: v}, nil
		}
		// classifier and registry category sets may diverge; tolerate it
		logx.Warn().Str("user_id", conv.UserID).Str("top_match", v.TopMatch).
			Msg("classifier named a category with no registered handler")
		return &Result{
			Status:  StatusError,
			Message: fmt.Sprintf("No agent available for the category: %s", v.TopMatch),
			Verdict: v,
		}, nil
	}

	logx.Info().Str("user_id", conv.UserID).Str("session_id", conv.SessionID).
		Str("category", v.TopMatch).Float64("confidence", v.ConfidenceScore).
		Bool("context_change", v.ContextChange).Msg("dispatching query")

	answer, err := h.Handle(ctx, conv)
	if err != nil {
		return nil, err
	}
	return &Result{
		Status:     StatusSuccess,
		Category:   cat,
		Confidence: v.ConfidenceScore,
		Message:    answer,
		Verdict:    v,
	}, nil
}
