// Package goals is the nested classification gate for goal-planning
// queries: its own classifier over goal subtypes in front of the
// conversational planning handlers.
package goals

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/finadvisor-poc/server/internal/advisor"
	"github.com/finadvisor-poc/server/internal/classify"
	errx "github.com/finadvisor-poc/server/internal/core/error"
	"github.com/finadvisor-poc/server/internal/history"
	"github.com/finadvisor-poc/server/internal/llm"
	logx "github.com/finadvisor-poc/server/pkg/logger"
)

// Subtype is the closed set of goal types the sub-classifier may emit.
type Subtype string

const (
	SubtypeHome          Subtype = "Home"
	SubtypeCar           Subtype = "Car"
	SubtypeEducation     Subtype = "Education"
	SubtypeTravel        Subtype = "Travel"
	SubtypeRetirement    Subtype = "Retirement"
	SubtypeEmergencyFund Subtype = "Emergency Fund"
)

// Subtypes returns every goal label in the order the classifier prompt
// presents them.
func Subtypes() []string {
	return []string{
		string(SubtypeHome),
		string(SubtypeCar),
		string(SubtypeEducation),
		string(SubtypeTravel),
		string(SubtypeRetirement),
		string(SubtypeEmergencyFund),
	}
}

//go:embed template/classifier.txt
var classifierTemplate string

//go:embed template/loan.txt
var loanSystemPrompt string

//go:embed template/education.txt
var educationSystemPrompt string

//go:embed template/travel.txt
var travelSystemPrompt string

// ClassifierTemplate is the goal subtype categorization prompt.
func ClassifierTemplate() string {
	return classifierTemplate
}

// Router classifies a goal-planning query into a subtype and runs the
// matching planning conversation. It satisfies the top-level handler
// contract, so it plugs into the category registry like any other handler.
type Router struct {
	classifier *classify.Classifier
	models     *llm.Models
	cfg        advisor.Config
}

func NewRouter(models *llm.Models, store history.Store, cfg advisor.Config) *Router {
	return &Router{
		classifier: classify.New(models.Classifier, store, classify.Config{
			Categories:     Subtypes(),
			SystemTemplate: classifierTemplate,
			MaxTurns:       cfg.ClassifierMaxTurns,
			// goal subtypes never touch the per-user last-matched slot;
			// that belongs to the top-level gate
			ScratchFallback: false,
			ModelName:       models.ClassifierName,
		}),
		models: models,
		cfg:    cfg,
	}
}

// Handle runs the nested gate: classify the goal subtype, then hold the
// matching planning conversation. Undecidable or unrelated messages reject
// with a 400 so the caller can surface a clear message.
func (r *Router) Handle(ctx context.Context, conv advisor.Conversation) (string, error) {
	v := r.classifier.Classify(ctx, conv.UserID, conv.SessionID, conv.Query)
	if v.TopMatch == "" || v.NotSupported {
		logx.Info().Str("user_id", conv.UserID).Str("top_match", v.TopMatch).
			Msg("goal query rejected: no supported goal type")
		return "", errx.New(errx.ErrUnsupportedQuery, http.StatusBadRequest,
			"The query does not match any supported goal type.")
	}

	logx.Info().Str("user_id", conv.UserID).Str("session_id", conv.SessionID).
		Str("goal", v.TopMatch).Float64("confidence", v.ConfidenceScore).
		Msg("dispatching goal query")

	switch Subtype(v.TopMatch) {
	case SubtypeHome, SubtypeCar:
		return r.converse(ctx, conv, loanSystemPrompt, v.TopMatch)
	case SubtypeEducation:
		return r.converse(ctx, conv, educationSystemPrompt, v.TopMatch)
	case SubtypeTravel:
		return r.converse(ctx, conv, travelSystemPrompt, v.TopMatch)
	case SubtypeRetirement, SubtypeEmergencyFund:
		return "", errx.New(errx.ErrNoHandler, http.StatusNotImplemented,
			fmt.Sprintf("Planning for %s goals is not supported yet.", v.TopMatch))
	default:
		return "", errx.New(errx.ErrNoHandler, http.StatusBadRequest,
			fmt.Sprintf("No agent available for the goal type: %s", v.TopMatch))
	}
}

// converse runs one plain (tool-free) planning turn against the responder.
func (r *Router) converse(ctx context.Context, conv advisor.Conversation, rawPrompt, goal string) (string, error) {
	system, err := renderGoalSystem(ctx, rawPrompt, goal)
	if err != nil {
		return "", err
	}

	msgs := append([]*schema.Message{schema.SystemMessage(system)}, conv.History(ctx, r.cfg.MaxTurns)...)
	msgs = append(msgs, schema.UserMessage(conv.Query))

	out, err := r.models.Responder.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("goal planning model call failed: %w", err)
	}
	llm.LogUsage("goal_planning", r.models.ResponderName, out)
	return out.Content, nil
}

func renderGoalSystem(ctx context.Context, raw, goal string) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(raw),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"Goal":        goal,
		"CurrentDate": time.Now().Format("2 January 2006"),
	})
	if err != nil {
		return "", fmt.Errorf("goal prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("goal prompt render: empty result")
	}
	return msgs[0].Content, nil
}
