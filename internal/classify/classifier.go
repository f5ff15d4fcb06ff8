package classify

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/finadvisor-poc/server/internal/history"
	"github.com/finadvisor-poc/server/internal/llm"
	logx "github.com/finadvisor-poc/server/pkg/logger"
)

// Config selects the category set and prompt for one classification gate.
// The top-level router and the goal sub-router each run their own instance.
type Config struct {
	// Categories are the labels the model may emit.
	Categories []string
	// SystemTemplate is the instruction prompt; the {categories} token is
	// replaced with the comma-joined category list.
	SystemTemplate string
	// MaxTurns bounds how much session history is folded into the prompt.
	MaxTurns int
	// ScratchFallback enables the per-user last-matched-category policy:
	// successful matches are recorded, and parse failures or empty matches
	// fall back to the stored category.
	ScratchFallback bool
	// ModelName is used for usage logging only.
	ModelName string
}

type Classifier struct {
	model llm.Generator
	store history.Store
	cfg   Config

	systemPrompt string
}

func New(model llm.Generator, store history.Store, cfg Config) *Classifier {
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = 5
	}
	return &Classifier{
		model: model,
		store: store,
		cfg:   cfg,
		systemPrompt: strings.NewReplacer(
			"{categories}", strings.Join(cfg.Categories, ", "),
		).Replace(cfg.SystemTemplate),
	}
}

// Classify runs a single classification attempt for the given query. It
// never returns an error: model and parse failures are folded into the
// verdict per the fallback policy, so callers always have a value to route
// on. Confidence is advisory and never gates anything here.
func (c *Classifier) Classify(ctx context.Context, userID, sessionID, text string) Verdict {
	turns, err := c.store.SessionHistory(ctx, userID, sessionID)
	if err != nil {
		// classification proceeds with reduced context rather than blocking
		logx.Warn().Err(err).Str("user_id", userID).Str("session_id", sessionID).
			Msg("failed to load session history for classification")
		turns = nil
	}

	msgs := []*schema.Message{
		schema.SystemMessage(c.systemPrompt),
		schema.UserMessage(buildContext(history.Tail(turns, c.cfg.MaxTurns), text)),
	}

	out, err := c.model.Generate(ctx, msgs)
	if err != nil {
		return c.failureVerdict(ctx, userID, err)
	}
	llm.LogUsage("classifier", c.cfg.ModelName, out)

	v, err := ParseVerdict(out.Content)
	if err != nil {
		return c.failureVerdict(ctx, userID, err)
	}

	if v.TopMatch == "" {
		// The model could not decide. Trust the prior category when one is
		// stored; an empty match repaired from history counts as supported.
		if lm := c.lastMatched(ctx, userID); lm != "" {
			v.TopMatch = lm
			v.NotSupported = false
		}
		return *v
	}

	if c.cfg.ScratchFallback {
		// unconditional overwrite: confidence does not gate this write
		if err := c.store.SetLastMatched(ctx, userID, v.TopMatch); err != nil {
			logx.Error().Err(err).Str("user_id", userID).Msg("failed to record last matched category")
		}
	}
	return *v
}

// failureVerdict applies the parse/model-failure policy: reuse the stored
// last-matched category at zero confidence when available, otherwise report
// an unsupported query carrying the cause.
func (c *Classifier) failureVerdict(ctx context.Context, userID string, cause error) Verdict {
	if lm := c.lastMatched(ctx, userID); lm != "" {
		logx.Warn().Err(cause).Str("user_id", userID).Str("last_matched", lm).
			Msg("classification failed, reusing last matched category at zero confidence")
		return Verdict{TopMatch: lm, ConfidenceScore: 0, NotSupported: true}
	}
	logx.Error().Err(cause).Str("user_id", userID).Msg("classification failed with no fallback")
	return Verdict{Error: cause.Error(), NotSupported: true}
}

func (c *Classifier) lastMatched(ctx context.Context, userID string) string {
	if !c.cfg.ScratchFallback {
		return ""
	}
	lm, err := c.store.LastMatched(ctx, userID)
	if err != nil {
		logx.Warn().Err(err).Str("user_id", userID).Msg("failed to read last matched category")
		return ""
	}
	return lm
}

// buildContext renders recent turns plus the current message in the shape
// the classifier prompt expects.
func buildContext(turns []history.Turn, text string) string {
	var b strings.Builder
	b.WriteString("<conversation_context>\n")
	for _, t := range turns {
		if t.Content == "" {
			continue
		}
		switch t.Role {
		case history.RoleUser:
			b.WriteString("UserMessage(" + t.Content + ")\n")
		case history.RoleAssistant:
			b.WriteString("AssistantMessage(" + t.Content + ")\n")
		}
	}
	b.WriteString("</conversation_context>\n")
	b.WriteString("<current_message_to_analyze>\n")
	b.WriteString("UserMessage(" + text + ")\n")
	b.WriteString("</current_message_to_analyze>")
	return b.String()
}
