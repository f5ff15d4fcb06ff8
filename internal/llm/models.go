// Package llm constructs the Gemini chat models and defines the narrow
// generation interface the rest of the service depends on.
package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	logx "github.com/finadvisor-poc/server/pkg/logger"
)

// Generator is the single-shot completion surface handlers and the
// classifier use. Both gemini chat models and test fakes satisfy it.
type Generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Models bundles the classifier model, the plain responder, and the
// responder with the portfolio tool descriptors bound.
type Models struct {
	Classifier    Generator
	Responder     Generator
	ToolResponder Generator

	ClassifierName string
	ResponderName  string
}

// New builds both chat models against a shared genai client and binds
// toolInfos to a copy of the responder. toolInfos may be empty, in which
// case ToolResponder is the plain responder.
func New(ctx context.Context, cfg Config, toolInfos []*schema.ToolInfo) (*Models, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	classifier, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Classifier.Model,
		Temperature: &cfg.Classifier.Temperature,
		MaxTokens:   &cfg.Classifier.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating classifier model")
		return nil, fmt.Errorf("error creating classifier model: %w", err)
	}

	responder, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Responder.Model,
		Temperature: &cfg.Responder.Temperature,
		MaxTokens:   &cfg.Responder.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(2000)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating responder model")
		return nil, fmt.Errorf("error creating responder model: %w", err)
	}

	m := &Models{
		Classifier:     classifier,
		Responder:      responder,
		ToolResponder:  responder,
		ClassifierName: cfg.Classifier.Model,
		ResponderName:  cfg.Responder.Model,
	}

	if len(toolInfos) > 0 {
		bound, err := responder.WithTools(toolInfos)
		if err != nil {
			logx.Error().Err(err).Msg("Failed to bind tools to responder model")
			return nil, fmt.Errorf("failed to bind tools to responder model: %w", err)
		}
		m.ToolResponder = bound
	}

	return m, nil
}
