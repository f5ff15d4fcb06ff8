package market

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	errx "github.com/finadvisor-poc/server/internal/core/error"
	logx "github.com/finadvisor-poc/server/pkg/logger"
)

// InsightConfig points at the web-grounded research provider.
type InsightConfig struct {
	BaseURL string `envconfig:"INSIGHT_BASE_URL" default:"https://api.perplexity.ai"`
	APIKey  string `envconfig:"INSIGHT_API_KEY"`
	Model   string `envconfig:"INSIGHT_MODEL" default:"sonar"`
	Timeout int    `envconfig:"INSIGHT_TIMEOUT" default:"30"`
}

// InsightClient asks a web-grounded chat-completions provider for current
// market commentary on named holdings or instruments.
type InsightClient struct {
	cfg  InsightConfig
	http *http.Client
}

func NewInsightClient(cfg InsightConfig) *InsightClient {
	return &InsightClient{
		cfg:  cfg,
		http: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// MarketInsights returns current market commentary for the named entities
// (stocks, funds, sectors). The text comes back as-is for prompt folding.
func (c *InsightClient) MarketInsights(ctx context.Context, entities string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", fmt.Errorf("%w: insight provider api key not configured", errx.ErrExternalData)
	}

	body, err := json.Marshal(chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: "Provide current market insights, recent news and analyst outlook for: " + entities +
					". Focus on the Indian market where applicable. Be concise and factual.",
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", errx.ErrExternalData, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errx.ErrExternalData, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		logx.Warn().Err(err).Msg("insight provider call failed")
		return "", fmt.Errorf("%w: %v", errx.ErrExternalData, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logx.Warn().Int("status", resp.StatusCode).Msg("insight provider returned non-200")
		return "", fmt.Errorf("%w: status %d from insight provider", errx.ErrExternalData, resp.StatusCode)
	}

	var out chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", errx.ErrExternalData, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%w: insight provider returned no choices", errx.ErrExternalData)
	}
	return out.Choices[0].Message.Content, nil
}
