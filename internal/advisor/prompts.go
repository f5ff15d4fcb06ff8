package advisor

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/finadvisor-poc/server/internal/advisor/tools"
)

//go:embed template/classifier.txt
var classifierTemplate string

//go:embed template/analysis.txt
var analysisSystemPrompt string

//go:embed template/rebalance.txt
var rebalanceSystemPrompt string

// ClassifierTemplate is the top-level categorization prompt. The {categories}
// token is filled by the classifier at construction time.
func ClassifierTemplate() string {
	return classifierTemplate
}

func renderSystem(ctx context.Context, raw string) (string, error) {
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(raw),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"CurrentDate":  time.Now().Format("2 January 2006"),
		"StocksTool":   tools.ToolIndianStocks,
		"FundsTool":    tools.ToolMutualFunds,
		"InsightsTool": tools.ToolMarketInsights,
	})
	if err != nil {
		return "", fmt.Errorf("system prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("system prompt render: empty result")
	}
	return msgs[0].Content, nil
}

// RenderAnalysisSystem renders the portfolio analysis system prompt.
func RenderAnalysisSystem(ctx context.Context) (string, error) {
	return renderSystem(ctx, analysisSystemPrompt)
}

// RenderRebalanceSystem renders the portfolio re-balancing system prompt.
func RenderRebalanceSystem(ctx context.Context) (string, error) {
	return renderSystem(ctx, rebalanceSystemPrompt)
}
