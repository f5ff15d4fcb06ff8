// Package tools exposes the account-data and market-research tools the
// responder models can call while composing an answer.
package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/finadvisor-poc/server/internal/market"
)

const (
	ToolIndianStocks   = "indian_stocks"
	ToolMutualFunds    = "mutual_funds"
	ToolMarketInsights = "general_market_insights"
)

var (
	indianStocksInfo = &schema.ToolInfo{
		Name: ToolIndianStocks,
		Desc: "Fetch the user's Indian stock portfolio: per-scrip holdings with quantity, invested value, current value and returns, folded across broker accounts. Use whenever the user asks about their stocks, equity performance, or individual scrips they hold.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	}

	mutualFundsInfo = &schema.ToolInfo{
		Name: ToolMutualFunds,
		Desc: "Fetch the user's mutual fund holdings keyed by fund name, including time-wise returns and benchmark comparisons. Use whenever the user asks about their mutual funds, SIPs, or fund performance.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
	}

	marketInsightsInfo = &schema.ToolInfo{
		Name: ToolMarketInsights,
		Desc: "Get current market insights, recent news and analyst outlook for named stocks, mutual funds or sectors from a web-grounded research provider. Use when the answer needs up-to-date market context beyond the user's own holdings.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"entities": {
				Type:     "string",
				Desc:     "Comma-separated names of the stocks, funds or sectors to research. Examples: INFY, HDFC Flexi Cap Fund, Indian IT sector.",
				Required: true,
			},
		}),
	}
)

// Infos returns the static tool descriptors for binding to a chat model at
// startup. Execution is per-request through a Set.
func Infos() []*schema.ToolInfo {
	return []*schema.ToolInfo{indianStocksInfo, mutualFundsInfo, marketInsightsInfo}
}

type emptyInput struct{}

type insightInput struct {
	Entities string `json:"entities"`
}

// Set is the per-request tool executor. Each instance closes over the user
// whose conversation is being served, so the model never passes identifiers.
type Set struct {
	tools map[string]tool.InvokableTool
}

func NewSet(data *market.DataClient, insight *market.InsightClient, userID string) *Set {
	stocks := utils.NewTool(indianStocksInfo, func(ctx context.Context, _ *emptyInput) (*market.StockPortfolio, error) {
		return data.StockPortfolio(ctx, userID)
	})
	funds := utils.NewTool(mutualFundsInfo, func(ctx context.Context, _ *emptyInput) (map[string]market.FundHolding, error) {
		return data.InvestedFunds(ctx, userID)
	})
	insights := utils.NewTool(marketInsightsInfo, func(ctx context.Context, in *insightInput) (string, error) {
		if in.Entities == "" {
			return "", fmt.Errorf("entities is required")
		}
		return insight.MarketInsights(ctx, in.Entities)
	})

	return &Set{tools: map[string]tool.InvokableTool{
		ToolIndianStocks:   stocks,
		ToolMutualFunds:    funds,
		ToolMarketInsights: insights,
	}}
}

// Execute runs one named tool call with the model-provided JSON arguments.
// Unknown tool names are an error so the conversation loop can degrade.
func (s *Set) Execute(ctx context.Context, name, argsJSON string) (string, error) {
	t, ok := s.tools[name]
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return t.InvokableRun(ctx, argsJSON)
}
