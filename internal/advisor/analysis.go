package advisor

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/finadvisor-poc/server/internal/advisor/tools"
	"github.com/finadvisor-poc/server/internal/llm"
	"github.com/finadvisor-poc/server/internal/market"
)

// AnalysisHandler answers portfolio performance questions, pulling the
// user's holdings through the tool loop as the model requests them.
type AnalysisHandler struct {
	models  *llm.Models
	data    *market.DataClient
	insight *market.InsightClient
	cfg     Config
}

func NewAnalysisHandler(models *llm.Models, data *market.DataClient, insight *market.InsightClient, cfg Config) *AnalysisHandler {
	return &AnalysisHandler{models: models, data: data, insight: insight, cfg: cfg}
}

func (h *AnalysisHandler) Handle(ctx context.Context, conv Conversation) (string, error) {
	system, err := RenderAnalysisSystem(ctx)
	if err != nil {
		return "", err
	}

	msgs := append([]*schema.Message{schema.SystemMessage(system)}, conv.History(ctx, h.cfg.MaxTurns)...)
	msgs = append(msgs, schema.UserMessage(conv.Query))

	set := tools.NewSet(h.data, h.insight, conv.UserID)
	return runToolLoop(ctx, h.models.ToolResponder, h.models.ResponderName, "portfolio_analysis", msgs, set, h.cfg.MaxToolCalls)
}
