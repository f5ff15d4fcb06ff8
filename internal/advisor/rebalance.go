package advisor

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"github.com/finadvisor-poc/server/internal/advisor/tools"
	"github.com/finadvisor-poc/server/internal/llm"
	"github.com/finadvisor-poc/server/internal/market"
)

// RebalanceHandler suggests allocation changes in a fixed response
// structure, grounded in the user's retrieved holdings.
type RebalanceHandler struct {
	models  *llm.Models
	data    *market.DataClient
	insight *market.InsightClient
	cfg     Config
}

func NewRebalanceHandler(models *llm.Models, data *market.DataClient, insight *market.InsightClient, cfg Config) *RebalanceHandler {
	return &RebalanceHandler{models: models, data: data, insight: insight, cfg: cfg}
}

func (h *RebalanceHandler) Handle(ctx context.Context, conv Conversation) (string, error) {
	system, err := RenderRebalanceSystem(ctx)
	if err != nil {
		return "", err
	}

	msgs := append([]*schema.Message{schema.SystemMessage(system)}, conv.History(ctx, h.cfg.MaxTurns)...)
	msgs = append(msgs, schema.UserMessage(conv.Query))

	set := tools.NewSet(h.data, h.insight, conv.UserID)
	return runToolLoop(ctx, h.models.ToolResponder, h.models.ResponderName, "rebalancing", msgs, set, h.cfg.MaxToolCalls)
}
