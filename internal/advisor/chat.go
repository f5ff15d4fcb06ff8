package advisor

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/finadvisor-poc/server/internal/llm"
	logx "github.com/finadvisor-poc/server/pkg/logger"
)

const wrapUpNotice = "You have reached the data-lookup limit for this turn. Compose your final answer now from the information already gathered. Do not request further tool calls."

// toolExecutor runs one named tool call. tools.Set is the production
// implementation; tests substitute fakes.
type toolExecutor interface {
	Execute(ctx context.Context, name, argsJSON string) (string, error)
}

// runToolLoop drives a tool-calling conversation to a final text answer.
// Failed tool calls degrade to a "data unavailable" result folded back into
// the conversation, so one broken collaborator never aborts the turn. After
// maxCalls tool executions the model is told to wrap up; if it keeps asking
// for tools past that point the loop ends.
func runToolLoop(ctx context.Context, gen llm.Generator, modelName, component string, msgs []*schema.Message, exec toolExecutor, maxCalls int) (string, error) {
	if maxCalls <= 0 {
		maxCalls = 6
	}

	calls := 0
	for round := 0; round <= maxCalls+1; round++ {
		out, err := gen.Generate(ctx, msgs)
		if err != nil {
			return "", fmt.Errorf("%s model call failed: %w", component, err)
		}
		llm.LogUsage(component, modelName, out)

		if len(out.ToolCalls) == 0 {
			return out.Content, nil
		}
		if calls >= maxCalls {
			// model ignored the wrap-up notice; surface whatever text it gave
			if out.Content != "" {
				return out.Content, nil
			}
			return "", fmt.Errorf("%s exceeded the tool call limit without a final answer", component)
		}

		msgs = append(msgs, out)
		for _, tc := range out.ToolCalls {
			calls++
			result, err := exec.Execute(ctx, tc.Function.Name, tc.Function.Arguments)
			if err != nil {
				logx.Warn().Err(err).Str("component", component).Str("tool", tc.Function.Name).
					Msg("tool call failed, degrading to reduced context")
				result = "data unavailable"
			}
			msgs = append(msgs, schema.ToolMessage(result, tc.ID))
		}
		if calls >= maxCalls {
			msgs = append(msgs, schema.SystemMessage(wrapUpNotice))
		}
	}
	return "", fmt.Errorf("%s conversation loop did not terminate", component)
}
