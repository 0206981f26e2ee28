package openaicompat

import (
	"encoding/json"

	"github.com/rl337/junebench"
)

// BuildBody converts junebench ChatMessages and a model name into an
// OpenAI-format ChatRequest. System messages are kept in the messages array
// as role:"system". Options configure generation parameters (temperature,
// top_p, etc.) on top of whatever GenerationParams the caller supplied.
func BuildBody(messages []junebench.ChatMessage, tools []junebench.ToolDefinition, model string, params junebench.GenerationParams, opts ...Option) ChatRequest {
	var msgs []Message

	for _, m := range messages {
		switch {
		case m.Role == "system":
			msgs = append(msgs, Message{
				Role:    "system",
				Content: m.Content,
			})

		case m.Role == "assistant" && len(m.ToolCalls) > 0:
			var tcs []ToolCallRequest
			for _, tc := range m.ToolCalls {
				tcs = append(tcs, ToolCallRequest{
					ID:   tc.ID,
					Type: "function",
					Function: FunctionCall{
						Name:      tc.Name,
						Arguments: string(tc.Args),
					},
				})
			}
			msg := Message{
				Role:      "assistant",
				ToolCalls: tcs,
			}
			if m.Content != "" {
				msg.Content = m.Content
			}
			msgs = append(msgs, msg)

		case m.Role == "tool":
			msgs = append(msgs, Message{
				Role:       "tool",
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})

		default:
			msgs = append(msgs, Message{
				Role:    m.Role,
				Content: m.Content,
			})
		}
	}

	req := ChatRequest{
		Model:    model,
		Messages: msgs,
	}

	if len(tools) > 0 {
		req.Tools = BuildToolDefs(tools)
	}

	applyGenerationParams(&req, params)

	for _, opt := range opts {
		opt(&req)
	}

	return req
}

// applyGenerationParams copies Temperature, TopP and MaxTokens onto the wire
// request. A nil field means "use the endpoint's own default" and is left
// unset. TopK and RepetitionPenalty are not sent: the wire ChatRequest has
// no fields for them.
func applyGenerationParams(req *ChatRequest, params junebench.GenerationParams) {
	if params.Temperature != nil {
		req.Temperature = params.Temperature
	}
	if params.TopP != nil {
		req.TopP = params.TopP
	}
	if params.MaxTokens != nil {
		req.MaxTokens = *params.MaxTokens
	}
}

// BuildToolDefs converts junebench ToolDefinitions to OpenAI tool format.
func BuildToolDefs(tools []junebench.ToolDefinition) []Tool {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		params := t.Parameters
		if len(params) == 0 {
			params = json.RawMessage(`{}`)
		}
		out = append(out, Tool{
			Type: "function",
			Function: Function{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  params,
			},
		})
	}
	return out
}
