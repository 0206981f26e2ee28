package openaicompat

import (
	"encoding/json"

	"github.com/rl337/junebench"
)

// ParseResponse converts an OpenAI-format ChatResponse to a junebench
// ChatResponse. It extracts content, tool calls, finish reason, and usage
// from choices[0].
func ParseResponse(resp ChatResponse) (junebench.ChatResponse, error) {
	var out junebench.ChatResponse

	if len(resp.Choices) == 0 {
		return out, nil
	}

	choice := resp.Choices[0]
	if choice.Message != nil {
		out.Content = choice.Message.Content
		out.ToolCalls = ParseToolCalls(choice.Message.ToolCalls)
	}
	out.FinishReason = choice.FinishReason

	if resp.Usage != nil {
		out.Usage = junebench.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
	}

	return out, nil
}

// ParseToolCalls converts OpenAI tool call requests to junebench ToolCalls.
// OpenAI returns function.arguments as a JSON string; we parse it into
// json.RawMessage, falling back to an empty object on malformed arguments.
func ParseToolCalls(tcs []ToolCallRequest) []junebench.ToolCall {
	if len(tcs) == 0 {
		return nil
	}

	out := make([]junebench.ToolCall, 0, len(tcs))
	for _, tc := range tcs {
		args := json.RawMessage(tc.Function.Arguments)
		if !json.Valid(args) {
			args = json.RawMessage(`{}`)
		}
		out = append(out, junebench.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return out
}
