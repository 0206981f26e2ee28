package junebench

import "context"

// Provider abstracts the external LLM inference endpoint named in the LLM
// Client contract. It is stateless: all conversation state lives with the
// caller (the Coding Agent). The client does not retry; transport failures
// surface as a single typed error (ErrLLMTransport or ErrHTTP).
type Provider interface {
	// Chat returns the aggregated result of a chat completion.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// ChatStream streams a chat completion into ch as a sequence of
	// StreamEvent deltas, then returns the final aggregated response. ch is
	// always closed before ChatStream returns, on both success and error.
	// The stream is finite, single-pass, and not restartable.
	ChatStream(ctx context.Context, req ChatRequest, ch chan<- StreamEvent) (ChatResponse, error)
	// Embed returns embedding vectors for texts. Peripheral: a Provider
	// that does not support embeddings returns an ErrLLM.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Name returns the provider name (e.g. "openai", "openrouter").
	Name() string
}
