package ai

import "context"

// Adapter translates one generation request into a provider's wire format,
// performs exactly one outbound call and decodes the generated text.
// All providers (OpenAI, Claude, Gemini, local Ollama, mock) implement it.
type Adapter interface {
	Call(ctx context.Context, prompt, systemPrompt string, cfg Config) (string, error)
}
