package ai

import (
	"context"
	"net/http"
	"strings"
)

// OllamaAdapter calls a local Ollama /api/generate endpoint. It needs no
// credential and, like Gemini, has no separate system channel.
type OllamaAdapter struct {
	httpClient *http.Client
}

// NewOllamaAdapter builds the adapter; a nil client falls back to http.DefaultClient.
func NewOllamaAdapter(client *http.Client) *OllamaAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &OllamaAdapter{httpClient: client}
}

// Call implements Adapter using non-streaming /api/generate.
func (a *OllamaAdapter) Call(ctx context.Context, prompt, systemPrompt string, cfg Config) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:  cfg.model(ProviderLocal),
		Prompt: joinPrompts(systemPrompt, prompt),
		Stream: false,
		Options: ollamaOptions{
			Temperature: cfg.Params.Temperature,
			NumPredict:  cfg.Params.MaxTokens,
		},
	}

	var resp ollamaGenerateResponse
	err := doJSON(ctx, a.httpClient, request{
		provider:     ProviderLocal,
		url:          cfg.endpoint(ProviderLocal),
		timeout:      cfg.Params.Timeout,
		errorMessage: flatErrorMessage,
	}, reqBody, &resp)
	if err != nil {
		return "", err
	}
	if resp.Response == nil {
		return "", &DecodeError{Provider: ProviderLocal, Reason: "response field missing"}
	}
	if strings.TrimSpace(*resp.Response) == "" {
		return "", &DecodeError{Provider: ProviderLocal, Reason: "empty response"}
	}
	return *resp.Response, nil
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaGenerateResponse struct {
	Response *string `json:"response"`
	Done     bool    `json:"done"`
}
