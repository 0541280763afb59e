package ai

import (
	"context"
	"net/http"
	"strings"
)

const anthropicVersion = "2023-06-01"

// ClaudeAdapter calls the Anthropic Messages API. The system prompt goes in
// its own top-level field rather than the message list.
type ClaudeAdapter struct {
	httpClient *http.Client
}

// NewClaudeAdapter builds the adapter; a nil client falls back to http.DefaultClient.
func NewClaudeAdapter(client *http.Client) *ClaudeAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &ClaudeAdapter{httpClient: client}
}

// Call implements Adapter using /v1/messages.
func (a *ClaudeAdapter) Call(ctx context.Context, prompt, systemPrompt string, cfg Config) (string, error) {
	apiKey, err := cfg.credential(ProviderClaude)
	if err != nil {
		return "", err
	}

	reqBody := claudeRequest{
		Model:       cfg.model(ProviderClaude),
		MaxTokens:   cfg.Params.MaxTokens,
		Temperature: cfg.Params.Temperature,
		Messages:    []claudeMessage{{Role: "user", Content: prompt}},
	}
	if strings.TrimSpace(systemPrompt) != "" {
		reqBody.System = systemPrompt
	}

	var resp claudeResponse
	err = doJSON(ctx, a.httpClient, request{
		provider: ProviderClaude,
		url:      cfg.endpoint(ProviderClaude),
		headers: map[string]string{
			"x-api-key":         apiKey,
			"anthropic-version": anthropicVersion,
		},
		timeout:      cfg.Params.Timeout,
		errorMessage: nestedErrorMessage,
	}, reqBody, &resp)
	if err != nil {
		return "", err
	}
	return decodeClaude(resp)
}

func decodeClaude(resp claudeResponse) (string, error) {
	if len(resp.Content) == 0 {
		return "", &DecodeError{Provider: ProviderClaude, Reason: "response has no content blocks"}
	}
	for _, block := range resp.Content {
		if block.Type != "" && block.Type != "text" {
			continue
		}
		if strings.TrimSpace(block.Text) != "" {
			return block.Text, nil
		}
	}
	return "", &DecodeError{Provider: ProviderClaude, Reason: "response has no text block"}
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}
