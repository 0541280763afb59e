package ai

import (
	"context"
	"net/http"
	"strings"
)

// OpenAIAdapter calls an OpenAI-style /v1/chat/completions endpoint.
type OpenAIAdapter struct {
	httpClient *http.Client
}

// NewOpenAIAdapter builds the adapter; a nil client falls back to http.DefaultClient.
func NewOpenAIAdapter(client *http.Client) *OpenAIAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenAIAdapter{httpClient: client}
}

// Call implements Adapter using the chat completions API.
func (a *OpenAIAdapter) Call(ctx context.Context, prompt, systemPrompt string, cfg Config) (string, error) {
	apiKey, err := cfg.credential(ProviderOpenAI)
	if err != nil {
		return "", err
	}

	messages := make([]oaiMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, oaiMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, oaiMessage{Role: "user", Content: prompt})

	reqBody := oaiChatRequest{
		Model:       cfg.model(ProviderOpenAI),
		Messages:    messages,
		Temperature: cfg.Params.Temperature,
		MaxTokens:   cfg.Params.MaxTokens,
	}

	var resp oaiChatResponse
	err = doJSON(ctx, a.httpClient, request{
		provider:     ProviderOpenAI,
		url:          cfg.endpoint(ProviderOpenAI),
		headers:      map[string]string{"Authorization": "Bearer " + apiKey},
		timeout:      cfg.Params.Timeout,
		errorMessage: nestedErrorMessage,
	}, reqBody, &resp)
	if err != nil {
		return "", err
	}
	return decodeOpenAI(resp)
}

func decodeOpenAI(resp oaiChatResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", &DecodeError{Provider: ProviderOpenAI, Reason: "response has no choices"}
	}
	msg := resp.Choices[0].Message
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", &DecodeError{Provider: ProviderOpenAI, Reason: "first choice has no message content"}
	}
	return msg.Content, nil
}

// OpenAI chat completions request/response types.

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiChatRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message *oaiMessage `json:"message"`
	} `json:"choices"`
}
