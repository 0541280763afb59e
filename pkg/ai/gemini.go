package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// GeminiAdapter calls the Google AI Studio generateContent API. The API key
// travels as the "key" query parameter, and the system prompt is folded into
// the single user part.
type GeminiAdapter struct {
	httpClient *http.Client
}

// NewGeminiAdapter builds the adapter; a nil client falls back to http.DefaultClient.
func NewGeminiAdapter(client *http.Client) *GeminiAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &GeminiAdapter{httpClient: client}
}

// Call implements Adapter using :generateContent.
func (a *GeminiAdapter) Call(ctx context.Context, prompt, systemPrompt string, cfg Config) (string, error) {
	apiKey, err := cfg.credential(ProviderGemini)
	if err != nil {
		return "", err
	}
	endpoint, err := geminiURL(cfg.endpoint(ProviderGemini), cfg.model(ProviderGemini), apiKey)
	if err != nil {
		return "", err
	}

	reqBody := generateRequest{
		Contents: []content{
			{Parts: []part{{Text: joinPrompts(systemPrompt, prompt)}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     cfg.Params.Temperature,
			MaxOutputTokens: cfg.Params.MaxTokens,
		},
	}

	var resp generateResponse
	err = doJSON(ctx, a.httpClient, request{
		provider:     ProviderGemini,
		url:          endpoint,
		timeout:      cfg.Params.Timeout,
		errorMessage: nestedErrorMessage,
	}, reqBody, &resp)
	if err != nil {
		return "", err
	}
	return decodeGemini(resp)
}

// geminiURL substitutes an optional {model} placeholder and appends the key.
func geminiURL(endpoint, model, apiKey string) (string, error) {
	endpoint = strings.ReplaceAll(endpoint, "{model}", normalizeModel(model))
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("gemini endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	model = strings.TrimPrefix(model, "models/")
	return model
}

func decodeGemini(resp generateResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", &DecodeError{Provider: ProviderGemini, Reason: "response has no candidates"}
	}
	parts := resp.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", &DecodeError{Provider: ProviderGemini, Reason: "first candidate has no parts"}
	}
	if strings.TrimSpace(parts[0].Text) == "" {
		return "", &DecodeError{Provider: ProviderGemini, Reason: "first part has no text"}
	}
	return parts[0].Text, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}
