package ai

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type options struct {
	httpClient *http.Client
	mockDelay  time.Duration
	logger     *slog.Logger
	adapters   map[Provider]Adapter
}

// Option customizes a Service.
type Option func(*options)

// WithHTTPClient sets the client every HTTP adapter uses.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) { o.httpClient = client }
}

// WithMockDelay overrides the offline provider's artificial latency.
func WithMockDelay(delay time.Duration) Option {
	return func(o *options) { o.mockDelay = delay }
}

// WithLogger sets the logger used for per-call debug lines.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithAdapter registers (or replaces) the adapter for a provider name.
func WithAdapter(p Provider, adapter Adapter) Option {
	return func(o *options) {
		if o.adapters == nil {
			o.adapters = map[Provider]Adapter{}
		}
		o.adapters[p] = adapter
	}
}

// Service is the single entry point for text generation. It owns an
// immutable Config and dispatches to the adapter registered for
// Config.Provider. It is safe for concurrent use.
type Service struct {
	cfg      Config
	adapters map[Provider]Adapter
	logger   *slog.Logger
}

// New validates cfg and registers the built-in adapters.
func New(cfg Config, opts ...Option) (*Service, error) {
	o := options{mockDelay: DefaultMockDelay}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	normalized, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	client := o.httpClient
	if client == nil {
		client = &http.Client{}
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	adapters := map[Provider]Adapter{
		ProviderOpenAI: NewOpenAIAdapter(client),
		ProviderClaude: NewClaudeAdapter(client),
		ProviderGemini: NewGeminiAdapter(client),
		ProviderLocal:  NewOllamaAdapter(client),
		ProviderMock:   NewMockAdapter(o.mockDelay),
	}
	for p, adapter := range o.adapters {
		adapters[p] = adapter
	}

	return &Service{cfg: normalized, adapters: adapters, logger: logger}, nil
}

// Provider returns the configured provider name.
func (s *Service) Provider() Provider { return s.cfg.Provider }

// Model returns the model identifier configured for the active provider.
func (s *Service) Model() string { return s.cfg.model(s.cfg.Provider) }

// Generate produces text for prompt, optionally steered by systemPrompt.
// Errors from the adapter are returned unchanged.
func (s *Service) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}
	adapter, ok := s.adapters[s.cfg.Provider]
	if !ok {
		return "", &UnsupportedProviderError{Provider: s.cfg.Provider}
	}

	start := time.Now()
	text, err := adapter.Call(ctx, prompt, systemPrompt, s.cfg)
	attrs := []any{
		"provider", string(s.cfg.Provider),
		"model", s.Model(),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err == nil && strings.TrimSpace(text) == "" {
		err = &DecodeError{Provider: s.cfg.Provider, Reason: "adapter returned empty text"}
	}
	if err != nil {
		s.logger.DebugContext(ctx, "ai generate failed", append(attrs, "err", err)...)
		return "", err
	}
	s.logger.DebugContext(ctx, "ai generate", append(attrs, "chars", len(text))...)
	return text, nil
}
