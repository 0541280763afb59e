package ai

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Provider names a text-generation backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
	ProviderGemini Provider = "gemini"
	ProviderLocal  Provider = "local"
	// ProviderMock is the offline sentinel; it never touches the network.
	ProviderMock Provider = "mock"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 2000
	DefaultTimeout     = 30 * time.Second
)

var defaultEndpoints = map[Provider]string{
	ProviderOpenAI: "https://api.openai.com/v1/chat/completions",
	ProviderClaude: "https://api.anthropic.com/v1/messages",
	ProviderGemini: "https://generativelanguage.googleapis.com/v1beta/models/gemini-pro:generateContent",
	ProviderLocal:  "http://localhost:11434/api/generate",
}

var defaultModels = map[Provider]string{
	ProviderOpenAI: "gpt-3.5-turbo",
	ProviderClaude: "claude-3-sonnet-20240229",
	ProviderGemini: "gemini-pro",
	ProviderLocal:  "llama2",
}

// Providers lists every known provider in a stable order.
func Providers() []Provider {
	return []Provider{ProviderOpenAI, ProviderClaude, ProviderGemini, ProviderLocal, ProviderMock}
}

// Known reports whether p is one of the built-in providers.
func (p Provider) Known() bool {
	for _, known := range Providers() {
		if p == known {
			return true
		}
	}
	return false
}

// Params are the request parameters shared by every adapter.
type Params struct {
	Temperature float64       `validate:"gte=0,lte=1"`
	MaxTokens   int           `validate:"gt=0"`
	Timeout     time.Duration `validate:"gt=0"`
}

// Config selects the active provider and carries per-provider credentials,
// endpoints and models. It is treated as read-only once passed to New.
type Config struct {
	Provider    Provider            `validate:"required"`
	Credentials map[Provider]string
	Endpoints   map[Provider]string `validate:"dive,url"`
	Models      map[Provider]string `validate:"dive,required"`
	Params      Params
}

// DefaultConfig returns the offline configuration with every provider's
// default endpoint and model filled in.
func DefaultConfig() Config {
	return Config{
		Provider:    ProviderMock,
		Credentials: map[Provider]string{},
		Endpoints:   maps.Clone(defaultEndpoints),
		Models:      maps.Clone(defaultModels),
		Params: Params{
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
			Timeout:     DefaultTimeout,
		},
	}
}

var validate = validator.New()

// normalize copies the maps so the caller cannot mutate a live service, and
// fills missing endpoints, models and non-temperature params with defaults.
func (c Config) normalize() (Config, error) {
	out := Config{
		Provider:    Provider(strings.ToLower(strings.TrimSpace(string(c.Provider)))),
		Credentials: make(map[Provider]string, len(c.Credentials)),
		Endpoints:   maps.Clone(defaultEndpoints),
		Models:      maps.Clone(defaultModels),
		Params:      c.Params,
	}
	for p, key := range c.Credentials {
		out.Credentials[p] = strings.TrimSpace(key)
	}
	for p, endpoint := range c.Endpoints {
		if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
			out.Endpoints[p] = endpoint
		}
	}
	for p, model := range c.Models {
		if model = strings.TrimSpace(model); model != "" {
			out.Models[p] = model
		}
	}
	if out.Params.MaxTokens == 0 {
		out.Params.MaxTokens = DefaultMaxTokens
	}
	if out.Params.Timeout == 0 {
		out.Params.Timeout = DefaultTimeout
	}
	if err := validate.Struct(out); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return out, nil
}

// Validate reports the error New would return for c.
func (c Config) Validate() error {
	_, err := c.normalize()
	return err
}

func (c Config) endpoint(p Provider) string { return c.Endpoints[p] }

func (c Config) model(p Provider) string { return c.Models[p] }

// credential enforces the credential gate. It must run before any request is built.
func (c Config) credential(p Provider) (string, error) {
	key := strings.TrimSpace(c.Credentials[p])
	if key == "" {
		return "", &MissingCredentialError{Provider: p}
	}
	return key, nil
}
