package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"prdkit/pkg/ai"
	"prdkit/pkg/drafts"
)

// ConfigPath is read when Load is given an empty path. A missing default
// file is not an error.
const ConfigPath = "config.yaml"

// DotEnvPath is loaded before environment overrides are applied.
const DotEnvPath = ".env"

// AIConfig selects the generation provider and its parameters.
type AIConfig struct {
	Provider     string            `yaml:"provider" env:"PRDKIT_AI_PROVIDER"`
	OpenAIAPIKey string            `yaml:"openaiAPIKey" env:"OPENAI_API_KEY"`
	ClaudeAPIKey string            `yaml:"claudeAPIKey" env:"ANTHROPIC_API_KEY"`
	GeminiAPIKey string            `yaml:"geminiAPIKey" env:"GEMINI_API_KEY"`
	Endpoints    map[string]string `yaml:"endpoints" env:"PRDKIT_AI_ENDPOINTS"`
	Models       map[string]string `yaml:"models" env:"PRDKIT_AI_MODELS"`
	Temperature  float64           `yaml:"temperature" env:"PRDKIT_AI_TEMPERATURE" validate:"gte=0,lte=1"`
	MaxTokens    int               `yaml:"maxTokens" env:"PRDKIT_AI_MAX_TOKENS" validate:"gt=0"`
	Timeout      time.Duration     `yaml:"timeout" env:"PRDKIT_AI_TIMEOUT" validate:"gt=0"`
}

// DraftsConfig selects the draft storage backend.
type DraftsConfig struct {
	Backend string `yaml:"backend" env:"PRDKIT_DRAFTS_BACKEND" validate:"oneof=file redis minio postgres"`
	Dir     string `yaml:"dir" env:"PRDKIT_DRAFTS_DIR"`
}

// RedisConfig is shared by the redis draft backend and the rate limiter.
type RedisConfig struct {
	Addr      string `yaml:"addr" env:"REDIS_ADDR"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD"`
	DraftsKey string `yaml:"draftsKey" env:"PRDKIT_REDIS_DRAFTS_KEY"`
}

// MinioConfig configures the object storage draft backend.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
	AccessKey string `yaml:"accessKey" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secretKey" env:"MINIO_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET"`
	Prefix    string `yaml:"prefix" env:"MINIO_PREFIX"`
	UseSSL    bool   `yaml:"useSSL" env:"MINIO_USE_SSL"`
}

// APITokenConfig enables bearer token checks on /generate when Secret is set.
type APITokenConfig struct {
	Secret string        `yaml:"secret" env:"PRDKIT_API_TOKEN_SECRET" validate:"omitempty,min=32"`
	Issuer string        `yaml:"issuer" env:"PRDKIT_API_TOKEN_ISSUER"`
	TTL    time.Duration `yaml:"ttl" env:"PRDKIT_API_TOKEN_TTL" validate:"gte=0"`
}

// RateLimitConfig enables a per-client fixed window on /generate when
// Requests is positive. It requires redis.addr.
type RateLimitConfig struct {
	Requests int           `yaml:"requests" env:"PRDKIT_RATE_LIMIT_REQUESTS" validate:"gte=0"`
	Window   time.Duration `yaml:"window" env:"PRDKIT_RATE_LIMIT_WINDOW" validate:"gte=0"`
}

// FileConfig represents configuration loaded from YAML, .env and environment.
type FileConfig struct {
	Port              string          `yaml:"port" env:"PRDKIT_PORT" validate:"required"`
	LogLevel          string          `yaml:"logLevel" env:"PRDKIT_LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	TrustedProxyCIDRs []string        `yaml:"trustedProxyCIDRs" env:"PRDKIT_TRUSTED_PROXY_CIDRS" validate:"dive,cidr"`
	DatabaseURL       string          `yaml:"databaseURL" env:"DATABASE_URL"`
	AI                AIConfig        `yaml:"ai"`
	Drafts            DraftsConfig    `yaml:"drafts"`
	Redis             RedisConfig     `yaml:"redis"`
	Minio             MinioConfig     `yaml:"minio"`
	APIToken          APITokenConfig  `yaml:"apiToken"`
	RateLimit         RateLimitConfig `yaml:"rateLimit"`
}

// Default returns the offline configuration: mock provider, drafts in ./json.
func Default() FileConfig {
	def := ai.DefaultConfig()
	return FileConfig{
		Port:     "3001",
		LogLevel: "info",
		AI: AIConfig{
			Provider:    string(def.Provider),
			Temperature: def.Params.Temperature,
			MaxTokens:   def.Params.MaxTokens,
			Timeout:     def.Params.Timeout,
		},
		Drafts: DraftsConfig{Backend: drafts.KindFile, Dir: "json"},
		Redis:  RedisConfig{DraftsKey: "prdkit:drafts"},
		Minio:  MinioConfig{Bucket: "prdkit-drafts"},
		APIToken: APITokenConfig{
			Issuer: "prdkit",
			TTL:    24 * time.Hour,
		},
		RateLimit: RateLimitConfig{Window: time.Minute},
	}
}

var validate = validator.New()

// Load reads config from path (defaults to config.yaml), then applies .env
// and environment overrides, then validates the result.
func Load(path string) (FileConfig, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := loadDotEnv(DotEnvPath); err != nil {
		return cfg, err
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadDotEnv sets variables from a .env file without overriding ones already
// present in the process environment.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func validateConfig(cfg FileConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch cfg.Drafts.Backend {
	case drafts.KindFile:
		if strings.TrimSpace(cfg.Drafts.Dir) == "" {
			return errors.New("config: drafts.dir is required for the file backend")
		}
	case drafts.KindRedis:
		if cfg.Redis.Addr == "" {
			return errors.New("config: redis.addr is required for the redis backend (set in config.yaml or REDIS_ADDR)")
		}
	case drafts.KindMinio:
		if cfg.Minio.Endpoint == "" || cfg.Minio.AccessKey == "" || cfg.Minio.SecretKey == "" || cfg.Minio.Bucket == "" {
			return errors.New("config: minio endpoint, accessKey, secretKey and bucket are required for the minio backend")
		}
	case drafts.KindPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("config: databaseURL is required for the postgres backend (set in config.yaml or DATABASE_URL)")
		}
	}
	if cfg.RateLimit.Requests > 0 {
		if cfg.Redis.Addr == "" {
			return errors.New("config: redis.addr is required when rateLimit.requests is set")
		}
		if cfg.RateLimit.Window <= 0 {
			return errors.New("config: rateLimit.window must be positive")
		}
	}
	if p := ai.Provider(strings.ToLower(strings.TrimSpace(cfg.AI.Provider))); !p.Known() {
		return fmt.Errorf("config: unknown ai.provider %q (want one of %v)", cfg.AI.Provider, ai.Providers())
	}
	if err := cfg.AIConfig().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// AIConfig converts the ai section into the generation service config.
func (c FileConfig) AIConfig() ai.Config {
	out := ai.Config{
		Provider: ai.Provider(c.AI.Provider),
		Credentials: map[ai.Provider]string{
			ai.ProviderOpenAI: c.AI.OpenAIAPIKey,
			ai.ProviderClaude: c.AI.ClaudeAPIKey,
			ai.ProviderGemini: c.AI.GeminiAPIKey,
		},
		Endpoints: make(map[ai.Provider]string, len(c.AI.Endpoints)),
		Models:    make(map[ai.Provider]string, len(c.AI.Models)),
		Params: ai.Params{
			Temperature: c.AI.Temperature,
			MaxTokens:   c.AI.MaxTokens,
			Timeout:     c.AI.Timeout,
		},
	}
	for p, v := range c.AI.Endpoints {
		out.Endpoints[ai.Provider(strings.ToLower(p))] = v
	}
	for p, v := range c.AI.Models {
		out.Models[ai.Provider(strings.ToLower(p))] = v
	}
	return out
}

// DraftsOptions converts the storage sections into drafts.Open options.
func (c FileConfig) DraftsOptions() drafts.Options {
	return drafts.Options{
		Kind:          c.Drafts.Backend,
		Dir:           c.Drafts.Dir,
		RedisAddr:     c.Redis.Addr,
		RedisPassword: c.Redis.Password,
		RedisKey:      c.Redis.DraftsKey,
		Minio: drafts.MinioOptions{
			Endpoint:  c.Minio.Endpoint,
			AccessKey: c.Minio.AccessKey,
			SecretKey: c.Minio.SecretKey,
			Bucket:    c.Minio.Bucket,
			Prefix:    c.Minio.Prefix,
			UseSSL:    c.Minio.UseSSL,
		},
		DatabaseURL: c.DatabaseURL,
	}
}
