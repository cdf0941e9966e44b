// README: Env-driven configuration for HTTP, upstream backend, AI providers, speech, session cache, DB, Redis and rate limits.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type HTTPConfig struct {
	Addr string `env:"PRESTIGE_HTTP_ADDR" envDefault:":8080"`
	// JWTSecret enables signature verification of bearer tokens when set.
	JWTSecret string `env:"PRESTIGE_JWT_SECRET"`
}

// DBConfig is optional; an empty DSN disables the completion quota.
type DBConfig struct {
	DSN           string `env:"PRESTIGE_DB_DSN"`
	MonthlyTokens int    `env:"PRESTIGE_AI_MONTHLY_TOKENS" envDefault:"100"`
}

// RedisConfig is optional; an empty address disables the shared snapshot store.
type RedisConfig struct {
	Addr     string `env:"PRESTIGE_REDIS_ADDR"`
	Password string `env:"PRESTIGE_REDIS_PASSWORD"`
	DB       int    `env:"PRESTIGE_REDIS_DB" envDefault:"0"`
}

type UpstreamConfig struct {
	BaseURL  string        `env:"API_BASE" envDefault:"http://localhost:3000"`
	Timeout  time.Duration `env:"PRESTIGE_UPSTREAM_TIMEOUT" envDefault:"10s"`
	PageSize int           `env:"PRESTIGE_UPSTREAM_PAGE_SIZE" envDefault:"100"`
	MaxPages int           `env:"PRESTIGE_UPSTREAM_MAX_PAGES" envDefault:"10"`
}

type AIConfig struct {
	Provider      string        `env:"PRESTIGE_AI_PROVIDER" envDefault:"gemini"`
	GeminiKey     string        `env:"GEMINI_API_KEY"`
	GeminiModel   string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	OpenAIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"OPENAI_BASE_URL"`
	OpenAIModel   string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	IncludeRole   bool          `env:"AI_INCLUDE_ROLE"`
	ContextLimit  int           `env:"AI_CTX_LIMIT" envDefault:"200"`
	Timeout       time.Duration `env:"PRESTIGE_AI_TIMEOUT" envDefault:"30s"`
	Timezone      string        `env:"PRESTIGE_TIMEZONE" envDefault:"Local"`
}

// Key returns the API key of the selected provider.
func (c AIConfig) Key() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIKey
	}
	return c.GeminiKey
}

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type SpeechConfig struct {
	APIKey  string        `env:"ELEVENLABS_API_KEY"`
	VoiceID string        `env:"ELEVENLABS_VOICE_ID" envDefault:"21m00Tcm4TlvDq8ikWAM"`
	ModelID string        `env:"ELEVENLABS_MODEL" envDefault:"eleven_multilingual_v2"`
	Timeout time.Duration `env:"PRESTIGE_TTS_TIMEOUT" envDefault:"20s"`
}

type SessionConfig struct {
	TTL            time.Duration `env:"PRESTIGE_SESSION_TTL" envDefault:"5m"`
	HistoryPairs   int           `env:"PRESTIGE_HISTORY_PAIRS" envDefault:"6"`
	MaxEntries     int           `env:"PRESTIGE_SESSION_MAX" envDefault:"10000"`
	Idle           time.Duration `env:"PRESTIGE_SESSION_IDLE" envDefault:"1h"`
	SweepSchedule  string        `env:"PRESTIGE_SESSION_SWEEP" envDefault:"@every 5m"`
	RefreshTimeout time.Duration `env:"PRESTIGE_REFRESH_TIMEOUT" envDefault:"30s"`
}

// RateLimitConfig applies per identity; PerMinute 0 disables limiting.
type RateLimitConfig struct {
	PerMinute int `env:"PRESTIGE_RATE_PER_MINUTE" envDefault:"30"`
	Burst     int `env:"PRESTIGE_RATE_BURST" envDefault:"10"`
}

type Config struct {
	HTTP      HTTPConfig
	DB        DBConfig
	Redis     RedisConfig
	Upstream  UpstreamConfig
	AI        AIConfig
	Speech    SpeechConfig
	Session   SessionConfig
	RateLimit RateLimitConfig

	// Location is resolved from AI.Timezone and used for date hints and reply times.
	Location *time.Location `env:"-"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	switch cfg.AI.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return Config{}, fmt.Errorf("unknown AI provider %q", cfg.AI.Provider)
	}

	loc, err := time.LoadLocation(cfg.AI.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("load timezone %q: %w", cfg.AI.Timezone, err)
	}
	cfg.Location = loc
	return cfg, nil
}
