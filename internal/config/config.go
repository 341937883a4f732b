package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the operator assistant service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	LogLevel         string

	AllowAnyOrigin bool

	RateInterval   time.Duration
	ContextTurns   int
	MaxSessions    int
	SessionIdleTTL time.Duration
	GreetingTTL    time.Duration

	DatabaseURL string

	LLMProvider string
	LLMTimeout  time.Duration
	LLMHTTPURL  string

	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITemperature float64
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "omar"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		// The mobile client is served from changing plant networks; the
		// default mirrors the permissive CORS posture it expects.
		AllowAnyOrigin:    true,
		RateInterval:      2 * time.Second,
		ContextTurns:      10,
		MaxSessions:       10000,
		SessionIdleTTL:    8 * time.Hour,
		GreetingTTL:       30 * time.Minute,
		DatabaseURL:       stringsTrimSpace("DATABASE_URL"),
		LLMProvider:       envOrDefault("LLM_PROVIDER", "auto"),
		LLMTimeout:        30 * time.Second,
		LLMHTTPURL:        stringsTrimSpace("LLM_HTTP_URL"),
		OpenAIAPIKey:      stringsTrimSpace("OPENAI_API_KEY"),
		OpenAIModel:       envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIMaxTokens:   500,
		OpenAITemperature: 0.3,
		ShutdownTimeout:   15 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.RateInterval, err = durationFromEnv("SESSION_RATE_INTERVAL", cfg.RateInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextTurns, err = intFromEnv("SESSION_CONTEXT_TURNS", cfg.ContextTurns)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxSessions, err = intFromEnv("SESSION_MAX_SESSIONS", cfg.MaxSessions)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionIdleTTL, err = durationFromEnv("SESSION_IDLE_TTL", cfg.SessionIdleTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.GreetingTTL, err = durationFromEnv("SESSION_GREETING_TTL", cfg.GreetingTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.LLMTimeout, err = durationFromEnv("LLM_TIMEOUT", cfg.LLMTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAIMaxTokens, err = intFromEnv("OPENAI_MAX_TOKENS", cfg.OpenAIMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.OpenAITemperature, err = floatFromEnv("OPENAI_TEMPERATURE", cfg.OpenAITemperature)
	if err != nil {
		return Config{}, err
	}

	if cfg.RateInterval <= 0 {
		return Config{}, fmt.Errorf("SESSION_RATE_INTERVAL must be positive")
	}
	if cfg.ContextTurns <= 0 {
		return Config{}, fmt.Errorf("SESSION_CONTEXT_TURNS must be positive")
	}
	if cfg.MaxSessions <= 0 {
		return Config{}, fmt.Errorf("SESSION_MAX_SESSIONS must be positive")
	}
	if cfg.SessionIdleTTL < time.Minute {
		return Config{}, fmt.Errorf("SESSION_IDLE_TTL must be at least 1m")
	}
	if cfg.GreetingTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_GREETING_TTL must be positive")
	}
	if cfg.LLMTimeout <= 0 {
		return Config{}, fmt.Errorf("LLM_TIMEOUT must be positive")
	}
	if cfg.OpenAIMaxTokens <= 0 || cfg.OpenAIMaxTokens > 4000 {
		return Config{}, fmt.Errorf("OPENAI_MAX_TOKENS must be in 1..4000")
	}
	if cfg.OpenAITemperature < 0 || cfg.OpenAITemperature > 2 {
		return Config{}, fmt.Errorf("OPENAI_TEMPERATURE must be in 0..2")
	}
	switch cfg.LLMProvider {
	case "auto", "openai", "http", "mock":
	default:
		return Config{}, fmt.Errorf("LLM_PROVIDER must be one of auto, openai, http, mock")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
