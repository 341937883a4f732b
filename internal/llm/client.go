package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Exchange is one prior question/answer pair included as prompt context.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Prompt is the normalized context sent upstream: persona instructions, the
// bounded history window, and the new question.
type Prompt struct {
	System   string     `json:"system,omitempty"`
	History  []Exchange `json:"history,omitempty"`
	Question string     `json:"question"`
}

// Completion is the upstream answer plus any returned image references.
type Completion struct {
	Text   string   `json:"text"`
	Images []string `json:"images,omitempty"`
}

// DeltaHandler receives streaming text fragments.
type DeltaHandler func(delta string) error

// Client is the language-model collaborator. Calls are bounded by the
// configured timeout; any failure is reported to the caller, never retried
// here.
type Client interface {
	Complete(ctx context.Context, prompt Prompt) (Completion, error)
}

// Streamer is implemented by clients that can deliver the answer
// incrementally. The final Completion carries the full assembled text.
type Streamer interface {
	StreamComplete(ctx context.Context, prompt Prompt, onDelta DeltaHandler) (Completion, error)
}

// Config controls client construction.
type Config struct {
	Provider          string
	Timeout           time.Duration
	HTTPURL           string
	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITemperature float64
}

// NewClient builds the configured provider. In auto mode OpenAI is preferred
// when a key is present, then the generic HTTP endpoint, then the mock.
func NewClient(cfg Config) (Client, string, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = "auto"
	}

	switch provider {
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, "", fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		return NewOpenAIClient(cfg), "openai", nil
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, "", fmt.Errorf("LLM_HTTP_URL is required for the http provider")
		}
		return NewHTTPClient(cfg.HTTPURL, cfg.Timeout), "http", nil
	case "mock":
		return NewMockClient(), "mock", nil
	case "auto":
		if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
			return NewOpenAIClient(cfg), "openai", nil
		}
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPClient(cfg.HTTPURL, cfg.Timeout), "http", nil
		}
		return NewMockClient(), "mock", nil
	default:
		return nil, "", fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}
