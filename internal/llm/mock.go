package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient provides deterministic local replies when no real provider is
// configured.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Complete(ctx context.Context, prompt Prompt) (Completion, error) {
	return c.StreamComplete(ctx, prompt, nil)
}

func (c *MockClient) StreamComplete(ctx context.Context, prompt Prompt, onDelta DeltaHandler) (Completion, error) {
	select {
	case <-ctx.Done():
		return Completion{}, ctx.Err()
	default:
	}

	text := buildMockReply(prompt)
	if onDelta != nil && text != "" {
		if err := onDelta(text); err != nil {
			return Completion{}, err
		}
	}
	return Completion{Text: text}, nil
}

func buildMockReply(prompt Prompt) string {
	base := strings.TrimSpace(prompt.Question)
	if base == "" {
		base = "No question received."
	}

	if len(prompt.History) == 0 {
		return fmt.Sprintf("Mock diagnosis for: %s", base)
	}

	last := strings.TrimSpace(prompt.History[len(prompt.History)-1].Question)
	if last == "" {
		return fmt.Sprintf("Mock diagnosis for: %s", base)
	}

	return fmt.Sprintf("Mock diagnosis for: %s (previous issue: %s)", base, last)
}
