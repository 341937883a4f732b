package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPClientSingleJSONResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"check parameter 2003","images":["acs150-panel.png"]}`))
	}))
	defer upstream.Close()

	c := NewHTTPClient(upstream.URL, 5*time.Second)
	got, err := c.Complete(context.Background(), Prompt{Question: "motor overheats"})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.Text != "check parameter 2003" {
		t.Fatalf("Complete() text = %q", got.Text)
	}
	if len(got.Images) != 1 || got.Images[0] != "acs150-panel.png" {
		t.Fatalf("Complete() images = %v", got.Images)
	}
}

func TestHTTPClientStreamingNDJSON(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte("{\"delta\":\"check \"}\n{\"delta\":\"the fan\"}\n"))
	}))
	defer upstream.Close()

	c := NewHTTPClient(upstream.URL, 5*time.Second)
	var deltas []string
	got, err := c.StreamComplete(context.Background(), Prompt{Question: "q"}, func(delta string) error {
		deltas = append(deltas, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("StreamComplete() error = %v", err)
	}
	if got.Text != "check the fan" {
		t.Fatalf("assembled text = %q, want %q", got.Text, "check the fan")
	}
	if len(deltas) != 2 {
		t.Fatalf("received %d deltas, want 2", len(deltas))
	}
}

func TestHTTPClientUpstreamErrorStatus(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	c := NewHTTPClient(upstream.URL, 5*time.Second)
	_, err := c.Complete(context.Background(), Prompt{Question: "q"})
	if err == nil {
		t.Fatalf("Complete() should fail on upstream 429")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("error should carry the upstream status: %v", err)
	}
}

func TestNewClientAutoSelection(t *testing.T) {
	cases := []struct {
		name     string
		cfg      Config
		provider string
	}{
		{"prefers openai", Config{Provider: "auto", OpenAIAPIKey: "sk-test", HTTPURL: "http://x"}, "openai"},
		{"falls back to http", Config{Provider: "auto", HTTPURL: "http://x"}, "http"},
		{"falls back to mock", Config{Provider: "auto"}, "mock"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, provider, err := NewClient(tc.cfg)
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}
			if provider != tc.provider {
				t.Fatalf("provider = %q, want %q", provider, tc.provider)
			}
		})
	}
}

func TestNewClientRejectsUnknownProvider(t *testing.T) {
	if _, _, err := NewClient(Config{Provider: "grpc"}); err == nil {
		t.Fatalf("NewClient() should reject unknown provider")
	}
}
