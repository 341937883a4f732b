package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPClient forwards prompts to a generic completion HTTP endpoint. The
// endpoint may answer with a single JSON object or stream deltas as SSE or
// NDJSON lines.
type HTTPClient struct {
	url    string
	client *http.Client
}

func NewHTTPClient(url string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) Complete(ctx context.Context, prompt Prompt) (Completion, error) {
	return c.StreamComplete(ctx, prompt, nil)
}

func (c *HTTPClient) StreamComplete(ctx context.Context, prompt Prompt, onDelta DeltaHandler) (Completion, error) {
	payload, err := json.Marshal(prompt)
	if err != nil {
		return Completion{}, fmt.Errorf("marshal prompt: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return Completion{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return Completion{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Completion{}, fmt.Errorf("llm http status %d: %s", res.StatusCode, string(body))
	}

	ct := strings.ToLower(res.Header.Get("Content-Type"))
	if strings.Contains(ct, "text/event-stream") || strings.Contains(ct, "application/x-ndjson") {
		return c.consumeStreaming(res.Body, onDelta)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Completion{}, fmt.Errorf("read response: %w", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		text := strings.TrimSpace(string(body))
		if text == "" {
			return Completion{}, fmt.Errorf("llm http: empty response")
		}
		if onDelta != nil {
			if err := onDelta(text); err != nil {
				return Completion{}, err
			}
		}
		return Completion{Text: text}, nil
	}

	out := Completion{Text: extractText(obj), Images: extractImages(obj)}
	if out.Text != "" && onDelta != nil {
		if err := onDelta(out.Text); err != nil {
			return Completion{}, err
		}
	}
	return out, nil
}

func (c *HTTPClient) consumeStreaming(body io.Reader, onDelta DeltaHandler) (Completion, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out strings.Builder
	var images []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}

		delta := line
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err == nil {
			delta = strings.TrimSpace(extractText(obj))
			images = append(images, extractImages(obj)...)
		}

		if delta == "" {
			continue
		}
		out.WriteString(delta)
		if onDelta != nil {
			if err := onDelta(delta); err != nil {
				return Completion{}, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Completion{}, fmt.Errorf("stream read: %w", err)
	}

	return Completion{Text: out.String(), Images: images}, nil
}

func extractText(obj map[string]any) string {
	for _, k := range []string{"text", "delta", "answer", "output", "message"} {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func extractImages(obj map[string]any) []string {
	v, ok := obj["images"]
	if !ok {
		return nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range arr {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
