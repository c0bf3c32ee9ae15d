// Package llm provides the engine's contract with the external generative
// capability and an HTTP client for OpenAI-compatible chat endpoints.
//
// The engine owns prompt construction and response parsing; this package
// only moves text. Every failure here is non-fatal to callers: the
// augmentation adapter degrades to rule-only output.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Generator is the single opaque call the engine makes to the generative
// capability. A nil Generator means the capability is not configured.
type Generator interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// DefaultTimeout bounds one generation round trip. Generative calls are the
// only multi-second operations in the engine.
const DefaultTimeout = 60 * time.Second

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	endpoint   string // base URL, e.g. "http://localhost:11434"
	model      string
	apiKey     string // "" for unauthenticated local endpoints
	httpClient *http.Client
}

// NewClient creates a chat client. A zero timeout uses DefaultTimeout.
func NewClient(endpoint, model, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Send posts the prompt as a single user message and returns the first
// choice's content. Implements Generator.
func (c *Client) Send(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	url := c.endpoint + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat request failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response contained no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
