// Package ollama implements llm.Client against Ollama's /api/generate endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ai-offline-assistant/internal/service/llm"
)

const (
	DefaultURL     = "http://localhost:11434/api/generate"
	DefaultModel   = "llama3"
	DefaultTimeout = 120 * time.Second
)

// maxErrorBody caps how much of an error response is kept for the message.
const maxErrorBody = 512

// Config holds Ollama client configuration.
type Config struct {
	URL     string
	Model   string
	Timeout time.Duration
}

// Client is a non-streaming Ollama generate client.
type Client struct {
	url    string
	model  string
	client *http.Client
}

// New creates a new Ollama client.
func New(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		url:    cfg.URL,
		model:  cfg.Model,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Name returns the provider name.
func (c *Client) Name() string { return "ollama" }

// Generate sends prompt and returns the response field. A body without a
// response field yields an empty answer.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &llm.StatusError{
			Backend:    "Ollama",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return out.Response, nil
}
