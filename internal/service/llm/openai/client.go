// Package openai implements llm.Client against an OpenAI-compatible chat
// completions endpoint such as Ollama's /v1, llama.cpp or LM Studio.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	DefaultBaseURL = "http://localhost:11434/v1"
	DefaultTimeout = 120 * time.Second
)

// Config holds OpenAI-compatible client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client sends each prompt as a single user message.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new client. Local servers ignore the API key, so an empty
// key is accepted.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	conf := openai.DefaultConfig(cfg.APIKey)
	conf.BaseURL = cfg.BaseURL
	conf.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		api:   openai.NewClientWithConfig(conf),
		model: cfg.Model,
	}
}

// Name returns the provider name.
func (c *Client) Name() string { return "openai" }

// Generate returns the first choice's content, or "" when the server
// returns no choices.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
