package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrEmptyResponse is returned when the API answers without any choice.
var ErrEmptyResponse = errors.New("empty response")

// Client generates completions through an OpenAI-compatible chat API. Every
// call is a single user message; no conversation context is kept.
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a generation client for model. baseURL may be empty to
// use the OpenAI default endpoint.
func NewClient(apiKey, baseURL, model string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("generation API key is required")
	}
	if model == "" {
		return nil, errors.New("generation model is required")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}, nil
}

// Model returns the model every request is sent to.
func (c *Client) Model() string {
	return c.model
}

// Generate sends prompt as-is and returns the completion text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
