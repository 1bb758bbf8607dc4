// Package ai talks to an OpenAI-compatible chat completion endpoint.
package ai

import (
	"context"
	"math"

	"github.com/myrjola/sotopia-chat/internal/errors"
	"github.com/sashabaranov/go-openai"
)

// Client completes role-play prompts against a configurable inference
// endpoint, e.g. a vLLM server hosting a tuned model or the OpenAI API.
type Client struct {
	client *openai.Client
}

// NewClient creates a client for the given endpoint. An empty baseURL falls
// back to the OpenAI API.
func NewClient(baseURL, apiKey string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(config),
	}
}

// MaxTokens bounds the completion length.
const MaxTokens = 1024

// Complete sends the prompt as a single user message and returns the raw
// completion text. Sampling is pinned down for reproducibility: greedy
// temperature and full nucleus.
func (c *Client) Complete(ctx context.Context, model, promptText string) (string, error) {
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     model,
			MaxTokens: MaxTokens,
			// A zero temperature is dropped from the request as an unset
			// field, so send the smallest one that still serializes.
			Temperature: math.SmallestNonzeroFloat32,
			TopP:        1,
			Messages: []openai.ChatCompletionMessage{
				{ //nolint:exhaustruct // this is better for readability
					Role:    openai.ChatMessageRoleUser,
					Content: promptText,
				},
			},
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion")
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("chat completion has no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
