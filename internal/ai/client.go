// Package ai wraps the OpenAI API behind narrow interfaces so the game logic can be
// tested with scripted fakes.
package ai

import (
	"context"
	"github.com/myrjola/whodunnit/internal/errors"
	"github.com/sashabaranov/go-openai"
)

// Completer produces one chat completion for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error)
}

// ImageCreator renders one image for a prompt and returns its URL.
type ImageCreator interface {
	CreateImage(ctx context.Context, prompt string) (string, error)
}

type Client struct {
	client *openai.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		client: openai.NewClient(apiKey),
	}
}

const MaxTokens = 4096

func (c *Client) Complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     openai.GPT4Turbo1106,
			MaxTokens: MaxTokens,
			Messages:  messages,
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion")
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("completion has no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

func (c *Client) CreateImage(ctx context.Context, prompt string) (string, error) {
	response, err := c.client.CreateImage(ctx, openai.ImageRequest{ //nolint:exhaustruct // readability
		Model:          openai.CreateImageModelDallE3,
		Prompt:         prompt,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatURL,
		N:              1,
	})
	if err != nil {
		return "", errors.Wrap(err, "create image")
	}
	if len(response.Data) == 0 {
		return "", errors.New("image response has no data")
	}
	return response.Data[0].URL, nil
}
