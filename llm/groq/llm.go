// Package groq talks to Groq, or any other OpenAI-compatible chat completions API.
package groq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"liftbot"
)

const DefaultBaseURL = "https://api.groq.com/openai/v1"

type chatCompletions interface {
	New(ctx context.Context, body openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

type LLMOptions struct {
	ModelID   string
	MaxTokens int32
	TopP      float32
}

type LLMClient struct {
	chat chatCompletions
	opts LLMOptions
}

// NewClient builds the OpenAI SDK client pointed at baseURL.
func NewClient(apiKey, baseURL string) openai.Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
}

func NewLLMClient(chat chatCompletions, opts LLMOptions) *LLMClient {
	if opts.ModelID == "" {
		opts.ModelID = "llama-3.3-70b-versatile"
	}
	return &LLMClient{chat: chat, opts: opts}
}

// Complete sends req as a single user message and returns the first choice.
func (c *LLMClient) Complete(ctx context.Context, req liftbot.CompletionRequest) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "operation", req.Operation, "model", c.opts.ModelID, "prompt_length", len(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Model: c.opts.ModelID,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if c.opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.opts.MaxTokens))
	}
	if c.opts.TopP > 0 {
		params.TopP = openai.Float(float64(c.opts.TopP))
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	content := resp.Choices[0].Message.Content
	slog.Info("LLM_CLIENT: Response received", "operation", req.Operation, "content_length", len(content), "finish_reason", resp.Choices[0].FinishReason)
	return content, nil
}
