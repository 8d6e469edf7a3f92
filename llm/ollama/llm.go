package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"liftbot"
)

// options carries no omitempty on temperature; a zero must reach the server.
type options struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

type Client struct {
	endpoint   string
	model      string
	httpClient liftbot.HTTPClient
	options    options
}

type ClientOpts struct {
	BaseEndpoint string
	ModelID      string
	HTTPClient   liftbot.HTTPClient
}

func NewClient(opts ClientOpts) (*Client, error) {
	if opts.ModelID == "" {
		return nil, fmt.Errorf("model id is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Client{
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		endpoint:   opts.BaseEndpoint + "/api/chat",
		options: options{
			TopP:          0.9,
			RepeatPenalty: 1.05,
			NumCtx:        8192,
		},
	}, nil
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options"`
}

type wireResponse struct {
	Message wireMessage `json:"message"`
	Error   string      `json:"error,omitempty"`
}

// Complete sends the prompt as one user message and returns the reply content.
func (c *Client) Complete(ctx context.Context, creq liftbot.CompletionRequest) (string, error) {
	slog.Info("LLM_CLIENT: Invoked", "operation", creq.Operation, "model", c.model, "prompt_length", len(creq.Prompt))

	opts := c.options
	opts.Temperature = creq.Temperature

	reqBytes, err := json.Marshal(wireRequest{
		Model:    c.model,
		Messages: []wireMessage{{Role: "user", Content: creq.Prompt}},
		Stream:   false,
		Options:  opts,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama: %s: %s", resp.Status, string(body))
	}

	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	if wr.Error != "" {
		return "", fmt.Errorf("ollama: %s", wr.Error)
	}

	slog.Info("LLM_CLIENT: Response received", "operation", creq.Operation, "content_length", len(wr.Message.Content))
	return wr.Message.Content, nil
}
