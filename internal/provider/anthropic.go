package provider

import (
	"context"
	"net/http"

	"marketapi/internal/config"
)

const anthropicVersion = "2023-06-01"

// AnthropicClient calls the Messages API.
type AnthropicClient struct {
	baseURL string
	model   string
	hc      *http.Client
}

func NewAnthropic(cfg config.ProviderConfig, hc *http.Client) *AnthropicClient {
	return &AnthropicClient{
		baseURL: trimBase(cfg.BaseURL, "https://api.anthropic.com"),
		model:   orDefault(cfg.Model, "claude-3-5-haiku-latest"),
		hc:      hc,
	}
}

func (c *AnthropicClient) Name() string  { return Anthropic }
func (c *AnthropicClient) Model() string { return c.model }

type anthropicRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type anthropicResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *AnthropicClient) Complete(ctx context.Context, apiKey string, p Prompt) (*Completion, error) {
	if apiKey == "" {
		return nil, ErrMissingKey
	}
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	var resp anthropicResponse
	err := do(ctx, c.hc, apiRequest{
		provider: Anthropic,
		method:   http.MethodPost,
		url:      c.baseURL + "/v1/messages",
		headers: map[string]string{
			"x-api-key":         apiKey,
			"anthropic-version": anthropicVersion,
		},
		body: anthropicRequest{
			Model:       c.model,
			System:      p.System,
			Messages:    []chatMessage{{Role: "user", Content: p.User}},
			MaxTokens:   maxTokens,
			Temperature: p.Temperature,
		},
	}, &resp)
	if err != nil {
		return nil, err
	}
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return &Completion{Text: block.Text, Model: orDefault(resp.Model, c.model)}, nil
		}
	}
	return nil, ErrEmptyResponse
}

// Validate sends a one-token message; Anthropic has no cheaper authenticated endpoint.
func (c *AnthropicClient) Validate(ctx context.Context, apiKey string) error {
	_, err := c.Complete(ctx, apiKey, Prompt{User: "ping", MaxTokens: 1})
	if err == ErrEmptyResponse {
		return nil
	}
	return err
}
