package provider

import (
	"context"
	"net/http"

	"marketapi/internal/config"
)

// OpenAICompatible speaks the chat completions protocol shared by OpenAI and Perplexity.
type OpenAICompatible struct {
	name     string
	baseURL  string
	chatPath string
	model    string
	// modelsPath, when set, validates keys by listing models instead of completing.
	modelsPath string
	jsonMode   bool
	hc         *http.Client
}

// NewOpenAI builds the OpenAI client.
func NewOpenAI(cfg config.ProviderConfig, hc *http.Client) *OpenAICompatible {
	return &OpenAICompatible{
		name:       OpenAI,
		baseURL:    trimBase(cfg.BaseURL, "https://api.openai.com"),
		chatPath:   "/v1/chat/completions",
		modelsPath: "/v1/models",
		model:      orDefault(cfg.Model, "gpt-4o-mini"),
		jsonMode:   true,
		hc:         hc,
	}
}

// NewPerplexity builds the Perplexity client.
func NewPerplexity(cfg config.ProviderConfig, hc *http.Client) *OpenAICompatible {
	return &OpenAICompatible{
		name:     Perplexity,
		baseURL:  trimBase(cfg.BaseURL, "https://api.perplexity.ai"),
		chatPath: "/chat/completions",
		model:    orDefault(cfg.Model, "sonar"),
		hc:       hc,
	}
}

func (c *OpenAICompatible) Name() string  { return c.name }
func (c *OpenAICompatible) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAICompatible) Complete(ctx context.Context, apiKey string, p Prompt) (*Completion, error) {
	if apiKey == "" {
		return nil, ErrMissingKey
	}

	body := chatRequest{
		Model:       c.model,
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
	if p.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: p.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: p.User})
	if p.JSON && c.jsonMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var resp chatResponse
	err := do(ctx, c.hc, apiRequest{
		provider: c.name,
		method:   http.MethodPost,
		url:      c.baseURL + c.chatPath,
		headers:  map[string]string{"Authorization": "Bearer " + apiKey},
		body:     body,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, ErrEmptyResponse
	}
	return &Completion{Text: resp.Choices[0].Message.Content, Model: orDefault(resp.Model, c.model)}, nil
}

func (c *OpenAICompatible) Validate(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return ErrMissingKey
	}
	if c.modelsPath != "" {
		return do(ctx, c.hc, apiRequest{
			provider: c.name,
			method:   http.MethodGet,
			url:      c.baseURL + c.modelsPath,
			headers:  map[string]string{"Authorization": "Bearer " + apiKey},
		}, nil)
	}
	_, err := c.Complete(ctx, apiKey, Prompt{User: "ping", MaxTokens: 1})
	if err == ErrEmptyResponse {
		return nil
	}
	return err
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
