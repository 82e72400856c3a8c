package provider

import (
	"context"
	"net/http"
	"net/url"

	"marketapi/internal/config"
)

// GeminiClient calls the Generative Language API. The key travels in the x-goog-api-key header.
type GeminiClient struct {
	baseURL string
	model   string
	hc      *http.Client
}

func NewGemini(cfg config.ProviderConfig, hc *http.Client) *GeminiClient {
	return &GeminiClient{
		baseURL: trimBase(cfg.BaseURL, "https://generativelanguage.googleapis.com"),
		model:   orDefault(cfg.Model, "gemini-1.5-flash"),
		hc:      hc,
	}
}

func (c *GeminiClient) Name() string  { return Gemini }
func (c *GeminiClient) Model() string { return c.model }

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	ModelVersion string `json:"modelVersion"`
}

func (c *GeminiClient) endpoint(suffix string) string {
	return c.baseURL + "/v1beta/models/" + url.PathEscape(c.model) + suffix
}

func (c *GeminiClient) Complete(ctx context.Context, apiKey string, p Prompt) (*Completion, error) {
	if apiKey == "" {
		return nil, ErrMissingKey
	}

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: p.User}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     p.Temperature,
			MaxOutputTokens: p.MaxTokens,
		},
	}
	if p.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: p.System}}}
	}
	if p.JSON {
		body.GenerationConfig.ResponseMimeType = "application/json"
	}

	var resp geminiResponse
	if err := do(ctx, c.hc, apiRequest{
		provider: Gemini,
		method:   http.MethodPost,
		url:      c.endpoint(":generateContent"),
		headers:  map[string]string{"x-goog-api-key": apiKey},
		body:     body,
	}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 || resp.Candidates[0].Content.Parts[0].Text == "" {
		return nil, ErrEmptyResponse
	}
	return &Completion{
		Text:  resp.Candidates[0].Content.Parts[0].Text,
		Model: orDefault(resp.ModelVersion, c.model),
	}, nil
}

// Validate fetches the configured model's metadata with the key.
func (c *GeminiClient) Validate(ctx context.Context, apiKey string) error {
	if apiKey == "" {
		return ErrMissingKey
	}
	return do(ctx, c.hc, apiRequest{
		provider: Gemini,
		method:   http.MethodGet,
		url:      c.endpoint(""),
		headers:  map[string]string{"x-goog-api-key": apiKey},
	}, nil)
}
