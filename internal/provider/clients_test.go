package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"marketapi/internal/config"
)

func newServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var m map[string]any
	b, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

var testPrompt = Prompt{System: "sys", User: "usr", MaxTokens: 50, Temperature: 0.2, JSON: true}

func TestOpenAI_Complete(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body := decodeBody(t, r)
		assert.Equal(t, "gpt-test", body["model"])
		assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
		msgs := body["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"gpt-test-2024","choices":[{"message":{"role":"assistant","content":"{\"competitor_name\":\"Acme\"}"}}]}`))
	})

	c := NewOpenAI(config.ProviderConfig{BaseURL: srv.URL + "/", Model: "gpt-test"}, srv.Client())
	got, err := c.Complete(context.Background(), "sk-test", testPrompt)

	require.NoError(t, err)
	assert.Equal(t, `{"competitor_name":"Acme"}`, got.Text)
	assert.Equal(t, "gpt-test-2024", got.Model)
}

func TestOpenAI_ErrorMapping(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	c := NewOpenAI(config.ProviderConfig{BaseURL: srv.URL}, srv.Client())
	_, err := c.Complete(context.Background(), "bad", testPrompt)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, OpenAI, pe.Provider)
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Equal(t, "Incorrect API key provided", pe.Message)
	assert.True(t, pe.Unauthorized())
	assert.False(t, pe.Retryable())
}

func TestOpenAI_ValidateListsModels(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	c := NewOpenAI(config.ProviderConfig{BaseURL: srv.URL}, srv.Client())
	assert.NoError(t, c.Validate(context.Background(), "sk-test"))
	assert.ErrorIs(t, c.Validate(context.Background(), ""), ErrMissingKey)
}

func TestPerplexity_Complete(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body := decodeBody(t, r)
		assert.Nil(t, body["response_format"], "perplexity does not get json mode")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	})

	c := NewPerplexity(config.ProviderConfig{BaseURL: srv.URL}, srv.Client())
	got, err := c.Complete(context.Background(), "pplx", testPrompt)

	require.NoError(t, err)
	assert.Equal(t, "hello", got.Text)
	assert.Equal(t, "sonar", got.Model)
	assert.NoError(t, c.Validate(context.Background(), "pplx"))
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	c := NewOpenAI(config.ProviderConfig{BaseURL: srv.URL}, srv.Client())
	_, err := c.Complete(context.Background(), "k", testPrompt)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAnthropic_Complete(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		body := decodeBody(t, r)
		assert.Equal(t, "sys", body["system"])
		assert.EqualValues(t, 50, body["max_tokens"])

		_, _ = w.Write([]byte(`{"model":"claude-test","content":[{"type":"text","text":"report"}]}`))
	})

	c := NewAnthropic(config.ProviderConfig{BaseURL: srv.URL}, srv.Client())
	got, err := c.Complete(context.Background(), "ak-test", testPrompt)

	require.NoError(t, err)
	assert.Equal(t, "report", got.Text)
	assert.Equal(t, "claude-test", got.Model)
}

func TestAnthropic_Overloaded(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	})

	c := NewAnthropic(config.ProviderConfig{BaseURL: srv.URL}, srv.Client())
	_, err := c.Complete(context.Background(), "ak", testPrompt)

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Overloaded", pe.Message)
	assert.True(t, Retryable(err))
}

func TestGemini_Complete(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "gk-test", r.Header.Get("x-goog-api-key"))
		assert.Empty(t, r.URL.RawQuery)

		body := decodeBody(t, r)
		cfg := body["generationConfig"].(map[string]any)
		assert.Equal(t, "application/json", cfg["responseMimeType"])
		assert.NotNil(t, body["systemInstruction"])

		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"gemini says"}]}}]}`))
	})

	c := NewGemini(config.ProviderConfig{BaseURL: srv.URL, Model: "gemini-test"}, srv.Client())
	got, err := c.Complete(context.Background(), "gk-test", testPrompt)

	require.NoError(t, err)
	assert.Equal(t, "gemini says", got.Text)
	assert.Equal(t, "gemini-test", got.Model)
}

func TestGemini_TransportErrorDoesNotLeakKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewGemini(config.ProviderConfig{BaseURL: srv.URL}, &http.Client{Timeout: time.Second})
	err := c.Validate(context.Background(), "super-secret-key")

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "super-secret-key")
	assert.True(t, Retryable(err))
}

func TestGemini_KeyNotRecordedInSpans(t *testing.T) {
	const key = "AIzaSECRETUSERKEY"
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, key, r.Header.Get("x-goog-api-key"))
		if r.Method == http.MethodGet {
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	c := NewGemini(config.ProviderConfig{BaseURL: srv.URL}, NewHTTPClient(time.Second, otelhttp.WithTracerProvider(tp)))
	_, err := c.Complete(context.Background(), key, testPrompt)
	require.NoError(t, err)
	require.NoError(t, c.Validate(context.Background(), key))

	spans := rec.Ended()
	require.Len(t, spans, 2)
	for _, span := range spans {
		assert.NotContains(t, span.Name(), key)
		for _, attr := range span.Attributes() {
			assert.NotContains(t, attr.Value.Emit(), key, "attribute %s", attr.Key)
		}
	}
}

func TestRetryableAndBreakerClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		success   bool
	}{
		{"nil", nil, false, true},
		{"400", &Error{StatusCode: 400}, false, true},
		{"401", &Error{StatusCode: 401}, false, true},
		{"408", &Error{StatusCode: 408}, true, false},
		{"429", &Error{StatusCode: 429}, true, false},
		{"500", &Error{StatusCode: 500}, true, false},
		{"503", &Error{StatusCode: 503}, true, false},
		{"network", errors.New("connection reset"), true, false},
		{"cancelled", context.Canceled, false, true},
		{"deadline", context.DeadlineExceeded, false, false},
		{"missing key", ErrMissingKey, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, Retryable(tt.err))
			assert.Equal(t, tt.success, CountsAsBreakerSuccess(tt.err))
		})
	}
}

func TestRegistry(t *testing.T) {
	r := FromConfig(config.ProvidersConfig{
		OpenAI: config.ProviderConfig{APIKey: "sk-server"},
		Gemini: config.ProviderConfig{APIKey: "gk-server"},
	}, http.DefaultClient)

	assert.Equal(t, []string{Anthropic, Gemini, OpenAI, Perplexity}, r.Names())
	assert.Equal(t, []string{Gemini, OpenAI}, r.Configured())
	assert.Equal(t, "sk-server", r.ServerKey(" OpenAI "))

	p, err := r.Get("ANTHROPIC")
	require.NoError(t, err)
	assert.Equal(t, Anthropic, p.Name())

	_, err = r.Get("mistral")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
