package provider

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"marketapi/internal/config"
)

type registration struct {
	provider  Provider
	serverKey string
}

// Registry maps provider names to clients and their server-side fallback keys.
// It is populated at startup and read-only afterwards.
type Registry struct {
	entries map[string]registration
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]registration)}
}

// FromConfig registers every supported provider.
func FromConfig(cfg config.ProvidersConfig, hc *http.Client) *Registry {
	r := NewRegistry()
	r.Register(NewOpenAI(cfg.OpenAI, hc), cfg.OpenAI.APIKey)
	r.Register(NewAnthropic(cfg.Anthropic, hc), cfg.Anthropic.APIKey)
	r.Register(NewGemini(cfg.Gemini, hc), cfg.Gemini.APIKey)
	r.Register(NewPerplexity(cfg.Perplexity, hc), cfg.Perplexity.APIKey)
	return r
}

// Register adds p. serverKey may be empty.
func (r *Registry) Register(p Provider, serverKey string) {
	r.entries[p.Name()] = registration{provider: p, serverKey: serverKey}
}

// Get resolves a provider by case-insensitive name.
func (r *Registry) Get(name string) (Provider, error) {
	e, ok := r.entries[Normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return e.provider, nil
}

// ServerKey returns the server-configured key for name, or "".
func (r *Registry) ServerKey(name string) string {
	return r.entries[Normalize(name)].serverKey
}

// Names lists every registered provider in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for n := range r.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Configured lists providers that have a server key, in sorted order.
func (r *Registry) Configured() []string {
	var names []string
	for _, n := range r.Names() {
		if r.entries[n].serverKey != "" {
			names = append(names, n)
		}
	}
	return names
}

// Normalize canonicalizes a provider name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
