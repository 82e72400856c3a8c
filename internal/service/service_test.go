package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketapi/internal/model"
	"marketapi/internal/provider"
	provMocks "marketapi/internal/provider/mocks"
	"marketapi/internal/secret"
)

type publishedEvent struct {
	key     string
	payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{key: key, payload: payload})
	return p.err
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.key)
	}
	return out
}

func newTestSealer(t *testing.T) *secret.Sealer {
	t.Helper()
	s, err := secret.NewSealer(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	return s
}

// catalogWith registers names as known providers; serverKeys maps names to server keys.
func catalogWith(names []string, serverKeys map[string]string) *provMocks.MockCatalog {
	c := new(provMocks.MockCatalog)
	var configured []string
	for _, n := range names {
		matches := mock.MatchedBy(func(s string) bool { return provider.Normalize(s) == n })
		c.On("Get", matches).Return(provMocks.StubProvider{ProviderName: n, ModelName: n + "-model"}, nil).Maybe()
		c.On("ServerKey", matches).Return(serverKeys[n]).Maybe()
		if serverKeys[n] != "" {
			configured = append(configured, n)
		}
	}
	c.On("Get", mock.Anything).Return(nil, provider.ErrUnknownProvider).Maybe()
	c.On("Names").Return(names).Maybe()
	c.On("Configured").Return(configured).Maybe()
	return c
}

// fakeKeys resolves keys from a map and lists the user's stored keys.
type fakeKeys struct {
	APIKeyService
	stored  []model.APIKey
	keys    map[string]string
	listErr error
}

func (f *fakeKeys) List(context.Context, string) ([]model.APIKey, error) {
	return f.stored, f.listErr
}

func (f *fakeKeys) Resolve(_ context.Context, _ string, name string) (string, error) {
	if k, ok := f.keys[name]; ok {
		return k, nil
	}
	return "", errors.Join(provider.ErrMissingKey, errors.New(name))
}

func (f *fakeKeys) Providers(context.Context, string) ([]ProviderInfo, error) {
	out := make([]ProviderInfo, 0, len(f.keys))
	for n := range f.keys {
		out = append(out, ProviderInfo{Name: n, UserKey: true})
	}
	return out, nil
}
