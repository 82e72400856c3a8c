package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"marketapi/internal/provider"
)

// MockGateway mocks the provider gateway used by the services.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Analyze(ctx context.Context, req provider.Request) (*provider.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Result), args.Error(1)
}

func (m *MockGateway) Validate(ctx context.Context, providerName, apiKey string) error {
	args := m.Called(ctx, providerName, apiKey)
	return args.Error(0)
}

// MockCatalog mocks the provider registry.
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Get(name string) (provider.Provider, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(provider.Provider), args.Error(1)
}

func (m *MockCatalog) ServerKey(name string) string {
	return m.Called(name).String(0)
}

func (m *MockCatalog) Names() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

func (m *MockCatalog) Configured() []string {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]string)
}

// StubProvider is a Provider that only answers Name and Model. The services never
// call it directly; they go through the gateway.
type StubProvider struct {
	ProviderName string
	ModelName    string
}

func (p StubProvider) Name() string  { return p.ProviderName }
func (p StubProvider) Model() string { return p.ModelName }

func (p StubProvider) Complete(context.Context, string, provider.Prompt) (*provider.Completion, error) {
	return nil, provider.ErrEmptyResponse
}

func (p StubProvider) Validate(context.Context, string) error { return nil }
