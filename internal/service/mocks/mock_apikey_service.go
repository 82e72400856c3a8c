package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"marketapi/internal/model"
	"marketapi/internal/service"
)

type MockAPIKeyService struct {
	mock.Mock
}

func (m *MockAPIKeyService) Save(ctx context.Context, userID, providerName, key string) (*model.APIKey, error) {
	args := m.Called(ctx, userID, providerName, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIKey), args.Error(1)
}

func (m *MockAPIKeyService) List(ctx context.Context, userID string) ([]model.APIKey, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.APIKey), args.Error(1)
}

func (m *MockAPIKeyService) Delete(ctx context.Context, userID, id string) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockAPIKeyService) Validate(ctx context.Context, userID, id string) (*model.APIKey, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.APIKey), args.Error(1)
}

func (m *MockAPIKeyService) Resolve(ctx context.Context, userID, providerName string) (string, error) {
	args := m.Called(ctx, userID, providerName)
	return args.String(0), args.Error(1)
}

func (m *MockAPIKeyService) Providers(ctx context.Context, userID string) ([]service.ProviderInfo, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.ProviderInfo), args.Error(1)
}
