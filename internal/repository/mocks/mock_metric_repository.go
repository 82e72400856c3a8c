package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"marketapi/internal/model"
)

type MockMetricRepository struct {
	mock.Mock
}

func (m *MockMetricRepository) CreateEvent(ctx context.Context, e *model.MetricEvent) (*model.MetricEvent, error) {
	args := m.Called(ctx, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MetricEvent), args.Error(1)
}

func (m *MockMetricRepository) RecordUsage(ctx context.Context, u *model.APIUsage) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockMetricRepository) UsageSummary(ctx context.Context, since time.Time) ([]model.ProviderUsage, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProviderUsage), args.Error(1)
}
