package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"marketapi/internal/model"
	"marketapi/internal/service"
)

type MockPreferenceService struct {
	mock.Mock
}

func (m *MockPreferenceService) Get(ctx context.Context, userID string) (*model.UserPreferences, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserPreferences), args.Error(1)
}

func (m *MockPreferenceService) Update(ctx context.Context, userID string, patch map[string]any) (*model.UserPreferences, error) {
	args := m.Called(ctx, userID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserPreferences), args.Error(1)
}

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) List(ctx context.Context, userID string, limit, offset int) (*service.ListResult[model.BillingRecord], error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.BillingRecord]), args.Error(1)
}

type MockSupportService struct {
	mock.Mock
}

func (m *MockSupportService) Create(ctx context.Context, userID string, in service.CreateTicketInput) (*model.SupportTicket, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SupportTicket), args.Error(1)
}

func (m *MockSupportService) List(ctx context.Context, userID string, limit, offset int) (*service.ListResult[model.SupportTicket], error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListResult[model.SupportTicket]), args.Error(1)
}

func (m *MockSupportService) UpdateStatus(ctx context.Context, id, status string) (*model.SupportTicket, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SupportTicket), args.Error(1)
}

type MockMetricService struct {
	mock.Mock
}

func (m *MockMetricService) Record(ctx context.Context, userID string, in service.RecordMetricInput) (*model.MetricEvent, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MetricEvent), args.Error(1)
}

func (m *MockMetricService) UsageSummary(ctx context.Context, window time.Duration) ([]model.ProviderUsage, error) {
	args := m.Called(ctx, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProviderUsage), args.Error(1)
}

type MockDashboardService struct {
	mock.Mock
}

func (m *MockDashboardService) Summary(ctx context.Context, userID string) (*service.DashboardSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DashboardSummary), args.Error(1)
}

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) Check(ctx context.Context) (*service.HealthReport, bool) {
	args := m.Called(ctx)
	return args.Get(0).(*service.HealthReport), args.Bool(1)
}
