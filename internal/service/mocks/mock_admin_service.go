package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"marketapi/internal/model"
	"marketapi/internal/service"
)

// MockAdminService also satisfies service.RoleService.
type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) GetRole(ctx context.Context, userID string) (*model.UserRole, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserRole), args.Error(1)
}

func (m *MockAdminService) EffectiveRole(ctx context.Context, userID, claimRole string) (string, error) {
	args := m.Called(ctx, userID, claimRole)
	return args.String(0), args.Error(1)
}

func (m *MockAdminService) SetRole(ctx context.Context, actorID, userID, role string) (*model.UserRole, error) {
	args := m.Called(ctx, actorID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserRole), args.Error(1)
}

func (m *MockAdminService) ProviderHealth(ctx context.Context) ([]service.ProviderHealth, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.ProviderHealth), args.Error(1)
}

var (
	_ service.AdminService      = (*MockAdminService)(nil)
	_ service.AnalysisService   = (*MockAnalysisService)(nil)
	_ service.APIKeyService     = (*MockAPIKeyService)(nil)
	_ service.DocumentService   = (*MockDocumentService)(nil)
	_ service.PreferenceService = (*MockPreferenceService)(nil)
	_ service.BillingService    = (*MockBillingService)(nil)
	_ service.SupportService    = (*MockSupportService)(nil)
	_ service.MetricService     = (*MockMetricService)(nil)
	_ service.DashboardService  = (*MockDashboardService)(nil)
	_ service.HealthService     = (*MockHealthService)(nil)
)
