package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketapi/internal/model"
	"marketapi/internal/provider"
	provMocks "marketapi/internal/provider/mocks"
	repoMocks "marketapi/internal/repository/mocks"
)

func newAPIKeyService(t *testing.T, serverKeys map[string]string) (*apiKeyService, *repoMocks.MockAPIKeyRepository, *provMocks.MockGateway) {
	t.Helper()
	repo := new(repoMocks.MockAPIKeyRepository)
	gw := new(provMocks.MockGateway)
	catalog := catalogWith([]string{provider.Anthropic, provider.OpenAI}, serverKeys)
	svc := NewAPIKeyService(repo, newTestSealer(t), catalog, gw, zap.NewNop()).(*apiKeyService)
	return svc, repo, gw
}

func TestAPIKeyService_Save(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newAPIKeyService(t, nil)

	var saved *model.APIKey
	repo.On("Upsert", ctx, mock.AnythingOfType("*model.APIKey")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*model.APIKey) }).
		Return(&model.APIKey{ID: "k-1", Provider: provider.OpenAI, MaskedKey: "sk-...cdef"}, nil)

	out, err := svc.Save(ctx, testUser, "openai", "  sk-live-1234567890abcdef ")

	require.NoError(t, err)
	assert.Equal(t, "k-1", out.ID)
	require.NotNil(t, saved)
	assert.Equal(t, testUser, saved.UserID)
	assert.Equal(t, provider.OpenAI, saved.Provider)
	assert.Equal(t, "sk-...cdef", saved.MaskedKey)
	assert.Equal(t, model.APIKeyUnverified, saved.Status)
	assert.NotContains(t, saved.SealedKey, "sk-live")

	plain, err := svc.sealer.Open(saved.SealedKey, testUser+"/openai")
	require.NoError(t, err)
	assert.Equal(t, "sk-live-1234567890abcdef", plain)
}

func TestAPIKeyService_Save_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		key      string
	}{
		{name: "unknown provider", provider: "mistral", key: "sk-123456789"},
		{name: "blank key", provider: "openai", key: "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newAPIKeyService(t, nil)

			_, err := svc.Save(context.Background(), testUser, tt.provider, tt.key)

			assert.ErrorIs(t, err, ErrInvalidInput)
			repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
		})
	}
}

func sealedKey(t *testing.T, svc *apiKeyService, providerName, plain string) *model.APIKey {
	t.Helper()
	sealed, err := svc.sealer.Seal(plain, testUser+"/"+providerName)
	require.NoError(t, err)
	return &model.APIKey{ID: "k-1", UserID: testUser, Provider: providerName, SealedKey: sealed, Status: model.APIKeyUnverified}
}

func TestAPIKeyService_Validate(t *testing.T) {
	tests := []struct {
		name       string
		gatewayErr error
		wantStatus model.APIKeyStatus
		wantErr    bool
	}{
		{name: "accepted", wantStatus: model.APIKeyValid},
		{name: "rejected", gatewayErr: &provider.Error{Provider: "openai", StatusCode: 401, Message: "bad key"}, wantStatus: model.APIKeyInvalid},
		{name: "forbidden", gatewayErr: &provider.Error{Provider: "openai", StatusCode: 403, Message: "no access"}, wantStatus: model.APIKeyInvalid},
		{name: "provider down", gatewayErr: &provider.Error{Provider: "openai", StatusCode: 503, Message: "overloaded"}, wantErr: true},
		{name: "network", gatewayErr: errors.New("dial tcp: refused"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, repo, gw := newAPIKeyService(t, nil)

			repo.On("FindByID", ctx, testUser, "k-1").Return(sealedKey(t, svc, provider.OpenAI, "sk-secret-key-1"), nil)
			gw.On("Validate", ctx, provider.OpenAI, "sk-secret-key-1").Return(tt.gatewayErr)
			if !tt.wantErr {
				repo.On("UpdateStatus", ctx, testUser, "k-1", tt.wantStatus).Return(nil)
			}

			k, err := svc.Validate(ctx, testUser, "k-1")

			if tt.wantErr {
				assert.Error(t, err)
				repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, k.Status)
			assert.NotNil(t, k.LastValidatedAt)
			repo.AssertExpectations(t)
		})
	}
}

func TestAPIKeyService_Validate_NotFound(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newAPIKeyService(t, nil)
	repo.On("FindByID", ctx, testUser, "missing").Return(nil, sql.ErrNoRows)

	_, err := svc.Validate(ctx, testUser, "missing")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAPIKeyService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("user key wins", func(t *testing.T) {
		svc, repo, _ := newAPIKeyService(t, map[string]string{provider.OpenAI: "server-key"})
		repo.On("FindByProvider", ctx, testUser, provider.OpenAI).Return(sealedKey(t, svc, provider.OpenAI, "user-key"), nil)

		key, err := svc.Resolve(ctx, testUser, "OpenAI")

		require.NoError(t, err)
		assert.Equal(t, "user-key", key)
	})

	t.Run("server key fallback", func(t *testing.T) {
		svc, repo, _ := newAPIKeyService(t, map[string]string{provider.OpenAI: "server-key"})
		repo.On("FindByProvider", ctx, testUser, provider.OpenAI).Return(nil, sql.ErrNoRows)

		key, err := svc.Resolve(ctx, testUser, provider.OpenAI)

		require.NoError(t, err)
		assert.Equal(t, "server-key", key)
	})

	t.Run("invalid user key falls back", func(t *testing.T) {
		svc, repo, _ := newAPIKeyService(t, map[string]string{provider.OpenAI: "server-key"})
		k := sealedKey(t, svc, provider.OpenAI, "user-key")
		k.Status = model.APIKeyInvalid
		repo.On("FindByProvider", ctx, testUser, provider.OpenAI).Return(k, nil)

		key, err := svc.Resolve(ctx, testUser, provider.OpenAI)

		require.NoError(t, err)
		assert.Equal(t, "server-key", key)
	})

	t.Run("no key anywhere", func(t *testing.T) {
		svc, repo, _ := newAPIKeyService(t, nil)
		repo.On("FindByProvider", ctx, testUser, provider.Anthropic).Return(nil, sql.ErrNoRows)

		_, err := svc.Resolve(ctx, testUser, provider.Anthropic)

		assert.ErrorIs(t, err, provider.ErrMissingKey)
	})

	t.Run("repository failure", func(t *testing.T) {
		svc, repo, _ := newAPIKeyService(t, map[string]string{provider.OpenAI: "server-key"})
		repo.On("FindByProvider", ctx, testUser, provider.OpenAI).Return(nil, errors.New("db down"))

		_, err := svc.Resolve(ctx, testUser, provider.OpenAI)

		assert.Error(t, err)
		assert.NotErrorIs(t, err, provider.ErrMissingKey)
	})
}

func TestAPIKeyService_Providers(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newAPIKeyService(t, map[string]string{provider.Anthropic: "server-key"})
	repo.On("List", ctx, testUser).Return([]model.APIKey{{Provider: provider.OpenAI, Status: model.APIKeyValid}}, nil)

	got, err := svc.Providers(ctx, testUser)

	require.NoError(t, err)
	assert.Equal(t, []ProviderInfo{
		{Name: provider.Anthropic, ServerKey: true},
		{Name: provider.OpenAI, UserKey: true, KeyStatus: model.APIKeyValid},
	}, got)
}

func TestAPIKeyService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newAPIKeyService(t, nil)
	repo.On("Delete", ctx, testUser, "k-1").Return(nil)
	repo.On("Delete", ctx, testUser, "k-2").Return(sql.ErrNoRows)

	assert.NoError(t, svc.Delete(ctx, testUser, "k-1"))
	assert.ErrorIs(t, svc.Delete(ctx, testUser, "k-2"), ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, testUser, ""), ErrIDRequired)
}
