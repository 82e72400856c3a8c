package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"marketapi/internal/events"
	"marketapi/internal/model"
	"marketapi/internal/repository"
	repoMocks "marketapi/internal/repository/mocks"
)

func TestPreferenceService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults when missing", func(t *testing.T) {
		repo := new(repoMocks.MockPreferenceRepository)
		repo.On("Get", ctx, testUser).Return(nil, sql.ErrNoRows)

		p, err := NewPreferenceService(repo).Get(ctx, testUser)

		require.NoError(t, err)
		assert.Equal(t, DefaultPreferences(), p.Preferences)
		assert.Equal(t, testUser, p.UserID)
	})

	t.Run("stored values override defaults", func(t *testing.T) {
		repo := new(repoMocks.MockPreferenceRepository)
		repo.On("Get", ctx, testUser).Return(&model.UserPreferences{
			UserID:      testUser,
			Preferences: map[string]any{"theme": "dark", "beta": true},
		}, nil)

		p, err := NewPreferenceService(repo).Get(ctx, testUser)

		require.NoError(t, err)
		assert.Equal(t, "dark", p.Preferences["theme"])
		assert.Equal(t, true, p.Preferences["beta"])
		assert.Equal(t, "en", p.Preferences["language"])
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := new(repoMocks.MockPreferenceRepository)
		repo.On("Get", ctx, testUser).Return(nil, errors.New("db down"))

		_, err := NewPreferenceService(repo).Get(ctx, testUser)

		assert.Error(t, err)
	})
}

func TestPreferenceService_Update(t *testing.T) {
	ctx := context.Background()
	repo := new(repoMocks.MockPreferenceRepository)
	repo.On("Get", ctx, testUser).Return(&model.UserPreferences{
		UserID:      testUser,
		Preferences: map[string]any{"theme": "dark", "beta": true},
	}, nil)

	var saved *model.UserPreferences
	repo.On("Upsert", ctx, mock.AnythingOfType("*model.UserPreferences")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*model.UserPreferences) }).
		Return(&model.UserPreferences{UserID: testUser, Preferences: map[string]any{"theme": "light"}, UpdatedAt: time.Now()}, nil)

	p, err := NewPreferenceService(repo).Update(ctx, testUser, map[string]any{"theme": "light", "beta": nil})

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, map[string]any{"theme": "light"}, saved.Preferences)
	assert.Equal(t, "light", p.Preferences["theme"])
	assert.NotContains(t, p.Preferences, "beta")
	assert.Equal(t, "en", p.Preferences["language"])
}

func TestPreferenceService_Update_EmptyPatch(t *testing.T) {
	_, err := NewPreferenceService(new(repoMocks.MockPreferenceRepository)).Update(context.Background(), testUser, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBillingService_List(t *testing.T) {
	ctx := context.Background()
	repo := new(repoMocks.MockBillingRepository)
	repo.On("List", ctx, testUser, repository.PageQuery{Limit: 20, Offset: 40}).
		Return(&repository.PageResult[model.BillingRecord]{Items: []model.BillingRecord{{ID: "b-1"}}, Total: 41}, nil)

	res, err := NewBillingService(repo).List(ctx, testUser, 20, 40)

	require.NoError(t, err)
	assert.Equal(t, 41, res.Total)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, 20, res.Limit)
}

func TestRoleService_GetRole(t *testing.T) {
	ctx := context.Background()
	repo := new(repoMocks.MockRoleRepository)
	repo.On("Get", ctx, "admin-1").Return(&model.UserRole{UserID: "admin-1", Role: model.RoleAdmin}, nil)
	repo.On("Get", ctx, "new-user").Return(nil, sql.ErrNoRows)
	svc := NewRoleService(repo, nil, zap.NewNop())

	r, err := svc.GetRole(ctx, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, r.Role)

	r, err = svc.GetRole(ctx, "new-user")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, r.Role)

	_, err = svc.GetRole(ctx, "")
	assert.ErrorIs(t, err, ErrIDRequired)
}

func TestRoleService_EffectiveRole(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		stored    *model.UserRole
		storeErr  error
		claimRole string
		want      string
		wantErr   bool
	}{
		{name: "stored role overrides claim", stored: &model.UserRole{Role: model.RoleUser}, claimRole: model.RoleAdmin, want: model.RoleUser},
		{name: "stored admin", stored: &model.UserRole{Role: model.RoleAdmin}, claimRole: "", want: model.RoleAdmin},
		{name: "claim used when nothing stored", storeErr: sql.ErrNoRows, claimRole: model.RoleAdmin, want: model.RoleAdmin},
		{name: "unknown claim falls back to user", storeErr: sql.ErrNoRows, claimRole: "root", want: model.RoleUser},
		{name: "store failure", storeErr: errors.New("db down"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(repoMocks.MockRoleRepository)
			if tt.stored != nil {
				repo.On("Get", ctx, testUser).Return(tt.stored, nil)
			} else {
				repo.On("Get", ctx, testUser).Return(nil, tt.storeErr)
			}

			got, err := NewRoleService(repo, nil, zap.NewNop()).EffectiveRole(ctx, testUser, tt.claimRole)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleService_SetRole(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes change", func(t *testing.T) {
		repo := new(repoMocks.MockRoleRepository)
		pub := &recordingPublisher{}
		repo.On("Set", ctx, "user-2", model.RoleAdmin).Return(&model.UserRole{UserID: "user-2", Role: model.RoleAdmin}, nil)

		r, err := NewRoleService(repo, pub, zap.NewNop()).SetRole(ctx, "admin-1", "user-2", model.RoleAdmin)

		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, r.Role)
		require.Len(t, pub.events, 1)
		assert.Equal(t, events.RoleChanged, pub.events[0].key)
		assert.Equal(t, RoleEvent{UserID: "user-2", Role: model.RoleAdmin, ChangedBy: "admin-1"}, pub.events[0].payload)
	})

	t.Run("publish failure is not returned", func(t *testing.T) {
		repo := new(repoMocks.MockRoleRepository)
		pub := &recordingPublisher{err: errors.New("broker gone")}
		repo.On("Set", ctx, "user-2", model.RoleUser).Return(&model.UserRole{UserID: "user-2", Role: model.RoleUser}, nil)

		_, err := NewRoleService(repo, pub, zap.NewNop()).SetRole(ctx, "admin-1", "user-2", model.RoleUser)

		assert.NoError(t, err)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		repo := new(repoMocks.MockRoleRepository)

		_, err := NewRoleService(repo, nil, zap.NewNop()).SetRole(ctx, "admin-1", "user-2", "owner")

		assert.ErrorIs(t, err, ErrInvalidInput)
		repo.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})
}
