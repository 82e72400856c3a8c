package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"

	"marketapi/internal/events"
	"marketapi/internal/model"
	"marketapi/internal/repository"
)

// DefaultPreferences are returned for keys a user never set.
func DefaultPreferences() map[string]any {
	return map[string]any{
		"theme":             "system",
		"language":          "en",
		"email_reports":     true,
		"default_providers": []any{},
	}
}

// PreferenceService reads and updates a user's settings document.
type PreferenceService interface {
	Get(ctx context.Context, userID string) (*model.UserPreferences, error)
	// Update merges patch into the stored document. A nil value removes the key.
	Update(ctx context.Context, userID string, patch map[string]any) (*model.UserPreferences, error)
}

type preferenceService struct {
	repo repository.PreferenceRepository
}

func NewPreferenceService(repo repository.PreferenceRepository) PreferenceService {
	return &preferenceService{repo: repo}
}

func (s *preferenceService) stored(ctx context.Context, userID string) (map[string]any, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	if p.Preferences == nil {
		return map[string]any{}, nil
	}
	return p.Preferences, nil
}

func (s *preferenceService) Get(ctx context.Context, userID string) (*model.UserPreferences, error) {
	stored, err := s.repo.Get(ctx, userID)
	if err != nil && !errors.Is(notFound(err), ErrNotFound) {
		return nil, fmt.Errorf("service.Preference.Get: %w", err)
	}

	out := &model.UserPreferences{UserID: userID, Preferences: DefaultPreferences()}
	if stored != nil {
		maps.Copy(out.Preferences, stored.Preferences)
		out.UpdatedAt = stored.UpdatedAt
	}
	return out, nil
}

func (s *preferenceService) Update(ctx context.Context, userID string, patch map[string]any) (*model.UserPreferences, error) {
	const op = "service.Preference.Update"
	if len(patch) == 0 {
		return nil, invalid("preferences patch is empty")
	}

	prefs, err := s.stored(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for k, v := range patch {
		if v == nil {
			delete(prefs, k)
			continue
		}
		prefs[k] = v
	}

	saved, err := s.repo.Upsert(ctx, &model.UserPreferences{
		UserID:      userID,
		Preferences: prefs,
		UpdatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := &model.UserPreferences{UserID: userID, Preferences: DefaultPreferences(), UpdatedAt: saved.UpdatedAt}
	maps.Copy(out.Preferences, saved.Preferences)
	return out, nil
}

// BillingService exposes a user's billing history.
type BillingService interface {
	List(ctx context.Context, userID string, limit, offset int) (*ListResult[model.BillingRecord], error)
}

type billingService struct {
	repo repository.BillingRepository
}

func NewBillingService(repo repository.BillingRepository) BillingService {
	return &billingService{repo: repo}
}

func (s *billingService) List(ctx context.Context, userID string, limit, offset int) (*ListResult[model.BillingRecord], error) {
	pq := page(limit, offset)
	res, err := s.repo.List(ctx, userID, pq)
	if err != nil {
		return nil, fmt.Errorf("service.Billing.List: %w", err)
	}
	return listResult(res, pq), nil
}

// RoleEvent is published when an admin changes a user's role.
type RoleEvent struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	ChangedBy string `json:"changed_by"`
}

// RoleService answers "what role does this user have" for the admin guard.
type RoleService interface {
	GetRole(ctx context.Context, userID string) (*model.UserRole, error)
	// EffectiveRole prefers the stored role over the role carried in the token.
	EffectiveRole(ctx context.Context, userID, claimRole string) (string, error)
	SetRole(ctx context.Context, actorID, userID, role string) (*model.UserRole, error)
}

type roleService struct {
	repo      repository.RoleRepository
	publisher events.Publisher
	log       *zap.Logger
}

func NewRoleService(repo repository.RoleRepository, publisher events.Publisher, log *zap.Logger) RoleService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &roleService{repo: repo, publisher: publisher, log: log.With(zap.String("component", "roles"))}
}

func validRole(role string) bool {
	return role == model.RoleUser || role == model.RoleAdmin
}

func (s *roleService) GetRole(ctx context.Context, userID string) (*model.UserRole, error) {
	if userID == "" {
		return nil, ErrIDRequired
	}
	r, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(notFound(err), ErrNotFound) {
			return &model.UserRole{UserID: userID, Role: model.RoleUser}, nil
		}
		return nil, fmt.Errorf("service.Role.GetRole: %w", err)
	}
	return r, nil
}

func (s *roleService) EffectiveRole(ctx context.Context, userID, claimRole string) (string, error) {
	r, err := s.repo.Get(ctx, userID)
	switch {
	case err == nil:
		return r.Role, nil
	case errors.Is(notFound(err), ErrNotFound):
		if validRole(claimRole) {
			return claimRole, nil
		}
		return model.RoleUser, nil
	default:
		return "", fmt.Errorf("service.Role.EffectiveRole: %w", err)
	}
}

func (s *roleService) SetRole(ctx context.Context, actorID, userID, role string) (*model.UserRole, error) {
	const op = "service.Role.SetRole"
	if userID == "" {
		return nil, ErrIDRequired
	}
	if !validRole(role) {
		return nil, invalid("role must be %q or %q", model.RoleUser, model.RoleAdmin)
	}

	r, err := s.repo.Set(ctx, userID, role)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("role_changed", zap.String("user_id", userID), zap.String("role", role), zap.String("actor_id", actorID))

	if err := s.publisher.Publish(ctx, events.RoleChanged, RoleEvent{UserID: userID, Role: role, ChangedBy: actorID}); err != nil {
		s.log.Warn("event_publish_failed", zap.String("routing_key", events.RoleChanged), zap.Error(err))
	}
	return r, nil
}
