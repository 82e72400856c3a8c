package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketapi/internal/model"
	"marketapi/internal/provider"
	"marketapi/internal/repository"
	"marketapi/internal/secret"
)

// ProviderInfo describes a registered provider from one user's point of view.
type ProviderInfo struct {
	Name      string             `json:"name"`
	ServerKey bool               `json:"server_key"`
	UserKey   bool               `json:"user_key"`
	KeyStatus model.APIKeyStatus `json:"key_status,omitempty"`
}

// APIKeyService manages the provider credentials a user brings.
type APIKeyService interface {
	// Save seals and stores key, replacing any key the user had for the provider.
	Save(ctx context.Context, userID, providerName, key string) (*model.APIKey, error)
	List(ctx context.Context, userID string) ([]model.APIKey, error)
	Delete(ctx context.Context, userID, id string) error

	// Validate asks the provider whether the stored key works and records the verdict.
	// Transient provider failures are returned without touching the stored status.
	Validate(ctx context.Context, userID, id string) (*model.APIKey, error)

	// Resolve returns the plaintext key to use for a call: the user's own key first,
	// then the server key. provider.ErrMissingKey means neither exists.
	Resolve(ctx context.Context, userID, providerName string) (string, error)

	Providers(ctx context.Context, userID string) ([]ProviderInfo, error)
}

type apiKeyService struct {
	repo    repository.APIKeyRepository
	sealer  *secret.Sealer
	catalog ProviderCatalog
	gateway ProviderGateway
	log     *zap.Logger
}

func NewAPIKeyService(
	repo repository.APIKeyRepository,
	sealer *secret.Sealer,
	catalog ProviderCatalog,
	gateway ProviderGateway,
	log *zap.Logger,
) APIKeyService {
	return &apiKeyService{
		repo:    repo,
		sealer:  sealer,
		catalog: catalog,
		gateway: gateway,
		log:     log.With(zap.String("component", "api_keys")),
	}
}

func sealingContext(userID, providerName string) string {
	return userID + "/" + providerName
}

func (s *apiKeyService) Save(ctx context.Context, userID, providerName, key string) (*model.APIKey, error) {
	const op = "service.APIKey.Save"

	p, err := s.catalog.Get(providerName)
	if err != nil {
		return nil, invalid("%v", err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, invalid("api key is required")
	}

	sealed, err := s.sealer.Seal(key, sealingContext(userID, p.Name()))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	stored, err := s.repo.Upsert(ctx, &model.APIKey{
		ID:        uuid.New().String(),
		UserID:    userID,
		Provider:  p.Name(),
		SealedKey: sealed,
		MaskedKey: secret.Mask(key),
		Status:    model.APIKeyUnverified,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("api_key_saved", zap.String("user_id", userID), zap.String("provider", p.Name()))
	return stored, nil
}

func (s *apiKeyService) List(ctx context.Context, userID string) ([]model.APIKey, error) {
	keys, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.APIKey.List: %w", err)
	}
	if keys == nil {
		keys = []model.APIKey{}
	}
	return keys, nil
}

func (s *apiKeyService) Delete(ctx context.Context, userID, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	return notFound(s.repo.Delete(ctx, userID, id))
}

func (s *apiKeyService) Validate(ctx context.Context, userID, id string) (*model.APIKey, error) {
	const op = "service.APIKey.Validate"
	if id == "" {
		return nil, ErrIDRequired
	}

	k, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, notFound(err)
	}
	plain, err := s.sealer.Open(k.SealedKey, sealingContext(userID, k.Provider))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	status := model.APIKeyValid
	if err := s.gateway.Validate(ctx, k.Provider, plain); err != nil {
		var pe *provider.Error
		if !errors.As(err, &pe) || !pe.Unauthorized() {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		status = model.APIKeyInvalid
	}

	if err := s.repo.UpdateStatus(ctx, userID, id, status); err != nil {
		return nil, notFound(err)
	}
	now := time.Now().UTC()
	k.Status = status
	k.LastValidatedAt = &now
	s.log.Info("api_key_validated",
		zap.String("user_id", userID),
		zap.String("provider", k.Provider),
		zap.String("status", string(status)),
	)
	return k, nil
}

func (s *apiKeyService) Resolve(ctx context.Context, userID, providerName string) (string, error) {
	const op = "service.APIKey.Resolve"

	p, err := s.catalog.Get(providerName)
	if err != nil {
		return "", err
	}
	name := p.Name()

	k, err := s.repo.FindByProvider(ctx, userID, name)
	switch {
	case err == nil && k.Status != model.APIKeyInvalid:
		plain, err := s.sealer.Open(k.SealedKey, sealingContext(userID, name))
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		return plain, nil
	case err != nil && !errors.Is(notFound(err), ErrNotFound):
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if key := s.catalog.ServerKey(name); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: %s", provider.ErrMissingKey, name)
}

func (s *apiKeyService) Providers(ctx context.Context, userID string) ([]ProviderInfo, error) {
	keys, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service.APIKey.Providers: %w", err)
	}
	byProvider := make(map[string]model.APIKey, len(keys))
	for _, k := range keys {
		byProvider[k.Provider] = k
	}

	names := s.catalog.Names()
	out := make([]ProviderInfo, 0, len(names))
	for _, n := range names {
		info := ProviderInfo{Name: n, ServerKey: s.catalog.ServerKey(n) != ""}
		if k, ok := byProvider[n]; ok {
			info.UserKey = true
			info.KeyStatus = k.Status
		}
		out = append(out, info)
	}
	return out, nil
}
