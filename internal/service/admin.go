package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"marketapi/internal/provider"
)

const providerCheckTimeout = 10 * time.Second

// Provider health states.
const (
	HealthOK           = "ok"
	HealthUnauthorized = "unauthorized"
	HealthError        = "error"
	HealthUnconfigured = "unconfigured"
)

// ProviderHealth is the result of checking one provider with the server key.
type ProviderHealth struct {
	Provider  string `json:"provider"`
	Status    string `json:"status"`
	Breaker   string `json:"breaker"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

// BreakerSnapshot reports circuit breaker states by provider. *resilience.Breakers implements it.
type BreakerSnapshot interface {
	Snapshot() map[string]string
}

// AdminService holds the operations behind the admin routes.
type AdminService interface {
	RoleService
	ProviderHealth(ctx context.Context) ([]ProviderHealth, error)
}

type adminService struct {
	RoleService
	catalog  ProviderCatalog
	gateway  ProviderGateway
	breakers BreakerSnapshot
	log      *zap.Logger
}

func NewAdminService(roles RoleService, catalog ProviderCatalog, gateway ProviderGateway, breakers BreakerSnapshot, log *zap.Logger) AdminService {
	return &adminService{
		RoleService: roles,
		catalog:     catalog,
		gateway:     gateway,
		breakers:    breakers,
		log:         log.With(zap.String("component", "admin")),
	}
}

// ProviderHealth validates every server key concurrently. A failing provider is
// reported in its entry, never as an error of the whole call.
func (s *adminService) ProviderHealth(ctx context.Context) ([]ProviderHealth, error) {
	names := s.catalog.Names()
	states := map[string]string{}
	if s.breakers != nil {
		states = s.breakers.Snapshot()
	}

	out := make([]ProviderHealth, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		out[i] = ProviderHealth{Provider: name, Breaker: "closed"}
		if st, ok := states[name]; ok {
			out[i].Breaker = st
		}
		key := s.catalog.ServerKey(name)
		if key == "" {
			out[i].Status = HealthUnconfigured
			continue
		}
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(gctx, providerCheckTimeout)
			defer cancel()

			start := time.Now()
			err := s.gateway.Validate(cctx, name, key)
			out[i].LatencyMS = time.Since(start).Milliseconds()

			var pe *provider.Error
			switch {
			case err == nil:
				out[i].Status = HealthOK
			case errors.As(err, &pe) && pe.Unauthorized():
				out[i].Status = HealthUnauthorized
				out[i].Error = pe.Error()
			default:
				out[i].Status = HealthError
				out[i].Error = resultError(err)
				s.log.Warn("provider_health_failed", zap.String("provider", name), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
