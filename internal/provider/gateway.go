package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"marketapi/internal/cache"
	"marketapi/internal/model"
	"marketapi/internal/resilience"
)

// Request is one competitor analysis routed to one provider.
type Request struct {
	UserID   string
	Provider string
	APIKey   string
	Input    AnalysisInput
}

// Result is what the gateway produced for a Request. On ErrInvalidReport it is
// returned alongside the error with Raw set.
type Result struct {
	Provider string
	Model    string
	Report   *model.CompetitorReport
	Raw      string
	Cached   bool
	Latency  time.Duration
}

// cachedReport is what is stored in the response cache.
type cachedReport struct {
	Model  string                  `json:"model"`
	Report *model.CompetitorReport `json:"report"`
}

// GatewayConfig tunes the gateway.
type GatewayConfig struct {
	Retry    resilience.RetryPolicy
	CacheTTL time.Duration
}

// Gateway runs provider calls through caching, rate limiting, circuit breaking and retries.
type Gateway struct {
	registry *Registry
	cache    cache.Cache
	limiter  *resilience.KeyedLimiter
	breakers *resilience.Breakers
	cfg      GatewayConfig
	metrics  *Metrics
	log      *zap.Logger
}

func NewGateway(
	registry *Registry,
	c cache.Cache,
	limiter *resilience.KeyedLimiter,
	breakers *resilience.Breakers,
	cfg GatewayConfig,
	metrics *Metrics,
	log *zap.Logger,
) *Gateway {
	if c == nil {
		c = cache.Noop{}
	}
	return &Gateway{
		registry: registry,
		cache:    c,
		limiter:  limiter,
		breakers: breakers,
		cfg:      cfg,
		metrics:  metrics,
		log:      log.With(zap.String("component", "provider_gateway")),
	}
}

// Breakers exposes breaker state for health reporting.
func (g *Gateway) Breakers() *resilience.Breakers { return g.breakers }

// CacheKey identifies a prompt sent to a specific provider model.
func CacheKey(provider, model string, p Prompt) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", provider, model, p.System, p.User)
	return "report:" + hex.EncodeToString(h.Sum(nil))
}

// Analyze asks req.Provider for a report on req.Input.
func (g *Gateway) Analyze(ctx context.Context, req Request) (*Result, error) {
	const op = "provider.Analyze"

	p, err := g.registry.Get(req.Provider)
	if err != nil {
		return nil, err
	}
	name := p.Name()
	log := g.log.With(zap.String("provider", name), zap.String("competitor", req.Input.Competitor))

	prompt := BuildPrompt(req.Input)
	key := CacheKey(name, p.Model(), prompt)
	start := time.Now()

	var hit cachedReport
	found, err := g.cache.Get(ctx, key, &hit)
	if err != nil {
		log.Warn("provider_cache_get_failed", zap.Error(err))
	}
	if found && hit.Report != nil {
		g.observe(name, OutcomeCached, start)
		return &Result{Provider: name, Model: hit.Model, Report: hit.Report, Cached: true, Latency: time.Since(start)}, nil
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, name+":"+req.UserID); err != nil {
			g.observe(name, OutcomeRateLimited, start)
			return nil, fmt.Errorf("%s: %w: %v", op, ErrRateLimited, err)
		}
	}

	var completion *Completion
	err = resilience.Retry(ctx, g.cfg.Retry, func(ctx context.Context) error {
		v, err := g.breakers.Execute(name, func() (any, error) {
			return p.Complete(ctx, req.APIKey, prompt)
		})
		if err != nil {
			if resilience.IsOpen(err) || !Retryable(err) {
				return resilience.Permanent(err)
			}
			return err
		}
		completion = v.(*Completion)
		return nil
	}, func(attempt int, err error, wait time.Duration) {
		if g.metrics != nil {
			g.metrics.retries.WithLabelValues(name).Inc()
		}
		log.Warn("provider_call_retry", zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	})
	if err != nil {
		outcome := OutcomeError
		if resilience.IsOpen(err) {
			outcome = OutcomeBreakerOpen
		}
		g.observe(name, outcome, start)
		log.Error("provider_call_failed", zap.String("outcome", outcome), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res := &Result{Provider: name, Model: completion.Model, Latency: time.Since(start)}
	report, err := ParseReport(completion.Text)
	if err != nil {
		g.observe(name, OutcomeInvalid, start)
		log.Warn("provider_response_invalid", zap.Error(err))
		res.Raw = completion.Text
		return res, fmt.Errorf("%s: %w", op, err)
	}
	res.Report = report
	g.observe(name, OutcomeSuccess, start)

	if g.cfg.CacheTTL > 0 {
		if err := g.cache.Set(ctx, key, cachedReport{Model: res.Model, Report: report}, g.cfg.CacheTTL); err != nil {
			log.Warn("provider_cache_set_failed", zap.Error(err))
		}
	}
	return res, nil
}

// Validate checks apiKey against the named provider, bypassing cache and retries.
func (g *Gateway) Validate(ctx context.Context, providerName, apiKey string) error {
	p, err := g.registry.Get(providerName)
	if err != nil {
		return err
	}
	return p.Validate(ctx, apiKey)
}

func (g *Gateway) observe(provider, outcome string, start time.Time) {
	if g.metrics == nil {
		return
	}
	g.metrics.calls.WithLabelValues(provider, outcome).Inc()
	if outcome != OutcomeCached {
		g.metrics.duration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}
}

// IsUnavailable reports whether err means the provider is temporarily refusing calls.
func IsUnavailable(err error) bool {
	return resilience.IsOpen(err) || errors.Is(err, ErrRateLimited)
}
