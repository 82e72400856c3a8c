package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"marketapi/internal/events"
	"marketapi/internal/model"
	"marketapi/internal/provider"
	"marketapi/internal/repository"
)

const (
	MaxCompetitors      = 10
	defaultParallelCall = 8
)

var (
	// ErrAnalysisFailed is returned by Run when no provider produced a report.
	// The stored analysis is returned alongside it.
	ErrAnalysisFailed = errors.New("no provider produced a report")
	// ErrProvidersUnavailable joins ErrAnalysisFailed when every call was refused
	// by an open circuit breaker or a rate limit.
	ErrProvidersUnavailable = errors.New("providers are temporarily unavailable")
)

// RunAnalysisInput is what a user submits to start an analysis.
type RunAnalysisInput struct {
	Competitors []string
	Industry    string
	Focus       string
	// Providers is optional; when empty every provider the user can call is used.
	Providers []string
}

// AnalysisEvent is published after a run finishes.
type AnalysisEvent struct {
	AnalysisID string               `json:"analysis_id"`
	UserID     string               `json:"user_id"`
	Status     model.AnalysisStatus `json:"status"`
	Providers  []string             `json:"providers"`
	Succeeded  int                  `json:"succeeded"`
	Total      int                  `json:"total"`
}

// AnalysisService runs competitor analyses against the configured LLM providers.
type AnalysisService interface {
	Run(ctx context.Context, userID string, in RunAnalysisInput) (*model.Analysis, error)
	List(ctx context.Context, userID string, limit, offset int) (*ListResult[model.Analysis], error)
	Get(ctx context.Context, userID, id string) (*model.Analysis, error)
	Delete(ctx context.Context, userID, id string) error
}

type analysisService struct {
	repo      repository.AnalysisRepository
	usage     repository.MetricRepository
	keys      APIKeyService
	catalog   ProviderCatalog
	gateway   ProviderGateway
	publisher events.Publisher
	log       *zap.Logger
	parallel  int
}

func NewAnalysisService(
	repo repository.AnalysisRepository,
	usage repository.MetricRepository,
	keys APIKeyService,
	catalog ProviderCatalog,
	gateway ProviderGateway,
	publisher events.Publisher,
	log *zap.Logger,
) AnalysisService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &analysisService{
		repo:      repo,
		usage:     usage,
		keys:      keys,
		catalog:   catalog,
		gateway:   gateway,
		publisher: publisher,
		log:       log.With(zap.String("component", "analyses")),
		parallel:  defaultParallelCall,
	}
}

// normalizeCompetitors trims, drops blanks and removes case-insensitive duplicates,
// keeping the first spelling.
func normalizeCompetitors(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		k := strings.ToLower(c)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}

// resolveProviders picks the providers to ask: the requested ones, otherwise every
// provider the user stored a usable key for, otherwise every server-configured one.
func (s *analysisService) resolveProviders(ctx context.Context, userID string, requested []string) ([]string, error) {
	var names []string
	seen := make(map[string]struct{})
	add := func(n string) {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			names = append(names, n)
		}
	}

	if len(requested) > 0 {
		for _, r := range requested {
			p, err := s.catalog.Get(r)
			if err != nil {
				return nil, invalid("%v", err)
			}
			add(p.Name())
		}
		return names, nil
	}

	keys, err := s.keys.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		if k.Status == model.APIKeyInvalid {
			continue
		}
		if p, err := s.catalog.Get(k.Provider); err == nil {
			add(p.Name())
		}
	}
	if len(names) == 0 {
		for _, n := range s.catalog.Configured() {
			add(n)
		}
	}
	if len(names) == 0 {
		return nil, ErrNoProviders
	}
	return names, nil
}

type callTarget struct {
	provider   string
	apiKey     string
	keyErr     error
	competitor string
}

func (s *analysisService) Run(ctx context.Context, userID string, in RunAnalysisInput) (*model.Analysis, error) {
	const op = "service.Analysis.Run"

	competitors := normalizeCompetitors(in.Competitors)
	if len(competitors) == 0 {
		return nil, invalid("at least one competitor is required")
	}
	if len(competitors) > MaxCompetitors {
		return nil, invalid("at most %d competitors per analysis", MaxCompetitors)
	}

	providers, err := s.resolveProviders(ctx, userID, in.Providers)
	if err != nil {
		return nil, err
	}

	keys := make(map[string]string, len(providers))
	keyErrs := make(map[string]error)
	for _, name := range providers {
		key, err := s.keys.Resolve(ctx, userID, name)
		switch {
		case err == nil:
			keys[name] = key
		case errors.Is(err, provider.ErrMissingKey):
			keyErrs[name] = err
		default:
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no api key for %s", ErrNoProviders, strings.Join(providers, ", "))
	}

	now := time.Now().UTC()
	a, err := s.repo.Create(ctx, &model.Analysis{
		ID:          uuid.New().String(),
		UserID:      userID,
		Competitors: competitors,
		Industry:    strings.TrimSpace(in.Industry),
		Focus:       strings.TrimSpace(in.Focus),
		Providers:   providers,
		Status:      model.AnalysisRunning,
		Results:     []model.ProviderResult{},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log := s.log.With(zap.String("analysis_id", a.ID), zap.String("user_id", userID))
	log.Info("analysis_started", zap.Strings("providers", providers), zap.Int("competitors", len(competitors)))

	targets := make([]callTarget, 0, len(providers)*len(competitors))
	for _, name := range providers {
		for _, c := range competitors {
			targets = append(targets, callTarget{provider: name, apiKey: keys[name], keyErr: keyErrs[name], competitor: c})
		}
	}

	results := make([]model.ProviderResult, len(targets))
	unavailable := make([]bool, len(targets))
	g := new(errgroup.Group)
	g.SetLimit(s.parallel)
	for i, t := range targets {
		g.Go(func() error {
			results[i], unavailable[i] = s.call(ctx, userID, a, t)
			return nil
		})
	}
	_ = g.Wait()

	succeeded, refused := 0, 0
	for i, r := range results {
		if r.Succeeded() {
			succeeded++
		} else if unavailable[i] {
			refused++
		}
	}

	a.Results = results
	a.UpdatedAt = time.Now().UTC()
	switch {
	case succeeded == len(results):
		a.Status = model.AnalysisCompleted
	case succeeded > 0:
		a.Status = model.AnalysisPartial
	default:
		a.Status = model.AnalysisFailed
		a.Error = ErrAnalysisFailed.Error()
	}

	// The run already spent provider quota; persist it even if the caller went away.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.repo.Update(persistCtx, a); err != nil {
		log.Error("analysis_update_failed", zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.recordUsage(persistCtx, log, userID, results, targets)
	s.publish(persistCtx, log, a, succeeded)

	log.Info("analysis_finished",
		zap.String("status", string(a.Status)),
		zap.Int("succeeded", succeeded),
		zap.Int("total", len(results)),
	)

	if a.Status == model.AnalysisFailed {
		if refused == len(results) {
			return a, fmt.Errorf("%w: %w", ErrAnalysisFailed, ErrProvidersUnavailable)
		}
		return a, ErrAnalysisFailed
	}
	return a, nil
}

// call runs one (provider, competitor) pair and never fails the group.
func (s *analysisService) call(ctx context.Context, userID string, a *model.Analysis, t callTarget) (model.ProviderResult, bool) {
	res := model.ProviderResult{Provider: t.provider, Competitor: t.competitor}
	if t.keyErr != nil {
		res.Error = t.keyErr.Error()
		return res, false
	}

	out, err := s.gateway.Analyze(ctx, provider.Request{
		UserID:   userID,
		Provider: t.provider,
		APIKey:   t.apiKey,
		Input:    provider.AnalysisInput{Competitor: t.competitor, Industry: a.Industry, Focus: a.Focus},
	})
	if out != nil {
		res.Model = out.Model
		res.Report = out.Report
		res.Raw = out.Raw
		res.Cached = out.Cached
		res.LatencyMS = out.Latency.Milliseconds()
	}
	if err != nil {
		res.Report = nil
		if provider.IsUnavailable(err) {
			res.Error = ErrProvidersUnavailable.Error()
			return res, true
		}
		res.Error = resultError(err)
	}
	return res, false
}

// resultError keeps the provider's own message and drops internal op prefixes.
func resultError(err error) string {
	var pe *provider.Error
	switch {
	case errors.As(err, &pe):
		return pe.Error()
	case errors.Is(err, provider.ErrInvalidReport):
		return provider.ErrInvalidReport.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "provider call timed out"
	case errors.Is(err, context.Canceled):
		return "request cancelled"
	}
	return "provider call failed"
}

func (s *analysisService) recordUsage(ctx context.Context, log *zap.Logger, userID string, results []model.ProviderResult, targets []callTarget) {
	if s.usage == nil {
		return
	}
	for i, r := range results {
		if targets[i].keyErr != nil {
			continue
		}
		err := s.usage.RecordUsage(ctx, &model.APIUsage{
			ID:        uuid.New().String(),
			UserID:    userID,
			Provider:  r.Provider,
			Success:   r.Succeeded(),
			Cached:    r.Cached,
			LatencyMS: r.LatencyMS,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			log.Warn("api_usage_record_failed", zap.String("provider", r.Provider), zap.Error(err))
		}
	}
}

func (s *analysisService) publish(ctx context.Context, log *zap.Logger, a *model.Analysis, succeeded int) {
	key := events.AnalysisCompleted
	if a.Status == model.AnalysisFailed {
		key = events.AnalysisFailed
	}
	err := s.publisher.Publish(ctx, key, AnalysisEvent{
		AnalysisID: a.ID,
		UserID:     a.UserID,
		Status:     a.Status,
		Providers:  a.Providers,
		Succeeded:  succeeded,
		Total:      len(a.Results),
	})
	if err != nil {
		log.Warn("event_publish_failed", zap.String("routing_key", key), zap.Error(err))
	}
}

func (s *analysisService) List(ctx context.Context, userID string, limit, offset int) (*ListResult[model.Analysis], error) {
	pq := page(limit, offset)
	res, err := s.repo.List(ctx, userID, pq)
	if err != nil {
		return nil, fmt.Errorf("service.Analysis.List: %w", err)
	}
	return listResult(res, pq), nil
}

func (s *analysisService) Get(ctx context.Context, userID, id string) (*model.Analysis, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	a, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (s *analysisService) Delete(ctx context.Context, userID, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	return notFound(s.repo.Delete(ctx, userID, id))
}
