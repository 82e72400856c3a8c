package service

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketapi/internal/model"
	"marketapi/internal/repository"
)

const (
	defaultUsageWindow = 30 * 24 * time.Hour
	maxMetricTags      = 20
)

var metricName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.:-]{0,99}$`)

// RecordMetricInput is a client-reported metric sample.
type RecordMetricInput struct {
	Name  string
	Value float64
	Tags  map[string]string
}

// MetricService stores client metrics and summarizes provider usage.
type MetricService interface {
	Record(ctx context.Context, userID string, in RecordMetricInput) (*model.MetricEvent, error)
	// UsageSummary aggregates provider calls made within window. Zero means 30 days.
	UsageSummary(ctx context.Context, window time.Duration) ([]model.ProviderUsage, error)
}

type metricService struct {
	repo repository.MetricRepository
	now  func() time.Time
}

func NewMetricService(repo repository.MetricRepository) MetricService {
	return &metricService{repo: repo, now: time.Now}
}

func (s *metricService) Record(ctx context.Context, userID string, in RecordMetricInput) (*model.MetricEvent, error) {
	name := strings.TrimSpace(in.Name)
	if !metricName.MatchString(name) {
		return nil, invalid("metric name %q is not valid", in.Name)
	}
	if math.IsNaN(in.Value) || math.IsInf(in.Value, 0) {
		return nil, invalid("metric value must be finite")
	}
	if len(in.Tags) > maxMetricTags {
		return nil, invalid("at most %d tags", maxMetricTags)
	}

	e, err := s.repo.CreateEvent(ctx, &model.MetricEvent{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Value:     in.Value,
		Tags:      in.Tags,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("service.Metric.Record: %w", err)
	}
	return e, nil
}

func (s *metricService) UsageSummary(ctx context.Context, window time.Duration) ([]model.ProviderUsage, error) {
	if window <= 0 {
		window = defaultUsageWindow
	}
	usage, err := s.repo.UsageSummary(ctx, s.now().Add(-window).UTC())
	if err != nil {
		return nil, fmt.Errorf("service.Metric.UsageSummary: %w", err)
	}
	if usage == nil {
		usage = []model.ProviderUsage{}
	}
	for i := range usage {
		if usage[i].Calls > 0 {
			usage[i].SuccessRate = float64(usage[i].Successes) / float64(usage[i].Calls)
		}
	}
	return usage, nil
}
