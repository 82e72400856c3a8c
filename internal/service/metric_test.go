package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketapi/internal/model"
	repoMocks "marketapi/internal/repository/mocks"
)

func TestMetricService_Record(t *testing.T) {
	ctx := context.Background()
	repo := new(repoMocks.MockMetricRepository)
	repo.On("CreateEvent", ctx, mock.MatchedBy(func(e *model.MetricEvent) bool {
		return e.Name == "page.view" && e.Value == 1 && e.UserID == testUser && e.Tags["page"] == "dashboard"
	})).Return(&model.MetricEvent{ID: "m-1", Name: "page.view"}, nil)

	e, err := NewMetricService(repo).Record(ctx, testUser, RecordMetricInput{
		Name:  " page.view ",
		Value: 1,
		Tags:  map[string]string{"page": "dashboard"},
	})

	require.NoError(t, err)
	assert.Equal(t, "m-1", e.ID)
}

func TestMetricService_Record_Invalid(t *testing.T) {
	tags := make(map[string]string, maxMetricTags+1)
	for i := 0; i <= maxMetricTags; i++ {
		tags[string(rune('a'+i))] = "x"
	}
	tests := []struct {
		name string
		in   RecordMetricInput
	}{
		{name: "empty name", in: RecordMetricInput{Name: ""}},
		{name: "name with spaces", in: RecordMetricInput{Name: "page view"}},
		{name: "leading digit", in: RecordMetricInput{Name: "1st"}},
		{name: "NaN", in: RecordMetricInput{Name: "x", Value: math.NaN()}},
		{name: "Inf", in: RecordMetricInput{Name: "x", Value: math.Inf(1)}},
		{name: "too many tags", in: RecordMetricInput{Name: "x", Tags: tags}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(repoMocks.MockMetricRepository)

			_, err := NewMetricService(repo).Record(context.Background(), testUser, tt.in)

			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestMetricService_UsageSummary(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := new(repoMocks.MockMetricRepository)
	repo.On("UsageSummary", ctx, now.Add(-defaultUsageWindow)).Return([]model.ProviderUsage{
		{Provider: "openai", Calls: 4, Successes: 3},
		{Provider: "gemini", Calls: 0},
	}, nil)

	svc := NewMetricService(repo).(*metricService)
	svc.now = func() time.Time { return now }

	usage, err := svc.UsageSummary(ctx, 0)

	require.NoError(t, err)
	assert.InDelta(t, 0.75, usage[0].SuccessRate, 1e-9)
	assert.Zero(t, usage[1].SuccessRate)
}
