package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketapi/internal/model"
	"marketapi/internal/repository"
	repoMocks "marketapi/internal/repository/mocks"
)

func TestDashboardService_Summary(t *testing.T) {
	analyses := new(repoMocks.MockAnalysisRepository)
	docs := new(repoMocks.MockDocumentRepository)
	tickets := new(repoMocks.MockTicketRepository)
	keys := &fakeKeys{keys: map[string]string{"openai": "sk"}}

	analyses.On("CountByStatus", mock.Anything, testUser).Return(map[model.AnalysisStatus]int{
		model.AnalysisCompleted: 3,
		model.AnalysisFailed:    1,
	}, nil)
	analyses.On("List", mock.Anything, testUser, repository.PageQuery{Limit: recentAnalyses}).
		Return(&repository.PageResult[model.Analysis]{Items: []model.Analysis{{ID: "a-1"}}, Total: 4}, nil)
	docs.On("Count", mock.Anything, testUser).Return(7, nil)
	tickets.On("CountOpen", mock.Anything, testUser).Return(2, nil)

	sum, err := NewDashboardService(analyses, docs, tickets, keys).Summary(context.Background(), testUser)

	require.NoError(t, err)
	assert.Equal(t, 4, sum.TotalAnalyses)
	assert.Equal(t, 3, sum.Analyses[model.AnalysisCompleted])
	assert.Equal(t, 7, sum.Documents)
	assert.Equal(t, 2, sum.OpenTickets)
	assert.Len(t, sum.RecentAnalyses, 1)
	assert.Equal(t, []ProviderInfo{{Name: "openai", UserKey: true}}, sum.Providers)
}

func TestDashboardService_Summary_Error(t *testing.T) {
	analyses := new(repoMocks.MockAnalysisRepository)
	docs := new(repoMocks.MockDocumentRepository)
	tickets := new(repoMocks.MockTicketRepository)

	analyses.On("CountByStatus", mock.Anything, testUser).Return(map[model.AnalysisStatus]int{}, nil).Maybe()
	analyses.On("List", mock.Anything, testUser, mock.Anything).
		Return(&repository.PageResult[model.Analysis]{}, nil).Maybe()
	docs.On("Count", mock.Anything, testUser).Return(0, errors.New("db down"))
	tickets.On("CountOpen", mock.Anything, testUser).Return(0, nil).Maybe()

	_, err := NewDashboardService(analyses, docs, tickets, &fakeKeys{}).Summary(context.Background(), testUser)

	assert.ErrorContains(t, err, "count documents")
}
