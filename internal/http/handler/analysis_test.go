package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketapi/internal/model"
	"marketapi/internal/provider"
	"marketapi/internal/service"
	serviceMocks "marketapi/internal/service/mocks"
)

func TestRunAnalysis(t *testing.T) {
	body := map[string]any{
		"competitors": []string{"Acme", "Globex"},
		"industry":    "widgets",
		"providers":   []string{"openai"},
	}
	wantInput := service.RunAnalysisInput{
		Competitors: []string{"Acme", "Globex"},
		Industry:    "widgets",
		Providers:   []string{"openai"},
	}

	t.Run("created", func(t *testing.T) {
		svc := new(serviceMocks.MockAnalysisService)
		app := newApp()
		app.Post("/analyses", RunAnalysis(svc))

		id := uuid.New().String()
		svc.On("Run", mock.Anything, testUser, wantInput).
			Return(&model.Analysis{ID: id, Status: model.AnalysisPartial}, nil).Once()

		resp, _ := app.Test(jsonRequest(http.MethodPost, "/analyses", body))

		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "/api/v1/analyses/"+id, resp.Header.Get("Location"))
		var a model.Analysis
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&a))
		assert.Equal(t, model.AnalysisPartial, a.Status)
		svc.AssertExpectations(t)
	})

	errCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "all calls failed", err: fmt.Errorf("run: %w", service.ErrAnalysisFailed), wantStatus: http.StatusBadGateway, wantCode: "PROVIDER_ERROR"},
		{name: "providers refused", err: fmt.Errorf("%w: %w", service.ErrAnalysisFailed, service.ErrProvidersUnavailable), wantStatus: http.StatusServiceUnavailable, wantCode: "PROVIDER_UNAVAILABLE"},
		{name: "no providers", err: service.ErrNoProviders, wantStatus: http.StatusUnprocessableEntity, wantCode: "VALIDATION_FAILED"},
		{name: "unknown provider", err: fmt.Errorf("resolve: %w", provider.ErrUnknownProvider), wantStatus: http.StatusUnprocessableEntity, wantCode: "VALIDATION_FAILED"},
		{name: "internal", err: errors.New("db down"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}
	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(serviceMocks.MockAnalysisService)
			app := newApp()
			app.Post("/analyses", RunAnalysis(svc))
			svc.On("Run", mock.Anything, testUser, wantInput).Return(nil, tt.err).Once()

			resp, _ := app.Test(jsonRequest(http.MethodPost, "/analyses", body))

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, decodeError(t, resp).Error.Code)
		})
	}
}

func TestRunAnalysis_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{name: "malformed json", body: "{", wantStatus: http.StatusBadRequest, wantCode: "INVALID_BODY"},
		{name: "empty body", body: nil, wantStatus: http.StatusBadRequest, wantCode: "INVALID_BODY"},
		{name: "no competitors", body: map[string]any{"industry": "x"}, wantStatus: http.StatusUnprocessableEntity, wantCode: "VALIDATION_FAILED", wantMsg: "field competitors is required"},
		{
			name:       "too many competitors",
			body:       map[string]any{"competitors": []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "VALIDATION_FAILED",
			wantMsg:    "field competitors must have at most 10",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(serviceMocks.MockAnalysisService)
			app := newApp()
			app.Post("/analyses", RunAnalysis(svc))

			resp, _ := app.Test(jsonRequest(http.MethodPost, "/analyses", tt.body))

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			res := decodeError(t, resp)
			assert.Equal(t, tt.wantCode, res.Error.Code)
			if tt.wantMsg != "" {
				assert.Contains(t, res.Error.Message, tt.wantMsg)
			}
			svc.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestListAnalyses(t *testing.T) {
	svc := new(serviceMocks.MockAnalysisService)
	app := newApp()
	app.Get("/analyses", ListAnalyses(svc))
	svc.On("List", mock.Anything, testUser, 5, 10).
		Return(&service.ListResult[model.Analysis]{Items: []model.Analysis{{ID: "a-1"}}, Total: 11, Limit: 5, Offset: 10}, nil).Once()

	resp, _ := app.Test(jsonRequest(http.MethodGet, "/analyses?limit=5&offset=10", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var res service.ListResult[model.Analysis]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, 11, res.Total)
	assert.Len(t, res.Items, 1)
}

func TestGetAndDeleteAnalysis(t *testing.T) {
	svc := new(serviceMocks.MockAnalysisService)
	app := newApp()
	app.Get("/analyses/:id", GetAnalysis(svc))
	app.Delete("/analyses/:id", DeleteAnalysis(svc))

	id := uuid.New().String()
	other := uuid.New().String()
	svc.On("Get", mock.Anything, testUser, id).Return(&model.Analysis{ID: id}, nil).Once()
	svc.On("Get", mock.Anything, testUser, other).Return(nil, service.ErrNotFound).Once()
	svc.On("Delete", mock.Anything, testUser, id).Return(nil).Once()

	resp, _ := app.Test(jsonRequest(http.MethodGet, "/analyses/"+id, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = app.Test(jsonRequest(http.MethodGet, "/analyses/"+other, nil))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = app.Test(jsonRequest(http.MethodGet, "/analyses/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = app.Test(jsonRequest(http.MethodDelete, "/analyses/"+id, nil))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	svc.AssertExpectations(t)
}
