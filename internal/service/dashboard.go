package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"marketapi/internal/model"
	"marketapi/internal/repository"
)

// DashboardSummary is the data behind a user's landing page.
type DashboardSummary struct {
	Analyses       map[model.AnalysisStatus]int `json:"analyses"`
	TotalAnalyses  int                          `json:"total_analyses"`
	Documents      int                          `json:"documents"`
	OpenTickets    int                          `json:"open_tickets"`
	Providers      []ProviderInfo               `json:"providers"`
	RecentAnalyses []model.Analysis             `json:"recent_analyses"`
}

const recentAnalyses = 5

type DashboardService interface {
	Summary(ctx context.Context, userID string) (*DashboardSummary, error)
}

type dashboardService struct {
	analyses  repository.AnalysisRepository
	documents repository.DocumentRepository
	tickets   repository.TicketRepository
	keys      APIKeyService
}

func NewDashboardService(
	analyses repository.AnalysisRepository,
	documents repository.DocumentRepository,
	tickets repository.TicketRepository,
	keys APIKeyService,
) DashboardService {
	return &dashboardService{analyses: analyses, documents: documents, tickets: tickets, keys: keys}
}

// Summary loads every panel concurrently; the first failure cancels the rest.
func (s *dashboardService) Summary(ctx context.Context, userID string) (*DashboardSummary, error) {
	const op = "service.Dashboard.Summary"
	out := &DashboardSummary{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.analyses.CountByStatus(ctx, userID)
		if err != nil {
			return fmt.Errorf("count analyses: %w", err)
		}
		out.Analyses = counts
		for _, n := range counts {
			out.TotalAnalyses += n
		}
		return nil
	})
	g.Go(func() error {
		res, err := s.analyses.List(ctx, userID, repository.PageQuery{Limit: recentAnalyses})
		if err != nil {
			return fmt.Errorf("recent analyses: %w", err)
		}
		out.RecentAnalyses = res.Items
		return nil
	})
	g.Go(func() error {
		n, err := s.documents.Count(ctx, userID)
		if err != nil {
			return fmt.Errorf("count documents: %w", err)
		}
		out.Documents = n
		return nil
	})
	g.Go(func() error {
		n, err := s.tickets.CountOpen(ctx, userID)
		if err != nil {
			return fmt.Errorf("count tickets: %w", err)
		}
		out.OpenTickets = n
		return nil
	})
	g.Go(func() error {
		p, err := s.keys.Providers(ctx, userID)
		if err != nil {
			return err
		}
		out.Providers = p
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if out.Analyses == nil {
		out.Analyses = map[model.AnalysisStatus]int{}
	}
	if out.RecentAnalyses == nil {
		out.RecentAnalyses = []model.Analysis{}
	}
	return out, nil
}
