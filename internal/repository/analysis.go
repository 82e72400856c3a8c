package repository

import (
	"context"

	"marketapi/internal/model"
)

// AnalysisRepository persists analyses and their per-provider results.
type AnalysisRepository interface {
	Create(ctx context.Context, a *model.Analysis) (*model.Analysis, error)
	// Update stores status, results and error of an existing analysis.
	Update(ctx context.Context, a *model.Analysis) error
	FindByID(ctx context.Context, userID, id string) (*model.Analysis, error)
	List(ctx context.Context, userID string, pq PageQuery) (*PageResult[model.Analysis], error)
	// CountByStatus returns the user's analysis counts keyed by status.
	CountByStatus(ctx context.Context, userID string) (map[model.AnalysisStatus]int, error)
	Delete(ctx context.Context, userID, id string) error
}
