package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"marketapi/internal/model"
	"marketapi/internal/repository"
)

// AnalysisPostgres is a PostgreSQL implementation of repository.AnalysisRepository.
// Competitors and providers are TEXT[] columns; results are stored as JSONB.
type AnalysisPostgres struct {
	db *sql.DB
}

// NewAnalysisPostgres creates a new AnalysisPostgres repository.
func NewAnalysisPostgres(db *sql.DB) *AnalysisPostgres {
	return &AnalysisPostgres{db: db}
}

var _ repository.AnalysisRepository = (*AnalysisPostgres)(nil)

const analysisColumns = `id, user_id, competitors, industry, focus, providers, status, results, error, created_at, updated_at`

func scanAnalysis(s scanner) (*model.Analysis, error) {
	var (
		a       model.Analysis
		status  string
		results []byte
	)
	if err := s.Scan(
		&a.ID,
		&a.UserID,
		pq.Array(&a.Competitors),
		&a.Industry,
		&a.Focus,
		pq.Array(&a.Providers),
		&status,
		&results,
		&a.Error,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Status = model.AnalysisStatus(status)
	if len(results) > 0 {
		if err := json.Unmarshal(results, &a.Results); err != nil {
			return nil, fmt.Errorf("decode analysis results: %w", err)
		}
	}
	if a.Results == nil {
		a.Results = []model.ProviderResult{}
	}
	return &a, nil
}

func encodeResults(results []model.ProviderResult) ([]byte, error) {
	if results == nil {
		results = []model.ProviderResult{}
	}
	return json.Marshal(results)
}

// Create inserts a new analysis and returns the stored row.
func (r *AnalysisPostgres) Create(ctx context.Context, a *model.Analysis) (*model.Analysis, error) {
	results, err := encodeResults(a.Results)
	if err != nil {
		return nil, err
	}
	const q = `
		INSERT INTO analyses (id, user_id, competitors, industry, focus, providers, status, results, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + analysisColumns
	row := r.db.QueryRowContext(ctx, q,
		a.ID,
		a.UserID,
		pq.Array(a.Competitors),
		a.Industry,
		a.Focus,
		pq.Array(a.Providers),
		string(a.Status),
		results,
		a.Error,
		a.CreatedAt,
		a.UpdatedAt,
	)
	return scanAnalysis(row)
}

// Update stores the mutable fields of an analysis.
func (r *AnalysisPostgres) Update(ctx context.Context, a *model.Analysis) error {
	results, err := encodeResults(a.Results)
	if err != nil {
		return err
	}
	const q = `
		UPDATE analyses
		SET status = $1, results = $2, error = $3, providers = $4, updated_at = $5
		WHERE id = $6 AND user_id = $7`
	res, err := r.db.ExecContext(ctx, q,
		string(a.Status),
		results,
		a.Error,
		pq.Array(a.Providers),
		a.UpdatedAt,
		a.ID,
		a.UserID,
	)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

// FindByID fetches one analysis owned by userID.
func (r *AnalysisPostgres) FindByID(ctx context.Context, userID, id string) (*model.Analysis, error) {
	const q = `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1 AND user_id = $2`
	return scanAnalysis(r.db.QueryRowContext(ctx, q, id, userID))
}

// List returns the user's analyses newest first.
func (r *AnalysisPostgres) List(ctx context.Context, userID string, page repository.PageQuery) (*repository.PageResult[model.Analysis], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analyses WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, err
	}

	const q = `SELECT ` + analysisColumns + ` FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, q, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.Analysis]{Items: items, Total: total}, nil
}

// CountByStatus groups the user's analyses by status.
func (r *AnalysisPostgres) CountByStatus(ctx context.Context, userID string) (map[model.AnalysisStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM analyses WHERE user_id = $1 GROUP BY status`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.AnalysisStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[model.AnalysisStatus(status)] = n
	}
	return counts, rows.Err()
}

// Delete removes an analysis owned by userID.
func (r *AnalysisPostgres) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	return expectAffected(res)
}
