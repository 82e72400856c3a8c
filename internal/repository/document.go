package repository

import (
	"context"

	"marketapi/internal/model"
)

// DocumentRepository defines data access for documents using SQL queries only.
// Every read and delete is scoped to the owning user.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document owned by userID. Missing rows yield sql.ErrNoRows.
	FindByID(ctx context.Context, userID, id string) (*model.Document, error)

	// List returns a page of the user's documents and their total count.
	List(ctx context.Context, userID string, pq PageQuery) (*PageResult[model.Document], error)

	// Count returns how many documents the user owns.
	Count(ctx context.Context, userID string) (int, error)

	// Delete removes a document. It returns sql.ErrNoRows when nothing matched.
	Delete(ctx context.Context, userID, id string) error
}
