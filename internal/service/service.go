// Package service holds the application use cases. Every user-facing operation takes
// the caller's user id and never reads or writes another user's rows.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"marketapi/internal/model"
	"marketapi/internal/provider"
	"marketapi/internal/repository"
)

var (
	ErrIDRequired   = errors.New("id is required")
	ErrNotFound     = errors.New("resource not found")
	ErrReaderNil    = errors.New("reader is nil")
	ErrInvalidInput = errors.New("invalid input")
	ErrNoProviders  = errors.New("no provider is available for this request")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// notFound maps a repository miss to ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// ListResult is the service-level DTO for paginated lists.
type ListResult[T any] struct {
	Items  []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DocumentListResult is kept for the document endpoints.
type DocumentListResult = ListResult[model.Document]

func page(limit, offset int) repository.PageQuery {
	return repository.PageQuery{Limit: limit, Offset: offset}.Normalize()
}

func listResult[T any](res *repository.PageResult[T], pq repository.PageQuery) *ListResult[T] {
	return &ListResult[T]{Items: res.Items, Total: res.Total, Limit: pq.Limit, Offset: pq.Offset}
}

// ProviderCatalog lists the providers the server knows about. *provider.Registry implements it.
type ProviderCatalog interface {
	Get(name string) (provider.Provider, error)
	ServerKey(name string) string
	Names() []string
	Configured() []string
}

// ProviderGateway performs provider calls. *provider.Gateway implements it.
type ProviderGateway interface {
	Analyze(ctx context.Context, req provider.Request) (*provider.Result, error)
	Validate(ctx context.Context, providerName, apiKey string) error
}
