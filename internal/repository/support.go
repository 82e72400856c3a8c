package repository

import (
	"context"

	"marketapi/internal/model"
)

// TicketRepository stores support tickets.
type TicketRepository interface {
	Create(ctx context.Context, t *model.SupportTicket) (*model.SupportTicket, error)
	List(ctx context.Context, userID string, pq PageQuery) (*PageResult[model.SupportTicket], error)
	// UpdateStatus changes a ticket's status regardless of owner.
	UpdateStatus(ctx context.Context, id, status string) (*model.SupportTicket, error)
	CountOpen(ctx context.Context, userID string) (int, error)
}
