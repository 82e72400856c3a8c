package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"marketapi/internal/model"
	"marketapi/internal/repository"
)

// TicketPostgres stores support tickets.
type TicketPostgres struct {
	db *sql.DB
}

func NewTicketPostgres(db *sql.DB) *TicketPostgres {
	return &TicketPostgres{db: db}
}

var _ repository.TicketRepository = (*TicketPostgres)(nil)

const ticketColumns = `id, user_id, subject, body, status, priority, tags, created_at, updated_at`

func scanTicket(s scanner) (*model.SupportTicket, error) {
	var t model.SupportTicket
	if err := s.Scan(
		&t.ID,
		&t.UserID,
		&t.Subject,
		&t.Body,
		&t.Status,
		&t.Priority,
		pq.Array(&t.Tags),
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return &t, nil
}

func (r *TicketPostgres) Create(ctx context.Context, t *model.SupportTicket) (*model.SupportTicket, error) {
	const q = `
		INSERT INTO support_tickets (id, user_id, subject, body, status, priority, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + ticketColumns
	return scanTicket(r.db.QueryRowContext(ctx, q,
		t.ID, t.UserID, t.Subject, t.Body, t.Status, t.Priority, pq.Array(t.Tags), t.CreatedAt, t.UpdatedAt,
	))
}

func (r *TicketPostgres) List(ctx context.Context, userID string, page repository.PageQuery) (*repository.PageResult[model.SupportTicket], error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM support_tickets WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, err
	}

	const q = `SELECT ` + ticketColumns + ` FROM support_tickets
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, q, userID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.SupportTicket, 0)
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &repository.PageResult[model.SupportTicket]{Items: items, Total: total}, nil
}

func (r *TicketPostgres) UpdateStatus(ctx context.Context, id, status string) (*model.SupportTicket, error) {
	const q = `UPDATE support_tickets SET status = $1, updated_at = now() WHERE id = $2 RETURNING ` + ticketColumns
	return scanTicket(r.db.QueryRowContext(ctx, q, status, id))
}

func (r *TicketPostgres) CountOpen(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM support_tickets WHERE user_id = $1 AND status IN ('open', 'in_progress')`, userID,
	).Scan(&n)
	return n, err
}
