package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"marketapi/internal/events"
	"marketapi/internal/model"
	"marketapi/internal/repository"
)

var (
	ticketPriorities = []string{"low", "normal", "high", "urgent"}
	ticketStatuses   = []string{model.TicketOpen, model.TicketInProgress, model.TicketResolved, model.TicketClosed}
)

const maxTicketTags = 10

// CreateTicketInput is a new support request.
type CreateTicketInput struct {
	Subject  string
	Body     string
	Priority string
	Tags     []string
}

// SupportService handles support tickets.
type SupportService interface {
	Create(ctx context.Context, userID string, in CreateTicketInput) (*model.SupportTicket, error)
	List(ctx context.Context, userID string, limit, offset int) (*ListResult[model.SupportTicket], error)
	// UpdateStatus is an admin operation and is not scoped to the ticket owner.
	UpdateStatus(ctx context.Context, id, status string) (*model.SupportTicket, error)
}

type supportService struct {
	repo      repository.TicketRepository
	publisher events.Publisher
	log       *zap.Logger
}

func NewSupportService(repo repository.TicketRepository, publisher events.Publisher, log *zap.Logger) SupportService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &supportService{repo: repo, publisher: publisher, log: log.With(zap.String("component", "support"))}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

func (s *supportService) Create(ctx context.Context, userID string, in CreateTicketInput) (*model.SupportTicket, error) {
	const op = "service.Support.Create"

	subject := strings.TrimSpace(in.Subject)
	body := strings.TrimSpace(in.Body)
	if subject == "" || body == "" {
		return nil, invalid("subject and body are required")
	}
	priority := strings.ToLower(strings.TrimSpace(in.Priority))
	if priority == "" {
		priority = "normal"
	}
	if !slices.Contains(ticketPriorities, priority) {
		return nil, invalid("priority must be one of %s", strings.Join(ticketPriorities, ", "))
	}
	tags := cleanTags(in.Tags)
	if len(tags) > maxTicketTags {
		return nil, invalid("at most %d tags", maxTicketTags)
	}

	now := time.Now().UTC()
	t, err := s.repo.Create(ctx, &model.SupportTicket{
		ID:        uuid.New().String(),
		UserID:    userID,
		Subject:   subject,
		Body:      body,
		Status:    model.TicketOpen,
		Priority:  priority,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.publisher.Publish(ctx, events.TicketCreated, t); err != nil {
		s.log.Warn("event_publish_failed", zap.String("routing_key", events.TicketCreated), zap.Error(err))
	}
	return t, nil
}

func (s *supportService) List(ctx context.Context, userID string, limit, offset int) (*ListResult[model.SupportTicket], error) {
	pq := page(limit, offset)
	res, err := s.repo.List(ctx, userID, pq)
	if err != nil {
		return nil, fmt.Errorf("service.Support.List: %w", err)
	}
	return listResult(res, pq), nil
}

func (s *supportService) UpdateStatus(ctx context.Context, id, status string) (*model.SupportTicket, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if !slices.Contains(ticketStatuses, status) {
		return nil, invalid("status must be one of %s", strings.Join(ticketStatuses, ", "))
	}
	t, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, notFound(err)
	}
	s.log.Info("ticket_status_changed", zap.String("ticket_id", id), zap.String("status", status))
	return t, nil
}
