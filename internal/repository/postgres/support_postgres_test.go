package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketapi/internal/model"
	"marketapi/internal/repository"
)

var ticketRowColumns = []string{"id", "user_id", "subject", "body", "status", "priority", "tags", "created_at", "updated_at"}

func TestTicketPostgres_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketPostgres(db)
	now := time.Now().UTC()

	tk := &model.SupportTicket{
		ID: "t-1", UserID: "user-1", Subject: "Broken export", Body: "CSV is empty",
		Status: model.TicketOpen, Priority: "high", Tags: []string{"export"}, CreatedAt: now, UpdatedAt: now,
	}

	mock.ExpectQuery("INSERT INTO support_tickets").
		WithArgs(tk.ID, tk.UserID, tk.Subject, tk.Body, "open", "high", sqlmock.AnyArg(), now, now).
		WillReturnRows(sqlmock.NewRows(ticketRowColumns).
			AddRow("t-1", "user-1", "Broken export", "CSV is empty", "open", "high", "{export}", now, now))

	got, err := repo.Create(context.Background(), tk)

	require.NoError(t, err)
	assert.Equal(t, []string{"export"}, got.Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTicketPostgres_List_EmptyTags(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketPostgres(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM support_tickets WHERE user_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM support_tickets").
		WithArgs("user-1", 10, 0).
		WillReturnRows(sqlmock.NewRows(ticketRowColumns).
			AddRow("t-1", "user-1", "Hi", "Body", "open", "normal", "{}", now, now))

	res, err := repo.List(context.Background(), "user-1", repository.PageQuery{Limit: 10})

	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.NotNil(t, res.Items[0].Tags)
	assert.Empty(t, res.Items[0].Tags)
}

func TestTicketPostgres_UpdateStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketPostgres(db)

	mock.ExpectQuery("UPDATE support_tickets SET status").
		WithArgs("resolved", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.UpdateStatus(context.Background(), "missing", model.TicketResolved)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestTicketPostgres_CountOpen(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTicketPostgres(db)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM support_tickets WHERE user_id = \\$1 AND status IN").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := repo.CountOpen(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
