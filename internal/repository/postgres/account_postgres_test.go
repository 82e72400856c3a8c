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

func TestRolePostgres(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRolePostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("get missing", func(t *testing.T) {
		mock.ExpectQuery("SELECT user_id, role, updated_at FROM user_roles").
			WithArgs("user-1").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(ctx, "user-1")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("set", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO user_roles (.+) ON CONFLICT \\(user_id\\)").
			WithArgs("user-1", model.RoleAdmin).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "role", "updated_at"}).AddRow("user-1", "admin", now))

		ur, err := repo.Set(ctx, "user-1", model.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, ur.Role)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferencePostgres(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPreferencePostgres(db)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("upsert", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO user_preferences").
			WithArgs("user-1", []byte(`{"theme":"dark"}`)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "preferences", "updated_at"}).
				AddRow("user-1", []byte(`{"theme":"dark"}`), now))

		p, err := repo.Upsert(ctx, &model.UserPreferences{UserID: "user-1", Preferences: map[string]any{"theme": "dark"}})
		require.NoError(t, err)
		assert.Equal(t, "dark", p.Preferences["theme"])
	})

	t.Run("get", func(t *testing.T) {
		mock.ExpectQuery("SELECT user_id, preferences, updated_at FROM user_preferences").
			WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "preferences", "updated_at"}).
				AddRow("user-1", []byte(`{"default_providers":["openai","gemini"]}`), now))

		p, err := repo.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, []any{"openai", "gemini"}, p.Preferences["default_providers"])
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingPostgres_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBillingPostgres(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM billing_records WHERE user_id = \$1`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM billing_records").
		WithArgs("user-1", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount_cents", "currency", "description", "status", "created_at"}).
			AddRow("bill-1", "user-1", 4900, "USD", "Pro plan", "paid", now))

	res, err := repo.List(context.Background(), "user-1", repository.PageQuery{Limit: 10})

	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, int64(4900), res.Items[0].AmountCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}
