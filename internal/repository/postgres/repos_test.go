package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"crewplanner/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionRepository(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewPositionRepository(db)

	mock.ExpectQuery(`SELECT key, name, color, prio, rank FROM positions ORDER BY prio, name`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "name", "color", "prio", "rank"}).
			AddRow("skipper", "Skipper", "#003366", 1, "officer").
			AddRow("deckhand", "Deckhand", "#88aacc", 5, ""))
	positions, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, positions, 2)
	assert.Equal(t, domain.Position{Key: "skipper", Name: "Skipper", Color: "#003366", Priority: 1, Rank: "officer"}, *positions[0])

	mock.ExpectQuery(`FROM positions WHERE key = \$1`).WithArgs("cook").WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByKey(ctx, "cook")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mock.ExpectExec(`INSERT INTO positions`).WillReturnError(&pq.Error{Code: "23505"})
	err = repo.Create(ctx, &domain.Position{Key: "skipper", Name: "Skipper"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	mock.ExpectExec(`UPDATE positions`).WithArgs("ghost", "Ghost", "", 0, "").WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.Update(ctx, &domain.Position{Key: "ghost", Name: "Ghost"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mock.ExpectExec(`DELETE FROM positions WHERE key = \$1`).WithArgs("deckhand").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeleteByKey(ctx, "deckhand"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQualificationRepository(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewQualificationRepository(db)

	mock.ExpectQuery(`FROM qualifications ORDER BY name`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "name", "description", "expires", "grants_positions"}).
			AddRow("sks", "SKS", "Sportkuestenschifferschein", false, []byte(`{skipper}`)))
	list, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []domain.PositionKey{"skipper"}, list[0].GrantsPositions)

	mock.ExpectQuery(`FROM qualifications WHERE key = \$1`).WithArgs("none").
		WillReturnRows(sqlmock.NewRows([]string{"key", "name", "description", "expires", "grants_positions"}))
	_, err = repo.FindByKey(ctx, "none")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mock.ExpectExec(`INSERT INTO qualifications`).
		WithArgs("src", "SRC", "", true, pq.Array([]string{})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Create(ctx, &domain.Qualification{Key: "src", Name: "SRC", Expires: true}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expires := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM users WHERE email = \$1`).WithArgs("anna@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"key", "email", "first_name", "last_name", "roles", "password_hash", "salt"}).
			AddRow("u1", "anna@example.com", "Anna", "Berg", []byte(`{team_member,event_planner}`), "hash", "salt"))
	mock.ExpectQuery(`FROM user_qualifications`).WithArgs(pq.Array([]string{"u1"})).
		WillReturnRows(sqlmock.NewRows([]string{"user_key", "qualification_key", "expires_at"}).
			AddRow("u1", "src", expires).
			AddRow("u1", "sks", nil))

	u, err := NewUserRepository(db).FindByEmail(ctx, "Anna@Example.com")
	require.NoError(t, err)
	assert.Equal(t, []domain.Role{domain.RoleTeamMember, domain.RoleEventPlanner}, u.Roles)
	require.Len(t, u.Qualifications, 2)
	assert.Equal(t, expires, *u.Qualifications[0].ExpiresAt)
	assert.Nil(t, u.Qualifications[1].ExpiresAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByKey_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM users WHERE key = \$1`).WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows([]string{"key", "email", "first_name", "last_name", "roles", "password_hash", "salt"}))
	_, err = NewUserRepository(db).FindByKey(context.Background(), "nobody")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()
	err = NewUserRepository(db).Create(context.Background(), &domain.User{Key: "u9", Email: "anna@example.com"})
	require.ErrorIs(t, err, domain.ErrDuplicateEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotificationQueueRepository(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewNotificationQueueRepository(db)
	now := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	mock.ExpectExec(`INSERT INTO notification_queue`).
		WithArgs("n1", "added_to_crew", "anna@example.com", "u1", "ev1", []byte(`{"eventName":"Sommertoern"}`), now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Queue(ctx, domain.NotificationRequest{
		ID: "n1", Type: domain.NotificationAddedToCrew, To: "anna@example.com", UserKey: "u1", EventKey: "ev1",
		Props: map[string]string{"eventName": "Sommertoern"},
	}))

	mock.ExpectQuery(`FROM notification_queue\s+WHERE sent_at IS NULL AND attempts < \$1`).
		WithArgs(5, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "recipient", "user_key", "event_key", "props", "attempts", "created_at"}).
			AddRow("n1", "added_to_crew", "anna@example.com", "u1", "ev1", []byte(`{"eventName":"Sommertoern"}`), 1, now))
	batch, err := repo.NextBatch(ctx, 20, 5)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, domain.NotificationAddedToCrew, batch[0].Request.Type)
	assert.Equal(t, "Sommertoern", batch[0].Request.Props["eventName"])
	assert.Equal(t, 1, batch[0].Attempts)

	mock.ExpectExec(`UPDATE notification_queue SET attempts = attempts \+ 1`).WithArgs("n1", "smtp down").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkFailed(ctx, "n1", "smtp down"))

	mock.ExpectExec(`UPDATE notification_queue SET sent_at = \$2`).WithArgs("n1", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.MarkSent(ctx, "n1", now), domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
