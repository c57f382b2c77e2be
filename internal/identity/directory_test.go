package identity

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mentorship-backend/internal/model"
)

func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestGormDirectory(t *testing.T) {
	gormDB, mock := newTestDB(t)
	dir := NewGormDirectory(gormDB, time.Minute)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE id = \$1`).
		WithArgs("expert-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "email"}).
			AddRow("expert-1", "expert", "expert@example.com"))

	role, err := dir.GetRole(ctx, "expert-1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleExpert, role)

	email, err := dir.GetEmail(ctx, "expert-1")
	require.NoError(t, err)
	assert.Equal(t, "expert@example.com", email, "second lookup is served from the cache")

	mock.ExpectQuery(`SELECT \* FROM "profiles" WHERE id = \$1`).
		WithArgs("ghost", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "email"}))

	_, err = dir.GetRole(ctx, "ghost")
	assert.ErrorIs(t, err, ErrUnknownUser)

	assert.NoError(t, mock.ExpectationsWereMet())
}
