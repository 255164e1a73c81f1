package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	return db, mock
}

func TestUserRepository_FindByIdentifier(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "username"}).
		AddRow(1, "ada@example.com", "ada")

	// The identifier is matched against both columns in one query; First
	// appends ORDER BY primary key and a parameterised LIMIT
	mock.ExpectQuery("SELECT \\* FROM `users` WHERE \\(?email = \\? OR username = \\?\\)? ORDER BY `users`\\.`id` LIMIT \\?").
		WithArgs("ada", "ada", 1).
		WillReturnRows(rows)

	user, err := repo.FindByIdentifier("ada")
	require.NoError(t, err)
	require.Equal(t, uint64(1), user.ID)
	require.Equal(t, "ada", user.Username)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByIdentifier_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `users`").
		WithArgs("nobody", "nobody", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByIdentifier("nobody")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
