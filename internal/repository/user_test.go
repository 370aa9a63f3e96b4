package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"docflow/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name          string
		userID        uint
		mockBehavior  func()
		expectedUser  *models.User
		expectedCode  string
		expectedError bool
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "name", "email", "role"}).
					AddRow(1, "Ada", "ada@example.com", "EDITOR")
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 AND "users"."deleted_at" IS NULL ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(rows)
			},
			expectedUser: &models.User{ID: 1, Name: "Ada", Email: "ada@example.com", Role: models.RoleEditor},
		},
		{
			name:   "Not Found",
			userID: 99,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 AND "users"."deleted_at" IS NULL ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(99, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			expectedCode:  models.CodeNotFound,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.expectedError {
				assert.Error(t, err)
				if tt.expectedCode != "" {
					assert.True(t, models.IsCode(err, tt.expectedCode))
				}
			} else if assert.NotNil(t, user) {
				assert.Equal(t, tt.expectedUser.Name, user.Name)
				assert.Equal(t, tt.expectedUser.Role, user.Role)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow(2, "Grace", "grace@example.com")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1 AND "users"."deleted_at" IS NULL ORDER BY "users"."id" LIMIT $2`)).
			WithArgs("grace@example.com", 1).
			WillReturnRows(rows)

		user, err := repo.GetByEmail(ctx, "grace@example.com")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, uint(2), user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	// A miss is not an error; callers distinguish "no such user" from a
	// database failure.
	t.Run("Not Found Returns Nil Nil", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1 AND "users"."deleted_at" IS NULL ORDER BY "users"."id" LIMIT $2`)).
			WithArgs("nobody@example.com", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		user, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.NoError(t, err)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("Duplicate Email", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "users"`).
			WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "uni_users_email" (SQLSTATE 23505)`))
		mock.ExpectRollback()

		err := repo.Create(ctx, &models.User{
			Name: "Dup", Email: "taken@example.com", Password: "hash",
			Role: models.RoleRequester,
		})
		assert.True(t, models.IsCode(err, models.CodeValidation))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Other DB Error Is Internal", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "users"`).
			WillReturnError(errors.New("connection reset by peer"))
		mock.ExpectRollback()

		err := repo.Create(ctx, &models.User{
			Name: "Err", Email: "err@example.com", Password: "hash",
			Role: models.RoleRequester,
		})
		assert.True(t, models.IsCode(err, models.CodeInternal))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_FirstByRole(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "name", "role"}).
			AddRow(3, "Mona", "MANAGER")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE role = $1 AND "users"."deleted_at" IS NULL ORDER BY id ASC,"users"."id" LIMIT $2`)).
			WithArgs("MANAGER", 1).
			WillReturnRows(rows)

		user, err := repo.FirstByRole(ctx, models.RoleManager)
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, uint(3), user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("None Returns Nil Nil", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE role = $1 AND "users"."deleted_at" IS NULL ORDER BY id ASC,"users"."id" LIMIT $2`)).
			WithArgs("LEGAL", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		user, err := repo.FirstByRole(ctx, models.RoleLegal)
		assert.NoError(t, err)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
