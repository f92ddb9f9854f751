package users

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/neurorecall/internal/common"
	"github.com/dmitrijs2005/neurorecall/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var userColumns = []string{"id", "username", "email", "password_hash", "age", "sex", "profile_photo", "role",
	"failed_login_attempts", "locked_until", "last_login", "reset_token", "reset_token_expiry", "created_at"}

const insertQ = `(?s)^INSERT\s+INTO\s+users\s*\(username,\s*email,\s*password_hash,\s*age,\s*sex,\s*role\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+id,\s*created_at\s*$`

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	age := 30
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(insertQ).
		WithArgs("alice", "alice@example.com", "hash", &age, nil, models.RoleUser).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("u-1", created))

	u := &models.User{UserName: "alice", Email: "alice@example.com", PasswordHash: "hash", Age: &age}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, models.RoleUser, got.Role)
	assert.Equal(t, created, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{UserName: "alice"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetters(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		where string
		arg   string
		call  func(r *PostgresRepository) (*models.User, error)
	}{
		{"by id", `id\s*=\s*\$1`, "u-1", func(r *PostgresRepository) (*models.User, error) {
			return r.GetByID(context.Background(), "u-1")
		}},
		{"by username", `username\s*=\s*\$1`, "alice", func(r *PostgresRepository) (*models.User, error) {
			return r.GetByUsername(context.Background(), "alice")
		}},
		{"by email", `email\s*=\s*lower\(\$1\)`, "Alice@Example.com", func(r *PostgresRepository) (*models.User, error) {
			return r.GetByEmail(context.Background(), "Alice@Example.com")
		}},
		{"by reset token", `reset_token\s*=\s*\$1`, "tok", func(r *PostgresRepository) (*models.User, error) {
			return r.GetByResetToken(context.Background(), "tok")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			rows := sqlmock.NewRows(userColumns).
				AddRow("u-1", "alice", "alice@example.com", "hash", int64(30), "female", nil, "admin",
					int64(2), nil, nil, "tok", nil, created)
			mock.ExpectQuery(`(?s)^SELECT\s+id,\s*username.*FROM\s+users\s+WHERE\s+` + tt.where + `$`).
				WithArgs(tt.arg).
				WillReturnRows(rows)

			got, err := tt.call(repo)
			require.NoError(t, err)
			assert.Equal(t, "u-1", got.ID)
			assert.Equal(t, "alice", got.UserName)
			require.NotNil(t, got.Age)
			assert.Equal(t, 30, *got.Age)
			require.NotNil(t, got.Sex)
			assert.Equal(t, "female", *got.Sex)
			assert.Nil(t, got.ProfilePhoto)
			assert.Equal(t, models.RoleAdmin, got.Role)
			assert.Equal(t, 2, got.FailedLoginAttempts)
			assert.Nil(t, got.LockedUntil)
			require.NotNil(t, got.ResetToken)
			assert.Equal(t, "tok", *got.ResetToken)
		})
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users\s+WHERE\s+username`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT.*FROM\s+users\s+WHERE\s+id`).
		WithArgs("u-1").
		WillReturnError(errors.New("db err"))

	_, err := repo.GetByID(context.Background(), "u-1")
	if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestRecordFailedLogin(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	lock := time.Now().Add(15 * time.Minute)
	mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET\s+failed_login_attempts\s*=\s*failed_login_attempts\s*\+\s*1.*CASE\s+WHEN.*RETURNING\s+failed_login_attempts\s*$`).
		WithArgs("u-1", 5, lock).
		WillReturnRows(sqlmock.NewRows([]string{"failed_login_attempts"}).AddRow(int64(3)))

	n, err := repo.RecordFailedLogin(context.Background(), "u-1", 5, lock)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecordFailedLogin_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^UPDATE\s+users`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.RecordFailedLogin(context.Background(), "u-1", 5, time.Now())
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestUpdates(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		query string
		args  []driver.Value
		call  func(r *PostgresRepository) error
	}{
		{"successful login", `UPDATE\s+users\s+SET\s+failed_login_attempts\s*=\s*0,\s*locked_until\s*=\s*NULL,\s*last_login\s*=\s*\$2`,
			[]driver.Value{"u-1", at}, func(r *PostgresRepository) error {
				return r.RecordSuccessfulLogin(context.Background(), "u-1", at)
			}},
		{"set reset token", `UPDATE\s+users\s+SET\s+reset_token\s*=\s*\$2,\s*reset_token_expiry\s*=\s*\$3`,
			[]driver.Value{"u-1", "tok", at}, func(r *PostgresRepository) error {
				return r.SetResetToken(context.Background(), "u-1", "tok", at)
			}},
		{"clear reset token", `UPDATE\s+users\s+SET\s+reset_token\s*=\s*NULL,\s*reset_token_expiry\s*=\s*NULL\s+WHERE`,
			[]driver.Value{"u-1"}, func(r *PostgresRepository) error {
				return r.ClearResetToken(context.Background(), "u-1")
			}},
		{"reset password", `(?s)UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$2,\s*reset_token\s*=\s*NULL.*locked_until\s*=\s*NULL`,
			[]driver.Value{"u-1", "newhash"}, func(r *PostgresRepository) error {
				return r.ResetPassword(context.Background(), "u-1", "newhash")
			}},
		{"profile photo", `UPDATE\s+users\s+SET\s+profile_photo\s*=\s*\$2`,
			[]driver.Value{"u-1", "profile_photos/x.png"}, func(r *PostgresRepository) error {
				return r.SetProfilePhoto(context.Background(), "u-1", "profile_photos/x.png")
			}},
		{"role", `UPDATE\s+users\s+SET\s+role\s*=\s*\$2`,
			[]driver.Value{"u-1", "admin"}, func(r *PostgresRepository) error {
				return r.SetRole(context.Background(), "u-1", "admin")
			}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectExec(tt.query).WithArgs(tt.args...).WillReturnResult(sqlmock.NewResult(0, 1))
			require.NoError(t, tt.call(repo))

			mock.ExpectExec(tt.query).WillReturnResult(sqlmock.NewResult(0, 0))
			assert.ErrorIs(t, tt.call(repo), common.ErrorNotFound)

			mock.ExpectExec(tt.query).WillReturnError(errors.New("db err"))
			err := tt.call(repo)
			if err == nil || !regexp.MustCompile(`db error: .*db err`).MatchString(err.Error()) {
				t.Fatalf("expected wrapped db error, got %v", err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestClearExpiredResetTokens(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec(`UPDATE\s+users\s+SET\s+reset_token\s*=\s*NULL,\s*reset_token_expiry\s*=\s*NULL\s+WHERE\s+reset_token_expiry\s*<\s*\$1`).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.ClearExpiredResetTokens(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
