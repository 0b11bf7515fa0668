package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (sqlmock.Sqlmock, *UserRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, NewUserRepo(db)
}

func TestDecrementQuotaTxSpendsOneCredit(t *testing.T) {
	mock, repo := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE users SET quota_remaining = quota_remaining - 1 WHERE id=? AND quota_remaining > 0")).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := repo.DB.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, repo.DecrementQuotaTx(context.Background(), tx, 1))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementQuotaTxExhausted(t *testing.T) {
	// Zero rows affected means the conditional update found no credit
	// left; the caller rolls the whole transaction back.
	mock, repo := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE users SET quota_remaining = quota_remaining - 1 WHERE id=? AND quota_remaining > 0")).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := repo.DB.BeginTx(context.Background(), nil)
	require.NoError(t, err)
	err = repo.DecrementQuotaTx(context.Background(), tx, 1)
	assert.ErrorIs(t, err, ErrQuotaExhausted)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateQuotaRejectsNegative(t *testing.T) {
	_, repo := newMockDB(t)
	err := repo.UpdateQuota(context.Background(), 1, -1)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUpdateQuotaUserMissing(t *testing.T) {
	mock, repo := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET quota_remaining=? WHERE id=?")).
		WithArgs(10, uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateQuota(context.Background(), 42, 10)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateDuplicateEmail(t *testing.T) {
	mock, repo := newMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT INTO users (name, email, password_hash, role_id, quota_remaining) VALUES (?,?,?,?,?)")).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry"))

	_, err := repo.Create(context.Background(), "Dana", "Dana@Example.com", "password123", 2, 5, 4)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestGetByIDNotFound(t *testing.T) {
	mock, repo := newMockDB(t)

	mock.ExpectQuery("SELECT .+ FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id=.+").
		WithArgs(uint64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
