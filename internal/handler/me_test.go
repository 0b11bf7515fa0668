package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soragemix/soragemix/internal/config"
	"github.com/soragemix/soragemix/internal/repository"
	"github.com/soragemix/soragemix/internal/utils"
)

func newAuthFixture(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	h := NewAuthHandler(
		config.Config{BcryptCost: 4, JWTSecret: "test-secret"},
		repository.NewUserRepo(db),
		repository.NewRoleRepo(db),
		repository.NewTokenRepo(db),
	)
	return h, mock
}

// jsonContext builds an authenticated echo context carrying a JSON body,
// the way requests look after the JWT middleware ran.
func jsonContext(method, target, body string, uid uint64) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uid)
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func selfUserRow(t *testing.T, id uint64, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password, 4)
	require.NoError(t, err)
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "email", "password_hash", "role_id", "name",
		"quota_remaining", "created_at", "updated_at",
	}).AddRow(id, "Dana", "dana@example.com", hash, 2, "user", 5, now, now)
}

const selectUserByID = "SELECT u.id, u.name, u.email, u.password_hash, u.role_id, r.name, u.quota_remaining, u.created_at, u.updated_at FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id=? LIMIT 1"

func TestChangePasswordWrongCurrent(t *testing.T) {
	h, mock := newAuthFixture(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectUserByID)).
		WithArgs(uint64(7)).
		WillReturnRows(selfUserRow(t, 7, "old-password"))

	c, rec := jsonContext(http.MethodPost, "/v1/change-password",
		`{"current_password":"not-the-one","new_password":"brand-new-pass"}`, 7)
	require.NoError(t, h.ChangePassword(c))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "current password is incorrect", body["message"])
	assert.NoError(t, mock.ExpectationsWereMet()) // no UPDATE was issued
}

func TestChangePasswordRotatesHashAndRevokesSessions(t *testing.T) {
	h, mock := newAuthFixture(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectUserByID)).
		WithArgs(uint64(7)).
		WillReturnRows(selfUserRow(t, 7, "old-password"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_hash=? WHERE id=?")).
		WithArgs(sqlmock.AnyArg(), uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL")).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	c, rec := jsonContext(http.MethodPost, "/v1/change-password",
		`{"current_password":"old-password","new_password":"brand-new-pass"}`, 7)
	require.NoError(t, h.ChangePassword(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChangePasswordRejectsShortNewPassword(t *testing.T) {
	h, mock := newAuthFixture(t)

	c, rec := jsonContext(http.MethodPost, "/v1/change-password",
		`{"current_password":"old-password","new_password":"short"}`, 7)
	require.NoError(t, h.ChangePassword(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMeDuplicateEmail(t *testing.T) {
	h, mock := newAuthFixture(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name=?, email=? WHERE id=?")).
		WithArgs("Dana", "taken@example.com", uint64(7)).
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry"))

	c, rec := jsonContext(http.MethodPut, "/v1/me",
		`{"name":"Dana","email":"taken@example.com"}`, 7)
	require.NoError(t, h.UpdateMe(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "email already exists", body["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateMeReturnsFreshProfile(t *testing.T) {
	h, mock := newAuthFixture(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name=?, email=? WHERE id=?")).
		WithArgs("Dana R", "dana@example.com", uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(selectUserByID)).
		WithArgs(uint64(7)).
		WillReturnRows(selfUserRow(t, 7, "old-password"))

	c, rec := jsonContext(http.MethodPut, "/v1/me",
		`{"name":"Dana R","email":"Dana@Example.com"}`, 7)
	require.NoError(t, h.UpdateMe(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMeRemovesOwnAccount(t *testing.T) {
	h, mock := newAuthFixture(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id=?")).
		WithArgs(uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := jsonContext(http.MethodDelete, "/v1/me", "", 7)
	require.NoError(t, h.DeleteMe(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "account deleted", body["message"])
	assert.NoError(t, mock.ExpectationsWereMet())
}
