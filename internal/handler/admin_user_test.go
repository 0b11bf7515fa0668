package handler

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soragemix/soragemix/internal/config"
	"github.com/soragemix/soragemix/internal/repository"
)

func newAdminUserFixture(t *testing.T) (*AdminUserHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	h := NewAdminUserHandler(
		config.Config{BcryptCost: 4},
		repository.NewUserRepo(db),
		repository.NewRoleRepo(db),
	)
	return h, mock
}

// deleteContext builds an authenticated DELETE /v1/admin/users/:id
// context for the given actor and target ids.
func deleteContext(actorID uint64, targetID string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/v1/admin/users/"+targetID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(targetID)
	c.Set("user_id", actorID)
	return c, rec
}

func TestAdminDeleteOwnAccountRejected(t *testing.T) {
	h, mock := newAdminUserFixture(t)

	c, rec := deleteContext(7, "7")
	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "you cannot delete your own account", body["message"])
	// the guard trips before any query runs
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminDeleteOtherUserProceeds(t *testing.T) {
	h, mock := newAdminUserFixture(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id=?")).
		WithArgs(uint64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := deleteContext(7, "12")
	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
