package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soragemix/soragemix/internal/model"
)

func newRoleMock(t *testing.T) (sqlmock.Sqlmock, *RoleRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, NewRoleRepo(db)
}

func roleRow(id uint64, name string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "name", "description", "created_at", "updated_at"}).
		AddRow(id, name, "", now, now)
}

func TestRoleDeleteReservedRejected(t *testing.T) {
	mock, repo := newRoleMock(t)

	mock.ExpectQuery(`SELECT id, name, description, created_at, updated_at FROM roles WHERE id = \?`).
		WithArgs(uint64(1)).
		WillReturnRows(roleRow(1, "admin"))

	err := repo.Delete(context.Background(), 1)
	assert.ErrorIs(t, err, ErrReservedRole)
}

func TestRoleDeleteWithAssignedUsersRejected(t *testing.T) {
	mock, repo := newRoleMock(t)

	mock.ExpectQuery(`SELECT id, name, description, created_at, updated_at FROM roles WHERE id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(roleRow(3, "editor"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE role_id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	err := repo.Delete(context.Background(), 3)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRoleRenameReservedRejected(t *testing.T) {
	mock, repo := newRoleMock(t)

	mock.ExpectQuery(`SELECT id, name, description, created_at, updated_at FROM roles WHERE id = \?`).
		WithArgs(uint64(2)).
		WillReturnRows(roleRow(2, "user"))

	err := repo.Update(context.Background(), 2, "member", "renamed")
	assert.ErrorIs(t, err, ErrReservedRole)
}

func TestRoleUpdateDescriptionOfReservedAllowed(t *testing.T) {
	mock, repo := newRoleMock(t)

	mock.ExpectQuery(`SELECT id, name, description, created_at, updated_at FROM roles WHERE id = \?`).
		WithArgs(uint64(2)).
		WillReturnRows(roleRow(2, "user"))
	mock.ExpectExec(`UPDATE roles SET name = \?, description = \? WHERE id = \?`).
		WithArgs("user", "regular members", uint64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), 2, "User", "regular members")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignToolsReplacesSetInOneTransaction(t *testing.T) {
	mock, repo := newRoleMock(t)

	mock.ExpectQuery(`SELECT id, name, description, created_at, updated_at FROM roles WHERE id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(roleRow(3, "editor"))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM role_tools WHERE role_id = \?`).
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO role_tools \(role_id, tool_id\) VALUES \(\?,\?\),\(\?,\?\)`).
		WithArgs(uint64(3), uint64(10), uint64(3), uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := repo.AssignTools(context.Background(), 3, []uint64{10, 11})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignToolsEmptyClearsAssignments(t *testing.T) {
	mock, repo := newRoleMock(t)

	mock.ExpectQuery(`SELECT id, name, description, created_at, updated_at FROM roles WHERE id = \?`).
		WithArgs(uint64(3)).
		WillReturnRows(roleRow(3, "editor"))
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM role_tools WHERE role_id = \?`).
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.AssignTools(context.Background(), 3, nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoleNameNormalizedOnCreate(t *testing.T) {
	mock, repo := newRoleMock(t)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO roles \(name, description\) VALUES \(\?, \?\)`).
		WithArgs("editor", "can edit").
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectQuery(`SELECT created_at, updated_at FROM roles WHERE id = \?`).
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	role := &model.Role{Name: "  Editor ", Description: "can edit"}
	err := repo.Create(context.Background(), role)
	require.NoError(t, err)
	assert.Equal(t, "editor", role.Name)
	assert.Equal(t, uint64(4), role.ID)
}
