package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newImageMock(t *testing.T) (sqlmock.Sqlmock, *ImageRepo) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return mock, NewImageRepo(db)
}

func imageRows(ids ...uint64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "name", "image_url", "prompt", "file_size", "created_at", "updated_at",
	})
	now := time.Now()
	for _, id := range ids {
		rows.AddRow(id, 1, "Dana", "/uploads/generated/u1-x.png", "a teal tint", 1024, now, now)
	}
	return rows
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% sure`, escapeLike("100% sure"))
	assert.Equal(t, `under\_score`, escapeLike("under_score"))
	assert.Equal(t, `back\\slash`, escapeLike(`back\slash`))
	assert.Equal(t, "plain", escapeLike("plain"))
}

func TestSearchByPromptScopedToUser(t *testing.T) {
	mock, repo := newImageMock(t)

	// The % in the term must be escaped, and the user filter applied.
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM images WHERE prompt LIKE \? AND user_id = \?`).
		WithArgs(`%100\% sure%`, uint64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT .+ FROM images i JOIN users u ON u.id = i.user_id WHERE i.prompt LIKE \? AND i.user_id = \?`).
		WithArgs(`%100\% sure%`, uint64(1), 20, 0).
		WillReturnRows(imageRows(5))

	uid := uint64(1)
	items, total, err := repo.SearchByPrompt(context.Background(), &uid, "100% sure", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, uint64(5), items[0].ID)
	assert.Equal(t, "Dana", items[0].OwnerName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchByPromptAdminWide(t *testing.T) {
	mock, repo := newImageMock(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM images WHERE prompt LIKE \?$`).
		WithArgs("%sunset%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT .+ WHERE i.prompt LIKE \? ORDER BY`).
		WithArgs("%sunset%", 20, 0).
		WillReturnRows(imageRows(3, 4))

	items, total, err := repo.SearchByPrompt(context.Background(), nil, "sunset", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteOwnerMismatch(t *testing.T) {
	mock, repo := newImageMock(t)

	mock.ExpectQuery(`SELECT .+ FROM images i JOIN users u ON u.id = i.user_id WHERE i.id = \?`).
		WithArgs(uint64(5)).
		WillReturnRows(imageRows(5)) // owned by user 1

	other := uint64(2)
	_, err := repo.Delete(context.Background(), 5, &other)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteReturnsRecordForFileCleanup(t *testing.T) {
	mock, repo := newImageMock(t)

	mock.ExpectQuery(`SELECT .+ FROM images i JOIN users u ON u.id = i.user_id WHERE i.id = \?`).
		WithArgs(uint64(5)).
		WillReturnRows(imageRows(5))
	mock.ExpectExec(`DELETE FROM images WHERE id = \?`).
		WithArgs(uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	owner := uint64(1)
	img, err := repo.Delete(context.Background(), 5, &owner)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/generated/u1-x.png", img.ImageURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingImage(t *testing.T) {
	mock, repo := newImageMock(t)

	mock.ExpectQuery(`SELECT .+ FROM images i JOIN users u ON u.id = i.user_id WHERE i.id = \?`).
		WithArgs(uint64(9)).
		WillReturnRows(imageRows())

	_, err := repo.Delete(context.Background(), 9, nil)
	assert.ErrorIs(t, err, ErrImageNotFound)
}
