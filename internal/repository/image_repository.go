package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/soragemix/soragemix/internal/model"
)

// ErrImageNotFound is returned when an image cannot be found in the DB.
var ErrImageNotFound = errors.New("image not found")

// ImageRepo encapsulates all database queries related to generated
// images. Writes that must stay atomic with the quota decrement take an
// explicit *sql.Tx.
type ImageRepo struct {
	db *sql.DB
}

func NewImageRepo(db *sql.DB) *ImageRepo {
	return &ImageRepo{db: db}
}

const imageColumns = `i.id, i.user_id, u.name, i.image_url, i.prompt, i.file_size,
	i.created_at, i.updated_at`

func collectImages(rows *sql.Rows) ([]model.Image, error) {
	var out []model.Image
	for rows.Next() {
		var img model.Image
		if err := rows.Scan(&img.ID, &img.UserID, &img.OwnerName, &img.ImageURL, &img.Prompt,
			&img.FileSize, &img.CreatedAt, &img.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// CreateTx inserts an image row inside the caller's transaction, which
// also carries the quota decrement. The ID is populated on success.
func (r *ImageRepo) CreateTx(ctx context.Context, tx *sql.Tx, img *model.Image) error {
	res, err := tx.ExecContext(ctx,
		"INSERT INTO images (user_id, image_url, prompt, file_size) VALUES (?, ?, ?, ?)",
		img.UserID, img.ImageURL, img.Prompt, img.FileSize)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	img.ID = uint64(id)
	return nil
}

// Begin starts a transaction on the underlying pool. The generation
// service uses it to couple the image insert with the quota decrement.
func (r *ImageRepo) Begin(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

// GetByID fetches an image with its owner's name joined in.
func (r *ImageRepo) GetByID(ctx context.Context, id uint64) (*model.Image, error) {
	const q = "SELECT " + imageColumns + " FROM images i JOIN users u ON u.id = i.user_id WHERE i.id = ?"
	var img model.Image
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&img.ID, &img.UserID, &img.OwnerName,
		&img.ImageURL, &img.Prompt, &img.FileSize, &img.CreatedAt, &img.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &img, nil
}

// ListByUser returns one page of a user's images, newest first, plus the
// total row count for pagination.
func (r *ImageRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.Image, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM images WHERE user_id = ?", userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT ` + imageColumns + `
	           FROM images i JOIN users u ON u.id = i.user_id
	           WHERE i.user_id = ?
	           ORDER BY i.created_at DESC, i.id DESC
	           LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectImages(rows)
	return items, total, err
}

// ListAll returns one page over every user's images, newest first. Admin
// listings use this.
func (r *ImageRepo) ListAll(ctx context.Context, limit, offset int) ([]model.Image, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM images").Scan(&total); err != nil {
		return nil, 0, err
	}
	const q = `SELECT ` + imageColumns + `
	           FROM images i JOIN users u ON u.id = i.user_id
	           ORDER BY i.created_at DESC, i.id DESC
	           LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectImages(rows)
	return items, total, err
}

// SearchByPrompt runs a LIKE search over the stored prompts. When userID
// is non-nil the search is scoped to that user's images; admins pass nil
// to search across all users. LIKE metacharacters in the term are
// escaped so they match literally.
func (r *ImageRepo) SearchByPrompt(ctx context.Context, userID *uint64, term string, limit, offset int) ([]model.Image, int, error) {
	pattern := "%" + escapeLike(term) + "%"

	countQ := "SELECT COUNT(*) FROM images WHERE prompt LIKE ?"
	listQ := `SELECT ` + imageColumns + `
	          FROM images i JOIN users u ON u.id = i.user_id
	          WHERE i.prompt LIKE ?`
	countArgs := []any{pattern}
	listArgs := []any{pattern}
	if userID != nil {
		countQ += " AND user_id = ?"
		listQ += " AND i.user_id = ?"
		countArgs = append(countArgs, *userID)
		listArgs = append(listArgs, *userID)
	}
	listQ += " ORDER BY i.created_at DESC, i.id DESC LIMIT ? OFFSET ?"
	listArgs = append(listArgs, limit, offset)

	var total int
	if err := r.db.QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx, listQ, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := collectImages(rows)
	return items, total, err
}

// Delete removes an image row and returns the deleted record so the
// caller can unlink the stored file. When ownerID is non-nil the image
// must belong to that user; a mismatch yields ErrForbidden.
func (r *ImageRepo) Delete(ctx context.Context, id uint64, ownerID *uint64) (*model.Image, error) {
	img, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ownerID != nil && img.UserID != *ownerID {
		return nil, ErrForbidden
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM images WHERE id = ?", id); err != nil {
		return nil, err
	}
	return img, nil
}

// ImageStats aggregates image counts and storage usage.
type ImageStats struct {
	TotalImages int
	TotalBytes  int64
}

// StatsForUser aggregates over one user's images.
func (r *ImageRepo) StatsForUser(ctx context.Context, userID uint64) (ImageStats, error) {
	var s ImageStats
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(file_size), 0) FROM images WHERE user_id = ?",
		userID).Scan(&s.TotalImages, &s.TotalBytes)
	return s, err
}

// Stats aggregates over all images for the admin dashboard.
func (r *ImageRepo) Stats(ctx context.Context) (ImageStats, error) {
	var s ImageStats
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(file_size), 0) FROM images").
		Scan(&s.TotalImages, &s.TotalBytes)
	return s, err
}

// Recent returns the newest n images across all users, owner names
// joined in, for the admin dashboard.
func (r *ImageRepo) Recent(ctx context.Context, n int) ([]model.Image, error) {
	const q = `SELECT ` + imageColumns + `
	           FROM images i JOIN users u ON u.id = i.user_id
	           ORDER BY i.created_at DESC, i.id DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectImages(rows)
}

// escapeLike makes a user-supplied term safe inside a LIKE pattern by
// escaping backslash, percent and underscore.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
