package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/soragemix/soragemix/internal/model"
	"github.com/soragemix/soragemix/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var (
	ErrEmailExists  = errors.New("email already exists")
	ErrUserNotFound = errors.New("user not found")
)

const userColumns = `u.id, u.name, u.email, u.password_hash, u.role_id, r.name,
	u.quota_remaining, u.created_at, u.updated_at`

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.RoleID, &u.RoleName,
		&u.QuotaRemaining, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrUserNotFound
	}
	return u, err
}

// Create inserts a user with a hashed password and returns its ID.
// Email is normalized to lowercase before storage.
func (r *UserRepo) Create(ctx context.Context, name, email, password string, roleID uint64, quota, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role_id, quota_remaining) VALUES (?,?,?,?,?)",
		strings.TrimSpace(name), email, hash, roleID, quota)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email, role name joined in.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users u JOIN roles r ON r.id = u.role_id WHERE u.email=? LIMIT 1",
		email))
}

// GetByID fetches a user by id, role name joined in.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users u JOIN roles r ON r.id = u.role_id WHERE u.id=? LIMIT 1",
		id))
}

// List returns all users ordered by id, role names joined in.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users u JOIN roles r ON r.id = u.role_id ORDER BY u.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.RoleID, &u.RoleName,
			&u.QuotaRemaining, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateProfile changes name and email. Returns ErrEmailExists on a
// duplicate email and ErrUserNotFound when no row matched.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, name, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, email=? WHERE id=?",
		strings.TrimSpace(name), email, id)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateRole reassigns the user's role.
func (r *UserRepo) UpdateRole(ctx context.Context, id, roleID uint64) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role_id=? WHERE id=?", roleID, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateQuota sets quota_remaining to an absolute value. Negative input
// is rejected so the invariant quota >= 0 holds everywhere.
func (r *UserRepo) UpdateQuota(ctx context.Context, id uint64, quota int) error {
	if quota < 0 {
		return ErrConflict
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET quota_remaining=? WHERE id=?", quota, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdatePassword replaces the stored hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET password_hash=? WHERE id=?", hash, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user; images and refresh tokens cascade in the DB.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// QuotaRemaining reads the current counter without the role join.
func (r *UserRepo) QuotaRemaining(ctx context.Context, id uint64) (int, error) {
	var q int
	err := r.DB.QueryRowContext(ctx,
		"SELECT quota_remaining FROM users WHERE id=? LIMIT 1", id).Scan(&q)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUserNotFound
	}
	return q, err
}

// DecrementQuotaTx spends one generation credit inside the caller's
// transaction. The WHERE clause makes the decrement conditional, so two
// concurrent generations cannot drive the counter below zero; zero rows
// affected means the quota was already spent.
func (r *UserRepo) DecrementQuotaTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE users SET quota_remaining = quota_remaining - 1 WHERE id=? AND quota_remaining > 0",
		id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrQuotaExhausted
	}
	return nil
}

// UserStats aggregates counts for the admin dashboard.
type UserStats struct {
	TotalUsers     int
	AdminUsers     int
	ZeroQuotaUsers int
}

// Stats returns dashboard aggregates over the users table.
func (r *UserRepo) Stats(ctx context.Context) (UserStats, error) {
	var s UserStats
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(CASE WHEN r.name = 'admin' THEN 1 END),
		       COUNT(CASE WHEN u.quota_remaining = 0 THEN 1 END)
		FROM users u JOIN roles r ON r.id = u.role_id`).
		Scan(&s.TotalUsers, &s.AdminUsers, &s.ZeroQuotaUsers)
	return s, err
}
