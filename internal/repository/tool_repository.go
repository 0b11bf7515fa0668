package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/soragemix/soragemix/internal/model"
)

// ErrToolNotFound is returned when a tool cannot be found in the DB.
var ErrToolNotFound = errors.New("tool not found")

const toolColumns = `id, icon, name, description, base_prompt, custom_config,
	is_active, created_at, updated_at`

// ToolRepo encapsulates all database queries related to tools.
type ToolRepo struct {
	db *sql.DB
}

func NewToolRepo(db *sql.DB) *ToolRepo {
	return &ToolRepo{db: db}
}

func collectTools(rows *sql.Rows) ([]model.Tool, error) {
	var out []model.Tool
	for rows.Next() {
		var t model.Tool
		if err := rows.Scan(&t.ID, &t.Icon, &t.Name, &t.Description, &t.BasePrompt,
			&t.CustomConfig, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// List returns all tools ordered by name. When activeOnly is set,
// disabled tools are filtered out.
func (r *ToolRepo) List(ctx context.Context, activeOnly bool) ([]model.Tool, error) {
	q := "SELECT " + toolColumns + " FROM tools"
	if activeOnly {
		q += " WHERE is_active = 1"
	}
	q += " ORDER BY name"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTools(rows)
}

// ListByRole returns the active tools assigned to a role, ordered by
// name. This is the listing regular users see.
func (r *ToolRepo) ListByRole(ctx context.Context, roleID uint64) ([]model.Tool, error) {
	const q = `SELECT t.id, t.icon, t.name, t.description, t.base_prompt, t.custom_config,
	                  t.is_active, t.created_at, t.updated_at
	           FROM tools t
	           JOIN role_tools rt ON rt.tool_id = t.id
	           WHERE rt.role_id = ? AND t.is_active = 1
	           ORDER BY t.name`
	rows, err := r.db.QueryContext(ctx, q, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTools(rows)
}

// GetByID fetches a tool by its ID. It returns ErrToolNotFound if no
// row is found.
func (r *ToolRepo) GetByID(ctx context.Context, id uint64) (*model.Tool, error) {
	const q = "SELECT " + toolColumns + " FROM tools WHERE id = ?"
	var t model.Tool
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&t.ID, &t.Icon, &t.Name, &t.Description,
		&t.BasePrompt, &t.CustomConfig, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrToolNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Create inserts a new tool. On success the ID and timestamp fields are
// populated by a follow-up SELECT.
func (r *ToolRepo) Create(ctx context.Context, t *model.Tool) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO tools (icon, name, description, base_prompt, custom_config, is_active)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.Icon, t.Name, t.Description, t.BasePrompt, t.CustomConfig, t.IsActive)
	if err != nil {
		if strings.Contains(err.Error(), "1062") {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)

	const qSelect = "SELECT created_at, updated_at FROM tools WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, t.ID).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// Update replaces all editable fields of a tool.
func (r *ToolRepo) Update(ctx context.Context, t *model.Tool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tools
		 SET icon = ?, name = ?, description = ?, base_prompt = ?, custom_config = ?, is_active = ?
		 WHERE id = ?`,
		t.Icon, t.Name, t.Description, t.BasePrompt, t.CustomConfig, t.IsActive, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrToolNotFound
	}
	return nil
}

// Delete removes a tool after clearing its role assignments.
func (r *ToolRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()
	if _, err = tx.ExecContext(ctx, "DELETE FROM role_tools WHERE tool_id = ?", id); err != nil {
		return err
	}
	var res sql.Result
	if res, err = tx.ExecContext(ctx, "DELETE FROM tools WHERE id = ?", id); err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		err = ErrToolNotFound
		return err
	}
	return nil
}

// ToggleActive flips the is_active flag and returns the new value.
func (r *ToolRepo) ToggleActive(ctx context.Context, id uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE tools SET is_active = NOT is_active WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, ErrToolNotFound
	}
	var active bool
	err = r.db.QueryRowContext(ctx, "SELECT is_active FROM tools WHERE id = ?", id).Scan(&active)
	return active, err
}

// ToolStats aggregates counts for the admin dashboard.
type ToolStats struct {
	TotalTools    int
	ActiveTools   int
	InactiveTools int
}

// Stats returns total/active/inactive counts over the tools table.
func (r *ToolRepo) Stats(ctx context.Context) (ToolStats, error) {
	var s ToolStats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(CASE WHEN is_active = 1 THEN 1 END),
		       COUNT(CASE WHEN is_active = 0 THEN 1 END)
		FROM tools`).Scan(&s.TotalTools, &s.ActiveTools, &s.InactiveTools)
	return s, err
}
