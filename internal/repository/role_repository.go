package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/soragemix/soragemix/internal/model"
)

// ErrRoleNotFound is returned when a role cannot be found in the DB.
var ErrRoleNotFound = errors.New("role not found")

// ErrReservedRole is returned on attempts to delete or rename the seeded
// admin/user roles.
var ErrReservedRole = errors.New("system role cannot be modified")

// RoleRepo encapsulates all database queries related to roles and the
// role_tools assignment table.
type RoleRepo struct {
	db *sql.DB
}

func NewRoleRepo(db *sql.DB) *RoleRepo {
	return &RoleRepo{db: db}
}

// List returns all roles ordered by id with the number of assigned users
// joined in.
func (r *RoleRepo) List(ctx context.Context) ([]model.Role, error) {
	const q = `SELECT r.id, r.name, r.description, COUNT(u.id), r.created_at, r.updated_at
	           FROM roles r
	           LEFT JOIN users u ON u.role_id = r.id
	           GROUP BY r.id, r.name, r.description, r.created_at, r.updated_at
	           ORDER BY r.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Role
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.UserCount,
			&role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// GetByID fetches a role by its ID. It returns ErrRoleNotFound if no
// row is found.
func (r *RoleRepo) GetByID(ctx context.Context, id uint64) (*model.Role, error) {
	const q = "SELECT id, name, description, created_at, updated_at FROM roles WHERE id = ?"
	var role model.Role
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&role.ID, &role.Name, &role.Description,
		&role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

// GetByName fetches a role by its lowercase name.
func (r *RoleRepo) GetByName(ctx context.Context, name string) (*model.Role, error) {
	const q = "SELECT id, name, description, created_at, updated_at FROM roles WHERE name = ?"
	var role model.Role
	if err := r.db.QueryRowContext(ctx, q, normalizeRoleName(name)).Scan(&role.ID, &role.Name,
		&role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

// Create inserts a new role. Names are stored lowercase. On success the
// role's ID and timestamps are populated by a follow-up SELECT.
func (r *RoleRepo) Create(ctx context.Context, role *model.Role) error {
	role.Name = normalizeRoleName(role.Name)
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO roles (name, description) VALUES (?, ?)", role.Name, role.Description)
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
	role.ID = uint64(id)

	const qSelect = "SELECT created_at, updated_at FROM roles WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, role.ID).Scan(&role.CreatedAt, &role.UpdatedAt)
}

// Update changes a role's name and description. Renaming a reserved
// role is rejected; renaming onto an existing name returns ErrConflict.
func (r *RoleRepo) Update(ctx context.Context, id uint64, name, description string) error {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	name = normalizeRoleName(name)
	if existing.Reserved() && name != existing.Name {
		return ErrReservedRole
	}
	_, err = r.db.ExecContext(ctx,
		"UPDATE roles SET name = ?, description = ? WHERE id = ?", name, description, id)
	if err != nil && strings.Contains(err.Error(), "1062") {
		return ErrConflict
	}
	return err
}

// Delete removes a role. The seeded admin/user roles are protected and
// a role with users still assigned cannot be removed; assignments in
// role_tools cascade in the DB.
func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
	role, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if role.Reserved() {
		return ErrReservedRole
	}
	var assigned int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE role_id = ?", id).Scan(&assigned); err != nil {
		return err
	}
	if assigned > 0 {
		return ErrConflict
	}
	_, err = r.db.ExecContext(ctx, "DELETE FROM roles WHERE id = ?", id)
	return err
}

// Tools lists the tools currently assigned to a role, active or not.
func (r *RoleRepo) Tools(ctx context.Context, roleID uint64) ([]model.Tool, error) {
	const q = `SELECT t.id, t.icon, t.name, t.description, t.base_prompt, t.custom_config,
	                  t.is_active, t.created_at, t.updated_at
	           FROM tools t
	           JOIN role_tools rt ON rt.tool_id = t.id
	           WHERE rt.role_id = ?
	           ORDER BY t.name`
	rows, err := r.db.QueryContext(ctx, q, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTools(rows)
}

// AssignTools replaces a role's tool set with the given IDs. The delete
// and bulk insert run in one transaction so concurrent readers never see
// a half-updated assignment.
func (r *RoleRepo) AssignTools(ctx context.Context, roleID uint64, toolIDs []uint64) error {
	if _, err := r.GetByID(ctx, roleID); err != nil {
		return err
	}
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
	if _, err = tx.ExecContext(ctx, "DELETE FROM role_tools WHERE role_id = ?", roleID); err != nil {
		return err
	}
	if len(toolIDs) == 0 {
		return nil
	}
	// Bulk insert with built placeholders.
	var sb strings.Builder
	sb.WriteString("INSERT INTO role_tools (role_id, tool_id) VALUES ")
	args := make([]any, 0, len(toolIDs)*2)
	for i, toolID := range toolIDs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?,?)")
		args = append(args, roleID, toolID)
	}
	if _, err = tx.ExecContext(ctx, sb.String(), args...); err != nil {
		// 1452: one of the tool IDs does not exist.
		if strings.Contains(err.Error(), "1452") {
			err = ErrToolNotFound
		}
		return err
	}
	return nil
}

func normalizeRoleName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
