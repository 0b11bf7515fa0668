package handler // admin role management endpoints

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soragemix/soragemix/internal/model"
	"github.com/soragemix/soragemix/internal/prompt"
	"github.com/soragemix/soragemix/internal/repository"
)

// AdminRoleHandler serves the /v1/admin/roles surface, including the
// role-to-tool assignment.
type AdminRoleHandler struct {
	Roles *repository.RoleRepo
}

func NewAdminRoleHandler(roles *repository.RoleRepo) *AdminRoleHandler {
	return &AdminRoleHandler{Roles: roles}
}

type roleView struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UserCount   int       `json:"user_count"`
	Reserved    bool      `json:"reserved"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toRoleView(r model.Role) roleView {
	return roleView{
		ID: r.ID, Name: r.Name, Description: r.Description,
		UserCount: r.UserCount, Reserved: r.Reserved(),
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// List handles GET /v1/admin/roles.
func (h *AdminRoleHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	roles, err := h.Roles.List(ctx)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	views := make([]roleView, 0, len(roles))
	for _, r := range roles {
		views = append(views, toRoleView(r))
	}
	return respondOK(c, http.StatusOK, "roles", echo.Map{"items": views})
}

// Get handles GET /v1/admin/roles/:id and includes the role's assigned
// tools so the edit screen loads in one round trip.
func (h *AdminRoleHandler) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role, err := h.Roles.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrRoleNotFound {
			return respondErr(c, http.StatusNotFound, "role not found")
		}
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	tools, err := h.Roles.Tools(ctx, id)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	views := make([]toolView, 0, len(tools))
	for _, t := range tools {
		cfg, err := prompt.ParseCustomConfig(t.CustomConfig)
		if err != nil {
			cfg = prompt.CustomConfig{}
		}
		views = append(views, toolView{
			ID: t.ID, Icon: t.Icon, Name: t.Name, Description: t.Description,
			Options: cfg.Options, IsActive: t.IsActive,
		})
	}
	return respondOK(c, http.StatusOK, "role", echo.Map{
		"role":  toRoleView(*role),
		"tools": views,
	})
}

// Create handles POST /v1/admin/roles.
func (h *AdminRoleHandler) Create(c echo.Context) error {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return respondErr(c, http.StatusBadRequest, "name required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	role := model.Role{Name: req.Name, Description: req.Description}
	if err := h.Roles.Create(ctx, &role); err != nil {
		if err == repository.ErrConflict {
			return respondErr(c, http.StatusConflict, "role name already exists")
		}
		return respondErr(c, http.StatusInternalServerError, "create role failed")
	}
	return respondOK(c, http.StatusCreated, "role created", toRoleView(role))
}

// Update handles PUT /v1/admin/roles/:id. The seeded admin and user
// roles keep their names.
func (h *AdminRoleHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return respondErr(c, http.StatusBadRequest, "name required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Roles.Update(ctx, id, req.Name, req.Description); err != nil {
		switch err {
		case repository.ErrRoleNotFound:
			return respondErr(c, http.StatusNotFound, "role not found")
		case repository.ErrReservedRole:
			return respondErr(c, http.StatusConflict, "system roles cannot be renamed")
		case repository.ErrConflict:
			return respondErr(c, http.StatusConflict, "role name already exists")
		default:
			return respondErr(c, http.StatusInternalServerError, "update failed")
		}
	}
	return respondOK(c, http.StatusOK, "role updated", nil)
}

// Delete handles DELETE /v1/admin/roles/:id.
func (h *AdminRoleHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Roles.Delete(ctx, id); err != nil {
		switch err {
		case repository.ErrRoleNotFound:
			return respondErr(c, http.StatusNotFound, "role not found")
		case repository.ErrReservedRole:
			return respondErr(c, http.StatusConflict, "system roles cannot be deleted")
		case repository.ErrConflict:
			return respondErr(c, http.StatusConflict, "role still has users assigned")
		default:
			return respondErr(c, http.StatusInternalServerError, "delete failed")
		}
	}
	return respondOK(c, http.StatusOK, "role deleted", nil)
}

// AssignTools handles PUT /v1/admin/roles/:id/tools and replaces the
// role's tool set wholesale.
func (h *AdminRoleHandler) AssignTools(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	var req struct {
		ToolIDs []uint64 `json:"tool_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Roles.AssignTools(ctx, id, req.ToolIDs); err != nil {
		switch err {
		case repository.ErrRoleNotFound:
			return respondErr(c, http.StatusNotFound, "role not found")
		case repository.ErrToolNotFound:
			return respondErr(c, http.StatusBadRequest, "one or more tool ids do not exist")
		default:
			return respondErr(c, http.StatusInternalServerError, "assignment failed")
		}
	}
	return respondOK(c, http.StatusOK, "tools assigned", echo.Map{"tool_ids": req.ToolIDs})
}
