package handler // admin user management endpoints

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soragemix/soragemix/internal/config"
	"github.com/soragemix/soragemix/internal/model"
	"github.com/soragemix/soragemix/internal/repository"
)

// AdminUserHandler bundles dependencies for the /v1/admin/users surface.
type AdminUserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
	Roles *repository.RoleRepo
}

func NewAdminUserHandler(cfg config.Config, users *repository.UserRepo, roles *repository.RoleRepo) *AdminUserHandler {
	return &AdminUserHandler{Cfg: cfg, Users: users, Roles: roles}
}

type adminUserView struct {
	ID             uint64    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	RoleID         uint64    `json:"role_id"`
	QuotaRemaining int       `json:"quota_remaining"`
	CreatedAt      time.Time `json:"created_at"`
}

func toAdminUserView(u model.User) adminUserView {
	return adminUserView{
		ID: u.ID, Name: u.Name, Email: u.Email, Role: u.RoleName,
		RoleID: u.RoleID, QuotaRemaining: u.QuotaRemaining, CreatedAt: u.CreatedAt,
	}
}

// List handles GET /v1/admin/users.
func (h *AdminUserHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	views := make([]adminUserView, 0, len(users))
	for _, u := range users {
		views = append(views, toAdminUserView(u))
	}
	return respondOK(c, http.StatusOK, "users", echo.Map{"items": views})
}

// Get handles GET /v1/admin/users/:id.
func (h *AdminUserHandler) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return respondErr(c, http.StatusNotFound, "user not found")
		}
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	return respondOK(c, http.StatusOK, "user", toAdminUserView(u))
}

// Create handles POST /v1/admin/users: an admin-created account with an
// explicit role and quota.
func (h *AdminUserHandler) Create(c echo.Context) error {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		RoleID   uint64 `json:"role_id"`
		Quota    *int   `json:"quota_remaining"`
	}
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Email == "" || len(req.Password) < 8 {
		return respondErr(c, http.StatusBadRequest, "name, email and a password of 8+ characters are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	roleID := req.RoleID
	if roleID == 0 {
		role, err := h.Roles.GetByName(ctx, model.RoleUser)
		if err != nil {
			return respondErr(c, http.StatusInternalServerError, "create user failed")
		}
		roleID = role.ID
	} else if _, err := h.Roles.GetByID(ctx, roleID); err != nil {
		return respondErr(c, http.StatusBadRequest, "role does not exist")
	}
	quota := h.Cfg.DefaultQuota
	if req.Quota != nil {
		if *req.Quota < 0 {
			return respondErr(c, http.StatusBadRequest, "quota cannot be negative")
		}
		quota = *req.Quota
	}

	uid, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, roleID, quota, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return respondErr(c, http.StatusConflict, "email already exists")
		}
		return respondErr(c, http.StatusInternalServerError, "create user failed")
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "create user failed")
	}
	return respondOK(c, http.StatusCreated, "user created", toAdminUserView(u))
}

// Update handles PUT /v1/admin/users/:id (name and email).
func (h *AdminUserHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return respondErr(c, http.StatusBadRequest, "name and email are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, id, req.Name, req.Email); err != nil {
		switch err {
		case repository.ErrUserNotFound:
			return respondErr(c, http.StatusNotFound, "user not found")
		case repository.ErrEmailExists:
			return respondErr(c, http.StatusConflict, "email already exists")
		default:
			return respondErr(c, http.StatusInternalServerError, "update failed")
		}
	}
	u, _ := h.Users.GetByID(ctx, id)
	return respondOK(c, http.StatusOK, "user updated", toAdminUserView(u))
}

// UpdateRole handles PUT /v1/admin/users/:id/role.
func (h *AdminUserHandler) UpdateRole(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	var req struct {
		RoleID uint64 `json:"role_id"`
	}
	if err := c.Bind(&req); err != nil || req.RoleID == 0 {
		return respondErr(c, http.StatusBadRequest, "role_id required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Roles.GetByID(ctx, req.RoleID); err != nil {
		return respondErr(c, http.StatusBadRequest, "role does not exist")
	}
	if err := h.Users.UpdateRole(ctx, id, req.RoleID); err != nil {
		if err == repository.ErrUserNotFound {
			return respondErr(c, http.StatusNotFound, "user not found")
		}
		return respondErr(c, http.StatusInternalServerError, "update failed")
	}
	return respondOK(c, http.StatusOK, "role updated", nil)
}

// UpdateQuota handles PUT /v1/admin/users/:id/quota.
func (h *AdminUserHandler) UpdateQuota(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Quota int `json:"quota_remaining"`
	}
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid body")
	}
	if req.Quota < 0 {
		return respondErr(c, http.StatusBadRequest, "quota cannot be negative")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateQuota(ctx, id, req.Quota); err != nil {
		if err == repository.ErrUserNotFound {
			return respondErr(c, http.StatusNotFound, "user not found")
		}
		return respondErr(c, http.StatusInternalServerError, "update failed")
	}
	return respondOK(c, http.StatusOK, "quota updated", nil)
}

// ResetPassword handles PUT /v1/admin/users/:id/password.
func (h *AdminUserHandler) ResetPassword(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil || len(req.Password) < 8 {
		return respondErr(c, http.StatusBadRequest, "a password of 8+ characters is required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdatePassword(ctx, id, req.Password, h.Cfg.BcryptCost); err != nil {
		if err == repository.ErrUserNotFound {
			return respondErr(c, http.StatusNotFound, "user not found")
		}
		return respondErr(c, http.StatusInternalServerError, "update failed")
	}
	return respondOK(c, http.StatusOK, "password reset", nil)
}

// Delete handles DELETE /v1/admin/users/:id. Admins cannot delete their
// own account; a system must always keep at least the acting admin.
func (h *AdminUserHandler) Delete(c echo.Context) error {
	actorID, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	if id == actorID {
		return respondErr(c, http.StatusConflict, "you cannot delete your own account")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		if err == repository.ErrUserNotFound {
			return respondErr(c, http.StatusNotFound, "user not found")
		}
		return respondErr(c, http.StatusInternalServerError, "delete failed")
	}
	return respondOK(c, http.StatusOK, "user deleted", nil)
}
