package handler // self-service account endpoints

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soragemix/soragemix/internal/repository"
	"github.com/soragemix/soragemix/internal/utils"
)

// UpdateMe handles PUT /v1/me: the authenticated user edits their own
// name and email.
func (h *AuthHandler) UpdateMe(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, "unauthorized")
	}
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	var fieldErrs []string
	if req.Name == "" {
		fieldErrs = append(fieldErrs, "name is required")
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		fieldErrs = append(fieldErrs, "a valid email is required")
	}
	if len(fieldErrs) > 0 {
		return respondValidation(c, "validation failed", fieldErrs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, uid, req.Name, req.Email); err != nil {
		switch err {
		case repository.ErrUserNotFound:
			return respondErr(c, http.StatusUnauthorized, "unauthorized")
		case repository.ErrEmailExists:
			return respondErr(c, http.StatusConflict, "email already exists")
		default:
			return respondErr(c, http.StatusInternalServerError, "update failed")
		}
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "update failed")
	}
	return respondOK(c, http.StatusOK, "profile updated", userPart{
		ID: u.ID, Name: u.Name, Email: u.Email, Role: u.RoleName, Quota: u.QuotaRemaining,
	})
}

// ChangePassword handles POST /v1/change-password. The current password
// must verify before the new one is stored, and every refresh session is
// revoked so stolen tokens die with the old password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, "unauthorized")
	}
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid body")
	}
	if req.CurrentPassword == "" {
		return respondErr(c, http.StatusBadRequest, "current_password required")
	}
	if len(req.NewPassword) < 8 {
		return respondErr(c, http.StatusBadRequest, "new password must be at least 8 characters")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return respondErr(c, http.StatusUnauthorized, "unauthorized")
		}
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return respondErr(c, http.StatusUnauthorized, "current password is incorrect")
	}
	if err := h.Users.UpdatePassword(ctx, uid, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		return respondErr(c, http.StatusInternalServerError, "update failed")
	}
	_ = h.Tokens.RevokeAllForUser(ctx, uid) // best effort; access tokens expire on their own
	return respondOK(c, http.StatusOK, "password changed", nil)
}

// DeleteMe handles DELETE /v1/me: the authenticated user removes their
// own account. Images and refresh tokens cascade in the DB.
func (h *AuthHandler) DeleteMe(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.Delete(ctx, uid); err != nil {
		if err == repository.ErrUserNotFound {
			return respondErr(c, http.StatusUnauthorized, "unauthorized")
		}
		return respondErr(c, http.StatusInternalServerError, "delete failed")
	}
	return respondOK(c, http.StatusOK, "account deleted", nil)
}
