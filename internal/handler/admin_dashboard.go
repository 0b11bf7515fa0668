package handler // admin dashboard aggregates

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soragemix/soragemix/internal/repository"
)

// AdminDashboardHandler serves GET /v1/admin/dashboard: one payload with
// user, tool and image aggregates plus the latest generations.
type AdminDashboardHandler struct {
	Users  *repository.UserRepo
	Tools  *repository.ToolRepo
	Images *repository.ImageRepo
}

func NewAdminDashboardHandler(users *repository.UserRepo, tools *repository.ToolRepo, images *repository.ImageRepo) *AdminDashboardHandler {
	return &AdminDashboardHandler{Users: users, Tools: tools, Images: images}
}

func (h *AdminDashboardHandler) Dashboard(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userStats, err := h.Users.Stats(ctx)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	toolStats, err := h.Tools.Stats(ctx)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	imageStats, err := h.Images.Stats(ctx)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	recent, err := h.Images.Recent(ctx, 10)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}

	return respondOK(c, http.StatusOK, "dashboard", echo.Map{
		"users": echo.Map{
			"total":      userStats.TotalUsers,
			"admins":     userStats.AdminUsers,
			"zero_quota": userStats.ZeroQuotaUsers,
		},
		"tools": echo.Map{
			"total":    toolStats.TotalTools,
			"active":   toolStats.ActiveTools,
			"inactive": toolStats.InactiveTools,
		},
		"images": echo.Map{
			"total":       imageStats.TotalImages,
			"total_bytes": imageStats.TotalBytes,
		},
		"recent_images": toImageViews(recent),
	})
}

// ListImages handles GET /v1/admin/images: a paginated view over every
// user's generations, owner names included.
func (h *AdminDashboardHandler) ListImages(c echo.Context) error {
	limit, offset, page := parsePagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, total, err := h.Images.ListAll(ctx, limit, offset)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	return respondOK(c, http.StatusOK, "images", echo.Map{
		"items":      toImageViews(items),
		"pagination": newPageMeta(page, limit, total),
	})
}
