package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soragemix/soragemix/internal/model"
	"github.com/soragemix/soragemix/internal/prompt"
	"github.com/soragemix/soragemix/internal/repository"
)

// ToolHandler serves the user-facing tool surface: role-scoped listing,
// option schemas and prompt preview.
type ToolHandler struct {
	Tools *repository.ToolRepo
	Users *repository.UserRepo
}

func NewToolHandler(tools *repository.ToolRepo, users *repository.UserRepo) *ToolHandler {
	return &ToolHandler{Tools: tools, Users: users}
}

// toolView is the listing shape. The base prompt and raw config stay
// server side; users only need the parsed option schema.
type toolView struct {
	ID          uint64          `json:"id"`
	Icon        string          `json:"icon"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Options     []prompt.Option `json:"options"`
	IsActive    bool            `json:"is_active"`
}

// List handles GET /v1/tools. Admins see every active tool; other roles
// see only the active tools assigned to them.
func (h *ToolHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	user, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}

	var items []model.Tool
	if user.IsAdmin() {
		items, err = h.Tools.List(ctx, true)
	} else {
		items, err = h.Tools.ListByRole(ctx, user.RoleID)
	}
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}

	views := make([]toolView, 0, len(items))
	for _, t := range items {
		cfg, err := prompt.ParseCustomConfig(t.CustomConfig)
		if err != nil {
			cfg = prompt.CustomConfig{}
		}
		views = append(views, toolView{
			ID:          t.ID,
			Icon:        t.Icon,
			Name:        t.Name,
			Description: t.Description,
			Options:     cfg.Options,
			IsActive:    t.IsActive,
		})
	}
	return respondOK(c, http.StatusOK, "tools", echo.Map{"items": views})
}

// GetConfig handles GET /v1/tools/:id/config and returns the parsed
// option schema for one tool.
func (h *ToolHandler) GetConfig(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tool, err := h.Tools.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrToolNotFound {
			return respondErr(c, http.StatusNotFound, "tool not found")
		}
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	cfg, err := prompt.ParseCustomConfig(tool.CustomConfig)
	if err != nil {
		// Stored config predates validation; expose an empty schema
		// rather than failing the tool entirely.
		cfg = prompt.CustomConfig{}
	}
	return respondOK(c, http.StatusOK, "tool config", echo.Map{
		"tool_id": tool.ID,
		"name":    tool.Name,
		"options": cfg.Options,
	})
}

// BuildPrompt handles POST /v1/tools/build-prompt: a dry-run of the
// prompt builder so the frontend can preview the final instruction.
func (h *ToolHandler) BuildPrompt(c echo.Context) error {
	var req struct {
		ToolID          uint64            `json:"tool_id"`
		SelectedOptions map[string]string `json:"selected_options"`
	}
	if err := c.Bind(&req); err != nil || req.ToolID == 0 {
		return respondErr(c, http.StatusBadRequest, "tool_id required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tool, err := h.Tools.GetByID(ctx, req.ToolID)
	if err != nil {
		if err == repository.ErrToolNotFound {
			return respondErr(c, http.StatusNotFound, "tool not found")
		}
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	cfg, err := prompt.ParseCustomConfig(tool.CustomConfig)
	if err != nil {
		cfg = prompt.CustomConfig{}
	}
	res := prompt.Build(tool.BasePrompt, cfg, req.SelectedOptions)
	out := res.Prompt
	if out == "" {
		out = prompt.DefaultPrompt
	}
	return respondOK(c, http.StatusOK, "prompt built", echo.Map{
		"prompt":         out,
		"fully_resolved": res.FullyResolved,
	})
}
