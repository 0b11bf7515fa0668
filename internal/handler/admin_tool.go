package handler // admin tool management endpoints

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soragemix/soragemix/internal/model"
	"github.com/soragemix/soragemix/internal/prompt"
	"github.com/soragemix/soragemix/internal/repository"
)

// AdminToolHandler serves the /v1/admin/tools surface.
type AdminToolHandler struct {
	Tools *repository.ToolRepo
}

func NewAdminToolHandler(tools *repository.ToolRepo) *AdminToolHandler {
	return &AdminToolHandler{Tools: tools}
}

// adminToolView exposes the full tool record, base prompt included.
type adminToolView struct {
	ID           uint64          `json:"id"`
	Icon         string          `json:"icon"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	BasePrompt   string          `json:"base_prompt"`
	CustomConfig json.RawMessage `json:"custom_config,omitempty"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toAdminToolView(t model.Tool) adminToolView {
	v := adminToolView{
		ID: t.ID, Icon: t.Icon, Name: t.Name, Description: t.Description,
		BasePrompt: t.BasePrompt, IsActive: t.IsActive,
		CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
	if t.CustomConfig != nil && *t.CustomConfig != "" {
		v.CustomConfig = json.RawMessage(*t.CustomConfig)
	}
	return v
}

type adminToolReq struct {
	Icon         string          `json:"icon"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	BasePrompt   string          `json:"base_prompt"`
	CustomConfig json.RawMessage `json:"custom_config"`
	IsActive     *bool           `json:"is_active"`
}

// normalize validates the request and converts the raw option schema
// into the stored form. A missing is_active defaults to true.
func (req *adminToolReq) normalize() (*model.Tool, []string) {
	var fieldErrs []string
	req.Name = strings.TrimSpace(req.Name)
	req.BasePrompt = strings.TrimSpace(req.BasePrompt)
	if req.Name == "" {
		fieldErrs = append(fieldErrs, "name is required")
	}
	if req.BasePrompt == "" {
		fieldErrs = append(fieldErrs, "base_prompt is required")
	}

	var stored *string
	if len(req.CustomConfig) > 0 && string(req.CustomConfig) != "null" {
		var cfg prompt.CustomConfig
		if err := json.Unmarshal(req.CustomConfig, &cfg); err != nil {
			fieldErrs = append(fieldErrs, "custom_config must be a JSON object")
		} else if err := cfg.Validate(); err != nil {
			fieldErrs = append(fieldErrs, "custom_config: "+err.Error())
		} else {
			s := string(req.CustomConfig)
			stored = &s
		}
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return &model.Tool{
		Icon:         req.Icon,
		Name:         req.Name,
		Description:  req.Description,
		BasePrompt:   req.BasePrompt,
		CustomConfig: stored,
		IsActive:     active,
	}, nil
}

// List handles GET /v1/admin/tools and includes disabled tools.
func (h *AdminToolHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Tools.List(ctx, false)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	views := make([]adminToolView, 0, len(items))
	for _, t := range items {
		views = append(views, toAdminToolView(t))
	}
	return respondOK(c, http.StatusOK, "tools", echo.Map{"items": views})
}

// Get handles GET /v1/admin/tools/:id.
func (h *AdminToolHandler) Get(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tools.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrToolNotFound {
			return respondErr(c, http.StatusNotFound, "tool not found")
		}
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	return respondOK(c, http.StatusOK, "tool", toAdminToolView(*t))
}

// Create handles POST /v1/admin/tools. The option schema is validated
// before anything is stored so a tool can never serve a broken config.
func (h *AdminToolHandler) Create(c echo.Context) error {
	var req adminToolReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid body")
	}
	tool, fieldErrs := req.normalize()
	if fieldErrs != nil {
		return respondValidation(c, "validation failed", fieldErrs)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tools.Create(ctx, tool); err != nil {
		if err == repository.ErrConflict {
			return respondErr(c, http.StatusConflict, "tool name already exists")
		}
		return respondErr(c, http.StatusInternalServerError, "create tool failed")
	}
	return respondOK(c, http.StatusCreated, "tool created", toAdminToolView(*tool))
}

// Update handles PUT /v1/admin/tools/:id and replaces every editable
// field, the option schema included.
func (h *AdminToolHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	var req adminToolReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid body")
	}
	tool, fieldErrs := req.normalize()
	if fieldErrs != nil {
		return respondValidation(c, "validation failed", fieldErrs)
	}
	tool.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tools.Update(ctx, tool); err != nil {
		if err == repository.ErrToolNotFound {
			return respondErr(c, http.StatusNotFound, "tool not found")
		}
		return respondErr(c, http.StatusInternalServerError, "update failed")
	}
	t, err := h.Tools.GetByID(ctx, id)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "update failed")
	}
	return respondOK(c, http.StatusOK, "tool updated", toAdminToolView(*t))
}

// Toggle handles PUT /v1/admin/tools/:id/toggle and flips is_active.
func (h *AdminToolHandler) Toggle(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	active, err := h.Tools.ToggleActive(ctx, id)
	if err != nil {
		if err == repository.ErrToolNotFound {
			return respondErr(c, http.StatusNotFound, "tool not found")
		}
		return respondErr(c, http.StatusInternalServerError, "toggle failed")
	}
	return respondOK(c, http.StatusOK, "tool toggled", echo.Map{"id": id, "is_active": active})
}

// Delete handles DELETE /v1/admin/tools/:id.
func (h *AdminToolHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tools.Delete(ctx, id); err != nil {
		if err == repository.ErrToolNotFound {
			return respondErr(c, http.StatusNotFound, "tool not found")
		}
		return respondErr(c, http.StatusInternalServerError, "delete failed")
	}
	return respondOK(c, http.StatusOK, "tool deleted", nil)
}
