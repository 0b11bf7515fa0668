package handler // admin runtime configuration endpoints

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soragemix/soragemix/internal/model"
	"github.com/soragemix/soragemix/internal/repository"
	"github.com/soragemix/soragemix/internal/service"
)

// AdminConfigHandler serves /v1/admin/config: generic key/value settings
// plus the dedicated API key endpoints.
type AdminConfigHandler struct {
	Config *repository.ConfigRepo
	Keys   *service.APIKeyService
}

func NewAdminConfigHandler(cfg *repository.ConfigRepo, keys *service.APIKeyService) *AdminConfigHandler {
	return &AdminConfigHandler{Config: cfg, Keys: keys}
}

// secretKeys lists config keys whose values are masked in responses.
var secretKeys = map[string]bool{
	model.ConfigKeyAPIKey: true,
}

type configView struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toConfigView(c model.SystemConfig) configView {
	v := configView{Key: c.Key, Value: c.Value, UpdatedAt: c.UpdatedAt}
	if secretKeys[c.Key] && c.Value != "" {
		v.Value = model.MaskedValue
	}
	return v
}

// List handles GET /v1/admin/config. Secret values come back masked.
func (h *AdminConfigHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Config.List(ctx)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	views := make([]configView, 0, len(items))
	for _, item := range items {
		views = append(views, toConfigView(item))
	}
	return respondOK(c, http.StatusOK, "config", echo.Map{"items": views})
}

// Set handles PUT /v1/admin/config/:key. Writes to the API key go
// through the key service so its cache is invalidated.
func (h *AdminConfigHandler) Set(c echo.Context) error {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		return respondErr(c, http.StatusBadRequest, "key required")
	}
	var req struct {
		Value string `json:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Value) == "" {
		return respondErr(c, http.StatusBadRequest, "value required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var err error
	if key == model.ConfigKeyAPIKey {
		err = h.Keys.Update(ctx, strings.TrimSpace(req.Value))
	} else {
		err = h.Config.Set(ctx, key, req.Value)
	}
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "save failed")
	}
	value := req.Value
	if secretKeys[key] {
		value = model.MaskedValue
	}
	return respondOK(c, http.StatusOK, "config saved", echo.Map{"key": key, "value": value})
}

// Delete handles DELETE /v1/admin/config/:key.
func (h *AdminConfigHandler) Delete(c echo.Context) error {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		return respondErr(c, http.StatusBadRequest, "key required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Config.Delete(ctx, key); err != nil {
		if err == repository.ErrConfigNotFound {
			return respondErr(c, http.StatusNotFound, "config key not found")
		}
		return respondErr(c, http.StatusInternalServerError, "delete failed")
	}
	if key == model.ConfigKeyAPIKey {
		h.Keys.Invalidate()
	}
	return respondOK(c, http.StatusOK, "config deleted", nil)
}

// UpdateAPIKey handles PUT /v1/admin/config/api-key, the dedicated
// endpoint the settings screen uses.
func (h *AdminConfigHandler) UpdateAPIKey(c echo.Context) error {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.APIKey) == "" {
		return respondErr(c, http.StatusBadRequest, "api_key required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Keys.Update(ctx, strings.TrimSpace(req.APIKey)); err != nil {
		return respondErr(c, http.StatusInternalServerError, "save failed")
	}
	return respondOK(c, http.StatusOK, "api key updated", echo.Map{"value": model.MaskedValue})
}

// APIKeyStatus handles GET /v1/admin/config/api-key/status and reports
// whether generation can run, without revealing the key itself.
func (h *AdminConfigHandler) APIKeyStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	return respondOK(c, http.StatusOK, "api key status", echo.Map{
		"configured": h.Keys.Configured(ctx),
	})
}
