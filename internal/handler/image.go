package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soragemix/soragemix/internal/middleware"
	"github.com/soragemix/soragemix/internal/model"
	"github.com/soragemix/soragemix/internal/nano"
	"github.com/soragemix/soragemix/internal/repository"
	"github.com/soragemix/soragemix/internal/service"
	"github.com/soragemix/soragemix/internal/storage"
)

// ImageHandler serves generation and the image library: list, search,
// download and delete.
type ImageHandler struct {
	Gen    *service.GenerationService
	Images *repository.ImageRepo
	Store  *storage.LocalStore
}

func NewImageHandler(gen *service.GenerationService, images *repository.ImageRepo, store *storage.LocalStore) *ImageHandler {
	return &ImageHandler{Gen: gen, Images: images, Store: store}
}

type imageView struct {
	ID        uint64    `json:"id"`
	UserID    uint64    `json:"user_id"`
	OwnerName string    `json:"owner_name,omitempty"`
	ImageURL  string    `json:"image_url"`
	Prompt    string    `json:"prompt"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}

func toImageView(img model.Image) imageView {
	return imageView{
		ID:        img.ID,
		UserID:    img.UserID,
		OwnerName: img.OwnerName,
		ImageURL:  img.ImageURL,
		Prompt:    img.Prompt,
		FileSize:  img.FileSize,
		CreatedAt: img.CreatedAt,
	}
}

func toImageViews(items []model.Image) []imageView {
	out := make([]imageView, 0, len(items))
	for _, img := range items {
		out = append(out, toImageView(img))
	}
	return out
}

// generateReq is the JSON body of a text-mode generation. Image modes
// arrive as multipart and are parsed field by field.
type generateReq struct {
	GenerationMode  string            `json:"generation_mode"`
	CustomPrompt    string            `json:"custom_prompt"`
	ToolIDs         []uint64          `json:"tool_ids"`
	SelectedOptions map[string]string `json:"selected_options"`
}

// Generate handles POST /v1/images/generate.
func (h *ImageHandler) Generate(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, "unauthorized")
	}

	req, err := parseGenerateRequest(c)
	if err != nil {
		return respondErr(c, http.StatusBadRequest, err.Error())
	}
	req.UserID = uid
	if imgs, ok := c.Get(middleware.UploadedImagesKey).([]nano.InputImage); ok {
		req.Inputs = imgs
	}

	res, err := h.Gen.Generate(c.Request().Context(), *req)
	if err != nil {
		return respondGenerateError(c, err)
	}
	return respondOK(c, http.StatusCreated, "image generated", echo.Map{
		"image":           toImageView(res.Image),
		"quota_remaining": res.QuotaRemaining,
		"model_text":      res.ModelText,
	})
}

// parseGenerateRequest accepts both JSON bodies (text mode) and
// multipart forms (edit modes with uploads).
func parseGenerateRequest(c echo.Context) (*service.GenerateRequest, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		req := &service.GenerateRequest{
			Mode:         strings.TrimSpace(c.FormValue("generation_mode")),
			CustomPrompt: c.FormValue("custom_prompt"),
		}
		if raw := strings.TrimSpace(c.FormValue("tool_ids")); raw != "" {
			for _, part := range strings.Split(raw, ",") {
				id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
				if err != nil {
					return nil, errors.New("tool_ids must be a comma-separated list of ids")
				}
				req.ToolIDs = append(req.ToolIDs, id)
			}
		}
		if raw := strings.TrimSpace(c.FormValue("selected_options")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Selected); err != nil {
				return nil, errors.New("selected_options must be a JSON object")
			}
		}
		return req, nil
	}

	var body generateReq
	if err := c.Bind(&body); err != nil {
		return nil, errors.New("invalid body")
	}
	return &service.GenerateRequest{
		Mode:         strings.TrimSpace(body.GenerationMode),
		CustomPrompt: body.CustomPrompt,
		ToolIDs:      body.ToolIDs,
		Selected:     body.SelectedOptions,
	}, nil
}

// respondGenerateError maps pipeline errors to HTTP statuses.
func respondGenerateError(c echo.Context, err error) error {
	var upstream *nano.UpstreamError
	switch {
	case errors.Is(err, service.ErrInvalidMode),
		errors.Is(err, service.ErrMissingInputs),
		errors.Is(err, service.ErrTooManyInputs),
		errors.Is(err, service.ErrNoTools):
		return respondErr(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrQuotaExhausted):
		return respondErr(c, http.StatusForbidden, "generation quota exhausted")
	case errors.Is(err, service.ErrToolNotAllowed):
		return respondErr(c, http.StatusForbidden, "tool is not available for this role")
	case errors.Is(err, repository.ErrToolNotFound):
		return respondErr(c, http.StatusNotFound, "tool not found")
	case errors.Is(err, service.ErrAPIKeyMissing):
		return respondErr(c, http.StatusServiceUnavailable, "image API key is not configured")
	case errors.As(err, &upstream):
		return respondErr(c, http.StatusBadGateway, "image generation failed")
	default:
		return respondErr(c, http.StatusInternalServerError, "generation failed")
	}
}

// List handles GET /v1/images with page/limit pagination, newest first.
func (h *ImageHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, "unauthorized")
	}
	limit, offset, page := parsePagination(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, total, err := h.Images.ListByUser(ctx, uid, limit, offset)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	return respondOK(c, http.StatusOK, "images", echo.Map{
		"items":      toImageViews(items),
		"pagination": newPageMeta(page, limit, total),
	})
}

// Search handles GET /v1/images/search?q=. Regular users search their
// own images; admins search across all users.
func (h *ImageHandler) Search(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, "unauthorized")
	}
	term := strings.TrimSpace(c.QueryParam("q"))
	if term == "" {
		return respondErr(c, http.StatusBadRequest, "q is required")
	}
	limit, offset, page := parsePagination(c)

	var scope *uint64
	if !isAdminRole(c) {
		scope = &uid
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, total, err := h.Images.SearchByPrompt(ctx, scope, term, limit, offset)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	return respondOK(c, http.StatusOK, "search results", echo.Map{
		"items":      toImageViews(items),
		"pagination": newPageMeta(page, limit, total),
	})
}

// Get handles GET /v1/images/:id. Owners and admins only.
func (h *ImageHandler) Get(c echo.Context) error {
	img, ok := h.loadAuthorized(c)
	if !ok {
		return nil // loadAuthorized already responded
	}
	return respondOK(c, http.StatusOK, "image", toImageView(*img))
}

// Download handles GET /v1/images/:id/download and streams the file
// with a friendly name.
func (h *ImageHandler) Download(c echo.Context) error {
	img, ok := h.loadAuthorized(c)
	if !ok {
		return nil
	}
	path, err := h.Store.Open(img.ImageURL)
	if err != nil {
		return respondErr(c, http.StatusNotFound, "stored file is missing")
	}
	name := fmt.Sprintf("soragemix-%d-%d%s", img.ID, img.CreatedAt.Unix(), filepath.Ext(path))
	return c.Attachment(path, name)
}

// Delete handles DELETE /v1/images/:id. The DB row goes first; file
// removal is best-effort afterwards.
func (h *ImageHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, "unauthorized")
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid id")
	}

	var owner *uint64
	if !isAdminRole(c) {
		owner = &uid
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	img, err := h.Images.Delete(ctx, id, owner)
	if err != nil {
		switch err {
		case repository.ErrImageNotFound:
			return respondErr(c, http.StatusNotFound, "image not found")
		case repository.ErrForbidden:
			return respondErr(c, http.StatusForbidden, "forbidden")
		default:
			return respondErr(c, http.StatusInternalServerError, "delete failed")
		}
	}
	_ = h.Store.Remove(img.ImageURL)
	return respondOK(c, http.StatusOK, "image deleted", nil)
}

// Stats handles GET /v1/images/stats for the authenticated user.
func (h *ImageHandler) Stats(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, "unauthorized")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Images.StatsForUser(ctx, uid)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "query failed")
	}
	return respondOK(c, http.StatusOK, "image stats", echo.Map{
		"total_images": s.TotalImages,
		"total_bytes":  s.TotalBytes,
	})
}

// loadAuthorized fetches an image and enforces owner-or-admin access.
// On failure it writes the error response itself and returns ok=false.
func (h *ImageHandler) loadAuthorized(c echo.Context) (*model.Image, bool) {
	uid, err := getUserID(c)
	if err != nil {
		_ = respondErr(c, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		_ = respondErr(c, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	img, err := h.Images.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrImageNotFound {
			_ = respondErr(c, http.StatusNotFound, "image not found")
		} else {
			_ = respondErr(c, http.StatusInternalServerError, "query failed")
		}
		return nil, false
	}
	if img.UserID != uid && !isAdminRole(c) {
		_ = respondErr(c, http.StatusForbidden, "forbidden")
		return nil, false
	}
	return img, true
}
