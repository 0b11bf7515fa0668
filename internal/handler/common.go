package handler // handler defines http handlers

import (
	"errors"  // errors provides sentinel values used in getUserID
	"strconv" // strconv converts strings to numeric types

	"github.com/labstack/echo/v4" // echo defines request context types
)

// Every endpoint responds with the same envelope: success, message and
// an optional data payload. The helpers below keep handlers short.

func respondOK(c echo.Context, status int, message string, data any) error {
	body := echo.Map{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(status, body)
}

func respondErr(c echo.Context, status int, message string) error {
	return c.JSON(status, echo.Map{"success": false, "message": message})
}

func respondValidation(c echo.Context, message string, fieldErrors []string) error {
	return c.JSON(400, echo.Map{"success": false, "message": message, "errors": fieldErrors})
}

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id") // set by the JWT middleware
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// isAdminRole reads the coarse role claim placed by JWTAuth. Admin
// routes do a DB re-check in middleware; this is only for shaping
// responses (e.g. admins searching across all users).
func isAdminRole(c echo.Context) bool {
	role, _ := c.Get("role").(string)
	return role == "admin"
}

// parseIDParam reads a numeric :id path parameter.
func parseIDParam(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// parsePagination reads ?page and ?limit with sane bounds and converts
// them to LIMIT/OFFSET values.
func parsePagination(c echo.Context) (limit, offset, page int) {
	page = 1
	limit = 20
	if v, err := strconv.Atoi(c.QueryParam("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}
	offset = (page - 1) * limit
	return limit, offset, page
}

// pageMeta is the pagination block attached to list responses.
type pageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func newPageMeta(page, limit, total int) pageMeta {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return pageMeta{Page: page, Limit: limit, Total: total, TotalPages: pages}
}
