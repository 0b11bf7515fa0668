package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/http" // http package defines standard HTTP status codes
	"time"

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/soragemix/soragemix/internal/model"
)

// RequireRole returns a middleware function that enforces that the
// authenticated user has one of the specified roles.  The roles
// accepted should correspond to the values stored in the JWT's "role"
// claim.  If the user's role is not in the allowed set, the request
// is aborted with a 403 Forbidden response.  It assumes a previous
// middleware has extracted the role into the context under the key
// "role".
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			v := c.Get("role")
			role, ok := v.(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "forbidden"})
			}
			return next(c)
		}
	}
}

// adminLookup is the slice of UserRepo the admin gate needs.
type adminLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// RequireAdmin gates the admin surface. Unlike RequireRole it does not
// trust the JWT's role claim: the user's current role is re-read from
// the database on every request, so demoting an admin revokes their
// capability immediately instead of when their token expires.
func RequireAdmin(users adminLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := ContextUserID(c)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "unauthorized"})
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			user, err := users.GetByID(ctx, id)
			if err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "forbidden"})
			}
			if !user.IsAdmin() {
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "admin access required"})
			}
			return next(c)
		}
	}
}
