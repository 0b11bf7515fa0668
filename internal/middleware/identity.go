package middleware

// identity.go defines helper functions shared across middleware files.
// JWTAuth stores the raw JWT claims in the Echo context; the helpers here
// turn them back into usable identifiers.

import (
	"errors"
	"fmt"

	"github.com/labstack/echo/v4"
)

// ErrNoIdentity is returned when no authenticated user is on the context.
var ErrNoIdentity = errors.New("no authenticated user in context")

// ContextUserID extracts the numeric user ID set by JWTAuth. JSON
// decoding turns the sub claim into a float64, so both numeric forms are
// accepted.
func ContextUserID(c echo.Context) (uint64, error) {
	switch v := c.Get("user_id").(type) {
	case float64:
		if v < 0 {
			return 0, ErrNoIdentity
		}
		return uint64(v), nil
	case uint64:
		return v, nil
	case int64:
		if v < 0 {
			return 0, ErrNoIdentity
		}
		return uint64(v), nil
	default:
		return 0, ErrNoIdentity
	}
}

// userID returns a string form of the authenticated user for rate-limit
// and cache keys, or "guest" when the request is anonymous.
func userID(c echo.Context) string {
	if id, err := ContextUserID(c); err == nil {
		return fmt.Sprintf("%d", id)
	}
	return "guest"
}
