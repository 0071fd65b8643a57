package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/snapscape/internal/model"
)

// Context keys written by JWTAuth.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// CurrentUserID returns the authenticated user id, or false for anonymous
// requests.
func CurrentUserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ContextUserID).(uint64)
	return id, ok && id > 0
}

// CurrentRole returns the authenticated role, or "" when anonymous.
func CurrentRole(c echo.Context) model.Role {
	r, _ := c.Get(ContextRole).(string)
	return model.Role(r)
}

// userKey is the caller's identity as used in Redis keys.
func userKey(c echo.Context) string {
	if id, ok := CurrentUserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
