package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userID returns the caller's ID for rate-limit keys, or "anon" before
// authentication has run.
func userID(c echo.Context) string {
	if a, ok := ActorFrom(c); ok {
		return strconv.FormatUint(a.UserID, 10)
	}
	return "anon"
}
