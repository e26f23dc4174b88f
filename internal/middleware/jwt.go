package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dormitory-occupancy/internal/model"
	"github.com/iliyamo/dormitory-occupancy/internal/utils"
)

const actorKey = "actor"

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the caller as a model.Actor in the context. The subject
// claim must be a numeric user ID and the role claim a known role.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			id, err := strconv.ParseUint(claims.Subject, 10, 64)
			if err != nil || id == 0 || !model.ValidRole(claims.Role) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			c.Set(actorKey, model.Actor{UserID: id, Role: claims.Role})
			c.Set("user_id", claims.Subject)
			c.Set("role", claims.Role)
			return next(c)
		}
	}
}

// ActorFrom returns the authenticated caller stored by JWTAuth.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(actorKey).(model.Actor)
	return a, ok
}
