package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/worktime-ledger/internal/model"
)

// PermissionResolver returns the permission tags of a user.
type PermissionResolver interface {
	TagsForUser(ctx context.Context, userID string) ([]model.Permission, error)
}

// RequirePermission returns a middleware that admits the request when the
// authenticated user holds at least one of the given tags.  Staff users
// (is_admin) are always admitted.  It must run after JWTAuth; a request
// without a user is rejected with 401, one without a matching tag with 403.
func RequirePermission(resolver PermissionResolver, log *zap.Logger, perms ...model.Permission) echo.MiddlewareFunc {
	allowed := make(map[model.Permission]bool, len(perms))
	for _, p := range perms {
		allowed[p] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := UserID(c)
			if uid == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			if IsAdmin(c) {
				return next(c)
			}
			tags, err := resolver.TagsForUser(c.Request().Context(), uid)
			if err != nil {
				log.Error("resolve permissions", zap.String("user_id", uid), zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "permission check failed"})
			}
			for _, t := range tags {
				if allowed[t] {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}
}
