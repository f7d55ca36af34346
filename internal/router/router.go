package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"go.uber.org/zap"

	"github.com/iliyamo/worktime-ledger/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/worktime-ledger/internal/middleware" // import middleware for JWT authentication and permission checks
	"github.com/iliyamo/worktime-ledger/internal/model"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the account lifecycle routes under /v1/auth.  The
// limiter guards every route of the group; pass a passthrough to disable it.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc, jwtSecret string) {
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", a.Register)
	g.GET("/activate/:uid/:token", a.Activate)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.POST("/password-reset", a.RequestPasswordReset)
	g.POST("/password-reset/:uid/:token", a.SubmitPasswordReset)

	// Revoking every session needs an access token.
	e.POST("/v1/logout-all", a.LogoutAll, middleware.JWTAuth(jwtSecret))
}

// RegisterUser registers the authenticated per-user endpoints: account,
// shifts, workdays and the summary.
func RegisterUser(e *echo.Echo, acc *handler.AccountHandler, s *handler.ShiftHandler, w *handler.WorkDayHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	g.GET("/my-account", acc.Get)
	g.PATCH("/my-account", acc.Patch)

	g.POST("/shifts", s.Create)
	g.GET("/shifts", s.List)
	g.GET("/shifts/:id", s.Get)
	g.DELETE("/shifts/:id", s.Delete)

	g.POST("/workdays", w.Create)
	g.GET("/workdays", w.List)
	g.GET("/workdays/:id", w.Get)
	g.DELETE("/workdays/:id", w.Delete)

	g.POST("/work-calc", w.Calculate)
	g.GET("/work-calc", w.Calculate)
}

// RegisterAdmin registers the permission administration endpoints.  Callers
// need the admin tag or the staff flag.
func RegisterAdmin(e *echo.Echo, p *handler.PermissionHandler, resolver middleware.PermissionResolver, log *zap.Logger, jwtSecret string) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequirePermission(resolver, log, model.PermissionAdmin),
	)
	g.GET("/permissions", p.List)
	g.POST("/permissions", p.Create)
	g.POST("/users/:id/permissions", p.Grant)
}
