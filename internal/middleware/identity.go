package middleware

// identity.go defines the helpers shared across middleware and handlers for
// reading the authenticated caller out of the Echo context.  JWTAuth writes
// the values; everything else only reads them.

import "github.com/labstack/echo/v4"

const (
	ctxUserID  = "user_id"
	ctxIsAdmin = "is_admin"
)

// UserID returns the authenticated user's id, or "" for anonymous requests.
func UserID(c echo.Context) string {
	if v, ok := c.Get(ctxUserID).(string); ok {
		return v
	}
	return ""
}

// IsAdmin reports whether the access token carried the staff flag.
func IsAdmin(c echo.Context) bool {
	v, _ := c.Get(ctxIsAdmin).(bool)
	return v
}

// rateSubject identifies the caller for rate limiting: the user id when
// known, "anon" otherwise.
func rateSubject(c echo.Context) string {
	if id := UserID(c); id != "" {
		return id
	}
	return "anon"
}
