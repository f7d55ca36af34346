package handler // handler defines http handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/worktime-ledger/internal/middleware"
)

// requestTimeout bounds the storage work of one request.
const requestTimeout = 5 * time.Second

func requestCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// ownerID returns the authenticated user or writes a 401.  ok is false
// when the response has already been written.
func ownerID(c echo.Context) (string, bool, error) {
	uid := middleware.UserID(c)
	if uid == "" {
		return "", false, c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return uid, true, nil
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

func internalError(c echo.Context, msg string) error {
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": msg})
}
