package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/worktime-ledger/internal/model"
	"github.com/iliyamo/worktime-ledger/internal/repository"
)

// PermissionHandler serves the admin permission endpoints.
type PermissionHandler struct {
	Tags  *repository.PermissionRepo
	Cache *repository.CachedPermissions
	Users *repository.UserRepo
}

func NewPermissionHandler(tags *repository.PermissionRepo, cache *repository.CachedPermissions, users *repository.UserRepo) *PermissionHandler {
	return &PermissionHandler{Tags: tags, Cache: cache, Users: users}
}

type permissionReq struct {
	Name string `json:"name"`
}

// List: GET /v1/admin/permissions
func (h *PermissionHandler) List(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	tags, err := h.Tags.List(ctx)
	if err != nil {
		return internalError(c, "list permissions failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tags, "vocabulary": model.Permissions})
}

// Create: POST /v1/admin/permissions {name}
func (h *PermissionHandler) Create(c echo.Context) error {
	var req permissionReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := model.ParsePermission(req.Name)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	t, err := h.Tags.Create(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrPermissionExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "permission already exists"})
		}
		return internalError(c, "create permission failed")
	}
	return c.JSON(http.StatusCreated, t)
}

// Grant: POST /v1/admin/users/:id/permissions {name}.  Idempotent.
func (h *PermissionHandler) Grant(c echo.Context) error {
	var req permissionReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := model.ParsePermission(req.Name)
	if err != nil {
		return badRequest(c, err.Error())
	}
	userID := c.Param("id")

	ctx, cancel := requestCtx(c)
	defer cancel()
	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return internalError(c, "load user failed")
	}
	if err := h.Cache.Grant(ctx, userID, p); err != nil {
		return internalError(c, "grant failed")
	}
	tags, err := h.Cache.TagsForUser(ctx, userID)
	if err != nil {
		return internalError(c, "load permissions failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": userID, "permissions": tags})
}
