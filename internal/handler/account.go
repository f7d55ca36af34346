package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/worktime-ledger/internal/account"
	"github.com/iliyamo/worktime-ledger/internal/middleware"
	"github.com/iliyamo/worktime-ledger/internal/model"
	"github.com/iliyamo/worktime-ledger/internal/repository"
	"github.com/iliyamo/worktime-ledger/internal/utils"
)

// AccountHandler serves /v1/my-account.
type AccountHandler struct {
	Users      *repository.UserRepo
	Perms      middleware.PermissionResolver
	Sessions   account.SessionRevoker
	Log        *zap.Logger
	BcryptCost int
}

func NewAccountHandler(users *repository.UserRepo, perms middleware.PermissionResolver, sessions account.SessionRevoker, log *zap.Logger, cost int) *AccountHandler {
	return &AccountHandler{Users: users, Perms: perms, Sessions: sessions, Log: log, BcryptCost: cost}
}

type accountResp struct {
	ID          string             `json:"id"`
	Email       string             `json:"email"`
	IsActive    bool               `json:"is_active"`
	IsAdmin     bool               `json:"is_admin"`
	Permissions []model.Permission `json:"permissions"`
	LastLoginAt *time.Time         `json:"last_login_at"`
	CreatedAt   time.Time          `json:"created_at"`
}

type accountPatchReq struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

// Get returns the caller's account with permission tags.
func (h *AccountHandler) Get(c echo.Context) error {
	uid, ok, err := ownerID(c)
	if !ok {
		return err
	}
	return h.respond(c, uid)
}

// Patch updates email and/or password in one write.  A password change
// revokes the refresh tokens.
func (h *AccountHandler) Patch(c echo.Context) error {
	uid, ok, err := ownerID(c)
	if !ok {
		return err
	}
	var req accountPatchReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Email == nil && req.Password == nil {
		return badRequest(c, "nothing to update")
	}

	var email, hash string
	if req.Email != nil {
		if email, err = account.ValidateEmail(*req.Email); err != nil {
			return badRequest(c, err.Error())
		}
	}
	if req.Password != nil {
		if err := account.ValidatePassword(*req.Password); err != nil {
			return badRequest(c, err.Error())
		}
		if hash, err = utils.HashPassword(*req.Password, h.BcryptCost); err != nil {
			return internalError(c, "hash password failed")
		}
	}

	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Users.UpdateCredentials(ctx, uid, email, hash); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		case errors.Is(err, repository.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		return internalError(c, "update failed")
	}
	// A new password ends every session opened with the old one.
	if hash != "" && h.Sessions != nil {
		if err := h.Sessions.RevokeAllForUser(ctx, uid); err != nil {
			h.Log.Warn("revoke sessions after password change", zap.String("user_id", uid), zap.Error(err))
		}
	}
	return h.respond(c, uid)
}

func (h *AccountHandler) respond(c echo.Context, uid string) error {
	ctx, cancel := requestCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		return internalError(c, "load account failed")
	}
	tags, err := h.Perms.TagsForUser(ctx, uid)
	if err != nil {
		return internalError(c, "load permissions failed")
	}
	return c.JSON(http.StatusOK, accountResp{
		ID:          u.ID,
		Email:       u.Email,
		IsActive:    u.IsActive,
		IsAdmin:     u.IsAdmin,
		Permissions: tags,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	})
}
