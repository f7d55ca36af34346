package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/worktime-ledger/internal/account"
	"github.com/iliyamo/worktime-ledger/internal/config"
	"github.com/iliyamo/worktime-ledger/internal/model"
	"github.com/iliyamo/worktime-ledger/internal/repository"
	"github.com/iliyamo/worktime-ledger/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Tokens   *repository.TokenRepo
	Accounts *account.Lifecycle
	Log      *zap.Logger
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, a *account.Lifecycle, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Accounts: a, Log: log}
}

// ----- DTOs -----

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type resetRequestReq struct {
	Email string `json:"email"`
}
type resetSubmitReq struct {
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	IsActive bool   `json:"is_active"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register: create an inactive user and mail the activation link.  No
// tokens are issued until the account is activated.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Accounts.Register(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, account.ErrDuplicateEmail):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, account.ErrInvalidEmail), errors.Is(err, account.ErrWeakPassword), errors.Is(err, utils.ErrPasswordTooLong):
		return badRequest(c, err.Error())
	case err != nil:
		h.Log.Error("register", zap.Error(err))
		return internalError(c, "create user failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"user":    userPart{ID: u.ID, Email: u.Email, IsActive: u.IsActive},
		"message": "check your email to activate the account",
	})
}

// Activate: GET /v1/auth/activate/:uid/:token.  Every failure answers with
// the same message.
func (h *AuthHandler) Activate(c echo.Context) error {
	ctx, cancel := requestCtx(c)
	defer cancel()

	err := h.Accounts.Activate(ctx, c.Param("uid"), c.Param("token"))
	switch {
	case errors.Is(err, account.ErrActivationFailed):
		return badRequest(c, err.Error())
	case err != nil:
		h.Log.Error("activate", zap.Error(err))
		return internalError(c, "activation failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "account activated"})
}

// Login: verify credentials of an active account and return a token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return badRequest(c, "email/password required")
	}

	ctx, cancel := requestCtx(c)
	defer cancel()

	u, err := h.Users.GetActiveByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			utils.BurnPasswordCheck(req.Password)
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return internalError(c, "query failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if err := h.Users.TouchLogin(ctx, u.ID, time.Now()); err != nil {
		h.Log.Warn("stamp last login", zap.String("user_id", u.ID), zap.Error(err))
	}
	return h.issuePair(c, u, http.StatusOK)
}

// Refresh: consume the presented token and issue a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := requestCtx(c)
	defer cancel()

	userID, err := h.Tokens.Consume(ctx, hash)
	if err != nil {
		if !errors.Is(err, repository.ErrRefreshInvalid) {
			h.Log.Error("consume refresh", zap.Error(err))
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil || !u.IsActive {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	return h.issuePair(c, u, http.StatusOK)
}

func (h *AuthHandler) issuePair(c echo.Context, u model.User, status int) error {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.IsAdmin, h.Cfg.AccessTTLMin)
	if err != nil {
		return internalError(c, "issue access failed")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return internalError(c, "issue refresh failed")
	}
	if err := h.Tokens.StoreRefresh(c.Request().Context(), u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return internalError(c, "save refresh failed")
	}
	return c.JSON(status, authResp{
		User:    userPart{ID: u.ID, Email: u.Email, IsActive: u.IsActive},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}

// Logout: revoke the refresh token in the body.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return badRequest(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := requestCtx(c)
	defer cancel()

	if _, err := h.Tokens.Consume(ctx, hash); err != nil {
		if errors.Is(err, repository.ErrRefreshInvalid) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return internalError(c, "logout failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll: revoke every refresh token of the authenticated user.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	uid, ok, err := ownerID(c)
	if !ok {
		return err
	}
	ctx, cancel := requestCtx(c)
	defer cancel()
	if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
		return internalError(c, "logout failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// RequestPasswordReset: POST /v1/auth/password-reset {email}.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req resetRequestReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	err := h.Accounts.RequestPasswordReset(ctx, req.Email)
	switch {
	case errors.Is(err, account.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case err != nil:
		h.Log.Error("request password reset", zap.Error(err))
		return internalError(c, "reset request failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "reset link sent"})
}

// SubmitPasswordReset: POST /v1/auth/password-reset/:uid/:token {password}.
func (h *AuthHandler) SubmitPasswordReset(c echo.Context) error {
	var req resetSubmitReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := requestCtx(c)
	defer cancel()

	err := h.Accounts.SubmitPasswordReset(ctx, c.Param("uid"), c.Param("token"), req.Password)
	switch {
	case errors.Is(err, account.ErrResetFailed), errors.Is(err, account.ErrWeakPassword), errors.Is(err, utils.ErrPasswordTooLong):
		return badRequest(c, err.Error())
	case err != nil:
		h.Log.Error("submit password reset", zap.Error(err))
		return internalError(c, "reset failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}
