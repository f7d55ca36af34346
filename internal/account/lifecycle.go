// Package account implements self-service registration, activation by
// emailed link and password reset.
package account

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/worktime-ledger/internal/model"
	"github.com/iliyamo/worktime-ledger/internal/repository"
	"github.com/iliyamo/worktime-ledger/internal/utils"
)

// MinPasswordLength is the shortest password accepted anywhere.
const MinPasswordLength = 8

var (
	ErrDuplicateEmail = errors.New("email already registered")
	ErrInvalidEmail   = errors.New("invalid email address")
	ErrWeakPassword   = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	// ErrActivationFailed covers a bad id, an unknown user and a bad token.
	ErrActivationFailed = errors.New("activation link is invalid or expired")
	// ErrResetFailed covers a bad id, an unknown user, a bad token and a
	// missing password.
	ErrResetFailed = errors.New("reset link is invalid or expired")
	// ErrNotFound is returned for unknown and for inactive accounts alike.
	ErrNotFound = errors.New("no active account with this email")
)

// UserStore is the user persistence the lifecycle needs.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (model.User, error)
	GetActiveByEmail(ctx context.Context, email string) (model.User, error)
	Activate(ctx context.Context, id string) error
	SetPassword(ctx context.Context, id, hash string) error
}

// PermissionGranter links a tag to a user, creating the tag when needed.
type PermissionGranter interface {
	Grant(ctx context.Context, userID string, p model.Permission) error
}

// SessionRevoker kills outstanding refresh tokens.  Optional.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID string) error
}

// NotificationSink delivers mail best effort.  Implementations must not
// block the caller and report their own failures.
type NotificationSink interface {
	Send(recipient, subject, body string)
}

// Lifecycle drives the account state machine.
type Lifecycle struct {
	Users       UserStore
	Permissions PermissionGranter
	Sessions    SessionRevoker
	Tokens      *TokenService
	Sink        NotificationSink
	Log         *zap.Logger

	BaseURL    string // links are BaseURL + "/v1/auth/..."
	BcryptCost int
}

// ValidateEmail normalizes and checks an address.
func ValidateEmail(email string) (string, error) {
	email = repository.NormalizeEmail(email)
	if email == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

// ValidatePassword enforces the minimum length.
func ValidatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return ErrWeakPassword
	}
	if len(pw) > utils.MaxPasswordBytes {
		return utils.ErrPasswordTooLong
	}
	return nil
}

// Register creates an inactive account and mails the activation link.
func (l *Lifecycle) Register(ctx context.Context, email, password string) (model.User, error) {
	email, err := ValidateEmail(email)
	if err != nil {
		return model.User{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return model.User{}, err
	}
	hash, err := utils.HashPassword(password, l.BcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	u := model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.Users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.User{}, ErrDuplicateEmail
		}
		return model.User{}, err
	}

	link := l.link("activate", u.ID, l.Tokens.Issue(PurposeActivation, u))
	l.Sink.Send(u.Email, "Activate your account",
		"Welcome!\n\nConfirm your email address to activate your account:\n\n"+link+"\n")
	l.logger().Info("account registered", zap.String("user_id", u.ID))
	return u, nil
}

// Activate turns the account on and grants the customer tag.  Every
// rejection is reported as ErrActivationFailed.
func (l *Lifecycle) Activate(ctx context.Context, encodedID, token string) error {
	u, ok, err := l.resolve(ctx, PurposeActivation, encodedID, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrActivationFailed
	}
	// The grant goes first: activating changes the token fingerprint, so
	// the link must stay valid until nothing else can fail.
	if err := l.Permissions.Grant(ctx, u.ID, model.PermissionCustomer); err != nil {
		return fmt.Errorf("grant customer: %w", err)
	}
	if err := l.Users.Activate(ctx, u.ID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrActivationFailed
		}
		return fmt.Errorf("activate user: %w", err)
	}
	l.logger().Info("account activated", zap.String("user_id", u.ID))
	return nil
}

// RequestPasswordReset mails a reset link to an active account.
func (l *Lifecycle) RequestPasswordReset(ctx context.Context, email string) error {
	email = repository.NormalizeEmail(email)
	if email == "" {
		return ErrNotFound
	}
	u, err := l.Users.GetActiveByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrNotFound
		}
		return err
	}
	link := l.link("password-reset", u.ID, l.Tokens.Issue(PurposePasswordReset, u))
	l.Sink.Send(u.Email, "Reset your password",
		"A password reset was requested for your account.\n\nChoose a new password here:\n\n"+link+
			"\n\nIf you did not ask for this, ignore this message.\n")
	return nil
}

// SubmitPasswordReset stores newPassword when the link is valid.
func (l *Lifecycle) SubmitPasswordReset(ctx context.Context, encodedID, token, newPassword string) error {
	if newPassword == "" {
		return ErrResetFailed
	}
	u, ok, err := l.resolve(ctx, PurposePasswordReset, encodedID, token)
	if err != nil {
		return err
	}
	if !ok {
		return ErrResetFailed
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := utils.HashPassword(newPassword, l.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := l.Users.SetPassword(ctx, u.ID, hash); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrResetFailed
		}
		return fmt.Errorf("set password: %w", err)
	}
	if l.Sessions != nil {
		if err := l.Sessions.RevokeAllForUser(ctx, u.ID); err != nil {
			l.logger().Warn("revoke sessions after reset", zap.String("user_id", u.ID), zap.Error(err))
		}
	}
	l.logger().Info("password reset", zap.String("user_id", u.ID))
	return nil
}

// resolve decodes the id, loads the user and verifies the token.  ok is
// false for every user-caused failure; err is set only for storage trouble.
func (l *Lifecycle) resolve(ctx context.Context, purpose, encodedID, token string) (model.User, bool, error) {
	id, err := DecodeID(encodedID)
	if err != nil || id == "" {
		return model.User{}, false, nil
	}
	u, err := l.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.User{}, false, nil
		}
		return model.User{}, false, err
	}
	if !l.Tokens.Verify(purpose, u, token) {
		return model.User{}, false, nil
	}
	return u, true, nil
}

func (l *Lifecycle) link(action, userID, token string) string {
	return strings.TrimRight(l.BaseURL, "/") + "/v1/auth/" + action + "/" + EncodeID(userID) + "/" + token
}

func (l *Lifecycle) logger() *zap.Logger {
	if l.Log == nil {
		return zap.NewNop()
	}
	return l.Log
}
