package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/worktime-ledger/internal/model"
	"github.com/iliyamo/worktime-ledger/internal/repository"
	"github.com/iliyamo/worktime-ledger/internal/utils"
)

// SuperAdminStore is what the bootstrap needs from user storage.
type SuperAdminStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByEmail(ctx context.Context, email string) (model.User, error)
	MakeSuperAdmin(ctx context.Context, id string) error
}

// EnsureSuperAdmin makes sure an active admin+superadmin account exists for
// email and holds the admin tag.  An existing account is promoted; its
// password is left untouched.
func EnsureSuperAdmin(ctx context.Context, users SuperAdminStore, perms PermissionGranter, email, password string, cost int) (model.User, error) {
	email, err := ValidateEmail(email)
	if err != nil {
		return model.User{}, err
	}
	u, err := users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if err := users.MakeSuperAdmin(ctx, u.ID); err != nil {
			return model.User{}, fmt.Errorf("promote %s: %w", email, err)
		}
		u.IsActive, u.IsAdmin, u.IsSuperAdmin = true, true, true
	case errors.Is(err, repository.ErrUserNotFound):
		if err := ValidatePassword(password); err != nil {
			return model.User{}, err
		}
		hash, err := utils.HashPassword(password, cost)
		if err != nil {
			return model.User{}, fmt.Errorf("hash password: %w", err)
		}
		now := time.Now().UTC()
		u = model.User{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
			IsAdmin:      true,
			IsSuperAdmin: true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.Create(ctx, &u); err != nil {
			return model.User{}, fmt.Errorf("create superadmin: %w", err)
		}
	default:
		return model.User{}, err
	}
	if err := perms.Grant(ctx, u.ID, model.PermissionAdmin); err != nil {
		return model.User{}, fmt.Errorf("grant admin: %w", err)
	}
	return u, nil
}
