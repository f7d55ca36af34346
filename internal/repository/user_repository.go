package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/worktime-ledger/internal/database"
	"github.com/iliyamo/worktime-ledger/internal/model"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var (
	ErrEmailExists  = errors.New("email already exists")
	ErrUserNotFound = errors.New("user not found")
)

const userColumns = "id,email,password_hash,is_active,is_admin,is_superadmin,last_login_at,created_at,updated_at"

// NormalizeEmail lower-cases and trims an address; every lookup and insert
// goes through it so uniqueness is case-insensitive.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create inserts u.  ID and timestamps must already be set.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?,?)",
		u.ID, u.Email, u.PasswordHash, u.IsActive, u.IsAdmin, u.IsSuperAdmin, u.LastLoginAt, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email)))
}

// GetActiveByEmail is GetByEmail restricted to activated accounts.
func (r *UserRepo) GetActiveByEmail(ctx context.Context, email string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND is_active=? LIMIT 1", NormalizeEmail(email), true))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func (r *UserRepo) scanOne(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.IsAdmin, &u.IsSuperAdmin,
		&u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// Activate flips is_active on.
func (r *UserRepo) Activate(ctx context.Context, id string) error {
	return r.update(ctx, "UPDATE users SET is_active=?, updated_at=? WHERE id=?", true, now(), id)
}

// SetPassword replaces the stored hash.
func (r *UserRepo) SetPassword(ctx context.Context, id, hash string) error {
	return r.update(ctx, "UPDATE users SET password_hash=?, updated_at=? WHERE id=?", hash, now(), id)
}

// UpdateCredentials changes email and password hash in one statement.  An
// empty argument leaves that column unchanged.
func (r *UserRepo) UpdateCredentials(ctx context.Context, id, email, hash string) error {
	var (
		set  []string
		args []any
	)
	if email != "" {
		set = append(set, "email=?")
		args = append(args, NormalizeEmail(email))
	}
	if hash != "" {
		set = append(set, "password_hash=?")
		args = append(args, hash)
	}
	if len(set) == 0 {
		return nil
	}
	set = append(set, "updated_at=?")
	args = append(args, now(), id)
	err := r.update(ctx, "UPDATE users SET "+strings.Join(set, ", ")+" WHERE id=?", args...)
	if database.IsUniqueViolation(err) {
		return ErrEmailExists
	}
	return err
}

// TouchLogin records a successful login.
func (r *UserRepo) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, "UPDATE users SET last_login_at=? WHERE id=?", at.UTC(), id)
}

// MakeSuperAdmin promotes an existing account to an active superadmin.
func (r *UserRepo) MakeSuperAdmin(ctx context.Context, id string) error {
	return r.update(ctx, "UPDATE users SET is_active=?, is_admin=?, is_superadmin=?, updated_at=? WHERE id=?",
		true, true, true, now(), id)
}

func (r *UserRepo) update(ctx context.Context, q string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// DeleteInactiveCreatedBefore removes accounts that were never activated and
// are older than cutoff.  Dependent rows go with them through ON DELETE CASCADE.
func (r *UserRepo) DeleteInactiveCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM users WHERE is_active=? AND created_at<=?", false, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func now() time.Time { return time.Now().UTC() }
