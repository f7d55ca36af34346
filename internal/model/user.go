package model

import "time"

// User represents an account record as stored in the `users` table.
// The password hash never leaves the server; handlers build their own
// response shapes.
//
// Fields:
//  ID           – UUID primary key.
//  Email        – unique, lower-cased address used as the login name.
//  PasswordHash – bcrypt hash of the password.
//  IsActive     – false until the account is activated by email.
//  IsAdmin      – staff flag; admits the user to the admin endpoints.
//  IsSuperAdmin – set only by the bootstrap path.
//  LastLoginAt  – stamped on every successful login (nullable).  It is part
//                 of the activation / reset token fingerprint.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           string     // users.id
	Email        string     // users.email
	PasswordHash string     // users.password_hash
	IsActive     bool       // users.is_active
	IsAdmin      bool       // users.is_admin
	IsSuperAdmin bool       // users.is_superadmin
	LastLoginAt  *time.Time // users.last_login_at (nullable)
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  The plain
// token is not stored; only its SHA‑256 hash.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    string     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
