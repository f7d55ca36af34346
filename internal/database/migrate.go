package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Migrate creates the schema for the given dialect.  Every statement is
// idempotent so it runs on each start.
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	var stmts []string
	switch dialect {
	case DialectMySQL, "":
		stmts = mysqlSchema
	case DialectSQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("database: unsupported dialect: %s", dialect)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("database: migrate: %w", err)
		}
	}
	return nil
}

// The (owner_id, day) unique key on workdays is the authoritative guard for
// one record per user and date; the ledger's pre-check only produces the
// friendlier message.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_active     BOOLEAN      NOT NULL DEFAULT FALSE,
		is_admin      BOOLEAN      NOT NULL DEFAULT FALSE,
		is_superadmin BOOLEAN      NOT NULL DEFAULT FALSE,
		last_login_at DATETIME(6)  NULL,
		created_at    DATETIME(6)  NOT NULL,
		updated_at    DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    CHAR(36)        NOT NULL,
		token_hash CHAR(64)        NOT NULL,
		expires_at DATETIME(6)     NOT NULL,
		revoked_at DATETIME(6)     NULL,
		created_at DATETIME(6)     NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		UNIQUE KEY uq_refresh_hash (token_hash),
		KEY ix_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS permissions (
		id   CHAR(36)    NOT NULL PRIMARY KEY,
		name VARCHAR(32) NOT NULL,
		UNIQUE KEY uq_permissions_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS user_permissions (
		user_id       CHAR(36) NOT NULL,
		permission_id CHAR(36) NOT NULL,
		PRIMARY KEY (user_id, permission_id),
		CONSTRAINT fk_up_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT fk_up_permission FOREIGN KEY (permission_id) REFERENCES permissions(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS shifts (
		id             CHAR(36)    NOT NULL PRIMARY KEY,
		owner_id       CHAR(36)    NOT NULL,
		start_of_shift TIME        NOT NULL,
		end_of_shift   TIME        NOT NULL,
		created_at     DATETIME(6) NOT NULL,
		updated_at     DATETIME(6) NOT NULL,
		KEY ix_shifts_owner (owner_id),
		CONSTRAINT fk_shifts_owner FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS workdays (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		owner_id      CHAR(36)     NOT NULL,
		day           DATE         NOT NULL,
		category      TINYINT      NOT NULL DEFAULT 0,
		start_of_work TIME         NULL,
		end_of_work   TIME         NULL,
		comment       VARCHAR(200) NULL,
		shift_id      CHAR(36)     NOT NULL,
		before_work   INT          NULL,
		after_work    INT          NULL,
		created_at    DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_workdays_owner_day (owner_id, day),
		CONSTRAINT fk_workdays_owner FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT fk_workdays_shift FOREIGN KEY (shift_id) REFERENCES shifts(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// SQLite keeps dates and clocks as TEXT so the driver does not turn them
// into time.Time values.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT     NOT NULL PRIMARY KEY,
		email         TEXT     NOT NULL UNIQUE,
		password_hash TEXT     NOT NULL,
		is_active     BOOLEAN  NOT NULL DEFAULT 0,
		is_admin      BOOLEAN  NOT NULL DEFAULT 0,
		is_superadmin BOOLEAN  NOT NULL DEFAULT 0,
		last_login_at DATETIME NULL,
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         INTEGER  PRIMARY KEY AUTOINCREMENT,
		user_id    TEXT     NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT     NOT NULL UNIQUE,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS permissions (
		id   TEXT NOT NULL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS user_permissions (
		user_id       TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		permission_id TEXT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
		PRIMARY KEY (user_id, permission_id)
	)`,
	`CREATE TABLE IF NOT EXISTS shifts (
		id             TEXT     NOT NULL PRIMARY KEY,
		owner_id       TEXT     NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		start_of_shift TEXT     NOT NULL,
		end_of_shift   TEXT     NOT NULL,
		created_at     DATETIME NOT NULL,
		updated_at     DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS workdays (
		id            TEXT     NOT NULL PRIMARY KEY,
		owner_id      TEXT     NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		day           TEXT     NOT NULL,
		category      INTEGER  NOT NULL DEFAULT 0,
		start_of_work TEXT     NULL,
		end_of_work   TEXT     NULL,
		comment       TEXT     NULL,
		shift_id      TEXT     NOT NULL REFERENCES shifts(id) ON DELETE CASCADE,
		before_work   INTEGER  NULL,
		after_work    INTEGER  NULL,
		created_at    DATETIME NOT NULL,
		UNIQUE (owner_id, day)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_shifts_owner ON shifts(owner_id)`,
	`CREATE INDEX IF NOT EXISTS ix_refresh_user ON refresh_tokens(user_id)`,
}
