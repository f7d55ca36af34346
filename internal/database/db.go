package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/go-sql-driver/mysql"
)

// Dialect identifiers supported by the storage layer.
const (
	DialectMySQL  = "mysql"
	DialectSQLite = "sqlite"
)

// Options selects and parameterizes the database connection.
type Options struct {
	Driver     string // DialectMySQL or DialectSQLite
	User       string
	Pass       string
	Host       string
	Port       string
	Name       string
	SQLitePath string // file path or ":memory:"
}

// Open connects to the configured database and verifies the connection.
func Open(o Options) (*sql.DB, error) {
	switch o.Driver {
	case DialectMySQL, "":
		return openMySQL(o)
	case DialectSQLite:
		return OpenSQLite(o.SQLitePath)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", o.Driver)
	}
}

func openMySQL(o Options) (*sql.DB, error) {
	auth := o.User
	if o.Pass != "" {
		auth = fmt.Sprintf("%s:%s", o.User, o.Pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, o.Host, o.Port, o.Name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens an embedded database.  SQLite serializes writers, so the
// pool is pinned to one connection; this also keeps ":memory:" databases
// from splitting into one database per connection.
func OpenSQLite(path string) (*sql.DB, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: enable foreign keys: %w", err)
	}
	return db, nil
}

// ping verifies the connection with a timeout.
func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
