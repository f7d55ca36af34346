package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/worktime-ledger/internal/database"
	"github.com/iliyamo/worktime-ledger/internal/model"
)

var (
	// ErrPermissionExists is returned by Create for a name already stored.
	ErrPermissionExists = errors.New("permission already exists")
	// ErrPermissionNotFound is returned when a tag lookup fails.
	ErrPermissionNotFound = errors.New("permission not found")
)

// PermissionRepo stores the permission tag catalogue and the user <-> tag
// links.  Tag names are unique; GetOrCreate and Grant are safe to call from
// concurrent requests.
type PermissionRepo struct {
	db *sql.DB
}

func NewPermissionRepo(db *sql.DB) *PermissionRepo {
	return &PermissionRepo{db: db}
}

// List returns every known tag ordered by name.
func (r *PermissionRepo) List(ctx context.Context) ([]model.PermissionTag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM permissions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PermissionTag{}
	for rows.Next() {
		var t model.PermissionTag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get returns the tag named p.
func (r *PermissionRepo) Get(ctx context.Context, p model.Permission) (model.PermissionTag, error) {
	t := model.PermissionTag{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM permissions WHERE name = ?`, string(p)).Scan(&t.ID, &t.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrPermissionNotFound
	}
	return t, err
}

// Create stores a new tag.  Names outside the vocabulary yield
// model.ErrInvalidPermission and duplicates ErrPermissionExists.
func (r *PermissionRepo) Create(ctx context.Context, p model.Permission) (model.PermissionTag, error) {
	if !p.Valid() {
		return model.PermissionTag{}, model.ErrInvalidPermission
	}
	t := model.PermissionTag{ID: uuid.NewString(), Name: p}
	_, err := r.db.ExecContext(ctx, `INSERT INTO permissions (id, name) VALUES (?, ?)`, t.ID, string(t.Name))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return model.PermissionTag{}, ErrPermissionExists
		}
		return model.PermissionTag{}, err
	}
	return t, nil
}

// GetOrCreate returns the tag named p, creating it when absent.  Two callers
// racing on the same name both end up with the single stored row: the loser
// of the insert hits the unique key and reads the winner's row.
func (r *PermissionRepo) GetOrCreate(ctx context.Context, p model.Permission) (model.PermissionTag, error) {
	t, err := r.Get(ctx, p)
	if err == nil || !errors.Is(err, ErrPermissionNotFound) {
		return t, err
	}
	t, err = r.Create(ctx, p)
	if errors.Is(err, ErrPermissionExists) {
		return r.Get(ctx, p)
	}
	return t, err
}

// Grant links userID to tag p, creating the tag if needed.  Granting a tag
// the user already holds is a no-op.
func (r *PermissionRepo) Grant(ctx context.Context, userID string, p model.Permission) error {
	t, err := r.GetOrCreate(ctx, p)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO user_permissions (user_id, permission_id) VALUES (?, ?)`, userID, t.ID)
	if database.IsUniqueViolation(err) {
		return nil
	}
	return err
}

// TagsForUser returns the names of every tag linked to userID.
func (r *PermissionRepo) TagsForUser(ctx context.Context, userID string) ([]model.Permission, error) {
	const q = `SELECT p.name FROM permissions p
	           JOIN user_permissions up ON up.permission_id = p.id
	           WHERE up.user_id = ?
	           ORDER BY p.name`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Permission{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, model.Permission(name))
	}
	return out, rows.Err()
}
