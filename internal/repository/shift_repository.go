package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/worktime-ledger/internal/model"
)

// ErrShiftNotFound is returned when a shift lookup fails or the shift
// belongs to somebody else.
var ErrShiftNotFound = errors.New("shift not found")

// ShiftRepo stores the reference windows workdays are measured against.
// Every query is scoped by owner so one user can never see or reference
// another user's shifts.
type ShiftRepo struct {
	db *sql.DB
}

// NewShiftRepo constructs a ShiftRepo with the given DB handle.
func NewShiftRepo(db *sql.DB) *ShiftRepo {
	return &ShiftRepo{db: db}
}

const shiftColumns = `id, owner_id, start_of_shift, end_of_shift, created_at, updated_at`

// Create inserts s.  ID, OwnerID and timestamps must be set by the caller.
func (r *ShiftRepo) Create(ctx context.Context, s *model.Shift) error {
	const q = `INSERT INTO shifts (` + shiftColumns + `) VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.OwnerID, s.StartOfShift, s.EndOfShift, s.CreatedAt, s.UpdatedAt)
	return err
}

// GetByIDAndOwner returns the shift only if ownerID owns it.
func (r *ShiftRepo) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Shift, error) {
	const q = `SELECT ` + shiftColumns + ` FROM shifts WHERE id = ? AND owner_id = ?`
	var s model.Shift
	err := r.db.QueryRowContext(ctx, q, id, ownerID).
		Scan(&s.ID, &s.OwnerID, &s.StartOfShift, &s.EndOfShift, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrShiftNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListByOwner returns the owner's shifts, oldest first.
func (r *ShiftRepo) ListByOwner(ctx context.Context, ownerID string) ([]*model.Shift, error) {
	const q = `SELECT ` + shiftColumns + ` FROM shifts WHERE owner_id = ? ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Shift{}
	for rows.Next() {
		s := new(model.Shift)
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.StartOfShift, &s.EndOfShift, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteByIDAndOwner removes a shift.  Workdays referencing it are removed
// by the foreign key cascade.
func (r *ShiftRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error {
	const q = `DELETE FROM shifts WHERE id = ? AND owner_id = ?`
	res, err := r.db.ExecContext(ctx, q, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrShiftNotFound
	}
	return nil
}
