package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/worktime-ledger/internal/database"
	"github.com/iliyamo/worktime-ledger/internal/model"
)

var (
	// ErrWorkDayNotFound is returned when a workday lookup fails or the
	// record belongs to somebody else.
	ErrWorkDayNotFound = errors.New("workday not found")
	// ErrDuplicateWorkDay is returned when the owner already has a record
	// for the date.  Raised from the (owner_id, day) unique key.
	ErrDuplicateWorkDay = errors.New("workday already recorded for date")
)

// WorkDayRepo persists attendance records.
type WorkDayRepo struct {
	db *sql.DB
}

func NewWorkDayRepo(db *sql.DB) *WorkDayRepo {
	return &WorkDayRepo{db: db}
}

const workDayColumns = `id, owner_id, day, category, start_of_work, end_of_work, comment, shift_id, before_work, after_work, created_at`

// ExistsForDate reports whether ownerID already has a record on d.
func (r *WorkDayRepo) ExistsForDate(ctx context.Context, ownerID string, d model.Date) (bool, error) {
	const q = `SELECT COUNT(1) FROM workdays WHERE owner_id = ? AND day = ?`
	var n int
	if err := r.db.QueryRowContext(ctx, q, ownerID, d).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Insert stores w.  A concurrent insert for the same owner and date loses
// on the unique key and gets ErrDuplicateWorkDay.
func (r *WorkDayRepo) Insert(ctx context.Context, w *model.WorkDay) error {
	const q = `INSERT INTO workdays (` + workDayColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		w.ID, w.OwnerID, w.Date, int(w.Category), w.StartOfWork, w.EndOfWork, w.Comment,
		w.ShiftID, w.BeforeWork, w.AfterWork, w.CreatedAt)
	if database.IsUniqueViolation(err) {
		return ErrDuplicateWorkDay
	}
	return err
}

// GetByIDAndOwner returns one record if ownerID owns it.
func (r *WorkDayRepo) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*model.WorkDay, error) {
	const q = `SELECT ` + workDayColumns + ` FROM workdays WHERE id = ? AND owner_id = ?`
	w, err := scanWorkDay(r.db.QueryRowContext(ctx, q, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkDayNotFound
	}
	return w, err
}

// ListByOwner returns the owner's records ordered by date.  Zero from/to
// leave that side of the range open.
func (r *WorkDayRepo) ListByOwner(ctx context.Context, ownerID string, from, to model.Date) ([]*model.WorkDay, error) {
	var (
		where = []string{"owner_id = ?"}
		args  = []any{ownerID}
	)
	if !from.IsZero() {
		where = append(where, "day >= ?")
		args = append(args, from)
	}
	if !to.IsZero() {
		where = append(where, "day <= ?")
		args = append(args, to)
	}
	q := `SELECT ` + workDayColumns + ` FROM workdays WHERE ` + strings.Join(where, " AND ") + ` ORDER BY day`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.WorkDay{}
	for rows.Next() {
		w, err := scanWorkDay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListRange returns records with from <= date <= to, both inclusive.
func (r *WorkDayRepo) ListRange(ctx context.Context, ownerID string, from, to model.Date) ([]*model.WorkDay, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return []*model.WorkDay{}, nil
	}
	return r.ListByOwner(ctx, ownerID, from, to)
}

// DeleteByIDAndOwner removes one record.
func (r *WorkDayRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error {
	const q = `DELETE FROM workdays WHERE id = ? AND owner_id = ?`
	res, err := r.db.ExecContext(ctx, q, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrWorkDayNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkDay(s rowScanner) (*model.WorkDay, error) {
	var (
		w   model.WorkDay
		cat int
	)
	if err := s.Scan(&w.ID, &w.OwnerID, &w.Date, &cat, &w.StartOfWork, &w.EndOfWork, &w.Comment,
		&w.ShiftID, &w.BeforeWork, &w.AfterWork, &w.CreatedAt); err != nil {
		return nil, err
	}
	w.Category = model.Category(cat)
	return &w, nil
}
