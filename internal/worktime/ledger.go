// Package worktime holds the attendance rules: shifts, the validated
// workday ledger and the range summarizer.
package worktime

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iliyamo/worktime-ledger/internal/model"
	"github.com/iliyamo/worktime-ledger/internal/repository"
)

// MaxCommentLength bounds WorkDay.Comment in characters.
const MaxCommentLength = 200

// User-visible rejection messages.
const (
	MsgDuplicateDate       = "date already recorded"
	MsgNormalNeedsTimes    = "normal day requires start and end of work"
	MsgJobTravelNeedsStart = "job travel requires start of work"
	// Reads like a missing shift so a rejection does not reveal that another
	// user's shift exists.
	MsgShiftNotOwned       = "shift not found"
)

// ValidationError rejects a candidate.  Field names the offending input
// when there is one.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Candidate is a workday as submitted by its owner.
type Candidate struct {
	Date        model.Date
	Category    model.Category
	StartOfWork *model.Clock
	EndOfWork   *model.Clock
	Comment     *string
	ShiftID     string
}

// WorkDayStore persists workdays.  Insert must return
// repository.ErrDuplicateWorkDay when (owner, date) is taken.
type WorkDayStore interface {
	ExistsForDate(ctx context.Context, ownerID string, d model.Date) (bool, error)
	Insert(ctx context.Context, w *model.WorkDay) error
}

// ShiftLookup resolves a shift only for its owner.
type ShiftLookup interface {
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Shift, error)
}

// Ledger validates and stores one workday per owner and date.
type Ledger struct {
	Days   WorkDayStore
	Shifts ShiftLookup
	now    func() time.Time
}

func NewLedger(days WorkDayStore, shifts ShiftLookup) *Ledger {
	return &Ledger{Days: days, Shifts: shifts, now: time.Now}
}

// rule inspects the candidate and returns the first problem it finds.
type rule func(ctx context.Context, owner string, c *Candidate) (*ValidationError, error)

// Submit checks c against the rules in order, computes the minute deltas
// for normal days and stores the record.  Rejections come back as
// *ValidationError; anything else is a storage failure.
func (l *Ledger) Submit(ctx context.Context, owner string, c Candidate) (*model.WorkDay, error) {
	if verr := checkShape(&c); verr != nil {
		return nil, verr
	}

	var shift *model.Shift
	rules := []rule{
		l.uniqueDate,
		normalNeedsTimes,
		jobTravelNeedsStart,
		func(ctx context.Context, owner string, c *Candidate) (*ValidationError, error) {
			s, verr, err := l.ownedShift(ctx, owner, c)
			shift = s
			return verr, err
		},
	}
	for _, r := range rules {
		verr, err := r(ctx, owner, &c)
		if err != nil {
			return nil, err
		}
		if verr != nil {
			return nil, verr
		}
	}

	w := &model.WorkDay{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		Date:        c.Date,
		Category:    c.Category,
		StartOfWork: c.StartOfWork,
		EndOfWork:   c.EndOfWork,
		Comment:     c.Comment,
		ShiftID:     shift.ID,
		CreatedAt:   l.now().UTC(),
	}
	if c.Category == model.CategoryNormal {
		before := c.StartOfWork.MinutesSince(shift.StartOfShift)
		after := c.EndOfWork.MinutesSince(shift.EndOfShift)
		w.BeforeWork, w.AfterWork = &before, &after
	}

	if err := l.Days.Insert(ctx, w); err != nil {
		if errors.Is(err, repository.ErrDuplicateWorkDay) {
			return nil, &ValidationError{Field: "date", Message: MsgDuplicateDate, Err: err}
		}
		return nil, fmt.Errorf("insert workday: %w", err)
	}
	return w, nil
}

func checkShape(c *Candidate) *ValidationError {
	switch {
	case c.Date.IsZero():
		return &ValidationError{Field: "date", Message: "date is required"}
	case !c.Category.Valid():
		return &ValidationError{Field: "category", Message: "unknown category"}
	case c.ShiftID == "":
		return &ValidationError{Field: "shift", Message: "shift is required"}
	case c.Comment != nil && utf8.RuneCountInString(*c.Comment) > MaxCommentLength:
		return &ValidationError{Field: "comment", Message: fmt.Sprintf("comment exceeds %d characters", MaxCommentLength)}
	}
	return nil
}

func (l *Ledger) uniqueDate(ctx context.Context, owner string, c *Candidate) (*ValidationError, error) {
	taken, err := l.Days.ExistsForDate(ctx, owner, c.Date)
	if err != nil {
		return nil, fmt.Errorf("check date: %w", err)
	}
	if taken {
		return &ValidationError{Field: "date", Message: MsgDuplicateDate, Err: repository.ErrDuplicateWorkDay}, nil
	}
	return nil, nil
}

func normalNeedsTimes(_ context.Context, _ string, c *Candidate) (*ValidationError, error) {
	if c.Category == model.CategoryNormal && (c.StartOfWork == nil || c.EndOfWork == nil) {
		return &ValidationError{Message: MsgNormalNeedsTimes}, nil
	}
	return nil, nil
}

// jobTravelNeedsStart also drops any submitted end time.
func jobTravelNeedsStart(_ context.Context, _ string, c *Candidate) (*ValidationError, error) {
	if c.Category != model.CategoryJobTravel {
		return nil, nil
	}
	if c.StartOfWork == nil {
		return &ValidationError{Field: "start_of_work", Message: MsgJobTravelNeedsStart}, nil
	}
	c.EndOfWork = nil
	return nil, nil
}

func (l *Ledger) ownedShift(ctx context.Context, owner string, c *Candidate) (*model.Shift, *ValidationError, error) {
	s, err := l.Shifts.GetByIDAndOwner(ctx, c.ShiftID, owner)
	if err != nil {
		if errors.Is(err, repository.ErrShiftNotFound) {
			return nil, &ValidationError{Field: "shift", Message: MsgShiftNotOwned, Err: err}, nil
		}
		return nil, nil, fmt.Errorf("load shift: %w", err)
	}
	return s, nil, nil
}
