package worktime

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/worktime-ledger/internal/model"
)

// ShiftStore is the owner-scoped shift persistence.
type ShiftStore interface {
	Create(ctx context.Context, s *model.Shift) error
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*model.Shift, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Shift, error)
	DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error
}

// ShiftRegistry manages the reference windows of each user.
type ShiftRegistry struct {
	Store ShiftStore
}

func NewShiftRegistry(store ShiftStore) *ShiftRegistry { return &ShiftRegistry{Store: store} }

// Create stores a shift for owner.  Both bounds are required; an end
// before the start is allowed for shifts crossing midnight.
func (r *ShiftRegistry) Create(ctx context.Context, owner string, start, end *model.Clock) (*model.Shift, error) {
	if start == nil {
		return nil, &ValidationError{Field: "start_of_shift", Message: "start of shift is required"}
	}
	if end == nil {
		return nil, &ValidationError{Field: "end_of_shift", Message: "end of shift is required"}
	}
	now := time.Now().UTC()
	s := &model.Shift{
		ID:           uuid.NewString(),
		OwnerID:      owner,
		StartOfShift: *start,
		EndOfShift:   *end,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.Store.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *ShiftRegistry) Get(ctx context.Context, owner, id string) (*model.Shift, error) {
	return r.Store.GetByIDAndOwner(ctx, id, owner)
}

func (r *ShiftRegistry) List(ctx context.Context, owner string) ([]*model.Shift, error) {
	return r.Store.ListByOwner(ctx, owner)
}

// Delete removes the shift and, through the store, its workdays.
func (r *ShiftRegistry) Delete(ctx context.Context, owner, id string) error {
	return r.Store.DeleteByIDAndOwner(ctx, id, owner)
}
