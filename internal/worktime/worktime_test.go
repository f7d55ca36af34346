package worktime

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/worktime-ledger/internal/model"
	"github.com/iliyamo/worktime-ledger/internal/repository"
	"github.com/iliyamo/worktime-ledger/internal/testutil"
)

type env struct {
	ledger  *Ledger
	summary *Summarizer
	shifts  *ShiftRegistry
	owner   string
	shift   *model.Shift
}

func clock(h, m int) *model.Clock {
	c := model.NewClock(h, m, 0)
	return &c
}

func day(d int) model.Date { return model.Date{Year: 2024, Month: time.March, Day: d} }

func createUser(t *testing.T, users *repository.UserRepo, email string) string {
	t.Helper()
	now := time.Now().UTC()
	u := &model.User{ID: uuid.NewString(), Email: email, PasswordHash: "x", IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

// newEnv wires the ledger to SQLite with one user owning an 08:00-16:30 shift.
func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.NewDB(t)
	days := repository.NewWorkDayRepo(db)
	shiftRepo := repository.NewShiftRepo(db)
	e := env{
		ledger:  NewLedger(days, shiftRepo),
		summary: NewSummarizer(days),
		shifts:  NewShiftRegistry(shiftRepo),
		owner:   createUser(t, repository.NewUserRepo(db), "owner@example.com"),
	}
	s, err := e.shifts.Create(context.Background(), e.owner, clock(8, 0), clock(16, 30))
	if err != nil {
		t.Fatalf("create shift: %v", err)
	}
	e.shift = s
	return e
}

func (e env) normal(d int, start, end *model.Clock) Candidate {
	return Candidate{Date: day(d), Category: model.CategoryNormal, StartOfWork: start, EndOfWork: end, ShiftID: e.shift.ID}
}

func wantValidation(t *testing.T, err error, msg string) {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if verr.Message != msg {
		t.Fatalf("expected %q, got %q", msg, verr.Message)
	}
}

func TestSubmitNonWorkCategoriesNeedNoTimes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cats := []model.Category{model.CategoryWeekend, model.CategoryTimeOff, model.CategorySickLeave, model.CategoryPublicHoliday}
	for i, cat := range cats {
		t.Run(cat.String(), func(t *testing.T) {
			w, err := e.ledger.Submit(ctx, e.owner, Candidate{Date: day(i + 1), Category: cat, ShiftID: e.shift.ID})
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if w.BeforeWork != nil || w.AfterWork != nil {
				t.Fatalf("deltas must stay unset, got %v %v", w.BeforeWork, w.AfterWork)
			}
		})
	}
}

func TestSubmitDuplicateDateAlwaysFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if _, err := e.ledger.Submit(ctx, e.owner, e.normal(1, clock(8, 0), clock(16, 30))); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	for _, cat := range []model.Category{model.CategoryNormal, model.CategoryWeekend, model.CategoryJobTravel} {
		c := Candidate{Date: day(1), Category: cat, ShiftID: e.shift.ID}
		// the duplicate rule runs first, so even an incomplete candidate reports it
		_, err := e.ledger.Submit(ctx, e.owner, c)
		wantValidation(t, err, MsgDuplicateDate)
		if !errors.Is(err, repository.ErrDuplicateWorkDay) {
			t.Fatalf("expected wrapped ErrDuplicateWorkDay, got %v", err)
		}
	}
}

type racingStore struct{ *repository.WorkDayRepo }

// ExistsForDate pretends the date is free so Insert hits the unique key.
func (racingStore) ExistsForDate(context.Context, string, model.Date) (bool, error) {
	return false, nil
}

func TestSubmitConvertsUniqueViolation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if _, err := e.ledger.Submit(ctx, e.owner, e.normal(2, clock(8, 0), clock(16, 30))); err != nil {
		t.Fatal(err)
	}
	racing := NewLedger(racingStore{e.ledger.Days.(*repository.WorkDayRepo)}, e.ledger.Shifts)
	_, err := racing.Submit(ctx, e.owner, e.normal(2, clock(9, 0), clock(17, 0)))
	wantValidation(t, err, MsgDuplicateDate)
}

func TestSubmitNormalRequiresBothTimes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, c := range []Candidate{
		e.normal(3, nil, clock(16, 30)),
		e.normal(3, clock(8, 0), nil),
		e.normal(3, nil, nil),
	} {
		_, err := e.ledger.Submit(ctx, e.owner, c)
		wantValidation(t, err, MsgNormalNeedsTimes)
	}
}

func TestSubmitJobTravel(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.ledger.Submit(ctx, e.owner, Candidate{Date: day(4), Category: model.CategoryJobTravel, EndOfWork: clock(18, 0), ShiftID: e.shift.ID})
	wantValidation(t, err, MsgJobTravelNeedsStart)

	w, err := e.ledger.Submit(ctx, e.owner, Candidate{Date: day(4), Category: model.CategoryJobTravel,
		StartOfWork: clock(6, 0), EndOfWork: clock(18, 0), ShiftID: e.shift.ID})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if w.EndOfWork != nil {
		t.Fatalf("end of work must be forced to null, got %s", w.EndOfWork)
	}
	stored, err := e.ledger.Days.(*repository.WorkDayRepo).GetByIDAndOwner(ctx, w.ID, e.owner)
	if err != nil {
		t.Fatal(err)
	}
	if stored.EndOfWork != nil || stored.BeforeWork != nil {
		t.Fatalf("stored record must keep end and deltas null: %+v", stored)
	}
}

func TestSubmitRejectsForeignShift(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.ledger.Submit(ctx, "someone-else", e.normal(5, clock(8, 0), clock(16, 30)))
	wantValidation(t, err, MsgShiftNotOwned)
	if !errors.Is(err, repository.ErrShiftNotFound) {
		t.Fatalf("expected wrapped ErrShiftNotFound, got %v", err)
	}
}

func TestSubmitShapeChecks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	long := strings.Repeat("x", MaxCommentLength+1)
	cases := map[string]Candidate{
		"date":     {Category: model.CategoryWeekend, ShiftID: e.shift.ID},
		"category": {Date: day(6), Category: model.Category(9), ShiftID: e.shift.ID},
		"shift":    {Date: day(6), Category: model.CategoryWeekend},
		"comment":  {Date: day(6), Category: model.CategoryWeekend, ShiftID: e.shift.ID, Comment: &long},
	}
	for field, c := range cases {
		_, err := e.ledger.Submit(ctx, e.owner, c)
		var verr *ValidationError
		if !errors.As(err, &verr) || verr.Field != field {
			t.Fatalf("%s: expected validation error on field, got %v", field, err)
		}
	}
}

func TestSubmitComputesDeltas(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	cases := []struct {
		name          string
		start, end    *model.Clock
		before, after int
	}{
		{"late arrival", clock(8, 11), clock(16, 30), 11, 0},
		{"overtime", clock(8, 0), clock(16, 50), 0, 20},
		{"early leave", clock(8, 0), clock(16, 0), 0, -30},
		{"early arrival", clock(7, 45), clock(16, 30), -15, 0},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := e.ledger.Submit(ctx, e.owner, e.normal(10+i, tc.start, tc.end))
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if *w.BeforeWork != tc.before || *w.AfterWork != tc.after {
				t.Fatalf("expected before=%d after=%d, got %d %d", tc.before, tc.after, *w.BeforeWork, *w.AfterWork)
			}
		})
	}
}

func TestSummarizeScenarios(t *testing.T) {
	cases := []struct {
		name       string
		start, end *model.Clock
		want       Report
	}{
		{"on time", clock(8, 0), clock(16, 30), Report{Workdays: 1}},
		{"overtime", clock(8, 0), clock(16, 50), Report{Overtime: 20, Workdays: 1}},
		{"early leave", clock(8, 0), clock(16, 0), Report{EarlyLeave: -30, Workdays: 1}},
		{"late", clock(8, 11), clock(16, 30), Report{LateForWork: 11, Workdays: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()
			if _, err := e.ledger.Submit(ctx, e.owner, e.normal(1, tc.start, tc.end)); err != nil {
				t.Fatal(err)
			}
			got, err := e.summary.Summarize(ctx, e.owner, day(1), day(1))
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func ptr(n int) *int { return &n }

func TestSummarizeOvertimeThreshold(t *testing.T) {
	at := func(after int) []*model.WorkDay {
		return []*model.WorkDay{{Category: model.CategoryNormal, BeforeWork: ptr(0), AfterWork: ptr(after)}}
	}
	if r := Summarize(at(14)); r.Overtime != 0 || r.EarlyLeave != 0 {
		t.Fatalf("14 minutes must not count: %+v", r)
	}
	if r := Summarize(at(15)); r.Overtime != 15 {
		t.Fatalf("15 minutes must count: %+v", r)
	}
}

func TestSummarizeCountsEveryCategory(t *testing.T) {
	days := []*model.WorkDay{
		{Category: model.CategoryNormal, BeforeWork: ptr(5), AfterWork: ptr(30)},
		{Category: model.CategoryNormal, BeforeWork: ptr(-20), AfterWork: ptr(-10)},
		{Category: model.CategoryWeekend},
		{Category: model.CategoryTimeOff},
		{Category: model.CategoryTimeOff},
		{Category: model.CategorySickLeave},
		{Category: model.CategoryPublicHoliday},
		{Category: model.CategoryJobTravel},
	}
	want := Report{LateForWork: 5, Overtime: 30, EarlyLeave: -10, Workdays: 2,
		Weekend: 1, TimesOff: 2, SickLeaves: 1, PublicHolidays: 1, JobTravel: 1}
	if got := Summarize(days); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestSummarizeRangeBounds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	for _, d := range []int{1, 2, 3} {
		if _, err := e.ledger.Submit(ctx, e.owner, e.normal(d, clock(8, 0), clock(16, 30))); err != nil {
			t.Fatal(err)
		}
	}
	got, err := e.summary.Summarize(ctx, e.owner, day(2), day(3))
	if err != nil || got.Workdays != 2 {
		t.Fatalf("inclusive range: expected 2 workdays, got %+v (%v)", got, err)
	}
	got, err = e.summary.Summarize(ctx, e.owner, day(3), day(1))
	if err != nil || got != (Report{}) {
		t.Fatalf("inverted range must be empty, got %+v (%v)", got, err)
	}
	got, _ = e.summary.Summarize(ctx, e.owner, day(20), day(25))
	if got != (Report{}) {
		t.Fatalf("empty range must be zero, got %+v", got)
	}
}

func TestShiftRegistryRequiresBounds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	if _, err := e.shifts.Create(ctx, e.owner, nil, clock(16, 0)); !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := e.shifts.Create(ctx, e.owner, clock(22, 0), clock(6, 0)); err != nil {
		t.Fatalf("overnight shift: %v", err)
	}
	list, _ := e.shifts.List(ctx, e.owner)
	if len(list) != 2 {
		t.Fatalf("expected 2 shifts, got %d", len(list))
	}
}
