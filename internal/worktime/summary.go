package worktime

import (
	"context"

	"github.com/iliyamo/worktime-ledger/internal/model"
)

// OvertimeThreshold is the smallest after_work that counts as overtime.
const OvertimeThreshold = 15

// Report aggregates a date range of one user's ledger.  Minute totals are
// signed; EarlyLeave is zero or negative.
type Report struct {
	LateForWork    int `json:"late_for_work"`
	Overtime       int `json:"overtime"`
	EarlyLeave     int `json:"early_leave"`
	Workdays       int `json:"workdays"`
	Weekend        int `json:"weekend"`
	TimesOff       int `json:"times_off"`
	SickLeaves     int `json:"sick_leaves"`
	PublicHolidays int `json:"publick_holidays"`
	JobTravel      int `json:"job_travel"`
}

// Summarize reduces days to a Report.  The three minute accumulators are
// independent: early arrival never offsets lateness or overtime.
func Summarize(days []*model.WorkDay) Report {
	var r Report
	for _, d := range days {
		switch d.Category {
		case model.CategoryNormal:
			r.Workdays++
			if d.BeforeWork != nil && *d.BeforeWork > 0 {
				r.LateForWork += *d.BeforeWork
			}
			if d.AfterWork != nil {
				switch a := *d.AfterWork; {
				case a >= OvertimeThreshold:
					r.Overtime += a
				case a < 0:
					r.EarlyLeave += a
				}
			}
		case model.CategoryWeekend:
			r.Weekend++
		case model.CategoryTimeOff:
			r.TimesOff++
		case model.CategorySickLeave:
			r.SickLeaves++
		case model.CategoryPublicHoliday:
			r.PublicHolidays++
		case model.CategoryJobTravel:
			r.JobTravel++
		}
	}
	return r
}

// RangeLister returns an owner's records with from <= date <= to.
type RangeLister interface {
	ListRange(ctx context.Context, ownerID string, from, to model.Date) ([]*model.WorkDay, error)
}

// Summarizer reads a range from storage and summarizes it.
type Summarizer struct {
	Days RangeLister
}

func NewSummarizer(days RangeLister) *Summarizer { return &Summarizer{Days: days} }

// Summarize reports on [from, to].  An inverted range yields the zero
// Report without touching storage.
func (s *Summarizer) Summarize(ctx context.Context, owner string, from, to model.Date) (Report, error) {
	if to.Before(from) {
		return Report{}, nil
	}
	days, err := s.Days.ListRange(ctx, owner, from, to)
	if err != nil {
		return Report{}, err
	}
	return Summarize(days), nil
}
