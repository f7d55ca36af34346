package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category classifies one attendance record.
type Category int

const (
	CategoryNormal Category = iota
	CategoryWeekend
	CategoryTimeOff
	CategorySickLeave
	CategoryPublicHoliday
	CategoryJobTravel
)

var categoryNames = [...]string{
	CategoryNormal:        "normal",
	CategoryWeekend:       "weekend",
	CategoryTimeOff:       "time_off",
	CategorySickLeave:     "sick_leave",
	CategoryPublicHoliday: "public_holiday",
	CategoryJobTravel:     "job_travel",
}

func (c Category) Valid() bool { return c >= CategoryNormal && c <= CategoryJobTravel }

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// UnmarshalJSON accepts the numeric code (0..5) or the snake_case name.
func (c *Category) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		if !Category(n).Valid() {
			return fmt.Errorf("unknown category %d", n)
		}
		*c = Category(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("category must be a number or a name")
	}
	for i, name := range categoryNames {
		if name == s {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("unknown category %q", s)
}

// Shift is a user-defined reference window that workdays are measured
// against.
type Shift struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"-"`
	StartOfShift Clock     `json:"start_of_shift"`
	EndOfShift   Clock     `json:"end_of_shift"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WorkDay is one attendance record of one user on one date.  BeforeWork and
// AfterWork are signed minute deltas against the shift and are only set for
// CategoryNormal.
type WorkDay struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"-"`
	Date        Date      `json:"date"`
	Category    Category  `json:"category"`
	StartOfWork *Clock    `json:"start_of_work"`
	EndOfWork   *Clock    `json:"end_of_work"`
	Comment     *string   `json:"comment"`
	ShiftID     string    `json:"shift"`
	BeforeWork  *int      `json:"before_work"`
	AfterWork   *int      `json:"after_work"`
	CreatedAt   time.Time `json:"created_at"`
}
