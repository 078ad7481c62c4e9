package deadline

import (
	"context"
	"fmt"
	"time"
)

// MaxAdjustmentSteps caps the business-day walk. Real calendars never chain
// anywhere near this many consecutive non-business days; beyond it the
// calendar data is considered pathological and the walk fails.
const MaxAdjustmentSteps = 14

// Calendar answers holiday membership for the adjustment walk. The service
// layer backs it with the public_holidays table.
type Calendar interface {
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
}

// IsWeekend reports whether date falls on a Saturday or Sunday
func IsWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// NextBusinessDay returns date if it is a business day, otherwise the first
// business day after it. Fails with ErrAdjustmentLimit past MaxAdjustmentSteps.
func NextBusinessDay(ctx context.Context, cal Calendar, date time.Time) (time.Time, error) {
	return walkBusinessDay(ctx, cal, date, 1)
}

// PriorBusinessDay is the symmetric backward walk
func PriorBusinessDay(ctx context.Context, cal Calendar, date time.Time) (time.Time, error) {
	return walkBusinessDay(ctx, cal, date, -1)
}

func walkBusinessDay(ctx context.Context, cal Calendar, date time.Time, step int) (time.Time, error) {
	for i := 0; i <= MaxAdjustmentSteps; i++ {
		if !IsWeekend(date) {
			holiday, err := cal.IsHoliday(ctx, date)
			if err != nil {
				return time.Time{}, fmt.Errorf("holiday lookup failed: %w", err)
			}
			if !holiday {
				return date, nil
			}
		}
		date = date.AddDate(0, 0, step)
	}
	return time.Time{}, fmt.Errorf("%w: no business day within %d days of %s",
		ErrAdjustmentLimit, MaxAdjustmentSteps, date.Format("2006-01-02"))
}

// DateOnly strips the time component, keeping calendar-date equality the
// only comparison the engine ever performs.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
