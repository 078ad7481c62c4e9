package deadline

import (
	"fmt"
	"time"

	"taxoffice/internal/model"
)

// Offset is the signed duration between a trigger date and the raw deadline
type Offset struct {
	Value int
	Unit  string // model.OffsetUnitDays or model.OffsetUnitMonths
}

// Validate checks the offset unit is one of the known enum values
func (o Offset) Validate() error {
	switch o.Unit {
	case model.OffsetUnitDays, model.OffsetUnitMonths:
		return nil
	}
	return fmt.Errorf("%w: unknown offset unit '%s'", ErrValidation, o.Unit)
}

// AddTo applies the offset to the trigger date in the offset's own unit.
// Days are added as calendar days. Months are added as calendar months with
// the day-of-month clamped to the target month's last valid day, so
// Jan 31 + 1 month yields Feb 28 (or Feb 29 in a leap year).
func (o Offset) AddTo(trigger time.Time) (time.Time, error) {
	switch o.Unit {
	case model.OffsetUnitDays:
		return trigger.AddDate(0, 0, o.Value), nil
	case model.OffsetUnitMonths:
		return addMonthsClamped(trigger, o.Value), nil
	}
	return time.Time{}, fmt.Errorf("%w: unknown offset unit '%s'", ErrValidation, o.Unit)
}

// addMonthsClamped shifts t by the given number of months without the
// day-overflow normalization of time.AddDate (which would turn
// Jan 31 + 1 month into Mar 2/3).
func addMonthsClamped(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month()+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := firstOfTarget.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day, 0, 0, 0, 0, t.Location())
}
