package deadline

import (
	"context"
	"fmt"
	"time"

	"taxoffice/internal/model"
)

// ValidPolicy reports whether p is one of the known adjustment policies
func ValidPolicy(p string) bool {
	switch p {
	case model.PolicyRollForward, model.PolicyRollBack, model.PolicyNone:
		return true
	}
	return false
}

// ApplyPolicy runs the weekend/holiday adjustment branch for the given
// policy and returns the adjusted date plus a trace entry describing what
// fired. Each policy is a pure function of (date, calendar).
func ApplyPolicy(ctx context.Context, policy string, raw time.Time, cal Calendar) (time.Time, string, error) {
	switch policy {
	case model.PolicyRollForward:
		adjusted, err := NextBusinessDay(ctx, cal, raw)
		if err != nil {
			return time.Time{}, "", err
		}
		if adjusted.Equal(raw) {
			return adjusted, "ROLL_FORWARD: raw deadline already a business day", nil
		}
		return adjusted, fmt.Sprintf("ROLL_FORWARD: %s -> %s",
			raw.Format("2006-01-02"), adjusted.Format("2006-01-02")), nil

	case model.PolicyRollBack:
		adjusted, err := PriorBusinessDay(ctx, cal, raw)
		if err != nil {
			return time.Time{}, "", err
		}
		if adjusted.Equal(raw) {
			return adjusted, "ROLL_BACK: raw deadline already a business day", nil
		}
		return adjusted, fmt.Sprintf("ROLL_BACK: %s -> %s",
			raw.Format("2006-01-02"), adjusted.Format("2006-01-02")), nil

	case model.PolicyNone:
		return raw, "NONE: no weekend/holiday adjustment", nil
	}

	return time.Time{}, "", fmt.Errorf("%w: unknown adjustment policy '%s'", ErrValidation, policy)
}
