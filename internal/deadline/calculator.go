package deadline

import (
	"context"
	"fmt"
	"time"

	"taxoffice/internal/model"

	"github.com/google/uuid"
)

// RuleSource resolves the single active rule for a tax type as of a date.
// Implementations return ErrNoActiveRule (possibly wrapped) when none is
// eligible.
type RuleSource interface {
	ActiveRule(ctx context.Context, taxType string, asOf time.Time) (*model.DeadlineRule, error)
}

// ExtensionSource resolves the active client extension for a computed
// statutory deadline, or nil when there is none.
type ExtensionSource interface {
	ActiveExtension(ctx context.Context, clientID uuid.UUID, taxType string, deadline time.Time) (*model.ClientExtension, error)
}

// Result is the outcome of one deadline resolution: the final legally
// binding date, the rule that produced it, and a human-auditable trace of
// every adjustment applied. The trace is returned rather than persisted so
// history views never serve a stale cached deadline.
type Result struct {
	Deadline    time.Time  `json:"deadline"`
	RuleID      uuid.UUID  `json:"rule_id"`
	ExtensionID *uuid.UUID `json:"extension_id,omitempty"`
	Adjustments []string   `json:"adjustments"`
}

// Calculator orchestrates rule resolution, offset arithmetic, calendar
// adjustment and extension overrides. It holds no state of its own — the
// result is a pure function of its three collaborators plus the inputs.
type Calculator struct {
	rules      RuleSource
	calendar   Calendar
	extensions ExtensionSource
}

func NewCalculator(rules RuleSource, calendar Calendar, extensions ExtensionSource) *Calculator {
	return &Calculator{rules: rules, calendar: calendar, extensions: extensions}
}

// Resolve computes the binding deadline for one (taxType, triggerDate)
// pair, layering the client's active extension on top when clientID is
// supplied. A missing active rule is a hard stop, never a default.
func (c *Calculator) Resolve(ctx context.Context, taxType string, triggerDate time.Time, clientID *uuid.UUID) (*Result, error) {
	if !model.ValidTaxType(taxType) {
		return nil, fmt.Errorf("%w: unknown tax type '%s'", ErrValidation, taxType)
	}
	trigger := DateOnly(triggerDate)

	rule, err := c.rules.ActiveRule(ctx, taxType, trigger)
	if err != nil {
		return nil, err
	}

	result := &Result{RuleID: rule.ID}
	result.Adjustments = append(result.Adjustments,
		fmt.Sprintf("rule %s: offset %+d %s from trigger %s",
			rule.ID, rule.OffsetValue, rule.OffsetUnit, trigger.Format("2006-01-02")))

	raw, err := Offset{Value: rule.OffsetValue, Unit: rule.OffsetUnit}.AddTo(trigger)
	if err != nil {
		return nil, err
	}

	adjusted, trace, err := ApplyPolicy(ctx, rule.AdjustmentPolicy, raw, c.calendar)
	if err != nil {
		return nil, err
	}
	result.Adjustments = append(result.Adjustments, trace)
	result.Deadline = adjusted

	if clientID != nil {
		ext, err := c.extensions.ActiveExtension(ctx, *clientID, taxType, adjusted)
		if err != nil {
			return nil, fmt.Errorf("extension lookup failed: %w", err)
		}
		if ext != nil {
			result.Deadline = DateOnly(ext.ExtendedDeadline)
			result.ExtensionID = &ext.ID
			result.Adjustments = append(result.Adjustments,
				fmt.Sprintf("extension %s: %s -> %s",
					ext.ID, adjusted.Format("2006-01-02"), result.Deadline.Format("2006-01-02")))
		}
	}

	return result, nil
}
