package deadline

import "errors"

// Typed failure conditions of the rule engine. Services wrap these with
// fmt.Errorf("…: %w", err) so handlers can branch on errors.Is while still
// returning a human-readable message.
var (
	// ErrValidation marks malformed input: unknown tax type, bad offset,
	// unrecognized policy, or an extension that does not extend.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a referenced id that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoActiveRule is returned when resolution is requested for a tax
	// type with no eligible active rule. Callers must surface it — the
	// absence of configuration is itself a reportable condition, never a
	// default deadline.
	ErrNoActiveRule = errors.New("no active rule")

	// ErrConflict marks an operation that would violate the
	// one-active-rule invariant, e.g. deleting the sole active rule for a
	// tax type without a replacement.
	ErrConflict = errors.New("conflict")

	// ErrDuplicateHoliday marks an attempt to add a holiday date that is
	// already in the calendar.
	ErrDuplicateHoliday = errors.New("duplicate holiday")

	// ErrAdjustmentLimit is returned when the business-day walk exceeds
	// its iteration cap, guarding against a pathological holiday calendar.
	ErrAdjustmentLimit = errors.New("adjustment limit exceeded")
)
