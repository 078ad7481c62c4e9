package deadline

import (
	"context"
	"testing"
	"time"

	"taxoffice/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuleSource struct {
	rules map[string]*model.DeadlineRule
}

func (f *fakeRuleSource) ActiveRule(_ context.Context, taxType string, _ time.Time) (*model.DeadlineRule, error) {
	if r, ok := f.rules[taxType]; ok {
		return r, nil
	}
	return nil, ErrNoActiveRule
}

type fakeExtensionSource struct {
	ext *model.ClientExtension
}

func (f *fakeExtensionSource) ActiveExtension(_ context.Context, clientID uuid.UUID, taxType string, deadline time.Time) (*model.ClientExtension, error) {
	if f.ext != nil && f.ext.ClientID == clientID && f.ext.TaxType == taxType && f.ext.OriginalDeadline.Equal(deadline) {
		return f.ext, nil
	}
	return nil, nil
}

func gstRollForwardRule() *model.DeadlineRule {
	return &model.DeadlineRule{
		ID:               uuid.New(),
		TaxType:          model.TaxTypeGST,
		OffsetValue:      15,
		OffsetUnit:       model.OffsetUnitDays,
		AdjustmentPolicy: model.PolicyRollForward,
		IsActive:         true,
	}
}

func TestResolveRollsForwardOverWeekend(t *testing.T) {
	rule := gstRollForwardRule()
	calc := NewCalculator(
		&fakeRuleSource{rules: map[string]*model.DeadlineRule{model.TaxTypeGST: rule}},
		holidays(),
		&fakeExtensionSource{},
	)

	// 2024-03-16 + 15 days = 2024-03-31, a Sunday
	result, err := calc.Resolve(context.Background(), model.TaxTypeGST, date(2024, time.March, 16), nil)
	require.NoError(t, err)

	assert.Equal(t, date(2024, time.April, 1), result.Deadline)
	assert.Equal(t, rule.ID, result.RuleID)
	assert.Nil(t, result.ExtensionID)
	require.Len(t, result.Adjustments, 2)
	assert.Contains(t, result.Adjustments[1], "ROLL_FORWARD")
}

func TestResolveAppliesClientExtension(t *testing.T) {
	rule := gstRollForwardRule()
	clientID := uuid.New()
	ext := &model.ClientExtension{
		ID:               uuid.New(),
		ClientID:         clientID,
		TaxType:          model.TaxTypeGST,
		OriginalDeadline: date(2024, time.April, 1),
		ExtendedDeadline: date(2024, time.April, 15),
	}

	calc := NewCalculator(
		&fakeRuleSource{rules: map[string]*model.DeadlineRule{model.TaxTypeGST: rule}},
		holidays(),
		&fakeExtensionSource{ext: ext},
	)

	result, err := calc.Resolve(context.Background(), model.TaxTypeGST, date(2024, time.March, 16), &clientID)
	require.NoError(t, err)

	assert.Equal(t, date(2024, time.April, 15), result.Deadline)
	require.NotNil(t, result.ExtensionID)
	assert.Equal(t, ext.ID, *result.ExtensionID)
	require.Len(t, result.Adjustments, 3)
	assert.Contains(t, result.Adjustments[2], ext.ID.String())
}

func TestResolveExtensionIgnoredForOtherClient(t *testing.T) {
	rule := gstRollForwardRule()
	other := uuid.New()
	ext := &model.ClientExtension{
		ID:               uuid.New(),
		ClientID:         uuid.New(),
		TaxType:          model.TaxTypeGST,
		OriginalDeadline: date(2024, time.April, 1),
		ExtendedDeadline: date(2024, time.April, 15),
	}

	calc := NewCalculator(
		&fakeRuleSource{rules: map[string]*model.DeadlineRule{model.TaxTypeGST: rule}},
		holidays(),
		&fakeExtensionSource{ext: ext},
	)

	result, err := calc.Resolve(context.Background(), model.TaxTypeGST, date(2024, time.March, 16), &other)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.April, 1), result.Deadline)
	assert.Nil(t, result.ExtensionID)
}

func TestResolveNoActiveRuleIsHardStop(t *testing.T) {
	calc := NewCalculator(&fakeRuleSource{rules: map[string]*model.DeadlineRule{}}, holidays(), &fakeExtensionSource{})

	_, err := calc.Resolve(context.Background(), model.TaxTypePAYE, date(2024, time.March, 16), nil)
	assert.ErrorIs(t, err, ErrNoActiveRule)
}

func TestResolveUnknownTaxType(t *testing.T) {
	calc := NewCalculator(&fakeRuleSource{rules: map[string]*model.DeadlineRule{}}, holidays(), &fakeExtensionSource{})

	_, err := calc.Resolve(context.Background(), "STAMP_DUTY", date(2024, time.March, 16), nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestResolveNoAdjustmentPolicyKeepsRawDate(t *testing.T) {
	rule := gstRollForwardRule()
	rule.AdjustmentPolicy = model.PolicyNone

	calc := NewCalculator(
		&fakeRuleSource{rules: map[string]*model.DeadlineRule{model.TaxTypeGST: rule}},
		holidays(),
		&fakeExtensionSource{},
	)

	result, err := calc.Resolve(context.Background(), model.TaxTypeGST, date(2024, time.March, 16), nil)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 31), result.Deadline, "Sunday kept as-is under NONE")
	assert.Contains(t, result.Adjustments[1], "NONE")
}

func TestResolveRollBackPolicy(t *testing.T) {
	rule := gstRollForwardRule()
	rule.AdjustmentPolicy = model.PolicyRollBack

	calc := NewCalculator(
		&fakeRuleSource{rules: map[string]*model.DeadlineRule{model.TaxTypeGST: rule}},
		holidays(),
		&fakeExtensionSource{},
	)

	// Raw deadline 2024-03-31 (Sunday) rolls back to Friday 2024-03-29
	result, err := calc.Resolve(context.Background(), model.TaxTypeGST, date(2024, time.March, 16), nil)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.March, 29), result.Deadline)
}

func TestResolveMonthOffsetWithRollForward(t *testing.T) {
	rule := &model.DeadlineRule{
		ID:               uuid.New(),
		TaxType:          model.TaxTypeCIT,
		OffsetValue:      1,
		OffsetUnit:       model.OffsetUnitMonths,
		AdjustmentPolicy: model.PolicyRollForward,
		IsActive:         true,
	}
	calc := NewCalculator(
		&fakeRuleSource{rules: map[string]*model.DeadlineRule{model.TaxTypeCIT: rule}},
		holidays(),
		&fakeExtensionSource{},
	)

	// Jan 31 + 1 month clamps to Feb 29 2024 (Thursday), a business day
	result, err := calc.Resolve(context.Background(), model.TaxTypeCIT, date(2024, time.January, 31), nil)
	require.NoError(t, err)
	assert.Equal(t, date(2024, time.February, 29), result.Deadline)
}

func TestResolveNeverLandsOnWeekendOrHolidayUnderRollForward(t *testing.T) {
	rule := gstRollForwardRule()
	cal := holidays("2024-01-01", "2024-04-01", "2024-12-25", "2024-12-26")
	calc := NewCalculator(
		&fakeRuleSource{rules: map[string]*model.DeadlineRule{model.TaxTypeGST: rule}},
		cal,
		&fakeExtensionSource{},
	)

	trigger := date(2023, time.December, 1)
	for i := 0; i < 365; i++ {
		result, err := calc.Resolve(context.Background(), model.TaxTypeGST, trigger, nil)
		require.NoError(t, err)
		assert.False(t, IsWeekend(result.Deadline), "deadline %s is a weekend", result.Deadline)
		hol, _ := cal.IsHoliday(context.Background(), result.Deadline)
		assert.False(t, hol, "deadline %s is a holiday", result.Deadline)
		trigger = trigger.AddDate(0, 0, 1)
	}
}
