package service

import (
	"context"
	"testing"

	"taxoffice/internal/deadline"
	"taxoffice/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupGSTRule(t *testing.T, ts testServices) RuleResponse {
	t.Helper()

	req := gstRuleRequest()
	req.Activate = true
	res, err := ts.rules.CreateRule(context.Background(), req, "")
	require.NoError(t, err)
	return res
}

func TestResolveDeadlineRollsOverWeekend(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	rule := setupGSTRule(t, ts)

	// 2024-03-16 + 15 days = Sunday 2024-03-31, rolled to Monday
	res, err := ts.deadlines.Resolve(ctx, ResolveDeadlineRequest{
		TaxType:     model.TaxTypeGST,
		TriggerDate: "2024-03-16",
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-04-01", res.Deadline)
	assert.Equal(t, rule.ID, res.RuleID)
	assert.Nil(t, res.ExtensionID)
	assert.Len(t, res.Adjustments, 2)
}

func TestResolveDeadlineSkipsHoliday(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	setupGSTRule(t, ts)

	_, err := ts.holidays.AddHoliday(ctx, AddHolidayRequest{Date: "2024-04-01", Name: "Easter Monday"}, "")
	require.NoError(t, err)

	res, err := ts.deadlines.Resolve(ctx, ResolveDeadlineRequest{
		TaxType:     model.TaxTypeGST,
		TriggerDate: "2024-03-16",
	})
	require.NoError(t, err)

	// Weekend roll lands on the holiday, which rolls again to Tuesday
	assert.Equal(t, "2024-04-02", res.Deadline)
}

func TestResolveDeadlineWithClientExtension(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	setupGSTRule(t, ts)
	clientID := uuid.New()

	_, err := ts.extensions.Grant(ctx, GrantExtensionRequest{
		ClientID:         clientID.String(),
		TaxType:          model.TaxTypeGST,
		OriginalDeadline: "2024-04-01",
		ExtendedDeadline: "2024-04-15",
		Reason:           "flood damage",
	}, "")
	require.NoError(t, err)

	res, err := ts.deadlines.Resolve(ctx, ResolveDeadlineRequest{
		TaxType:     model.TaxTypeGST,
		TriggerDate: "2024-03-16",
		ClientID:    clientID.String(),
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-04-15", res.Deadline)
	require.NotNil(t, res.ExtensionID)
	assert.Len(t, res.Adjustments, 3)

	// Another client still gets the statutory deadline
	other, err := ts.deadlines.Resolve(ctx, ResolveDeadlineRequest{
		TaxType:     model.TaxTypeGST,
		TriggerDate: "2024-03-16",
		ClientID:    uuid.New().String(),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01", other.Deadline)
	assert.Nil(t, other.ExtensionID)
}

func TestResolveDeadlineRevokedExtensionIgnored(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	setupGSTRule(t, ts)
	clientID := uuid.New()

	granted, err := ts.extensions.Grant(ctx, GrantExtensionRequest{
		ClientID:         clientID.String(),
		TaxType:          model.TaxTypeGST,
		OriginalDeadline: "2024-04-01",
		ExtendedDeadline: "2024-04-15",
	}, "")
	require.NoError(t, err)
	_, err = ts.extensions.Revoke(ctx, granted.ID, "")
	require.NoError(t, err)

	res, err := ts.deadlines.Resolve(ctx, ResolveDeadlineRequest{
		TaxType:     model.TaxTypeGST,
		TriggerDate: "2024-03-16",
		ClientID:    clientID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-04-01", res.Deadline)
	assert.Nil(t, res.ExtensionID)
}

func TestResolveDeadlineNoActiveRule(t *testing.T) {
	ts := newTestServices(t)

	_, err := ts.deadlines.Resolve(context.Background(), ResolveDeadlineRequest{
		TaxType:     model.TaxTypePAYE,
		TriggerDate: "2024-03-16",
	})
	assert.ErrorIs(t, err, deadline.ErrNoActiveRule)
}

func TestResolveDeadlineValidation(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	setupGSTRule(t, ts)

	_, err := ts.deadlines.Resolve(ctx, ResolveDeadlineRequest{
		TaxType:     model.TaxTypeGST,
		TriggerDate: "16/03/2024",
	})
	assert.ErrorIs(t, err, deadline.ErrValidation)

	_, err = ts.deadlines.Resolve(ctx, ResolveDeadlineRequest{
		TaxType:     model.TaxTypeGST,
		TriggerDate: "2024-03-16",
		ClientID:    "not-a-uuid",
	})
	assert.ErrorIs(t, err, deadline.ErrValidation)
}

func TestEstimatePenaltyLateFiling(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	setupGSTRule(t, ts) // daily penalty 25.50

	// Deadline 2024-04-01, filed 2024-04-05 = 4 days late
	res, err := ts.deadlines.EstimatePenalty(ctx, PenaltyEstimateRequest{
		TaxType:     model.TaxTypeGST,
		TriggerDate: "2024-03-16",
		FiledDate:   "2024-04-05",
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-04-01", res.Deadline)
	assert.Equal(t, 4, res.DaysLate)
	assert.Equal(t, "25.50", res.DailyPenalty)
	assert.Equal(t, "102.00", res.EstimatedPenalty)
}

func TestEstimatePenaltyOnTimeFiling(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	setupGSTRule(t, ts)

	res, err := ts.deadlines.EstimatePenalty(ctx, PenaltyEstimateRequest{
		TaxType:     model.TaxTypeGST,
		TriggerDate: "2024-03-16",
		FiledDate:   "2024-04-01",
	})
	require.NoError(t, err)

	assert.Equal(t, 0, res.DaysLate)
	assert.Equal(t, "0.00", res.EstimatedPenalty)
}

func TestEstimatePenaltyExtensionShrinksLateness(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	setupGSTRule(t, ts)
	clientID := uuid.New()

	_, err := ts.extensions.Grant(ctx, GrantExtensionRequest{
		ClientID:         clientID.String(),
		TaxType:          model.TaxTypeGST,
		OriginalDeadline: "2024-04-01",
		ExtendedDeadline: "2024-04-15",
	}, "")
	require.NoError(t, err)

	res, err := ts.deadlines.EstimatePenalty(ctx, PenaltyEstimateRequest{
		TaxType:     model.TaxTypeGST,
		TriggerDate: "2024-03-16",
		FiledDate:   "2024-04-05",
		ClientID:    clientID.String(),
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-04-15", res.Deadline)
	assert.Equal(t, 0, res.DaysLate)
	assert.Equal(t, "0.00", res.EstimatedPenalty)
}
