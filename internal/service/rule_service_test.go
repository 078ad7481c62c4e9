package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"taxoffice/internal/deadline"
	"taxoffice/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gstRuleRequest() CreateRuleRequest {
	return CreateRuleRequest{
		TaxType:          model.TaxTypeGST,
		OffsetValue:      15,
		OffsetUnit:       model.OffsetUnitDays,
		AdjustmentPolicy: model.PolicyRollForward,
		DailyPenalty:     "25.50",
		Description:      "GST return due 15 days after period end",
	}
}

func TestCreateRuleStartsInactive(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	res, err := ts.rules.CreateRule(ctx, gstRuleRequest(), "")
	require.NoError(t, err)

	assert.False(t, res.IsActive)
	assert.Nil(t, res.ActivatedAt)
	assert.Equal(t, "25.50", res.DailyPenalty)

	_, err = ts.rules.ActiveRule(ctx, model.TaxTypeGST, time.Now())
	assert.ErrorIs(t, err, deadline.ErrNoActiveRule)
}

func TestCreateRuleWithActivate(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	req := gstRuleRequest()
	req.Activate = true
	res, err := ts.rules.CreateRule(ctx, req, "")
	require.NoError(t, err)

	assert.True(t, res.IsActive)
	require.NotNil(t, res.ActivatedAt)

	active, err := ts.rules.ActiveRule(ctx, model.TaxTypeGST, time.Now())
	require.NoError(t, err)
	assert.Equal(t, res.ID, active.ID.String())
}

func TestCreateRuleValidation(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*CreateRuleRequest)
	}{
		{"zero offset", func(r *CreateRuleRequest) { r.OffsetValue = 0 }},
		{"unknown unit", func(r *CreateRuleRequest) { r.OffsetUnit = "WEEKS" }},
		{"unknown policy", func(r *CreateRuleRequest) { r.AdjustmentPolicy = "SKIP" }},
		{"unknown tax type", func(r *CreateRuleRequest) { r.TaxType = "STAMP_DUTY" }},
		{"window inverted", func(r *CreateRuleRequest) {
			r.EffectiveFrom = "2024-12-31"
			r.EffectiveTo = "2024-01-01"
		}},
		{"bad date format", func(r *CreateRuleRequest) { r.EffectiveFrom = "31/12/2024" }},
		{"negative penalty", func(r *CreateRuleRequest) { r.DailyPenalty = "-1.00" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := gstRuleRequest()
			tc.mutate(&req)
			_, err := ts.rules.CreateRule(ctx, req, "")
			assert.ErrorIs(t, err, deadline.ErrValidation)
		})
	}
}

func TestActivateRuleDeactivatesSibling(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	first, err := ts.rules.CreateRule(ctx, gstRuleRequest(), "")
	require.NoError(t, err)
	second, err := ts.rules.CreateRule(ctx, gstRuleRequest(), "")
	require.NoError(t, err)

	_, err = ts.rules.ActivateRule(ctx, first.ID, "")
	require.NoError(t, err)
	_, err = ts.rules.ActivateRule(ctx, second.ID, "")
	require.NoError(t, err)

	active, err := ts.rules.ActiveRule(ctx, model.TaxTypeGST, time.Now())
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID.String())

	_, total, err := ts.rules.ListRules(ctx, model.TaxTypeGST, true, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestActivateRuleIdempotent(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	req := gstRuleRequest()
	req.Activate = true
	created, err := ts.rules.CreateRule(ctx, req, "")
	require.NoError(t, err)

	res, err := ts.rules.ActivateRule(ctx, created.ID, "")
	require.NoError(t, err)
	assert.True(t, res.IsActive)

	_, total, err := ts.rules.ListRules(ctx, model.TaxTypeGST, true, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestConcurrentActivationLeavesOneActive(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	ids := make([]string, 4)
	for i := range ids {
		res, err := ts.rules.CreateRule(ctx, gstRuleRequest(), "")
		require.NoError(t, err)
		ids[i] = res.ID
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := ts.rules.ActivateRule(ctx, id, "")
			assert.NoError(t, err)
		}(ids[i%len(ids)])
	}
	wg.Wait()

	_, total, err := ts.rules.ListRules(ctx, model.TaxTypeGST, true, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestActivationIsPerTaxType(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	gstReq := gstRuleRequest()
	gstReq.Activate = true
	_, err := ts.rules.CreateRule(ctx, gstReq, "")
	require.NoError(t, err)

	payeReq := gstRuleRequest()
	payeReq.TaxType = model.TaxTypePAYE
	payeReq.Activate = true
	_, err = ts.rules.CreateRule(ctx, payeReq, "")
	require.NoError(t, err)

	// Activating PAYE must not touch the GST rule
	_, err = ts.rules.ActiveRule(ctx, model.TaxTypeGST, time.Now())
	assert.NoError(t, err)
	_, err = ts.rules.ActiveRule(ctx, model.TaxTypePAYE, time.Now())
	assert.NoError(t, err)
}

func TestDeactivateRuleLeavesTypeWithoutRule(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	req := gstRuleRequest()
	req.Activate = true
	created, err := ts.rules.CreateRule(ctx, req, "")
	require.NoError(t, err)

	res, err := ts.rules.DeactivateRule(ctx, created.ID, "")
	require.NoError(t, err)
	assert.False(t, res.IsActive)

	_, err = ts.rules.ActiveRule(ctx, model.TaxTypeGST, time.Now())
	assert.ErrorIs(t, err, deadline.ErrNoActiveRule)
}

func TestDeleteSoleActiveRequiresReplacement(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	req := gstRuleRequest()
	req.Activate = true
	created, err := ts.rules.CreateRule(ctx, req, "")
	require.NoError(t, err)

	err = ts.rules.DeleteRule(ctx, created.ID, "", "")
	assert.ErrorIs(t, err, deadline.ErrConflict)

	// Still resolvable after the rejected delete
	_, err = ts.rules.ActiveRule(ctx, model.TaxTypeGST, time.Now())
	assert.NoError(t, err)
}

func TestDeleteActiveWithReplacement(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	req := gstRuleRequest()
	req.Activate = true
	active, err := ts.rules.CreateRule(ctx, req, "")
	require.NoError(t, err)
	replacement, err := ts.rules.CreateRule(ctx, gstRuleRequest(), "")
	require.NoError(t, err)

	require.NoError(t, ts.rules.DeleteRule(ctx, active.ID, replacement.ID, ""))

	current, err := ts.rules.ActiveRule(ctx, model.TaxTypeGST, time.Now())
	require.NoError(t, err)
	assert.Equal(t, replacement.ID, current.ID.String())

	_, err = ts.rules.GetRule(ctx, active.ID)
	assert.ErrorIs(t, err, deadline.ErrNotFound)
}

func TestDeleteReplacementCannotBeSelf(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	req := gstRuleRequest()
	req.Activate = true
	active, err := ts.rules.CreateRule(ctx, req, "")
	require.NoError(t, err)

	err = ts.rules.DeleteRule(ctx, active.ID, active.ID, "")
	assert.ErrorIs(t, err, deadline.ErrValidation)

	// The rule survives and stays active
	current, err := ts.rules.ActiveRule(ctx, model.TaxTypeGST, time.Now())
	require.NoError(t, err)
	assert.Equal(t, active.ID, current.ID.String())
}

func TestDeleteReplacementTypeMismatch(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	req := gstRuleRequest()
	req.Activate = true
	active, err := ts.rules.CreateRule(ctx, req, "")
	require.NoError(t, err)

	payeReq := gstRuleRequest()
	payeReq.TaxType = model.TaxTypePAYE
	other, err := ts.rules.CreateRule(ctx, payeReq, "")
	require.NoError(t, err)

	err = ts.rules.DeleteRule(ctx, active.ID, other.ID, "")
	assert.ErrorIs(t, err, deadline.ErrValidation)
}

func TestDeleteInactiveRule(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	created, err := ts.rules.CreateRule(ctx, gstRuleRequest(), "")
	require.NoError(t, err)

	require.NoError(t, ts.rules.DeleteRule(ctx, created.ID, "", ""))

	_, err = ts.rules.GetRule(ctx, created.ID)
	assert.ErrorIs(t, err, deadline.ErrNotFound)
}

func TestUpdateActiveRuleTaxTypeBlocked(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	req := gstRuleRequest()
	req.Activate = true
	created, err := ts.rules.CreateRule(ctx, req, "")
	require.NoError(t, err)

	upd := UpdateRuleRequest{
		TaxType:          model.TaxTypePAYE,
		OffsetValue:      15,
		OffsetUnit:       model.OffsetUnitDays,
		AdjustmentPolicy: model.PolicyRollForward,
	}
	_, err = ts.rules.UpdateRule(ctx, created.ID, upd, "")
	assert.ErrorIs(t, err, deadline.ErrConflict)
}

func TestUpdateRuleFields(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	req := gstRuleRequest()
	req.Activate = true
	created, err := ts.rules.CreateRule(ctx, req, "")
	require.NoError(t, err)

	upd := UpdateRuleRequest{
		TaxType:          model.TaxTypeGST,
		OffsetValue:      1,
		OffsetUnit:       model.OffsetUnitMonths,
		AdjustmentPolicy: model.PolicyRollBack,
		DailyPenalty:     "50",
	}
	res, err := ts.rules.UpdateRule(ctx, created.ID, upd, "")
	require.NoError(t, err)

	assert.Equal(t, 1, res.OffsetValue)
	assert.Equal(t, model.OffsetUnitMonths, res.OffsetUnit)
	assert.Equal(t, model.PolicyRollBack, res.AdjustmentPolicy)
	assert.Equal(t, "50.00", res.DailyPenalty)
	assert.True(t, res.IsActive, "update must not change activation state")
}

func TestActiveRuleRespectsEffectiveWindow(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	req := gstRuleRequest()
	req.Activate = true
	req.EffectiveFrom = "2024-01-01"
	req.EffectiveTo = "2024-12-31"
	_, err := ts.rules.CreateRule(ctx, req, "")
	require.NoError(t, err)

	_, err = ts.rules.ActiveRule(ctx, model.TaxTypeGST, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)

	_, err = ts.rules.ActiveRule(ctx, model.TaxTypeGST, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, deadline.ErrNoActiveRule)

	_, err = ts.rules.ActiveRule(ctx, model.TaxTypeGST, time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, deadline.ErrNoActiveRule)
}

func TestGetRuleNotFound(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	_, err := ts.rules.GetRule(ctx, "0b8f6f3e-4f4e-4d7a-9a8e-0f1d2c3b4a59")
	assert.ErrorIs(t, err, deadline.ErrNotFound)

	_, err = ts.rules.GetRule(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, deadline.ErrValidation)
}

func TestListRulesFilters(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()

	gstReq := gstRuleRequest()
	gstReq.Activate = true
	_, err := ts.rules.CreateRule(ctx, gstReq, "")
	require.NoError(t, err)
	_, err = ts.rules.CreateRule(ctx, gstRuleRequest(), "")
	require.NoError(t, err)

	payeReq := gstRuleRequest()
	payeReq.TaxType = model.TaxTypePAYE
	_, err = ts.rules.CreateRule(ctx, payeReq, "")
	require.NoError(t, err)

	_, total, err := ts.rules.ListRules(ctx, "", false, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	_, total, err = ts.rules.ListRules(ctx, model.TaxTypeGST, false, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, total, err = ts.rules.ListRules(ctx, model.TaxTypeGST, true, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, _, err = ts.rules.ListRules(ctx, "STAMP_DUTY", false, 1, 10)
	assert.ErrorIs(t, err, deadline.ErrValidation)
}
