package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"taxoffice/internal/deadline"
	"taxoffice/internal/lock"
	"taxoffice/internal/model"
	"taxoffice/internal/repository"
	"taxoffice/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRuleRequest struct {
	TaxType          string `json:"tax_type" binding:"required,oneof=GST PAYE CIT WHT FBT"`
	OffsetValue      int    `json:"offset_value" binding:"required"`
	OffsetUnit       string `json:"offset_unit" binding:"required,oneof=DAYS MONTHS"`
	AdjustmentPolicy string `json:"adjustment_policy" binding:"required,oneof=ROLL_FORWARD ROLL_BACK NONE"`
	EffectiveFrom    string `json:"effective_from"` // YYYY-MM-DD, empty = open-ended
	EffectiveTo      string `json:"effective_to"`   // YYYY-MM-DD, empty = open-ended
	DailyPenalty     string `json:"daily_penalty"`  // decimal string, empty = 0
	Description      string `json:"description"`
	Activate         bool   `json:"activate"` // activate atomically in the same call
}

type UpdateRuleRequest struct {
	TaxType          string `json:"tax_type" binding:"required,oneof=GST PAYE CIT WHT FBT"`
	OffsetValue      int    `json:"offset_value" binding:"required"`
	OffsetUnit       string `json:"offset_unit" binding:"required,oneof=DAYS MONTHS"`
	AdjustmentPolicy string `json:"adjustment_policy" binding:"required,oneof=ROLL_FORWARD ROLL_BACK NONE"`
	EffectiveFrom    string `json:"effective_from"`
	EffectiveTo      string `json:"effective_to"`
	DailyPenalty     string `json:"daily_penalty"`
	Description      string `json:"description"`
}

type RuleResponse struct {
	ID               string  `json:"id"`
	TaxType          string  `json:"tax_type"`
	OffsetValue      int     `json:"offset_value"`
	OffsetUnit       string  `json:"offset_unit"`
	AdjustmentPolicy string  `json:"adjustment_policy"`
	IsActive         bool    `json:"is_active"`
	EffectiveFrom    *string `json:"effective_from"`
	EffectiveTo      *string `json:"effective_to"`
	DailyPenalty     string  `json:"daily_penalty"`
	Description      string  `json:"description"`
	ActivatedAt      *string `json:"activated_at"`
	CreatedAt        string  `json:"created_at"`
}

// --- Interface ---

type RuleService interface {
	ListRules(ctx context.Context, taxType string, activeOnly bool, page, limit int) ([]RuleResponse, int64, error)
	GetRule(ctx context.Context, id string) (RuleResponse, error)
	CreateRule(ctx context.Context, req CreateRuleRequest, userID string) (RuleResponse, error)
	UpdateRule(ctx context.Context, id string, req UpdateRuleRequest, userID string) (RuleResponse, error)
	DeleteRule(ctx context.Context, id string, replacementID string, userID string) error
	ActivateRule(ctx context.Context, id string, userID string) (RuleResponse, error)
	DeactivateRule(ctx context.Context, id string, userID string) (RuleResponse, error)

	// ActiveRule implements deadline.RuleSource for the calculator
	ActiveRule(ctx context.Context, taxType string, asOf time.Time) (*model.DeadlineRule, error)
}

type ruleService struct {
	rules repository.RuleRepository
	audit repository.AuditRepository
	tx    repository.TransactionManager
	locks *lock.Keyed // one slot per tax type
	hub   *websocket.Hub
}

func NewRuleService(rules repository.RuleRepository, audit repository.AuditRepository, tx repository.TransactionManager, hub *websocket.Hub) RuleService {
	return &ruleService{
		rules: rules,
		audit: audit,
		tx:    tx,
		locks: lock.NewKeyed(),
		hub:   hub,
	}
}

// --- Implementation ---

func (s *ruleService) ListRules(ctx context.Context, taxType string, activeOnly bool, page, limit int) ([]RuleResponse, int64, error) {
	if taxType != "" && !model.ValidTaxType(taxType) {
		return nil, 0, fmt.Errorf("%w: unknown tax type '%s'", deadline.ErrValidation, taxType)
	}

	rules, total, err := s.rules.List(ctx, taxType, activeOnly, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deadline rules: %w", err)
	}

	res := make([]RuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toRuleResponse(r))
	}
	return res, total, nil
}

func (s *ruleService) GetRule(ctx context.Context, id string) (RuleResponse, error) {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return RuleResponse{}, err
	}
	return toRuleResponse(*rule), nil
}

func (s *ruleService) CreateRule(ctx context.Context, req CreateRuleRequest, userID string) (RuleResponse, error) {
	fields, err := parseRuleFields(req.OffsetValue, req.OffsetUnit, req.AdjustmentPolicy,
		req.EffectiveFrom, req.EffectiveTo, req.DailyPenalty)
	if err != nil {
		return RuleResponse{}, err
	}
	if !model.ValidTaxType(req.TaxType) {
		return RuleResponse{}, fmt.Errorf("%w: unknown tax type '%s'", deadline.ErrValidation, req.TaxType)
	}

	rule := model.DeadlineRule{
		TaxType:          req.TaxType,
		OffsetValue:      req.OffsetValue,
		OffsetUnit:       req.OffsetUnit,
		AdjustmentPolicy: req.AdjustmentPolicy,
		EffectiveFrom:    fields.effectiveFrom,
		EffectiveTo:      fields.effectiveTo,
		DailyPenalty:     fields.dailyPenalty,
		Description:      req.Description,
		IsActive:         false, // new rules start inactive unless activated below
	}

	// Creation with activation shares the tax type's lock with Activate so
	// a racing caller can never observe two active rules.
	s.locks.Lock(req.TaxType)
	defer s.locks.Unlock(req.TaxType)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.rules.Create(txCtx, &rule); err != nil {
			return fmt.Errorf("failed to create deadline rule: %w", err)
		}
		if req.Activate {
			now := time.Now().UTC()
			if err := s.rules.DeactivateOthers(txCtx, rule.TaxType, rule.ID); err != nil {
				return fmt.Errorf("failed to deactivate sibling rules: %w", err)
			}
			if err := s.rules.SetActive(txCtx, rule.ID, true, &now); err != nil {
				return fmt.Errorf("failed to activate deadline rule: %w", err)
			}
			rule.IsActive = true
			rule.ActivatedAt = &now
		}
		s.writeAuditLog(txCtx, userID, model.ActionCreateRule, rule.ID.String(), rule.TaxType, req)
		return nil
	})
	if err != nil {
		return RuleResponse{}, err
	}

	s.broadcast("rule_created", rule)
	return toRuleResponse(rule), nil
}

func (s *ruleService) UpdateRule(ctx context.Context, id string, req UpdateRuleRequest, userID string) (RuleResponse, error) {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return RuleResponse{}, err
	}

	fields, err := parseRuleFields(req.OffsetValue, req.OffsetUnit, req.AdjustmentPolicy,
		req.EffectiveFrom, req.EffectiveTo, req.DailyPenalty)
	if err != nil {
		return RuleResponse{}, err
	}
	if !model.ValidTaxType(req.TaxType) {
		return RuleResponse{}, fmt.Errorf("%w: unknown tax type '%s'", deadline.ErrValidation, req.TaxType)
	}
	if req.TaxType != rule.TaxType && rule.IsActive {
		// Re-typing an active rule would smuggle it past the per-type invariant
		return RuleResponse{}, fmt.Errorf("%w: deactivate the rule before changing its tax type", deadline.ErrConflict)
	}

	rule.TaxType = req.TaxType
	rule.OffsetValue = req.OffsetValue
	rule.OffsetUnit = req.OffsetUnit
	rule.AdjustmentPolicy = req.AdjustmentPolicy
	rule.EffectiveFrom = fields.effectiveFrom
	rule.EffectiveTo = fields.effectiveTo
	rule.DailyPenalty = fields.dailyPenalty
	rule.Description = req.Description

	// Takes effect for subsequent computations only; deadlines already
	// returned are never retroactively corrected.
	if err := s.rules.Update(ctx, rule); err != nil {
		return RuleResponse{}, fmt.Errorf("failed to update deadline rule: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionUpdateRule, rule.ID.String(), rule.TaxType, req)
	s.broadcast("rule_updated", *rule)
	return toRuleResponse(*rule), nil
}

func (s *ruleService) DeleteRule(ctx context.Context, id string, replacementID string, userID string) error {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return err
	}

	s.locks.Lock(rule.TaxType)
	defer s.locks.Unlock(rule.TaxType)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		// Re-read inside the transaction; activation state may have moved
		// while we waited on the lock.
		current, err := s.rules.FindByID(txCtx, rule.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: deadline rule %s", deadline.ErrNotFound, id)
			}
			return fmt.Errorf("failed to fetch deadline rule: %w", err)
		}

		if current.IsActive {
			if replacementID == "" {
				return fmt.Errorf("%w: rule %s is the active rule for %s; supply replacement_id to delete it",
					deadline.ErrConflict, id, current.TaxType)
			}
			repID, err := uuid.Parse(replacementID)
			if err != nil {
				return fmt.Errorf("%w: invalid replacement_id: %v", deadline.ErrValidation, err)
			}
			if repID == current.ID {
				return fmt.Errorf("%w: replacement_id must reference a different rule", deadline.ErrValidation)
			}
			replacement, err := s.rules.FindByID(txCtx, repID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: replacement rule %s", deadline.ErrNotFound, replacementID)
				}
				return fmt.Errorf("failed to fetch replacement rule: %w", err)
			}
			if replacement.TaxType != current.TaxType {
				return fmt.Errorf("%w: replacement rule is for %s, not %s",
					deadline.ErrValidation, replacement.TaxType, current.TaxType)
			}
			now := time.Now().UTC()
			if err := s.rules.SetActive(txCtx, replacement.ID, true, &now); err != nil {
				return fmt.Errorf("failed to activate replacement rule: %w", err)
			}
		}

		if err := s.rules.Delete(txCtx, current.ID); err != nil {
			return fmt.Errorf("failed to delete deadline rule: %w", err)
		}
		s.writeAuditLog(txCtx, userID, model.ActionDeleteRule, current.ID.String(), current.TaxType,
			map[string]string{"deleted_id": id, "replacement_id": replacementID})
		return nil
	})
	if err != nil {
		return err
	}

	s.broadcast("rule_deleted", map[string]string{"id": id, "tax_type": rule.TaxType})
	return nil
}

// ActivateRule atomically makes id the sole active rule of its tax type.
// Idempotent when id is already the sole active rule.
func (s *ruleService) ActivateRule(ctx context.Context, id string, userID string) (RuleResponse, error) {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return RuleResponse{}, err
	}

	s.locks.Lock(rule.TaxType)
	defer s.locks.Unlock(rule.TaxType)

	now := time.Now().UTC()
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.rules.DeactivateOthers(txCtx, rule.TaxType, rule.ID); err != nil {
			return fmt.Errorf("failed to deactivate sibling rules: %w", err)
		}
		if err := s.rules.SetActive(txCtx, rule.ID, true, &now); err != nil {
			return fmt.Errorf("failed to activate deadline rule: %w", err)
		}
		s.writeAuditLog(txCtx, userID, model.ActionActivateRule, rule.ID.String(), rule.TaxType, nil)
		return nil
	})
	if err != nil {
		return RuleResponse{}, err
	}

	rule.IsActive = true
	rule.ActivatedAt = &now
	s.broadcast("rule_activated", *rule)
	return toRuleResponse(*rule), nil
}

// DeactivateRule sets IsActive false. Leaving the tax type with zero active
// rules is legitimate here — subsequent resolutions fail with NoActiveRule.
func (s *ruleService) DeactivateRule(ctx context.Context, id string, userID string) (RuleResponse, error) {
	rule, err := s.findRule(ctx, id)
	if err != nil {
		return RuleResponse{}, err
	}

	s.locks.Lock(rule.TaxType)
	defer s.locks.Unlock(rule.TaxType)

	if err := s.rules.SetActive(ctx, rule.ID, false, nil); err != nil {
		return RuleResponse{}, fmt.Errorf("failed to deactivate deadline rule: %w", err)
	}
	s.writeAuditLog(ctx, userID, model.ActionDeactivateRule, rule.ID.String(), rule.TaxType, nil)

	rule.IsActive = false
	s.broadcast("rule_deactivated", *rule)
	return toRuleResponse(*rule), nil
}

// ActiveRule selects the rule for taxType whose IsActive is true and whose
// effective window contains asOf. More than one match should be impossible
// under the invariant; defensively the most recently activated wins and the
// condition is logged.
func (s *ruleService) ActiveRule(ctx context.Context, taxType string, asOf time.Time) (*model.DeadlineRule, error) {
	rules, err := s.rules.FindActiveByType(ctx, taxType, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query active rule: %w", err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: no active deadline rule for %s on %s",
			deadline.ErrNoActiveRule, taxType, asOf.Format("2006-01-02"))
	}
	if len(rules) > 1 {
		log.Printf("INCONSISTENCY: %d active rules for tax type %s, using most recently activated %s",
			len(rules), taxType, rules[0].ID)
	}
	return &rules[0], nil
}

// --- Helpers ---

func (s *ruleService) findRule(ctx context.Context, id string) (*model.DeadlineRule, error) {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid rule id: %v", deadline.ErrValidation, err)
	}
	rule, err := s.rules.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: deadline rule %s", deadline.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch deadline rule: %w", err)
	}
	return rule, nil
}

type ruleFields struct {
	effectiveFrom *time.Time
	effectiveTo   *time.Time
	dailyPenalty  decimal.Decimal
}

func parseRuleFields(offsetValue int, offsetUnit, policy, fromStr, toStr, penaltyStr string) (ruleFields, error) {
	var f ruleFields

	if offsetValue == 0 {
		return f, fmt.Errorf("%w: offset_value must be non-zero", deadline.ErrValidation)
	}
	if err := (deadline.Offset{Value: offsetValue, Unit: offsetUnit}).Validate(); err != nil {
		return f, err
	}
	if !deadline.ValidPolicy(policy) {
		return f, fmt.Errorf("%w: unknown adjustment policy '%s'", deadline.ErrValidation, policy)
	}

	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return f, fmt.Errorf("%w: invalid effective_from date format (expected YYYY-MM-DD)", deadline.ErrValidation)
		}
		f.effectiveFrom = &t
	}
	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return f, fmt.Errorf("%w: invalid effective_to date format (expected YYYY-MM-DD)", deadline.ErrValidation)
		}
		f.effectiveTo = &t
	}
	if f.effectiveFrom != nil && f.effectiveTo != nil && f.effectiveTo.Before(*f.effectiveFrom) {
		return f, fmt.Errorf("%w: effective_to precedes effective_from", deadline.ErrValidation)
	}

	f.dailyPenalty = decimal.Zero
	if penaltyStr != "" {
		p, err := decimal.NewFromString(penaltyStr)
		if err != nil {
			return f, fmt.Errorf("%w: invalid daily_penalty value", deadline.ErrValidation)
		}
		if p.IsNegative() {
			return f, fmt.Errorf("%w: daily_penalty must not be negative", deadline.ErrValidation)
		}
		f.dailyPenalty = p
	}

	return f, nil
}

func toRuleResponse(r model.DeadlineRule) RuleResponse {
	resp := RuleResponse{
		ID:               r.ID.String(),
		TaxType:          r.TaxType,
		OffsetValue:      r.OffsetValue,
		OffsetUnit:       r.OffsetUnit,
		AdjustmentPolicy: r.AdjustmentPolicy,
		IsActive:         r.IsActive,
		DailyPenalty:     r.DailyPenalty.StringFixed(2),
		Description:      r.Description,
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
	}
	if r.EffectiveFrom != nil {
		s := r.EffectiveFrom.Format("2006-01-02")
		resp.EffectiveFrom = &s
	}
	if r.EffectiveTo != nil {
		s := r.EffectiveTo.Format("2006-01-02")
		resp.EffectiveTo = &s
	}
	if r.ActivatedAt != nil {
		s := r.ActivatedAt.Format(time.RFC3339)
		resp.ActivatedAt = &s
	}
	return resp
}

func (s *ruleService) writeAuditLog(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	detailsJSON, _ := json.Marshal(details)

	entry := model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	}
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			entry.UserID = &parsed
		}
	}

	// Best-effort audit log — don't fail the operation if logging fails
	_ = s.audit.Log(ctx, &entry)
}

func (s *ruleService) broadcast(event string, payload interface{}) {
	if s.hub == nil {
		return
	}
	msg, err := json.Marshal(map[string]interface{}{"event": event, "data": payload})
	if err != nil {
		return
	}
	s.hub.Publish(msg)
}
