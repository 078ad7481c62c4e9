package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taxoffice/internal/deadline"
	"taxoffice/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type ResolveDeadlineRequest struct {
	TaxType     string `json:"tax_type" binding:"required,oneof=GST PAYE CIT WHT FBT"`
	TriggerDate string `json:"trigger_date" binding:"required"` // YYYY-MM-DD, e.g. period end
	ClientID    string `json:"client_id" binding:"omitempty,uuid"`
}

type ResolveDeadlineResponse struct {
	TaxType     string   `json:"tax_type"`
	TriggerDate string   `json:"trigger_date"`
	Deadline    string   `json:"deadline"`
	RuleID      string   `json:"rule_id"`
	ExtensionID *string  `json:"extension_id,omitempty"`
	Adjustments []string `json:"adjustments"`
}

type PenaltyEstimateRequest struct {
	TaxType     string `json:"tax_type" binding:"required,oneof=GST PAYE CIT WHT FBT"`
	TriggerDate string `json:"trigger_date" binding:"required"`
	FiledDate   string `json:"filed_date" binding:"required"`
	ClientID    string `json:"client_id" binding:"omitempty,uuid"`
}

type PenaltyEstimateResponse struct {
	Deadline         string `json:"deadline"`
	FiledDate        string `json:"filed_date"`
	DaysLate         int    `json:"days_late"`
	DailyPenalty     string `json:"daily_penalty"`
	EstimatedPenalty string `json:"estimated_penalty"`
	RuleID           string `json:"rule_id"`
}

// --- Interface ---

type DeadlineService interface {
	Resolve(ctx context.Context, req ResolveDeadlineRequest) (ResolveDeadlineResponse, error)
	EstimatePenalty(ctx context.Context, req PenaltyEstimateRequest) (PenaltyEstimateResponse, error)
}

type deadlineService struct {
	calc  *deadline.Calculator
	rules repository.RuleRepository
}

// NewDeadlineService wires the calculator over its three collaborators. The
// rule repository is also held directly for the penalty lookup.
func NewDeadlineService(ruleSource deadline.RuleSource, calendar deadline.Calendar, extSource deadline.ExtensionSource, rules repository.RuleRepository) DeadlineService {
	return &deadlineService{
		calc:  deadline.NewCalculator(ruleSource, calendar, extSource),
		rules: rules,
	}
}

// --- Implementation ---

func (s *deadlineService) Resolve(ctx context.Context, req ResolveDeadlineRequest) (ResolveDeadlineResponse, error) {
	trigger, clientID, err := parseResolveInputs(req.TriggerDate, req.ClientID)
	if err != nil {
		return ResolveDeadlineResponse{}, err
	}

	result, err := s.calc.Resolve(ctx, req.TaxType, trigger, clientID)
	if err != nil {
		return ResolveDeadlineResponse{}, err
	}

	resp := ResolveDeadlineResponse{
		TaxType:     req.TaxType,
		TriggerDate: trigger.Format("2006-01-02"),
		Deadline:    result.Deadline.Format("2006-01-02"),
		RuleID:      result.RuleID.String(),
		Adjustments: result.Adjustments,
	}
	if result.ExtensionID != nil {
		id := result.ExtensionID.String()
		resp.ExtensionID = &id
	}
	return resp, nil
}

// EstimatePenalty resolves the binding deadline and, when the filing landed
// after it, prices the delay at the rule's daily penalty rate.
func (s *deadlineService) EstimatePenalty(ctx context.Context, req PenaltyEstimateRequest) (PenaltyEstimateResponse, error) {
	filed, err := time.Parse("2006-01-02", req.FiledDate)
	if err != nil {
		return PenaltyEstimateResponse{}, fmt.Errorf("%w: invalid filed_date date format (expected YYYY-MM-DD)", deadline.ErrValidation)
	}

	resolved, err := s.Resolve(ctx, ResolveDeadlineRequest{
		TaxType:     req.TaxType,
		TriggerDate: req.TriggerDate,
		ClientID:    req.ClientID,
	})
	if err != nil {
		return PenaltyEstimateResponse{}, err
	}

	ruleID, err := uuid.Parse(resolved.RuleID)
	if err != nil {
		return PenaltyEstimateResponse{}, fmt.Errorf("failed to parse rule id: %w", err)
	}
	rule, err := s.rules.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PenaltyEstimateResponse{}, fmt.Errorf("%w: deadline rule %s", deadline.ErrNotFound, resolved.RuleID)
		}
		return PenaltyEstimateResponse{}, fmt.Errorf("failed to fetch deadline rule: %w", err)
	}

	due, _ := time.Parse("2006-01-02", resolved.Deadline)
	daysLate := 0
	if d := deadline.DateOnly(filed); d.After(due) {
		daysLate = int(d.Sub(due).Hours() / 24)
	}

	estimate := rule.DailyPenalty.Mul(decimal.NewFromInt(int64(daysLate)))
	return PenaltyEstimateResponse{
		Deadline:         resolved.Deadline,
		FiledDate:        deadline.DateOnly(filed).Format("2006-01-02"),
		DaysLate:         daysLate,
		DailyPenalty:     rule.DailyPenalty.StringFixed(2),
		EstimatedPenalty: estimate.StringFixed(2),
		RuleID:           resolved.RuleID,
	}, nil
}

// --- Helpers ---

func parseResolveInputs(triggerStr, clientStr string) (time.Time, *uuid.UUID, error) {
	trigger, err := time.Parse("2006-01-02", triggerStr)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("%w: invalid trigger_date date format (expected YYYY-MM-DD)", deadline.ErrValidation)
	}

	var clientID *uuid.UUID
	if clientStr != "" {
		parsed, err := uuid.Parse(clientStr)
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("%w: invalid client_id: %v", deadline.ErrValidation, err)
		}
		clientID = &parsed
	}

	return trigger, clientID, nil
}
