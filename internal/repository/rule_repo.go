package repository

import (
	"context"
	"time"

	"taxoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RuleRepository interface {
	Create(ctx context.Context, rule *model.DeadlineRule) error
	Update(ctx context.Context, rule *model.DeadlineRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DeadlineRule, error)
	List(ctx context.Context, taxType string, activeOnly bool, page, limit int) ([]model.DeadlineRule, int64, error)
	FindActiveByType(ctx context.Context, taxType string, asOf time.Time) ([]model.DeadlineRule, error)
	DeactivateOthers(ctx context.Context, taxType string, keepID uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool, at *time.Time) error
}

type ruleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) RuleRepository {
	return &ruleRepository{db: db}
}

func (r *ruleRepository) Create(ctx context.Context, rule *model.DeadlineRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *ruleRepository) Update(ctx context.Context, rule *model.DeadlineRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *ruleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.DeadlineRule{}).Error
}

func (r *ruleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DeadlineRule, error) {
	var rule model.DeadlineRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *ruleRepository) List(ctx context.Context, taxType string, activeOnly bool, page, limit int) ([]model.DeadlineRule, int64, error) {
	var rules []model.DeadlineRule
	var total int64

	db := GetDB(ctx, r.db).Model(&model.DeadlineRule{})
	if taxType != "" {
		db = db.Where("tax_type = ?", taxType)
	}
	if activeOnly {
		db = db.Where("is_active = ?", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("tax_type asc, created_at desc").Offset(offset).Limit(limit).Find(&rules).Error; err != nil {
		return nil, 0, err
	}

	return rules, total, nil
}

// FindActiveByType returns every active rule for the type whose effective
// window contains asOf, most recently activated first. Under the invariant
// at most one row comes back; the service logs anything more as an
// inconsistency and uses the first.
func (r *ruleRepository) FindActiveByType(ctx context.Context, taxType string, asOf time.Time) ([]model.DeadlineRule, error) {
	var rules []model.DeadlineRule
	err := GetDB(ctx, r.db).
		Where("tax_type = ? AND is_active = ?", taxType, true).
		Where("(effective_from IS NULL OR effective_from <= ?)", asOf).
		Where("(effective_to IS NULL OR effective_to >= ?)", asOf).
		Order("activated_at DESC NULLS LAST").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ruleRepository) DeactivateOthers(ctx context.Context, taxType string, keepID uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.DeadlineRule{}).
		Where("tax_type = ? AND is_active = ? AND id != ?", taxType, true, keepID).
		Update("is_active", false).Error
}

func (r *ruleRepository) SetActive(ctx context.Context, id uuid.UUID, active bool, at *time.Time) error {
	updates := map[string]interface{}{"is_active": active}
	if at != nil {
		updates["activated_at"] = *at
	}
	return GetDB(ctx, r.db).Model(&model.DeadlineRule{}).
		Where("id = ?", id).
		Updates(updates).Error
}
