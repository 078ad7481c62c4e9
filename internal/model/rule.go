package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TaxType enum constants — the closed set of obligation categories
const (
	TaxTypeGST  = "GST"
	TaxTypePAYE = "PAYE"
	TaxTypeCIT  = "CIT" // Corporate Income Tax
	TaxTypeWHT  = "WHT" // Withholding Tax
	TaxTypeFBT  = "FBT" // Fringe Benefit Tax
)

// ValidTaxType reports whether t belongs to the closed TaxType set
func ValidTaxType(t string) bool {
	switch t {
	case TaxTypeGST, TaxTypePAYE, TaxTypeCIT, TaxTypeWHT, TaxTypeFBT:
		return true
	}
	return false
}

// OffsetUnit enum constants
const (
	OffsetUnitDays   = "DAYS"
	OffsetUnitMonths = "MONTHS"
)

// AdjustmentPolicy enum constants
const (
	PolicyRollForward = "ROLL_FORWARD" // next business day on/after the raw deadline
	PolicyRollBack    = "ROLL_BACK"    // prior business day on/before the raw deadline
	PolicyNone        = "NONE"
)

// DeadlineRule stores the statutory deadline configuration for one tax type.
// At most one rule per TaxType may be active at any instant; activation is
// managed exclusively through the rule service.
type DeadlineRule struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TaxType          string          `gorm:"type:varchar(20);not null;index" json:"tax_type"`
	OffsetValue      int             `gorm:"not null" json:"offset_value"`                      // signed, e.g. 15 = "15 after trigger"
	OffsetUnit       string          `gorm:"type:varchar(10);not null" json:"offset_unit"`      // DAYS, MONTHS
	AdjustmentPolicy string          `gorm:"type:varchar(20);not null" json:"adjustment_policy"` // ROLL_FORWARD, ROLL_BACK, NONE
	IsActive         bool            `gorm:"not null;default:false;index" json:"is_active"`
	EffectiveFrom    *time.Time      `gorm:"type:date;index" json:"effective_from"` // nullable = open-ended
	EffectiveTo      *time.Time      `gorm:"type:date;index" json:"effective_to"`
	DailyPenalty     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"daily_penalty"` // late-filing penalty per day
	Description      string          `gorm:"type:text" json:"description"`
	ActivatedAt      *time.Time      `json:"activated_at"` // most recent activation, tiebreak for defensive reads
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CoversDate reports whether the rule's effective window contains d.
// Open-ended bounds always match.
func (r *DeadlineRule) CoversDate(d time.Time) bool {
	if r.EffectiveFrom != nil && d.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && d.After(*r.EffectiveTo) {
		return false
	}
	return true
}

// BeforeCreate assigns the id ahead of insert so the engine never depends
// on a database-specific default
func (r *DeadlineRule) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
