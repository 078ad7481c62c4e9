package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClientExtension records a client-specific deadline extension layered on
// top of a computed statutory deadline. Revoked records are kept for audit;
// at most one non-revoked extension exists per (ClientID, TaxType,
// OriginalDeadline).
type ClientExtension struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"client_id"`
	TaxType          string     `gorm:"type:varchar(20);not null;index" json:"tax_type"`
	OriginalDeadline time.Time  `gorm:"type:date;not null;index" json:"original_deadline"`
	ExtendedDeadline time.Time  `gorm:"type:date;not null" json:"extended_deadline"`
	Reason           string     `gorm:"type:text" json:"reason"`
	GrantedBy        *uuid.UUID `gorm:"type:uuid;index" json:"granted_by"` // nullable if granted by an automated process
	Granter          *User      `gorm:"foreignKey:GrantedBy" json:"granter,omitempty"`
	GrantedAt        time.Time  `gorm:"autoCreateTime" json:"granted_at"`
	RevokedAt        *time.Time `gorm:"index" json:"revoked_at"`
}

// Active reports whether the extension has not been revoked
func (e *ClientExtension) Active() bool {
	return e.RevokedAt == nil
}

func (e *ClientExtension) BeforeCreate(_ *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
