package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateRule     = "CREATE_DEADLINE_RULE"
	ActionUpdateRule     = "UPDATE_DEADLINE_RULE"
	ActionDeleteRule     = "DELETE_DEADLINE_RULE"
	ActionActivateRule   = "ACTIVATE_DEADLINE_RULE"
	ActionDeactivateRule = "DEACTIVATE_DEADLINE_RULE"

	// Calendar and extension actions
	ActionAddHoliday      = "ADD_HOLIDAY"
	ActionRemoveHoliday   = "REMOVE_HOLIDAY"
	ActionGrantExtension  = "GRANT_EXTENSION"
	ActionRevokeExtension = "REVOKE_EXTENSION"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
