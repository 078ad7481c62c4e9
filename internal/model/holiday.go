package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PublicHoliday is one entry of the business-day calendar. The set is
// append/remove only — an existing date's meaning is never mutated.
type PublicHoliday struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex" json:"date"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Year returns the calendar year the holiday falls in
func (h *PublicHoliday) Year() int {
	return h.Date.Year()
}

func (h *PublicHoliday) BeforeCreate(_ *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
