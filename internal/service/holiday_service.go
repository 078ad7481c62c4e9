package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taxoffice/internal/deadline"
	"taxoffice/internal/model"
	"taxoffice/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type AddHolidayRequest struct {
	Date string `json:"date" binding:"required"` // YYYY-MM-DD
	Name string `json:"name" binding:"required"`
}

type HolidayResponse struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Name string `json:"name"`
	Year int    `json:"year"`
}

// --- Interface ---

type HolidayService interface {
	ListHolidays(ctx context.Context, year int) ([]HolidayResponse, error)
	AddHoliday(ctx context.Context, req AddHolidayRequest, userID string) (HolidayResponse, error)
	RemoveHoliday(ctx context.Context, id string, userID string) error

	// IsHoliday implements deadline.Calendar for the calculator
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
}

type holidayService struct {
	holidays repository.HolidayRepository
	audit    repository.AuditRepository
}

func NewHolidayService(holidays repository.HolidayRepository, audit repository.AuditRepository) HolidayService {
	return &holidayService{holidays: holidays, audit: audit}
}

// --- Implementation ---

func (s *holidayService) ListHolidays(ctx context.Context, year int) ([]HolidayResponse, error) {
	var (
		holidays []model.PublicHoliday
		err      error
	)
	if year > 0 {
		holidays, err = s.holidays.ListByYear(ctx, year)
	} else {
		holidays, err = s.holidays.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}

	res := make([]HolidayResponse, 0, len(holidays))
	for _, h := range holidays {
		res = append(res, toHolidayResponse(h))
	}
	return res, nil
}

func (s *holidayService) AddHoliday(ctx context.Context, req AddHolidayRequest, userID string) (HolidayResponse, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return HolidayResponse{}, fmt.Errorf("%w: invalid date format (expected YYYY-MM-DD)", deadline.ErrValidation)
	}

	exists, err := s.holidays.ExistsOnDate(ctx, date)
	if err != nil {
		return HolidayResponse{}, fmt.Errorf("failed to check holiday date: %w", err)
	}
	if exists {
		return HolidayResponse{}, fmt.Errorf("%w: %s is already a public holiday", deadline.ErrDuplicateHoliday, req.Date)
	}

	holiday := model.PublicHoliday{Date: date, Name: req.Name}
	if err := s.holidays.Create(ctx, &holiday); err != nil {
		return HolidayResponse{}, fmt.Errorf("failed to add holiday: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionAddHoliday, holiday.ID.String(), req.Name, req)
	return toHolidayResponse(holiday), nil
}

func (s *holidayService) RemoveHoliday(ctx context.Context, id string, userID string) error {
	holidayID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid holiday id: %v", deadline.ErrValidation, err)
	}

	holiday, err := s.holidays.FindByID(ctx, holidayID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: holiday %s", deadline.ErrNotFound, id)
		}
		return fmt.Errorf("failed to fetch holiday: %w", err)
	}

	if err := s.holidays.Delete(ctx, holiday.ID); err != nil {
		return fmt.Errorf("failed to remove holiday: %w", err)
	}

	s.writeAuditLog(ctx, userID, model.ActionRemoveHoliday, id, holiday.Name,
		map[string]string{"date": holiday.Date.Format("2006-01-02")})
	return nil
}

// IsHoliday answers calendar-date membership for the adjustment walk
func (s *holidayService) IsHoliday(ctx context.Context, date time.Time) (bool, error) {
	return s.holidays.ExistsOnDate(ctx, deadline.DateOnly(date))
}

// --- Helpers ---

func toHolidayResponse(h model.PublicHoliday) HolidayResponse {
	return HolidayResponse{
		ID:   h.ID.String(),
		Date: h.Date.Format("2006-01-02"),
		Name: h.Name,
		Year: h.Year(),
	}
}

func (s *holidayService) writeAuditLog(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
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

	_ = s.audit.Log(ctx, &entry)
}
