package repository

import (
	"context"
	"time"

	"taxoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HolidayRepository interface {
	Create(ctx context.Context, holiday *model.PublicHoliday) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PublicHoliday, error)
	ExistsOnDate(ctx context.Context, date time.Time) (bool, error)
	ListByYear(ctx context.Context, year int) ([]model.PublicHoliday, error)
	List(ctx context.Context) ([]model.PublicHoliday, error)
}

type holidayRepository struct {
	db *gorm.DB
}

func NewHolidayRepository(db *gorm.DB) HolidayRepository {
	return &holidayRepository{db: db}
}

func (r *holidayRepository) Create(ctx context.Context, holiday *model.PublicHoliday) error {
	return GetDB(ctx, r.db).Create(holiday).Error
}

func (r *holidayRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.PublicHoliday{}).Error
}

func (r *holidayRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.PublicHoliday, error) {
	var holiday model.PublicHoliday
	if err := GetDB(ctx, r.db).First(&holiday, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &holiday, nil
}

func (r *holidayRepository) ExistsOnDate(ctx context.Context, date time.Time) (bool, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.PublicHoliday{}).Where("date = ?", date).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *holidayRepository) ListByYear(ctx context.Context, year int) ([]model.PublicHoliday, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	var holidays []model.PublicHoliday
	err := GetDB(ctx, r.db).
		Where("date >= ? AND date <= ?", from, to).
		Order("date asc").
		Find(&holidays).Error
	if err != nil {
		return nil, err
	}
	return holidays, nil
}

func (r *holidayRepository) List(ctx context.Context) ([]model.PublicHoliday, error) {
	var holidays []model.PublicHoliday
	if err := GetDB(ctx, r.db).Order("date asc").Find(&holidays).Error; err != nil {
		return nil, err
	}
	return holidays, nil
}
