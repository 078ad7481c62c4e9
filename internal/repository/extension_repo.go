package repository

import (
	"context"
	"time"

	"taxoffice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ExtensionRepository interface {
	Create(ctx context.Context, ext *model.ClientExtension) error
	Update(ctx context.Context, ext *model.ClientExtension) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ClientExtension, error)
	FindActive(ctx context.Context, clientID uuid.UUID, taxType string, originalDeadline time.Time) (*model.ClientExtension, error)
	ListByClient(ctx context.Context, clientID uuid.UUID, page, limit int) ([]model.ClientExtension, int64, error)
}

type extensionRepository struct {
	db *gorm.DB
}

func NewExtensionRepository(db *gorm.DB) ExtensionRepository {
	return &extensionRepository{db: db}
}

func (r *extensionRepository) Create(ctx context.Context, ext *model.ClientExtension) error {
	return GetDB(ctx, r.db).Create(ext).Error
}

func (r *extensionRepository) Update(ctx context.Context, ext *model.ClientExtension) error {
	return GetDB(ctx, r.db).Save(ext).Error
}

func (r *extensionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ClientExtension, error) {
	var ext model.ClientExtension
	if err := GetDB(ctx, r.db).First(&ext, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ext, nil
}

// FindActive returns the single non-revoked extension for the composite
// key, or gorm.ErrRecordNotFound.
func (r *extensionRepository) FindActive(ctx context.Context, clientID uuid.UUID, taxType string, originalDeadline time.Time) (*model.ClientExtension, error) {
	var ext model.ClientExtension
	err := GetDB(ctx, r.db).
		Where("client_id = ? AND tax_type = ? AND original_deadline = ? AND revoked_at IS NULL",
			clientID, taxType, originalDeadline).
		First(&ext).Error
	if err != nil {
		return nil, err
	}
	return &ext, nil
}

func (r *extensionRepository) ListByClient(ctx context.Context, clientID uuid.UUID, page, limit int) ([]model.ClientExtension, int64, error) {
	var exts []model.ClientExtension
	var total int64

	db := GetDB(ctx, r.db).Model(&model.ClientExtension{}).Where("client_id = ?", clientID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Granter").Order("granted_at desc").Offset(offset).Limit(limit).Find(&exts).Error; err != nil {
		return nil, 0, err
	}

	return exts, total, nil
}
