package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"wholesale-catalog-service/internal/models"
)

// MappingRepository handles database operations for collection mappings
type MappingRepository struct {
	db *gorm.DB
}

// NewMappingRepository creates a new mapping repository
func NewMappingRepository(db *gorm.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// GetByRawValue retrieves a mapping by its raw collection string
func (r *MappingRepository) GetByRawValue(ctx context.Context, rawValue string) (*models.CollectionMapping, error) {
	var mapping models.CollectionMapping
	err := r.db.WithContext(ctx).
		Where("raw_value = ?", rawValue).
		First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// Create inserts a new mapping row
func (r *MappingRepository) Create(ctx context.Context, mapping *models.CollectionMapping) error {
	if mapping.ID == uuid.Nil {
		mapping.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(mapping).Error
}

// Update persists changes to an existing mapping row
func (r *MappingRepository) Update(ctx context.Context, mapping *models.CollectionMapping) error {
	return r.db.WithContext(ctx).Save(mapping).Error
}

// UpdateSkuCount refreshes only the cached SKU count of a mapping, leaving
// status and target untouched
func (r *MappingRepository) UpdateSkuCount(ctx context.Context, rawValue string, count int) error {
	return r.db.WithContext(ctx).
		Model(&models.CollectionMapping{}).
		Where("raw_value = ?", rawValue).
		Update("sku_count", count).Error
}

// ListByStatus retrieves mappings, optionally filtered by status, ordered by
// descending SKU count so operators see the highest-impact values first
func (r *MappingRepository) ListByStatus(ctx context.Context, status models.MappingStatus) ([]models.CollectionMapping, error) {
	query := r.db.WithContext(ctx).Model(&models.CollectionMapping{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var mappings []models.CollectionMapping
	err := query.
		Order("sku_count DESC").
		Order("raw_value").
		Preload("Category").
		Find(&mappings).Error
	return mappings, err
}

// ListAll retrieves every mapping row
func (r *MappingRepository) ListAll(ctx context.Context) ([]models.CollectionMapping, error) {
	return r.ListByStatus(ctx, "")
}
