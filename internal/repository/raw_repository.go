package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"wholesale-catalog-service/internal/models"
)

// RawRepository handles the staging table of raw Shopify variant records
type RawRepository struct {
	db *gorm.DB
}

// NewRawRepository creates a new raw ingestion repository
func NewRawRepository(db *gorm.DB) *RawRepository {
	return &RawRepository{db: db}
}

// UpsertBatch writes a batch of raw records keyed by external variant id.
// Duplicate variant ids within the batch are collapsed last-write-wins
// before hitting the database, since the bulk export format may repeat
// edges across pagination boundaries. Returns the number of rows upserted.
func (r *RawRepository) UpsertBatch(ctx context.Context, records []models.RawVariantRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	deduped := make([]models.RawVariantRecord, 0, len(records))
	seen := make(map[string]int, len(records))
	for _, rec := range records {
		if idx, ok := seen[rec.ExternalVariantID]; ok {
			deduped[idx] = rec
			continue
		}
		seen[rec.ExternalVariantID] = len(deduped)
		deduped = append(deduped, rec)
	}

	for i := range deduped {
		if deduped[i].ID == uuid.Nil {
			deduped[i].ID = uuid.New()
		}
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_variant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"external_product_id", "sku", "title", "product_title", "price",
			"image_url", "size_option", "selected_options", "collection",
			"product_type", "vendor", "quantity_on_hand", "quantity_incoming",
			"quantity_committed", "synced_at", "updated_at",
		}),
	}).Create(&deduped).Error
	if err != nil {
		return 0, err
	}
	return len(deduped), nil
}

// ListAll retrieves every staged record ordered by SKU
func (r *RawRepository) ListAll(ctx context.Context) ([]models.RawVariantRecord, error) {
	var records []models.RawVariantRecord
	err := r.db.WithContext(ctx).Order("sku").Find(&records).Error
	return records, err
}

// ListByCollection retrieves staged records carrying the given raw
// collection value, used for impact preview before mapping
func (r *RawRepository) ListByCollection(ctx context.Context, rawValue string) ([]models.RawVariantRecord, error) {
	var records []models.RawVariantRecord
	err := r.db.WithContext(ctx).
		Where("collection = ?", rawValue).
		Order("sku").
		Find(&records).Error
	return records, err
}

// Count returns the number of staged records
func (r *RawRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RawVariantRecord{}).Count(&count).Error
	return count, err
}

// DuplicateSKU describes a SKU string shared by more than one variant
type DuplicateSKU struct {
	SKU   string `json:"sku"`
	Count int64  `json:"count"`
}

// FindDuplicateSKUs reports SKU strings that appear on more than one staged
// variant. This is an operational check; the canonical table enforces SKU
// uniqueness so duplicates here mean the external catalog needs fixing.
func (r *RawRepository) FindDuplicateSKUs(ctx context.Context) ([]DuplicateSKU, error) {
	var dups []DuplicateSKU
	err := r.db.WithContext(ctx).
		Model(&models.RawVariantRecord{}).
		Select("sku, count(*) as count").
		Where("sku <> ''").
		Group("sku").
		Having("count(*) > 1").
		Order("count DESC").
		Scan(&dups).Error
	return dups, err
}

// PruneStaleBefore deletes staged records last touched before the cutoff.
// Pruning is deliberately separate from ingestion so a truncated download
// can never silently drop rows.
func (r *RawRepository) PruneStaleBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("synced_at < ?", cutoff).
		Delete(&models.RawVariantRecord{})
	return res.RowsAffected, res.Error
}
