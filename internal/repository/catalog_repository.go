package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"wholesale-catalog-service/internal/models"
)

// CatalogRepository handles the canonical product SKU table
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a new catalog repository
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ReplaceGroup overwrites all canonical rows of one base-SKU group inside a
// single transaction: variants no longer present are removed and the rest
// are upserted keyed by SKU. Readers never observe a product with a mix of
// old and new variants.
func (r *CatalogRepository) ReplaceGroup(ctx context.Context, baseSKU string, skus []models.ProductSku) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		keep := make([]string, 0, len(skus))
		for i := range skus {
			if skus[i].ID == uuid.Nil {
				skus[i].ID = uuid.New()
			}
			keep = append(keep, skus[i].SKU)
		}

		del := tx.Where("base_sku = ?", baseSKU)
		if len(keep) > 0 {
			del = del.Where("sku NOT IN ?", keep)
		}
		if err := del.Delete(&models.ProductSku{}).Error; err != nil {
			return err
		}
		if len(skus) == 0 {
			return nil
		}

		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"base_sku", "size", "size_mismatch", "category_id",
				"collection", "title", "product_title", "price", "image_url",
				"quantity_on_hand", "quantity_incoming",
				"external_variant_id", "updated_at",
			}),
		}).Create(&skus).Error
	})
}

// ListBaseSKUs returns the distinct base SKUs currently present in the
// canonical table
func (r *CatalogRepository) ListBaseSKUs(ctx context.Context) ([]string, error) {
	var baseSKUs []string
	err := r.db.WithContext(ctx).
		Model(&models.ProductSku{}).
		Distinct("base_sku").
		Order("base_sku").
		Pluck("base_sku", &baseSKUs).Error
	return baseSKUs, err
}

// SnapshotBackup copies the canonical table into product_skus_backup,
// replacing any previous snapshot. Used for rollback if a transform run
// corrupts data.
func (r *CatalogRepository) SnapshotBackup(ctx context.Context) error {
	db := r.db.WithContext(ctx)
	if err := db.Exec("DROP TABLE IF EXISTS product_skus_backup").Error; err != nil {
		return err
	}
	return db.Exec("CREATE TABLE product_skus_backup AS SELECT * FROM product_skus").Error
}

// GetBySKU retrieves a canonical row by SKU
func (r *CatalogRepository) GetBySKU(ctx context.Context, sku string) (*models.ProductSku, error) {
	var row models.ProductSku
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CatalogListOptions contains options for listing canonical SKUs
type CatalogListOptions struct {
	CategoryID *uuid.UUID
	BaseSKU    string
	Limit      int
	Offset     int
}

// List retrieves canonical rows with pagination and filtering
func (r *CatalogRepository) List(ctx context.Context, opts CatalogListOptions) ([]models.ProductSku, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductSku{})

	if opts.CategoryID != nil {
		query = query.Where("category_id = ?", *opts.CategoryID)
	}
	if opts.BaseSKU != "" {
		query = query.Where("base_sku = ?", opts.BaseSKU)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	var rows []models.ProductSku
	err := query.Order("sku").Find(&rows).Error
	return rows, total, err
}

// ListByCollection retrieves canonical rows derived from the given raw
// collection value
func (r *CatalogRepository) ListByCollection(ctx context.Context, rawValue string) ([]models.ProductSku, error) {
	var rows []models.ProductSku
	err := r.db.WithContext(ctx).
		Where("collection = ?", rawValue).
		Order("sku").
		Find(&rows).Error
	return rows, err
}
