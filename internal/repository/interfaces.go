package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"wholesale-catalog-service/internal/models"
)

// SyncRepositoryInterface abstracts sync run lifecycle persistence
type SyncRepositoryInterface interface {
	Begin(ctx context.Context, syncType string) (*models.SyncRun, error)
	GetByID(ctx context.Context, id uint) (*models.SyncRun, error)
	Heartbeat(ctx context.Context, id uint) error
	SetBulkOperationID(ctx context.Context, id uint, operationID string) error
	Complete(ctx context.Context, id uint, itemCount int) error
	Fail(ctx context.Context, id uint, errs []string) error
	CleanupOrphaned(ctx context.Context, threshold time.Duration) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]models.SyncRun, error)
	CreateLog(ctx context.Context, log *models.SyncRunLog) error
	GetRunLogs(ctx context.Context, runID uint, limit int) ([]models.SyncRunLog, error)
}

// RawRepositoryInterface abstracts the raw staging table
type RawRepositoryInterface interface {
	UpsertBatch(ctx context.Context, records []models.RawVariantRecord) (int, error)
	ListAll(ctx context.Context) ([]models.RawVariantRecord, error)
	ListByCollection(ctx context.Context, rawValue string) ([]models.RawVariantRecord, error)
	Count(ctx context.Context) (int64, error)
	FindDuplicateSKUs(ctx context.Context) ([]DuplicateSKU, error)
	PruneStaleBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MappingRepositoryInterface abstracts collection mapping persistence so
// services can be tested against mocks
type MappingRepositoryInterface interface {
	GetByRawValue(ctx context.Context, rawValue string) (*models.CollectionMapping, error)
	Create(ctx context.Context, mapping *models.CollectionMapping) error
	Update(ctx context.Context, mapping *models.CollectionMapping) error
	UpdateSkuCount(ctx context.Context, rawValue string, count int) error
	ListByStatus(ctx context.Context, status models.MappingStatus) ([]models.CollectionMapping, error)
	ListAll(ctx context.Context) ([]models.CollectionMapping, error)
}

// CategoryRepositoryInterface abstracts the category directory read side
type CategoryRepositoryInterface interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
}

// CatalogRepositoryInterface abstracts the canonical product SKU table
type CatalogRepositoryInterface interface {
	ReplaceGroup(ctx context.Context, baseSKU string, skus []models.ProductSku) error
	ListBaseSKUs(ctx context.Context) ([]string, error)
	SnapshotBackup(ctx context.Context) error
	GetBySKU(ctx context.Context, sku string) (*models.ProductSku, error)
	List(ctx context.Context, opts CatalogListOptions) ([]models.ProductSku, int64, error)
	ListByCollection(ctx context.Context, rawValue string) ([]models.ProductSku, error)
}

var _ SyncRepositoryInterface = (*SyncRepository)(nil)
var _ RawRepositoryInterface = (*RawRepository)(nil)
var _ MappingRepositoryInterface = (*MappingRepository)(nil)
var _ CategoryRepositoryInterface = (*CategoryRepository)(nil)
var _ CatalogRepositoryInterface = (*CatalogRepository)(nil)
