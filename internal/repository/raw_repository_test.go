package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wholesale-catalog-service/internal/models"
)

func stagedRecord(variantID, sku, collection string, price float64) models.RawVariantRecord {
	return models.RawVariantRecord{
		ExternalProductID: "gid://shopify/Product/1",
		ExternalVariantID: variantID,
		SKU:               sku,
		ProductTitle:      "Test Product",
		Price:             price,
		Collection:        collection,
		SyncedAt:          time.Now().UTC(),
	}
}

func TestRawRepositoryUpsertBatch(t *testing.T) {
	ctx := context.Background()
	repo := NewRawRepository(setupTestDB(t))

	n, err := repo.UpsertBatch(ctx, []models.RawVariantRecord{
		stagedRecord("v1", "ABC-100-BLK-S", "Spring25", 10),
		stagedRecord("v2", "ABC-100-BLK-M", "Spring25", 10),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-ingesting the same identifiers overwrites instead of duplicating.
	n, err = repo.UpsertBatch(ctx, []models.RawVariantRecord{
		stagedRecord("v1", "ABC-100-BLK-S", "Spring25", 12),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	records, err := repo.ListAll(ctx)
	require.NoError(t, err)
	for _, rec := range records {
		if rec.ExternalVariantID == "v1" {
			assert.Equal(t, 12.0, rec.Price)
		}
	}
}

func TestRawRepositoryUpsertBatchDuplicatesInStream(t *testing.T) {
	ctx := context.Background()
	repo := NewRawRepository(setupTestDB(t))

	// The bulk format may repeat an edge; last write wins within a batch.
	n, err := repo.UpsertBatch(ctx, []models.RawVariantRecord{
		stagedRecord("v1", "ABC-100-BLK-S", "Spring25", 10),
		stagedRecord("v1", "ABC-100-BLK-S", "Spring25", 11),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 11.0, records[0].Price)
}

func TestRawRepositoryListByCollection(t *testing.T) {
	ctx := context.Background()
	repo := NewRawRepository(setupTestDB(t))

	_, err := repo.UpsertBatch(ctx, []models.RawVariantRecord{
		stagedRecord("v1", "ABC-100-BLK-S", "Spring25", 10),
		stagedRecord("v2", "XYZ-200-RED-M", "Holiday", 20),
	})
	require.NoError(t, err)

	records, err := repo.ListByCollection(ctx, "Spring25")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ABC-100-BLK-S", records[0].SKU)
}

func TestRawRepositoryFindDuplicateSKUs(t *testing.T) {
	ctx := context.Background()
	repo := NewRawRepository(setupTestDB(t))

	_, err := repo.UpsertBatch(ctx, []models.RawVariantRecord{
		stagedRecord("v1", "ABC-100-BLK-S", "Spring25", 10),
		stagedRecord("v2", "ABC-100-BLK-S", "Spring25", 10),
		stagedRecord("v3", "XYZ-200-RED-M", "Spring25", 20),
	})
	require.NoError(t, err)

	dups, err := repo.FindDuplicateSKUs(ctx)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, "ABC-100-BLK-S", dups[0].SKU)
	assert.EqualValues(t, 2, dups[0].Count)
}

func TestRawRepositoryPruneStaleBefore(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewRawRepository(db)

	_, err := repo.UpsertBatch(ctx, []models.RawVariantRecord{
		stagedRecord("v1", "ABC-100-BLK-S", "Spring25", 10),
		stagedRecord("v2", "XYZ-200-RED-M", "Spring25", 20),
	})
	require.NoError(t, err)

	old := time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, db.Model(&models.RawVariantRecord{}).
		Where("external_variant_id = ?", "v1").
		Update("synced_at", old).Error)

	pruned, err := repo.PruneStaleBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
