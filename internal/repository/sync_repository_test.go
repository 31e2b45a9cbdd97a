package repository

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"wholesale-catalog-service/internal/database"
	"wholesale-catalog-service/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, database.Migrate(db))
	return db
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestSyncRepositoryBeginConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewSyncRepository(setupTestDB(t), testLogger())

	run, err := repo.Begin(ctx, models.SyncTypeShopifyBulk)
	require.NoError(t, err)
	assert.Equal(t, models.SyncRunStarted, run.Status)

	// Second begin while the first is active is rejected with no new row.
	_, err = repo.Begin(ctx, models.SyncTypeShopifyBulk)
	assert.ErrorIs(t, err, ErrRunConflict)

	runs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	// After a terminal transition the guard releases.
	require.NoError(t, repo.Fail(ctx, run.ID, []string{"network down"}))
	again, err := repo.Begin(ctx, models.SyncTypeShopifyBulk)
	require.NoError(t, err)
	assert.NotEqual(t, run.ID, again.ID)
}

func TestSyncRepositoryActiveRunUniqueIndex(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewSyncRepository(db, testLogger())

	run, err := repo.Begin(ctx, models.SyncTypeShopifyBulk)
	require.NoError(t, err)

	// Insert past the NOT EXISTS check, as a second Begin racing the first
	// would after both statements passed it against their own snapshots. The
	// partial unique index must reject the row.
	now := time.Now().UTC()
	dup := models.SyncRun{
		SyncType:    models.SyncTypeShopifyBulk,
		Status:      models.SyncRunStarted,
		StartedAt:   now,
		HeartbeatAt: now,
	}
	err = db.Create(&dup).Error
	require.Error(t, err)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	// Terminal rows do not hold the index; a fresh STARTED row is accepted.
	require.NoError(t, repo.Complete(ctx, run.ID, 0))
	next := models.SyncRun{
		SyncType:    models.SyncTypeShopifyBulk,
		Status:      models.SyncRunStarted,
		StartedAt:   now,
		HeartbeatAt: now,
	}
	assert.NoError(t, db.Create(&next).Error)
}

func TestSyncRepositoryBeginDifferentTypes(t *testing.T) {
	ctx := context.Background()
	repo := NewSyncRepository(setupTestDB(t), testLogger())

	_, err := repo.Begin(ctx, models.SyncTypeShopifyBulk)
	require.NoError(t, err)

	// The guard is per sync type.
	_, err = repo.Begin(ctx, "other_pipeline")
	assert.NoError(t, err)
}

func TestSyncRepositoryTerminalTransitions(t *testing.T) {
	ctx := context.Background()
	repo := NewSyncRepository(setupTestDB(t), testLogger())

	run, err := repo.Begin(ctx, models.SyncTypeShopifyBulk)
	require.NoError(t, err)

	require.NoError(t, repo.Complete(ctx, run.ID, 42))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncRunCompleted, got.Status)
	assert.Equal(t, 42, got.ItemCount)
	assert.NotNil(t, got.CompletedAt)

	// Repeating the same terminal transition is tolerated.
	assert.NoError(t, repo.Complete(ctx, run.ID, 42))

	// Moving to a different terminal state is rejected and the original
	// state is preserved.
	err = repo.Fail(ctx, run.ID, []string{"boom"})
	assert.ErrorIs(t, err, ErrTerminalState)

	got, err = repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncRunCompleted, got.Status)
}

func TestSyncRepositoryFailRecordsErrors(t *testing.T) {
	ctx := context.Background()
	repo := NewSyncRepository(setupTestDB(t), testLogger())

	run, err := repo.Begin(ctx, models.SyncTypeShopifyBulk)
	require.NoError(t, err)

	require.NoError(t, repo.Fail(ctx, run.ID, []string{"download bulk result: timeout"}))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncRunFailed, got.Status)
	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0], "timeout")
}

func TestSyncRepositoryCleanupOrphaned(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewSyncRepository(db, testLogger())

	stale, err := repo.Begin(ctx, models.SyncTypeShopifyBulk)
	require.NoError(t, err)
	fresh, err := repo.Begin(ctx, "other_pipeline")
	require.NoError(t, err)

	// Age the first run's heartbeat past the threshold.
	old := time.Now().UTC().Add(-10 * time.Minute)
	require.NoError(t, db.Model(&models.SyncRun{}).
		Where("id = ?", stale.ID).
		Update("heartbeat_at", old).Error)

	cleaned, err := repo.CleanupOrphaned(ctx, 5*time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, cleaned)

	got, err := repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncRunTimeout, got.Status)

	gotFresh, err := repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncRunStarted, gotFresh.Status)

	// Idempotent: a second sweep finds nothing.
	cleaned, err = repo.CleanupOrphaned(ctx, 5*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, cleaned)
}

func TestSyncRepositoryHeartbeat(t *testing.T) {
	ctx := context.Background()
	repo := NewSyncRepository(setupTestDB(t), testLogger())

	run, err := repo.Begin(ctx, models.SyncTypeShopifyBulk)
	require.NoError(t, err)

	before := run.HeartbeatAt
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.Heartbeat(ctx, run.ID))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, got.HeartbeatAt.After(before))

	// Terminal runs are left untouched.
	require.NoError(t, repo.Complete(ctx, run.ID, 0))
	completedAt := got.HeartbeatAt
	require.NoError(t, repo.Heartbeat(ctx, run.ID))
	got, err = repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.False(t, got.HeartbeatAt.After(completedAt.Add(time.Second)))
}

func TestSyncRepositoryRunLogs(t *testing.T) {
	ctx := context.Background()
	repo := NewSyncRepository(setupTestDB(t), testLogger())

	run, err := repo.Begin(ctx, models.SyncTypeShopifyBulk)
	require.NoError(t, err)

	require.NoError(t, repo.CreateLog(ctx, &models.SyncRunLog{
		SyncRunID: run.ID,
		Level:     models.LogLevelInfo,
		Message:   "sync started",
	}))
	require.NoError(t, repo.CreateLog(ctx, &models.SyncRunLog{
		SyncRunID: run.ID,
		Level:     models.LogLevelError,
		Message:   "download failed",
		Data:      models.JSONB{"attempt": 3},
	}))

	logs, err := repo.GetRunLogs(ctx, run.ID, 10)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestSyncRepositorySetBulkOperationID(t *testing.T) {
	ctx := context.Background()
	repo := NewSyncRepository(setupTestDB(t), testLogger())

	run, err := repo.Begin(ctx, models.SyncTypeShopifyBulk)
	require.NoError(t, err)

	require.NoError(t, repo.SetBulkOperationID(ctx, run.ID, "gid://shopify/BulkOperation/99"))

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/BulkOperation/99", got.BulkOperationID)
}
