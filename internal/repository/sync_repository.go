package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"wholesale-catalog-service/internal/models"
)

// SyncRepository handles database operations for sync runs and their logs
type SyncRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewSyncRepository creates a new sync repository
func NewSyncRepository(db *gorm.DB, logger *logrus.Logger) *SyncRepository {
	return &SyncRepository{db: db, logger: logger}
}

// Begin creates a new sync run in STARTED state. The insert is guarded twice:
// the NOT EXISTS check rejects the common case without touching the table,
// and the partial unique index on (sync_type) WHERE status = 'STARTED' closes
// the window where two concurrent inserts each pass the check against their
// own snapshot. Either way the loser gets ErrRunConflict.
func (r *SyncRepository) Begin(ctx context.Context, syncType string) (*models.SyncRun, error) {
	now := time.Now().UTC()

	res := r.db.WithContext(ctx).Exec(
		`INSERT INTO sync_runs (sync_type, status, item_count, started_at, heartbeat_at, created_at, updated_at)
		 SELECT ?, ?, 0, ?, ?, ?, ?
		 WHERE NOT EXISTS (
		   SELECT 1 FROM sync_runs WHERE sync_type = ? AND status = ?
		 )`,
		syncType, models.SyncRunStarted, now, now, now, now,
		syncType, models.SyncRunStarted,
	)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrRunConflict
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrRunConflict
	}

	var run models.SyncRun
	err := r.db.WithContext(ctx).
		Where("sync_type = ? AND status = ?", syncType, models.SyncRunStarted).
		Order("id DESC").
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetByID retrieves a sync run by id
func (r *SyncRepository) GetByID(ctx context.Context, id uint) (*models.SyncRun, error) {
	var run models.SyncRun
	err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// Heartbeat refreshes the liveness timestamp of a running sync run. Runs
// that already reached a terminal state are left untouched.
func (r *SyncRepository) Heartbeat(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.SyncRun{}).
		Where("id = ? AND status = ?", id, models.SyncRunStarted).
		Updates(map[string]interface{}{
			"heartbeat_at": time.Now().UTC(),
			"updated_at":   time.Now().UTC(),
		}).Error
}

// SetBulkOperationID stores the remote bulk operation handle on the run
func (r *SyncRepository) SetBulkOperationID(ctx context.Context, id uint, operationID string) error {
	return r.db.WithContext(ctx).
		Model(&models.SyncRun{}).
		Where("id = ?", id).
		Update("bulk_operation_id", operationID).Error
}

// Complete transitions a run to COMPLETED with the processed item count
func (r *SyncRepository) Complete(ctx context.Context, id uint, itemCount int) error {
	return r.finish(ctx, id, models.SyncRunCompleted, itemCount, nil)
}

// Fail transitions a run to FAILED with the accumulated error list
func (r *SyncRepository) Fail(ctx context.Context, id uint, errs []string) error {
	return r.finish(ctx, id, models.SyncRunFailed, 0, errs)
}

// finish performs a terminal transition. Repeating the same terminal
// transition is tolerated with a warning; moving between different terminal
// states is rejected with ErrTerminalState.
func (r *SyncRepository) finish(ctx context.Context, id uint, status models.SyncRunStatus, itemCount int, errs []string) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":       status,
		"completed_at": &now,
		"updated_at":   now,
	}
	if status == models.SyncRunCompleted {
		updates["item_count"] = itemCount
	}
	if len(errs) > 0 {
		updates["errors"] = models.JSONStrings(errs)
	}

	res := r.db.WithContext(ctx).
		Model(&models.SyncRun{}).
		Where("id = ? AND status = ?", id, models.SyncRunStarted).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// No STARTED row matched: either the run does not exist or it is
	// already terminal. Re-read to decide.
	run, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if run.Status == status {
		r.logger.WithFields(logrus.Fields{"runId": id, "status": status}).
			Warn("sync run already in requested terminal state")
		return nil
	}
	return ErrTerminalState
}

// CleanupOrphaned transitions STARTED runs whose heartbeat is older than the
// threshold to TIMEOUT. The guarded UPDATE makes it safe to call repeatedly
// and from concurrent sweepers.
func (r *SyncRepository) CleanupOrphaned(ctx context.Context, threshold time.Duration) (int64, error) {
	now := time.Now().UTC()
	cutoff := now.Add(-threshold)

	res := r.db.WithContext(ctx).
		Model(&models.SyncRun{}).
		Where("status = ? AND heartbeat_at < ?", models.SyncRunStarted, cutoff).
		Updates(map[string]interface{}{
			"status":       models.SyncRunTimeout,
			"completed_at": &now,
			"updated_at":   now,
		})
	return res.RowsAffected, res.Error
}

// ListRecent retrieves the latest sync runs, newest first
func (r *SyncRepository) ListRecent(ctx context.Context, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.SyncRun
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// CreateLog creates a sync run log entry
func (r *SyncRepository) CreateLog(ctx context.Context, log *models.SyncRunLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(log).Error
}

// GetRunLogs retrieves log entries for a sync run, newest first
func (r *SyncRepository) GetRunLogs(ctx context.Context, runID uint, limit int) ([]models.SyncRunLog, error) {
	if limit <= 0 {
		limit = 100
	}
	var logs []models.SyncRunLog
	err := r.db.WithContext(ctx).
		Where("sync_run_id = ?", runID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
