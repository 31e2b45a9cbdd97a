package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"wholesale-catalog-service/internal/clients"
	"wholesale-catalog-service/internal/clients/shopify"
	"wholesale-catalog-service/internal/models"
	"wholesale-catalog-service/internal/repository"
)

// BulkExporter is the connector surface the sync pipeline needs from the
// Shopify client
type BulkExporter interface {
	StartBulkExport(ctx context.Context) (string, error)
	WaitForBulkExport(ctx context.Context, operationID string) (string, error)
	DownloadBulkResult(ctx context.Context, url string) ([]shopify.BulkVariant, int, error)
}

// SyncConfig carries the timing knobs of the sync pipeline
type SyncConfig struct {
	HeartbeatInterval  time.Duration
	HeartbeatThreshold time.Duration
	SyncTimeout        time.Duration
	IngestBatchSize    int
}

// SyncService orchestrates one full catalog sync: begin a tracked run, pull
// the bulk export, stage the raw records, project them into the canonical
// table and close the run. The run tracker is the only concurrency control;
// at most one run per sync type is active at a time.
type SyncService struct {
	syncRepo  repository.SyncRepositoryInterface
	rawRepo   repository.RawRepositoryInterface
	transform *TransformService
	exporter  BulkExporter
	retrier   *clients.Retrier
	logger    *logrus.Logger
	cfg       SyncConfig
}

// NewSyncService creates a new sync service
func NewSyncService(
	syncRepo repository.SyncRepositoryInterface,
	rawRepo repository.RawRepositoryInterface,
	transform *TransformService,
	exporter BulkExporter,
	retrier *clients.Retrier,
	cfg SyncConfig,
	logger *logrus.Logger,
) *SyncService {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.HeartbeatThreshold <= 0 {
		cfg.HeartbeatThreshold = 5 * time.Minute
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = 30 * time.Minute
	}
	if cfg.IngestBatchSize <= 0 {
		cfg.IngestBatchSize = 250
	}
	return &SyncService{
		syncRepo:  syncRepo,
		rawRepo:   rawRepo,
		transform: transform,
		exporter:  exporter,
		retrier:   retrier,
		logger:    logger,
		cfg:       cfg,
	}
}

// RunSync begins a tracked run and executes the pipeline in the background.
// A second trigger while a run is active gets repository.ErrRunConflict and
// no run row is created for it.
func (s *SyncService) RunSync(ctx context.Context) (*models.SyncRun, error) {
	run, err := s.syncRepo.Begin(ctx, models.SyncTypeShopifyBulk)
	if err != nil {
		return nil, err
	}

	go s.execute(run.ID)
	return run, nil
}

// execute runs the pipeline for an already-begun run. It is detached from
// the triggering request's context; the run either reaches a terminal state
// here or is swept to TIMEOUT by the orphan cleanup if the process dies.
func (s *SyncService) execute(runID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SyncTimeout)
	defer cancel()

	stopHeartbeat := s.startHeartbeat(ctx, runID)
	defer stopHeartbeat()

	log := s.logger.WithField("runId", runID)
	s.logEvent(runID, models.LogLevelInfo, "sync started", nil)

	if err := s.runPipeline(ctx, runID); err != nil {
		log.WithError(err).Error("Sync run failed")
		s.logEvent(runID, models.LogLevelError, err.Error(), nil)
		if failErr := s.syncRepo.Fail(context.Background(), runID, []string{err.Error()}); failErr != nil {
			log.WithError(failErr).Error("Failed to mark sync run failed")
		}
	}
}

func (s *SyncService) runPipeline(ctx context.Context, runID uint) error {
	var operationID string
	err := s.retrier.Do(ctx, "start bulk export", func(ctx context.Context) error {
		var startErr error
		operationID, startErr = s.exporter.StartBulkExport(ctx)
		return startErr
	})
	if err != nil {
		return fmt.Errorf("start bulk export: %w", err)
	}

	// Persist the remote handle first so a run that gives up on polling can
	// still be reconciled against the remote job.
	if err := s.syncRepo.SetBulkOperationID(ctx, runID, operationID); err != nil {
		return fmt.Errorf("persist bulk operation id: %w", err)
	}
	s.logEvent(runID, models.LogLevelInfo, "bulk export started", map[string]interface{}{
		"bulkOperationId": operationID,
	})

	url, err := s.exporter.WaitForBulkExport(ctx, operationID)
	if err != nil {
		if clients.IsTimeout(err) {
			return fmt.Errorf("bulk export poll gave up, operation %s may still complete remotely: %w", operationID, err)
		}
		return fmt.Errorf("wait for bulk export: %w", err)
	}

	var variants []shopify.BulkVariant
	var skippedLines int
	err = s.retrier.Do(ctx, "download bulk result", func(ctx context.Context) error {
		var dlErr error
		variants, skippedLines, dlErr = s.exporter.DownloadBulkResult(ctx, url)
		return dlErr
	})
	if err != nil {
		return fmt.Errorf("download bulk result: %w", err)
	}

	records, skippedRecords := s.convertVariants(variants)
	upserted := 0
	for start := 0; start < len(records); start += s.cfg.IngestBatchSize {
		end := start + s.cfg.IngestBatchSize
		if end > len(records) {
			end = len(records)
		}
		n, err := s.rawRepo.UpsertBatch(ctx, records[start:end])
		if err != nil {
			return fmt.Errorf("stage raw records: %w", err)
		}
		upserted += n
	}
	s.logEvent(runID, models.LogLevelInfo, "raw records staged", map[string]interface{}{
		"upserted":       upserted,
		"skippedRecords": skippedRecords,
		"skippedLines":   skippedLines,
	})

	result, err := s.transform.Transform(ctx, TransformOptions{})
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	s.logEvent(runID, models.LogLevelInfo, "transform completed", map[string]interface{}{
		"processed":      result.Processed,
		"skipped":        result.Skipped,
		"unmappedValues": result.UnmappedValues,
		"sizeMismatches": result.SizeMismatches,
	})

	if err := s.syncRepo.Complete(context.Background(), runID, upserted); err != nil {
		return fmt.Errorf("complete sync run: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"runId":     runID,
		"itemCount": upserted,
		"processed": result.Processed,
		"skipped":   result.Skipped,
	}).Info("Sync run completed")
	return nil
}

// convertVariants maps assembled bulk variants to staging rows. Variants
// missing the external id or SKU are skipped and counted, not fatal.
func (s *SyncService) convertVariants(variants []shopify.BulkVariant) ([]models.RawVariantRecord, int) {
	now := time.Now().UTC()
	records := make([]models.RawVariantRecord, 0, len(variants))
	skipped := 0

	for _, v := range variants {
		if v.VariantGID == "" || v.SKU == "" {
			skipped++
			continue
		}

		var selectedOptions datatypes.JSON
		if len(v.SelectedOptions) > 0 {
			if data, err := json.Marshal(v.SelectedOptions); err == nil {
				selectedOptions = data
			}
		}

		records = append(records, models.RawVariantRecord{
			ExternalProductID: v.ProductGID,
			ExternalVariantID: v.VariantGID,
			SKU:               v.SKU,
			Title:             v.Title,
			ProductTitle:      v.ProductTitle,
			Price:             v.Price,
			ImageURL:          v.ImageURL,
			SizeOption:        sizeOption(v.SelectedOptions),
			SelectedOptions:   selectedOptions,
			Collection:        v.Collection,
			ProductType:       v.ProductType,
			Vendor:            v.Vendor,
			QuantityOnHand:    v.Available,
			QuantityIncoming:  v.Incoming,
			QuantityCommitted: v.Committed,
			SyncedAt:          now,
		})
	}
	return records, skipped
}

// sizeOption extracts the authoritative size from a variant's options
func sizeOption(options []shopify.SelectedOption) string {
	for _, opt := range options {
		if strings.EqualFold(opt.Name, "size") {
			return opt.Value
		}
	}
	return ""
}

// startHeartbeat refreshes the run's liveness timestamp until the returned
// stop function is called
func (s *SyncService) startHeartbeat(ctx context.Context, runID uint) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.syncRepo.Heartbeat(ctx, runID); err != nil {
					s.logger.WithError(err).WithField("runId", runID).Warn("Heartbeat failed")
				}
			}
		}
	}()
	return func() { close(done) }
}

// logEvent attaches a log entry to a run. Log write failures are reported
// but never fail the pipeline.
func (s *SyncService) logEvent(runID uint, level models.LogLevel, message string, data map[string]interface{}) {
	entry := &models.SyncRunLog{
		SyncRunID: runID,
		Level:     level,
		Message:   message,
	}
	if data != nil {
		entry.Data = models.JSONB(data)
	}
	if err := s.syncRepo.CreateLog(context.Background(), entry); err != nil {
		s.logger.WithError(err).WithField("runId", runID).Warn("Failed to write sync run log")
	}
}

// CleanupOrphaned sweeps STARTED runs with a stale heartbeat to TIMEOUT.
// Safe to call repeatedly and concurrently.
func (s *SyncService) CleanupOrphaned(ctx context.Context) (int64, error) {
	cleaned, err := s.syncRepo.CleanupOrphaned(ctx, s.cfg.HeartbeatThreshold)
	if err != nil {
		return 0, err
	}
	if cleaned > 0 {
		s.logger.WithField("cleanedUp", cleaned).Warn("Orphaned sync runs moved to timeout")
	}
	return cleaned, nil
}

// PruneStale deletes staged records not touched by a sync for the given
// duration. Separate from ingestion so a truncated download never silently
// drops rows.
func (s *SyncService) PruneStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, &ValidationError{Field: "olderThan", Message: "must be a positive duration"}
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	pruned, err := s.rawRepo.PruneStaleBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if pruned > 0 {
		s.logger.WithFields(logrus.Fields{"pruned": pruned, "cutoff": cutoff}).Info("Stale raw records pruned")
	}
	return pruned, nil
}

// ListRuns returns the latest run summaries, newest first
func (s *SyncService) ListRuns(ctx context.Context, limit int) ([]models.SyncRun, error) {
	return s.syncRepo.ListRecent(ctx, limit)
}

// GetRun returns one run by id
func (s *SyncService) GetRun(ctx context.Context, id uint) (*models.SyncRun, error) {
	return s.syncRepo.GetByID(ctx, id)
}

// GetRunLogs returns log entries for a run, newest first
func (s *SyncService) GetRunLogs(ctx context.Context, runID uint, limit int) ([]models.SyncRunLog, error) {
	if _, err := s.syncRepo.GetByID(ctx, runID); err != nil {
		return nil, err
	}
	return s.syncRepo.GetRunLogs(ctx, runID, limit)
}
