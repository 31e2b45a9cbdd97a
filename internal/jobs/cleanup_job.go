package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// OrphanSweeper is the part of the sync service the cleanup job drives
type OrphanSweeper interface {
	CleanupOrphaned(ctx context.Context) (int64, error)
}

// CleanupJob periodically sweeps orphaned sync runs to TIMEOUT. A crashed
// process cannot clean up after itself, so this runs on a schedule
// independent of any sync invocation.
type CleanupJob struct {
	sweeper  OrphanSweeper
	interval time.Duration
	logger   *logrus.Logger
	stopCh   chan struct{}
}

// NewCleanupJob creates a new cleanup job. The interval should be at least
// the heartbeat threshold.
func NewCleanupJob(sweeper OrphanSweeper, interval time.Duration, logger *logrus.Logger) *CleanupJob {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CleanupJob{
		sweeper:  sweeper,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep in a background goroutine
func (j *CleanupJob) Start() {
	j.logger.WithField("interval", j.interval.String()).Info("Starting sync run cleanup job")

	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		// Run once at startup so runs orphaned by the previous process are
		// recovered immediately.
		j.sweep()

		for {
			select {
			case <-j.stopCh:
				return
			case <-ticker.C:
				j.sweep()
			}
		}
	}()
}

// Stop halts the periodic sweep
func (j *CleanupJob) Stop() {
	close(j.stopCh)
	j.logger.Info("Sync run cleanup job stopped")
}

func (j *CleanupJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := j.sweeper.CleanupOrphaned(ctx); err != nil {
		j.logger.WithError(err).Error("Orphaned sync run sweep failed")
	}
}
