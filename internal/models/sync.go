package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncRunStatus represents the lifecycle state of a sync run
type SyncRunStatus string

const (
	SyncRunStarted   SyncRunStatus = "STARTED"
	SyncRunCompleted SyncRunStatus = "COMPLETED"
	SyncRunFailed    SyncRunStatus = "FAILED"
	SyncRunTimeout   SyncRunStatus = "TIMEOUT"
)

// IsTerminal reports whether the status is a terminal state
func (s SyncRunStatus) IsTerminal() bool {
	return s == SyncRunCompleted || s == SyncRunFailed || s == SyncRunTimeout
}

// SyncType identifies the kind of sync pipeline a run belongs to. At most
// one run per type may be in STARTED state at any time.
const SyncTypeShopifyBulk = "shopify_bulk"

// SyncRun records one attempt of the catalog sync pipeline
type SyncRun struct {
	ID       uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	SyncType string        `gorm:"type:varchar(100);not null;index:idx_sync_runs_type" json:"syncType"`
	Status   SyncRunStatus `gorm:"type:varchar(20);not null;default:'STARTED';index:idx_sync_runs_status" json:"status"`

	// Handle of the remote bulk operation, kept so a run that locally gave
	// up on polling can still be reconciled against the remote job later.
	BulkOperationID string `gorm:"type:varchar(255)" json:"bulkOperationId,omitempty"`

	ItemCount int         `gorm:"default:0" json:"itemCount"`
	Errors    JSONStrings `gorm:"type:jsonb" json:"errors,omitempty"`

	StartedAt   time.Time  `gorm:"not null" json:"startedAt"`
	HeartbeatAt time.Time  `gorm:"not null;index:idx_sync_runs_heartbeat" json:"heartbeatAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Logs []SyncRunLog `gorm:"foreignKey:SyncRunID" json:"logs,omitempty"`
}

// TableName specifies the table name for SyncRun
func (SyncRun) TableName() string {
	return "sync_runs"
}

// LogLevel represents the severity level of a sync run log entry
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// SyncRunLog represents a log entry attached to a sync run
type SyncRunLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SyncRunID uint      `gorm:"not null;index:idx_sync_run_logs_run" json:"syncRunId"`

	Level   LogLevel `gorm:"type:varchar(20);not null;default:'info'" json:"level"`
	Message string   `gorm:"type:text;not null" json:"message"`
	Data    JSONB    `gorm:"type:jsonb" json:"data,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for SyncRunLog
func (SyncRunLog) TableName() string {
	return "sync_run_logs"
}
