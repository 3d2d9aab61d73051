// Package jobs runs background integrity scans: recomputing the stored
// digest of version content against the recorded content hash. Scans are
// queued through the API, claimed transactionally by a worker pool and
// retried on failure.
package jobs

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JobState represents the lifecycle state of a scan job.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateSucceeded JobState = "succeeded"
	JobStateFailed    JobState = "failed"
	JobStateCanceled  JobState = "canceled"
)

// JSONStringSlice is a custom GORM type for []string stored as JSON.
type JSONStringSlice []string

// Scan implements the sql.Scanner interface for JSONStringSlice.
func (s *JSONStringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONStringSlice: %T", value)
	}
	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for JSONStringSlice.
func (s JSONStringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// ScanJob is the GORM model for an integrity scan job. An empty asset_id
// scans every version in the registry.
type ScanJob struct {
	ID              string          `gorm:"primaryKey;column:id;type:varchar(36)"`
	Site            string          `gorm:"column:site;index:idx_scan_site_state,priority:1;default:default;not null"`
	AssetID         string          `gorm:"column:asset_id;index:idx_scan_asset_state,priority:1"`
	RequestedBy     string          `gorm:"column:requested_by;not null"`
	RequestedAt     time.Time       `gorm:"column:requested_at;not null"`
	State           JobState        `gorm:"column:state;index:idx_scan_site_state,priority:2;index:idx_scan_asset_state,priority:2;index:idx_scan_state;not null;default:queued"`
	Message         string          `gorm:"column:message"`
	StartedAt       *time.Time      `gorm:"column:started_at"`
	FinishedAt      *time.Time      `gorm:"column:finished_at"`
	AttemptCount    int             `gorm:"column:attempt_count;default:0"`
	LastError       string          `gorm:"column:last_error"`
	IdempotencyKey  string          `gorm:"column:idempotency_key;uniqueIndex:idx_scan_idemp_key"`
	VersionsChecked int             `gorm:"column:versions_checked"`
	Mismatches      JSONStringSlice `gorm:"column:mismatches;type:text"`
	DurationMs      int64           `gorm:"column:duration_ms"`
}

// TableName returns the GORM table name.
func (ScanJob) TableName() string { return "integrity_scan_jobs" }

// IsTerminal returns true if the job is in a terminal state.
func (j *ScanJob) IsTerminal() bool {
	switch j.State {
	case JobStateSucceeded, JobStateFailed, JobStateCanceled:
		return true
	}
	return false
}
