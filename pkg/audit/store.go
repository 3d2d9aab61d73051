package audit

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Store provides append-only operations for access audit events.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the access audit table.
func (s *Store) AutoMigrate() error {
	if err := s.db.AutoMigrate(&AccessEventRecord{}); err != nil {
		return fmt.Errorf("auto-migrate access_audit_events: %w", err)
	}
	return nil
}

// Append creates a new immutable access event record.
func (s *Store) Append(event *AccessEventRecord) error {
	if err := s.db.Create(event).Error; err != nil {
		return fmt.Errorf("append access event: %w", err)
	}
	return nil
}

// ListFilter narrows an access event listing. Zero fields match everything.
type ListFilter struct {
	Site    string
	Actor   string
	AssetID string
	Action  string
	Outcome string
}

func (f ListFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Site != "" {
		q = q.Where("site = ?", f.Site)
	}
	if f.Actor != "" {
		q = q.Where("actor = ?", f.Actor)
	}
	if f.AssetID != "" {
		q = q.Where("asset_id = ?", f.AssetID)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.Outcome != "" {
		q = q.Where("outcome = ?", f.Outcome)
	}
	return q
}

// List returns paginated access events ordered by created_at DESC (newest
// first). pageToken is an RFC3339Nano timestamp; events created before it
// are returned.
func (s *Store) List(filter ListFilter, pageSize int, pageToken string) ([]AccessEventRecord, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var totalSize int64
	if err := filter.apply(s.db.Model(&AccessEventRecord{})).Count(&totalSize).Error; err != nil {
		return nil, "", 0, fmt.Errorf("count access events: %w", err)
	}

	query := filter.apply(s.db.Session(&gorm.Session{})).Order("created_at DESC").Limit(pageSize + 1)
	if pageToken != "" {
		t, err := time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", 0, fmt.Errorf("invalid page token: %w", err)
		}
		query = query.Where("created_at < ?", t)
	}

	var records []AccessEventRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, fmt.Errorf("list access events: %w", err)
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].CreatedAt.Format(time.RFC3339Nano)
		records = records[:pageSize]
	}

	return records, nextToken, int(totalSize), nil
}

// GetByID returns a single access event, or nil if it does not exist.
func (s *Store) GetByID(id string) (*AccessEventRecord, error) {
	var record AccessEventRecord
	err := s.db.Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get access event: %w", err)
	}
	return &record, nil
}

// DeleteOlderThan deletes access events created before the given cutoff time.
// Returns the number of deleted records.
func (s *Store) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", cutoff).Delete(&AccessEventRecord{})
	if result.Error != nil {
		return 0, fmt.Errorf("delete old access events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
