package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditStore persists the append-only status change history. Records are
// inserted inside the transaction of the mutation they describe and are
// never updated or deleted.
type AuditStore struct {
	db *gorm.DB
}

// NewAuditStore creates a new AuditStore.
func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *AuditStore) WithTx(tx *gorm.DB) *AuditStore {
	return &AuditStore{db: tx}
}

// AutoMigrate creates or updates the status_change_records table.
func (s *AuditStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&StatusChangeRecord{}); err != nil {
		return fmt.Errorf("auto-migrate status_change_records: %w", err)
	}
	return nil
}

// Append inserts a status change record, allocating the next change_seq for
// the version. The unique (version_id, change_seq) index keeps the chain
// gapless even if two appends race.
func (s *AuditStore) Append(record *StatusChangeRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var maxSeq int
		err := tx.Model(&StatusChangeRecord{}).
			Where("version_id = ?", record.VersionID).
			Select("COALESCE(MAX(change_seq), 0)").Scan(&maxSeq).Error
		if err != nil {
			return Storagef(err, "allocate change seq")
		}
		record.ChangeSeq = maxSeq + 1

		if err := tx.Create(record).Error; err != nil {
			return Storagef(err, "append status change")
		}
		return nil
	})
}

// History returns the full status change chain for a version, oldest first.
func (s *AuditStore) History(versionID string) ([]StatusChangeRecord, error) {
	var records []StatusChangeRecord
	err := s.db.Where("version_id = ?", versionID).
		Order("change_seq ASC").Find(&records).Error
	if err != nil {
		return nil, Storagef(err, "list status changes")
	}
	return records, nil
}

// LastActiveStatus returns the most recent non-archived status for a
// version. Restore uses it to recover the pre-archive status without a
// dedicated column. Returns "" when no non-archived entry exists.
func (s *AuditStore) LastActiveStatus(versionID string) (Status, error) {
	var record StatusChangeRecord
	err := s.db.Where("version_id = ? AND new_status <> ?", versionID, string(StatusArchived)).
		Order("change_seq DESC").First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", Storagef(err, "scan status history")
	}
	return Status(record.NewStatus), nil
}
