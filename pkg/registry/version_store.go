package registry

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VersionStore provides persistence for main-line configuration versions.
type VersionStore struct {
	db *gorm.DB
}

// NewVersionStore creates a new VersionStore.
func NewVersionStore(db *gorm.DB) *VersionStore {
	return &VersionStore{db: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *VersionStore) WithTx(tx *gorm.DB) *VersionStore {
	return &VersionStore{db: tx}
}

// AutoMigrate creates or updates the configuration_versions table.
func (s *VersionStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&ConfigurationVersionRecord{}); err != nil {
		return fmt.Errorf("auto-migrate configuration_versions: %w", err)
	}
	return nil
}

// Create inserts a new version record, allocating the next version_seq for
// the asset inside the insert transaction. The asset row is locked for the
// allocation so concurrent imports cannot claim the same sequence; SQLite
// ignores the lock clause but serializes writers globally.
func (s *VersionStore) Create(record *ConfigurationVersionRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Status == "" {
		record.Status = string(StatusDraft)
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var asset AssetRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", record.AssetID).First(&asset).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("asset %s not found", record.AssetID)
			}
			return Storagef(err, "lock asset for version create")
		}

		var maxSeq int
		err = tx.Model(&ConfigurationVersionRecord{}).
			Where("asset_id = ?", record.AssetID).
			Select("COALESCE(MAX(version_seq), 0)").Scan(&maxSeq).Error
		if err != nil {
			return Storagef(err, "allocate version seq")
		}
		record.VersionSeq = maxSeq + 1

		if err := tx.Create(record).Error; err != nil {
			return Storagef(err, "create configuration version")
		}
		return nil
	})
}

// Get retrieves a version record by id. Returns nil, nil if no record exists.
func (s *VersionStore) Get(versionID string) (*ConfigurationVersionRecord, error) {
	var record ConfigurationVersionRecord
	err := s.db.Where("id = ?", versionID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, Storagef(err, "get version")
	}
	return &record, nil
}

// GetLocked retrieves a version row under a row lock. Must run inside a
// transaction. Returns nil, nil if no record exists.
func (s *VersionStore) GetLocked(versionID string) (*ConfigurationVersionRecord, error) {
	var record ConfigurationVersionRecord
	err := s.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", versionID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, Storagef(err, "get version for update")
	}
	return &record, nil
}

// GetMany retrieves version records by id. Missing ids are skipped.
func (s *VersionStore) GetMany(versionIDs []string) ([]ConfigurationVersionRecord, error) {
	if len(versionIDs) == 0 {
		return nil, nil
	}
	var records []ConfigurationVersionRecord
	if err := s.db.Where("id IN ?", versionIDs).Find(&records).Error; err != nil {
		return nil, Storagef(err, "get versions")
	}
	return records, nil
}

// ListForAsset returns paginated version records for an asset, newest first.
// pageToken is the version_seq of the last record from the previous page.
// filter, when non-nil, narrows both the page and the total count.
func (s *VersionStore) ListForAsset(assetID string, pageSize int, pageToken string, filter *VersionFilter) ([]ConfigurationVersionRecord, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	base := s.db.Model(&ConfigurationVersionRecord{}).Where("asset_id = ?", assetID)
	if filter != nil {
		base = filter.Apply(base)
	}

	var totalSize int64
	if err := base.Session(&gorm.Session{}).Count(&totalSize).Error; err != nil {
		return nil, "", 0, Storagef(err, "count versions")
	}

	query := base.Session(&gorm.Session{}).Order("version_seq DESC").Limit(pageSize + 1)
	if pageToken != "" {
		afterSeq, err := strconv.Atoi(pageToken)
		if err != nil {
			return nil, "", 0, Validationf("invalid page token %q", pageToken)
		}
		query = query.Where("version_seq < ?", afterSeq)
	}

	var records []ConfigurationVersionRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, Storagef(err, "list versions")
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = strconv.Itoa(records[pageSize-1].VersionSeq)
		records = records[:pageSize]
	}

	return records, nextToken, int(totalSize), nil
}

// Golden returns the asset's golden version. Returns nil, nil when the asset
// has no golden version; at most one exists by construction.
func (s *VersionStore) Golden(assetID string) (*ConfigurationVersionRecord, error) {
	var record ConfigurationVersionRecord
	err := s.db.Where("asset_id = ? AND status = ?", assetID, string(StatusGolden)).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, Storagef(err, "get golden version")
	}
	return &record, nil
}

// UpdateStatus sets the status columns on a version row. All other columns
// are immutable after creation.
func (s *VersionStore) UpdateStatus(versionID string, status Status, changedBy string, changedAt time.Time) error {
	res := s.db.Model(&ConfigurationVersionRecord{}).Where("id = ?", versionID).
		Updates(map[string]any{
			"status":            string(status),
			"status_changed_by": changedBy,
			"status_changed_at": changedAt,
		})
	if res.Error != nil {
		return Storagef(res.Error, "update version status")
	}
	if res.RowsAffected == 0 {
		return NotFoundf("version %s not found", versionID)
	}
	return nil
}
