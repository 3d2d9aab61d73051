package registry

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AssetStore provides CRUD operations for asset records.
type AssetStore struct {
	db *gorm.DB
}

// NewAssetStore creates a new AssetStore.
func NewAssetStore(db *gorm.DB) *AssetStore {
	return &AssetStore{db: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *AssetStore) WithTx(tx *gorm.DB) *AssetStore {
	return &AssetStore{db: tx}
}

// AutoMigrate creates or updates the assets table.
func (s *AssetStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&AssetRecord{}); err != nil {
		return fmt.Errorf("auto-migrate assets: %w", err)
	}
	return nil
}

// Create inserts a new asset record.
func (s *AssetStore) Create(record *AssetRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Site == "" {
		record.Site = "default"
	}
	if err := s.db.Create(record).Error; err != nil {
		return Storagef(err, "create asset")
	}
	return nil
}

// Get retrieves an asset record by id. Returns nil, nil if no record exists.
func (s *AssetStore) Get(assetID string) (*AssetRecord, error) {
	var record AssetRecord
	err := s.db.Where("id = ?", assetID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, Storagef(err, "get asset")
	}
	return &record, nil
}

// List returns paginated asset records for a site, ordered by id.
// pageToken is the id of the last record from the previous page.
func (s *AssetStore) List(site string, pageSize int, pageToken string) ([]AssetRecord, string, error) {
	if site == "" {
		site = "default"
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	query := s.db.Where("site = ?", site).Order("id ASC").Limit(pageSize + 1)
	if pageToken != "" {
		query = query.Where("id > ?", pageToken)
	}

	var records []AssetRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", Storagef(err, "list assets")
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = records[pageSize-1].ID
		records = records[:pageSize]
	}

	return records, nextToken, nil
}
