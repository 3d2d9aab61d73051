package registry

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BranchStore provides persistence for branches and branch versions.
type BranchStore struct {
	db *gorm.DB
}

// NewBranchStore creates a new BranchStore.
func NewBranchStore(db *gorm.DB) *BranchStore {
	return &BranchStore{db: db}
}

// WithTx returns a copy of the store bound to the given transaction.
func (s *BranchStore) WithTx(tx *gorm.DB) *BranchStore {
	return &BranchStore{db: tx}
}

// AutoMigrate creates or updates the branches and branch_versions tables.
func (s *BranchStore) AutoMigrate() error {
	if err := s.db.AutoMigrate(&BranchRecord{}); err != nil {
		return fmt.Errorf("auto-migrate branches: %w", err)
	}
	if err := s.db.AutoMigrate(&BranchVersionRecord{}); err != nil {
		return fmt.Errorf("auto-migrate branch_versions: %w", err)
	}
	return nil
}

// CreateBranch inserts a new branch record.
func (s *BranchStore) CreateBranch(record *BranchRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if err := s.db.Create(record).Error; err != nil {
		return Storagef(err, "create branch")
	}
	return nil
}

// GetBranch retrieves a branch record by id. Returns nil, nil if no record
// exists.
func (s *BranchStore) GetBranch(branchID string) (*BranchRecord, error) {
	var record BranchRecord
	err := s.db.Where("id = ?", branchID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, Storagef(err, "get branch")
	}
	return &record, nil
}

// ListBranches returns all branches for an asset in creation order.
func (s *BranchStore) ListBranches(assetID string) ([]BranchRecord, error) {
	var records []BranchRecord
	err := s.db.Where("asset_id = ?", assetID).
		Order("created_at ASC, id ASC").Find(&records).Error
	if err != nil {
		return nil, Storagef(err, "list branches")
	}
	return records, nil
}

// Deactivate marks a branch inactive. Deactivation is permanent: nothing in
// the registry flips a branch back to active.
func (s *BranchStore) Deactivate(branchID string) error {
	res := s.db.Model(&BranchRecord{}).Where("id = ?", branchID).
		Update("is_active", false)
	if res.Error != nil {
		return Storagef(res.Error, "deactivate branch")
	}
	if res.RowsAffected == 0 {
		return NotFoundf("branch %s not found", branchID)
	}
	return nil
}

// CreateVersion inserts a new branch version as the branch latest. The
// sequence allocation, the clearing of the previous latest flag and the
// insert happen in one transaction so exactly one row per branch carries
// is_branch_latest=true at any time.
func (s *BranchStore) CreateVersion(record *BranchVersionRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		var maxSeq int
		err := tx.Model(&BranchVersionRecord{}).
			Where("branch_id = ?", record.BranchID).
			Select("COALESCE(MAX(branch_seq), 0)").Scan(&maxSeq).Error
		if err != nil {
			return Storagef(err, "allocate branch version seq")
		}
		record.BranchSeq = maxSeq + 1

		err = tx.Model(&BranchVersionRecord{}).
			Where("branch_id = ? AND is_branch_latest = ?", record.BranchID, true).
			Update("is_branch_latest", false).Error
		if err != nil {
			return Storagef(err, "clear branch latest flag")
		}

		record.IsBranchLatest = true
		if err := tx.Create(record).Error; err != nil {
			return Storagef(err, "create branch version")
		}
		return nil
	})
}

// GetVersion retrieves a branch version record by id. Returns nil, nil if no
// record exists.
func (s *BranchStore) GetVersion(branchVersionID string) (*BranchVersionRecord, error) {
	var record BranchVersionRecord
	err := s.db.Where("id = ?", branchVersionID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, Storagef(err, "get branch version")
	}
	return &record, nil
}

// ListVersions returns paginated branch versions, newest first. pageToken is
// the branch_seq of the last record from the previous page.
func (s *BranchStore) ListVersions(branchID string, pageSize int, pageToken string) ([]BranchVersionRecord, string, int, error) {
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var totalSize int64
	err := s.db.Model(&BranchVersionRecord{}).
		Where("branch_id = ?", branchID).Count(&totalSize).Error
	if err != nil {
		return nil, "", 0, Storagef(err, "count branch versions")
	}

	query := s.db.Where("branch_id = ?", branchID).
		Order("branch_seq DESC").Limit(pageSize + 1)
	if pageToken != "" {
		afterSeq, err := strconv.Atoi(pageToken)
		if err != nil {
			return nil, "", 0, Validationf("invalid page token %q", pageToken)
		}
		query = query.Where("branch_seq < ?", afterSeq)
	}

	var records []BranchVersionRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, "", 0, Storagef(err, "list branch versions")
	}

	var nextToken string
	if len(records) > pageSize {
		nextToken = strconv.Itoa(records[pageSize-1].BranchSeq)
		records = records[:pageSize]
	}

	return records, nextToken, int(totalSize), nil
}

// Latest returns the branch version carrying the latest flag. Returns
// nil, nil for a branch with no versions.
func (s *BranchStore) Latest(branchID string) (*BranchVersionRecord, error) {
	var record BranchVersionRecord
	err := s.db.Where("branch_id = ? AND is_branch_latest = ?", branchID, true).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, Storagef(err, "get branch latest")
	}
	return &record, nil
}
