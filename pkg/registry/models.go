package registry

import "time"

// AssetRecord identifies a configuration-bearing asset (PLC, HMI, drive, ...).
// The registry owns only what its own operations need; richer device metadata
// lives with the external asset catalog and is joined by id.
type AssetRecord struct {
	ID          string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	Site        string    `gorm:"column:site;index:idx_assets_site_name,priority:1;default:default;not null"`
	Name        string    `gorm:"column:name;index:idx_assets_site_name,priority:2;not null"`
	Description string    `gorm:"column:description"`
	CreatedBy   string    `gorm:"column:created_by;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (AssetRecord) TableName() string { return "assets" }

// ConfigurationVersionRecord is an immutable main-line configuration version.
// Only status, status_changed_by and status_changed_at mutate after creation;
// rows are never deleted.
type ConfigurationVersionRecord struct {
	ID                    string     `gorm:"primaryKey;column:id;type:varchar(36)"`
	AssetID               string     `gorm:"column:asset_id;index:idx_versions_asset_status,priority:1;uniqueIndex:idx_versions_asset_seq,priority:1;not null"`
	VersionSeq            int        `gorm:"column:version_seq;uniqueIndex:idx_versions_asset_seq,priority:2;not null"`
	FileName              string     `gorm:"column:file_name;not null"`
	FileSize              int64      `gorm:"column:file_size;not null"`
	ContentHash           string     `gorm:"column:content_hash;index;not null"`
	Author                string     `gorm:"column:author;not null"`
	Notes                 string     `gorm:"column:notes"`
	Status                string     `gorm:"column:status;index:idx_versions_asset_status,priority:2;default:draft;not null"`
	StatusChangedBy       string     `gorm:"column:status_changed_by"`
	StatusChangedAt       *time.Time `gorm:"column:status_changed_at"`
	SourceBranchID        string     `gorm:"column:source_branch_id"`
	SourceBranchVersionID string     `gorm:"column:source_branch_version_id"`
	CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime"`

	// DemotedGoldenID is set on the record returned by a golden promotion
	// when the promotion demoted a predecessor. Not persisted; callers use
	// it to invalidate the predecessor's cached reads.
	DemotedGoldenID string `gorm:"-" json:"-"`
}

// TableName returns the GORM table name.
func (ConfigurationVersionRecord) TableName() string { return "configuration_versions" }

// VersionNumber renders the per-asset version label ("v1", "v2", ...).
func (r *ConfigurationVersionRecord) VersionNumber() string {
	return versionLabel(r.VersionSeq)
}

// StatusChangeRecord is an append-only status history entry. The first record
// for a version has an empty old_status; every later record's old_status
// equals the previous record's new_status. change_seq orders the chain and is
// allocated in the same transaction as the status mutation it records.
type StatusChangeRecord struct {
	ID        string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	VersionID string    `gorm:"column:version_id;uniqueIndex:idx_status_changes_version_seq,priority:1;not null"`
	ChangeSeq int       `gorm:"column:change_seq;uniqueIndex:idx_status_changes_version_seq,priority:2;not null"`
	OldStatus string    `gorm:"column:old_status"`
	NewStatus string    `gorm:"column:new_status;not null"`
	ChangedBy string    `gorm:"column:changed_by;not null"`
	Reason    string    `gorm:"column:change_reason"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (StatusChangeRecord) TableName() string { return "status_change_records" }

// BranchRecord is a working line hanging off a main-line parent version.
// Branches are deactivated, never deleted, and never auto-reactivated.
type BranchRecord struct {
	ID               string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	AssetID          string    `gorm:"column:asset_id;index:idx_branches_asset,priority:1;not null"`
	Name             string    `gorm:"column:name;not null"`
	Description      string    `gorm:"column:description"`
	ParentVersionID  string    `gorm:"column:parent_version_id;not null"`
	ParentVersionSeq int       `gorm:"column:parent_version_seq;not null"`
	IsActive         bool      `gorm:"column:is_active;default:true;not null"`
	CreatedBy        string    `gorm:"column:created_by;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;index:idx_branches_asset,priority:2;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName returns the GORM table name.
func (BranchRecord) TableName() string { return "branches" }

// BranchVersionRecord is an immutable version inside a branch. Exactly one
// row per branch carries is_branch_latest=true; the flag swap and the insert
// of the new latest happen in one transaction. parent_version_seq is copied
// from the branch at import time so a row can be rendered against its
// main-line parent without a join.
type BranchVersionRecord struct {
	ID               string    `gorm:"primaryKey;column:id;type:varchar(36)"`
	BranchID         string    `gorm:"column:branch_id;uniqueIndex:idx_branch_versions_branch_seq,priority:1;index:idx_branch_versions_latest,priority:1;not null"`
	BranchSeq        int       `gorm:"column:branch_seq;uniqueIndex:idx_branch_versions_branch_seq,priority:2;not null"`
	ParentVersionSeq int       `gorm:"column:parent_version_seq;not null"`
	FileName         string    `gorm:"column:file_name;not null"`
	FileSize         int64     `gorm:"column:file_size;not null"`
	ContentHash      string    `gorm:"column:content_hash;not null"`
	Author           string    `gorm:"column:author;not null"`
	Notes            string    `gorm:"column:notes"`
	IsBranchLatest   bool      `gorm:"column:is_branch_latest;index:idx_branch_versions_latest,priority:2;default:false;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the GORM table name.
func (BranchVersionRecord) TableName() string { return "branch_versions" }

// VersionNumber renders the per-branch version label ("branch-v1", ...).
func (r *BranchVersionRecord) VersionNumber() string {
	return branchVersionLabel(r.BranchSeq)
}
