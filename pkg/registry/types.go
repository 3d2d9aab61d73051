package registry

import (
	"fmt"
	"strings"
)

// Status represents the lifecycle status of a configuration version.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSilver   Status = "silver"
	StatusApproved Status = "approved"
	StatusGolden   Status = "golden"
	StatusArchived Status = "archived"
)

// AllStatuses lists every valid status.
var AllStatuses = []Status{StatusDraft, StatusSilver, StatusApproved, StatusGolden, StatusArchived}

// ParseStatus parses a status string case-insensitively.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if status == known {
			return status, nil
		}
	}
	return "", Validationf("unknown status %q", s)
}

// Asset is the API-facing asset.
type Asset struct {
	ID          string `json:"id"`
	Site        string `json:"site"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"createdBy,omitempty"`
	CreatedAt   string `json:"createdAt"` // RFC3339
}

// AssetList is a paginated list of assets.
type AssetList struct {
	Assets        []Asset `json:"assets"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

// ConfigurationVersion is the API-facing configuration version.
type ConfigurationVersion struct {
	ID                    string `json:"id"`
	AssetID               string `json:"assetId"`
	VersionNumber         string `json:"versionNumber"` // "v1", "v2", ...
	FileName              string `json:"fileName"`
	FileSize              int64  `json:"fileSize"`
	ContentHash           string `json:"contentHash"`
	Author                string `json:"author"`
	Notes                 string `json:"notes,omitempty"`
	Status                Status `json:"status"`
	StatusChangedBy       string `json:"statusChangedBy,omitempty"`
	StatusChangedAt       string `json:"statusChangedAt,omitempty"` // RFC3339
	SourceBranchID        string `json:"sourceBranchId,omitempty"`
	SourceBranchVersionID string `json:"sourceBranchVersionId,omitempty"`
	CreatedAt             string `json:"createdAt"` // RFC3339
}

// ConfigurationVersionList is a paginated list of versions.
type ConfigurationVersionList struct {
	Versions      []ConfigurationVersion `json:"versions"`
	NextPageToken string                 `json:"nextPageToken,omitempty"`
	TotalSize     int                    `json:"totalSize"`
}

// Branch is the API-facing branch.
type Branch struct {
	ID                  string `json:"id"`
	AssetID             string `json:"assetId"`
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
	ParentVersionID     string `json:"parentVersionId"`
	ParentVersionNumber string `json:"parentVersionNumber"`
	IsActive            bool   `json:"isActive"`
	ParentArchived      bool   `json:"parentArchived,omitempty"`
	CreatedBy           string `json:"createdBy,omitempty"`
	CreatedAt           string `json:"createdAt"` // RFC3339
}

// BranchList is the list of branches for an asset.
type BranchList struct {
	Branches []Branch `json:"branches"`
}

// BranchVersion is the API-facing branch version.
type BranchVersion struct {
	ID                  string `json:"id"`
	BranchID            string `json:"branchId"`
	VersionNumber       string `json:"versionNumber"`       // "branch-v1", "branch-v2", ...
	ParentVersionNumber string `json:"parentVersionNumber"` // main-line parent, "v1", "v2", ...
	FileName            string `json:"fileName"`
	FileSize            int64  `json:"fileSize"`
	ContentHash         string `json:"contentHash"`
	Author              string `json:"author"`
	Notes               string `json:"notes,omitempty"`
	IsBranchLatest      bool   `json:"isBranchLatest"`
	CreatedAt           string `json:"createdAt"` // RFC3339
}

// BranchVersionList is a paginated list of branch versions.
type BranchVersionList struct {
	Versions      []BranchVersion `json:"versions"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
	TotalSize     int             `json:"totalSize"`
}

// StatusChange is the API-facing status change history entry.
type StatusChange struct {
	ID        string `json:"id"`
	VersionID string `json:"versionId"`
	OldStatus Status `json:"oldStatus,omitempty"` // empty on the initial record
	NewStatus Status `json:"newStatus"`
	ChangedBy string `json:"changedBy"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"createdAt"` // RFC3339
}

// StatusHistory is the ordered status change history for a version.
type StatusHistory struct {
	VersionID string         `json:"versionId"`
	Changes   []StatusChange `json:"changes"`
}

// TransitionSet reports the statuses a version may move to.
type TransitionSet struct {
	VersionID     string   `json:"versionId"`
	CurrentStatus Status   `json:"currentStatus"`
	Available     []Status `json:"available"`
}

// Eligibility reports whether a version may be promoted to golden.
type Eligibility struct {
	VersionID     string `json:"versionId"`
	CurrentStatus Status `json:"currentStatus"`
	Eligible      bool   `json:"eligible"`
	Reason        string `json:"reason,omitempty"`
}

// CompareResult carries a textual diff between two branch versions.
type CompareResult struct {
	BranchID       string `json:"branchId"`
	VersionNumber1 string `json:"versionNumber1"`
	VersionNumber2 string `json:"versionNumber2"`
	Identical      bool   `json:"identical"`
	Diff           string `json:"diff"`
}

// versionLabel renders a main-line version sequence as "v<seq>".
func versionLabel(seq int) string { return fmt.Sprintf("v%d", seq) }

// branchVersionLabel renders a branch version sequence as "branch-v<seq>".
func branchVersionLabel(seq int) string { return fmt.Sprintf("branch-v%d", seq) }

// ExportResult describes a verified export to a destination path.
type ExportResult struct {
	VersionID   string `json:"versionId"`
	ExportPath  string `json:"exportPath"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	ContentHash string `json:"contentHash"`
	ExportedAt  string `json:"exportedAt"` // RFC3339
}
