package main

// API response shapes. Kept local to the CLI so it only depends on the wire
// contract, not the server internals.

type asset struct {
	ID          string `json:"id"`
	Site        string `json:"site"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedBy   string `json:"createdBy,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

type assetList struct {
	Assets        []asset `json:"assets"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

type version struct {
	ID              string `json:"id"`
	AssetID         string `json:"assetId"`
	VersionNumber   string `json:"versionNumber"`
	FileName        string `json:"fileName"`
	FileSize        int64  `json:"fileSize"`
	ContentHash     string `json:"contentHash"`
	Author          string `json:"author"`
	Notes           string `json:"notes,omitempty"`
	Status          string `json:"status"`
	StatusChangedBy string `json:"statusChangedBy,omitempty"`
	StatusChangedAt string `json:"statusChangedAt,omitempty"`
	CreatedAt       string `json:"createdAt"`
}

type versionList struct {
	Versions      []version `json:"versions"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
	TotalSize     int       `json:"totalSize"`
}

type goldenResponse struct {
	Golden *version `json:"golden"`
}

type transitionSet struct {
	VersionID     string   `json:"versionId"`
	CurrentStatus string   `json:"currentStatus"`
	Available     []string `json:"available"`
}

type eligibility struct {
	VersionID     string `json:"versionId"`
	CurrentStatus string `json:"currentStatus"`
	Eligible      bool   `json:"eligible"`
	Reason        string `json:"reason,omitempty"`
}

type statusChange struct {
	ID        string `json:"id"`
	VersionID string `json:"versionId"`
	OldStatus string `json:"oldStatus,omitempty"`
	NewStatus string `json:"newStatus"`
	ChangedBy string `json:"changedBy"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type statusHistory struct {
	VersionID string         `json:"versionId"`
	Changes   []statusChange `json:"changes"`
}

type branch struct {
	ID                  string `json:"id"`
	AssetID             string `json:"assetId"`
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
	ParentVersionID     string `json:"parentVersionId"`
	ParentVersionNumber string `json:"parentVersionNumber"`
	IsActive            bool   `json:"isActive"`
	ParentArchived      bool   `json:"parentArchived,omitempty"`
	CreatedAt           string `json:"createdAt"`
}

type branchList struct {
	Branches []branch `json:"branches"`
}

type branchVersion struct {
	ID             string `json:"id"`
	BranchID       string `json:"branchId"`
	VersionNumber  string `json:"versionNumber"`
	FileName       string `json:"fileName"`
	FileSize       int64  `json:"fileSize"`
	ContentHash    string `json:"contentHash"`
	Author         string `json:"author"`
	IsBranchLatest bool   `json:"isBranchLatest"`
	CreatedAt      string `json:"createdAt"`
}

type branchVersionList struct {
	Versions      []branchVersion `json:"versions"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
	TotalSize     int             `json:"totalSize"`
}

type compareResult struct {
	BranchID       string `json:"branchId"`
	VersionNumber1 string `json:"versionNumber1"`
	VersionNumber2 string `json:"versionNumber2"`
	Identical      bool   `json:"identical"`
	Diff           string `json:"diff"`
}

type exportResult struct {
	VersionID   string `json:"versionId"`
	ExportPath  string `json:"exportPath"`
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	ContentHash string `json:"contentHash"`
	ExportedAt  string `json:"exportedAt"`
}

type gitSpec struct {
	URL       string `json:"url"`
	Ref       string `json:"ref,omitempty"`
	Path      string `json:"path"`
	AuthToken string `json:"authToken,omitempty"`
}

type scanJob struct {
	ID              string   `json:"id"`
	AssetID         string   `json:"assetId,omitempty"`
	RequestedBy     string   `json:"requestedBy"`
	RequestedAt     string   `json:"requestedAt"`
	State           string   `json:"state"`
	Message         string   `json:"message,omitempty"`
	VersionsChecked int      `json:"versionsChecked,omitempty"`
	Mismatches      []string `json:"mismatches,omitempty"`
	DurationMs      int64    `json:"durationMs,omitempty"`
}

type scanJobList struct {
	Jobs          []scanJob `json:"jobs"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
	TotalSize     int       `json:"totalSize"`
}
