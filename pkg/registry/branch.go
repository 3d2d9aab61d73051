package registry

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/otforge/config-registry/pkg/content"
)

// BranchEngine manages branches and their versions. Branch versions never
// participate in the status pipeline; their only way to the main line is the
// silver promotion.
type BranchEngine struct {
	db       *gorm.DB
	assets   *AssetStore
	versions *VersionStore
	branches *BranchStore
	blobs    *content.Store
	policy   content.PolicyProvider
}

// NewBranchEngine creates a branch engine.
func NewBranchEngine(db *gorm.DB, assets *AssetStore, versions *VersionStore, branches *BranchStore, blobs *content.Store, policy content.PolicyProvider) *BranchEngine {
	return &BranchEngine{
		db:       db,
		assets:   assets,
		versions: versions,
		branches: branches,
		blobs:    blobs,
		policy:   policy,
	}
}

// CreateBranch creates an active branch from a main-line parent version.
// The parent must belong to the given asset; branch names may repeat within
// an asset. Archived parents are allowed.
func (e *BranchEngine) CreateBranch(ctx context.Context, assetID, parentVersionID, name, description, author string) (*BranchRecord, error) {
	if name == "" {
		return nil, Validationf("branch name is required")
	}
	asset, err := e.assets.Get(assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, NotFoundf("asset %s not found", assetID)
	}
	parent, err := e.versions.Get(parentVersionID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, NotFoundf("version %s not found", parentVersionID)
	}
	if parent.AssetID != assetID {
		return nil, Validationf("version %s does not belong to asset %s", parentVersionID, assetID)
	}

	record := &BranchRecord{
		ID:               uuid.New().String(),
		AssetID:          assetID,
		Name:             name,
		Description:      description,
		ParentVersionID:  parent.ID,
		ParentVersionSeq: parent.VersionSeq,
		IsActive:         true,
		CreatedBy:        author,
	}
	if err := e.branches.CreateBranch(record); err != nil {
		return nil, err
	}
	return record, nil
}

// ImportToBranch imports content as the branch's new latest version.
// Inactive branches reject the import.
func (e *BranchEngine) ImportToBranch(ctx context.Context, branchID string, src content.Source, notes, author string) (*BranchVersionRecord, error) {
	branch, err := e.branches.GetBranch(branchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, NotFoundf("branch %s not found", branchID)
	}
	if !branch.IsActive {
		return nil, InactiveBranch(branchID)
	}

	staged, err := stageContent(e.policy.Policy(), e.blobs, src)
	if err != nil {
		return nil, err
	}

	record := &BranchVersionRecord{
		ID:               uuid.New().String(),
		BranchID:         branchID,
		ParentVersionSeq: branch.ParentVersionSeq,
		FileName:         staged.name,
		FileSize:         staged.size,
		ContentHash:      staged.hash,
		Author:           author,
		Notes:            notes,
	}
	if err := e.branches.CreateVersion(record); err != nil {
		return nil, err
	}
	return record, nil
}

// ListBranches returns the asset's branches in creation order, flagging
// branches whose parent version has since been archived. Archival of the
// parent never deactivates a branch; the flag is advisory.
func (e *BranchEngine) ListBranches(ctx context.Context, assetID string) ([]Branch, error) {
	asset, err := e.assets.Get(assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, NotFoundf("asset %s not found", assetID)
	}

	records, err := e.branches.ListBranches(assetID)
	if err != nil {
		return nil, err
	}

	parentIDs := make([]string, 0, len(records))
	for _, rec := range records {
		parentIDs = append(parentIDs, rec.ParentVersionID)
	}
	parents, err := e.versions.GetMany(parentIDs)
	if err != nil {
		return nil, err
	}
	parentStatus := make(map[string]Status, len(parents))
	for _, p := range parents {
		parentStatus[p.ID] = Status(p.Status)
	}

	branches := make([]Branch, len(records))
	for i, rec := range records {
		branches[i] = recordToBranch(&rec)
		branches[i].ParentArchived = parentStatus[rec.ParentVersionID] == StatusArchived
	}
	return branches, nil
}

// Deactivate marks a branch inactive. Version history stays readable and the
// branch never reactivates.
func (e *BranchEngine) Deactivate(ctx context.Context, branchID string) (*BranchRecord, error) {
	branch, err := e.branches.GetBranch(branchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, NotFoundf("branch %s not found", branchID)
	}
	if err := e.branches.Deactivate(branchID); err != nil {
		return nil, err
	}
	branch.IsActive = false
	return branch, nil
}

// Compare produces a textual diff between two versions of the same branch.
// Reads are allowed on inactive branches.
func (e *BranchEngine) Compare(ctx context.Context, branchID, versionID1, versionID2 string) (*CompareResult, error) {
	branch, err := e.branches.GetBranch(branchID)
	if err != nil {
		return nil, err
	}
	if branch == nil {
		return nil, NotFoundf("branch %s not found", branchID)
	}

	v1, err := e.branchVersionOf(branchID, versionID1)
	if err != nil {
		return nil, err
	}
	v2, err := e.branchVersionOf(branchID, versionID2)
	if err != nil {
		return nil, err
	}

	result := &CompareResult{
		BranchID:       branchID,
		VersionNumber1: v1.VersionNumber(),
		VersionNumber2: v2.VersionNumber(),
		Identical:      v1.ContentHash == v2.ContentHash,
	}
	if result.Identical {
		result.Diff = ""
		return result, nil
	}

	data1, err := e.readBlob(v1)
	if err != nil {
		return nil, err
	}
	data2, err := e.readBlob(v2)
	if err != nil {
		return nil, err
	}

	header1 := diffHeader(v1)
	header2 := diffHeader(v2)
	result.Diff = renderDiff(header1, header2, data1, data2)
	return result, nil
}

func (e *BranchEngine) branchVersionOf(branchID, versionID string) (*BranchVersionRecord, error) {
	v, err := e.branches.GetVersion(versionID)
	if err != nil {
		return nil, err
	}
	if v == nil || v.BranchID != branchID {
		return nil, NotFoundf("branch version %s not found in branch %s", versionID, branchID)
	}
	return v, nil
}

func (e *BranchEngine) readBlob(v *BranchVersionRecord) ([]byte, error) {
	data, err := e.blobs.ReadVerified(v.ContentHash)
	if err != nil {
		switch {
		case errors.Is(err, content.ErrCorrupt):
			return nil, Integrityf("content hash mismatch for branch version %s", v.ID)
		case errors.Is(err, fs.ErrNotExist):
			return nil, Integrityf("content blob missing for branch version %s", v.ID)
		}
		return nil, Storagef(err, "read branch version content")
	}
	return data, nil
}

// recordToBranch converts a branch record to the API type.
func recordToBranch(rec *BranchRecord) Branch {
	return Branch{
		ID:                  rec.ID,
		AssetID:             rec.AssetID,
		Name:                rec.Name,
		Description:         rec.Description,
		ParentVersionID:     rec.ParentVersionID,
		ParentVersionNumber: versionLabel(rec.ParentVersionSeq),
		IsActive:            rec.IsActive,
		CreatedBy:           rec.CreatedBy,
		CreatedAt:           rec.CreatedAt.Format(time.RFC3339),
	}
}
