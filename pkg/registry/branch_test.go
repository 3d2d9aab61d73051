package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBranch(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	branch, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "retune", "loop tuning", "alice")
	require.NoError(t, err)
	assert.Equal(t, asset.ID, branch.AssetID)
	assert.Equal(t, parent.ID, branch.ParentVersionID)
	assert.Equal(t, parent.VersionSeq, branch.ParentVersionSeq)
	assert.True(t, branch.IsActive)
	assert.Equal(t, "alice", branch.CreatedBy)
}

func TestCreateBranchValidations(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	other := reg.createAsset(t, "hmi-3")

	_, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "", "", "alice")
	require.Error(t, err)
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = reg.svc.BranchEng.CreateBranch(context.Background(), "missing", parent.ID, "retune", "", "alice")
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))

	_, err = reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, "missing", "retune", "", "alice")
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))

	// Parent belonging to a different asset is rejected.
	_, err = reg.svc.BranchEng.CreateBranch(context.Background(), other.ID, parent.ID, "retune", "", "alice")
	require.Error(t, err)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestCreateBranchFromArchivedParent(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	_, err := reg.svc.Archiver.Archive(context.Background(), parent.ID, "obsolete", "operator")
	require.NoError(t, err)

	branch, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "revive", "", "alice")
	require.NoError(t, err)
	assert.True(t, branch.IsActive)
}

func TestImportToBranchKeepsSingleLatest(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	branch, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "retune", "", "alice")
	require.NoError(t, err)

	v1, err := reg.svc.BranchEng.ImportToBranch(context.Background(), branch.ID,
		bytesSource("pump_7.l5x", "take 1"), "", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, v1.BranchSeq)
	assert.True(t, v1.IsBranchLatest)
	// The main-line parent seq is denormalized onto every branch version.
	assert.Equal(t, parent.VersionSeq, v1.ParentVersionSeq)

	v2, err := reg.svc.BranchEng.ImportToBranch(context.Background(), branch.ID,
		bytesSource("pump_7.l5x", "take 2"), "", "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, v2.BranchSeq)
	assert.True(t, v2.IsBranchLatest)
	assert.Equal(t, "branch-v2", v2.VersionNumber())

	// Exactly one row per branch carries the latest flag.
	records, _, total, err := reg.svc.Branches.ListVersions(branch.ID, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	latestCount := 0
	for _, rec := range records {
		if rec.IsBranchLatest {
			latestCount++
			assert.Equal(t, v2.ID, rec.ID)
		}
	}
	assert.Equal(t, 1, latestCount)

	latest, err := reg.svc.Branches.Latest(branch.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, v2.ID, latest.ID)
}

func TestImportToInactiveBranch(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	branch, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "retune", "", "alice")
	require.NoError(t, err)
	_, err = reg.svc.BranchEng.Deactivate(context.Background(), branch.ID)
	require.NoError(t, err)

	_, err = reg.svc.BranchEng.ImportToBranch(context.Background(), branch.ID,
		bytesSource("pump_7.l5x", "take 1"), "", "alice")
	require.Error(t, err)
	assert.Equal(t, CodeInactiveBranch, CodeOf(err))
}

func TestDeactivateBranch(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	branch, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "retune", "", "alice")
	require.NoError(t, err)

	updated, err := reg.svc.BranchEng.Deactivate(context.Background(), branch.ID)
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	// Reads on the deactivated branch still work.
	_, _, total, err := reg.svc.Branches.ListVersions(branch.ID, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	_, err = reg.svc.BranchEng.Deactivate(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestListBranchesFlagsArchivedParent(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	branch, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "retune", "", "alice")
	require.NoError(t, err)

	branches, err := reg.svc.BranchEng.ListBranches(context.Background(), asset.ID)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.False(t, branches[0].ParentArchived)

	_, err = reg.svc.Archiver.Archive(context.Background(), parent.ID, "obsolete", "operator")
	require.NoError(t, err)

	branches, err = reg.svc.BranchEng.ListBranches(context.Background(), asset.ID)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, branch.ID, branches[0].ID)
	assert.True(t, branches[0].ParentArchived)
	// The flag is advisory; the branch itself stays active.
	assert.True(t, branches[0].IsActive)
	assert.Equal(t, "v1", branches[0].ParentVersionNumber)
}

func TestCompareIdenticalVersions(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	branch, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "retune", "", "alice")
	require.NoError(t, err)

	v1, err := reg.svc.BranchEng.ImportToBranch(context.Background(), branch.ID,
		bytesSource("pump_7.l5x", "same content\n"), "", "alice")
	require.NoError(t, err)
	v2, err := reg.svc.BranchEng.ImportToBranch(context.Background(), branch.ID,
		bytesSource("pump_7.l5x", "same content\n"), "", "alice")
	require.NoError(t, err)

	result, err := reg.svc.BranchEng.Compare(context.Background(), branch.ID, v1.ID, v2.ID)
	require.NoError(t, err)
	assert.True(t, result.Identical)
	assert.Empty(t, result.Diff)
	assert.Equal(t, "branch-v1", result.VersionNumber1)
	assert.Equal(t, "branch-v2", result.VersionNumber2)
}

func TestCompareProducesLineDiff(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	branch, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "retune", "", "alice")
	require.NoError(t, err)

	v1, err := reg.svc.BranchEng.ImportToBranch(context.Background(), branch.ID,
		bytesSource("pump_7.l5x", "line one\nline two\n"), "", "alice")
	require.NoError(t, err)
	v2, err := reg.svc.BranchEng.ImportToBranch(context.Background(), branch.ID,
		bytesSource("pump_7.l5x", "line one\nline two changed\n"), "", "alice")
	require.NoError(t, err)

	result, err := reg.svc.BranchEng.Compare(context.Background(), branch.ID, v1.ID, v2.ID)
	require.NoError(t, err)
	assert.False(t, result.Identical)
	assert.Contains(t, result.Diff, "-line two")
	assert.Contains(t, result.Diff, "+line two changed")
	assert.Contains(t, result.Diff, " line one")
}

func TestCompareRejectsForeignVersion(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	branch1, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "retune", "", "alice")
	require.NoError(t, err)
	branch2, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "rewire", "", "alice")
	require.NoError(t, err)

	v1, err := reg.svc.BranchEng.ImportToBranch(context.Background(), branch1.ID,
		bytesSource("pump_7.l5x", "take 1"), "", "alice")
	require.NoError(t, err)
	v2, err := reg.svc.BranchEng.ImportToBranch(context.Background(), branch2.ID,
		bytesSource("pump_7.l5x", "take 2"), "", "alice")
	require.NoError(t, err)

	_, err = reg.svc.BranchEng.Compare(context.Background(), branch1.ID, v1.ID, v2.ID)
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestCompareCorruptBlob(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	branch, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "retune", "", "alice")
	require.NoError(t, err)

	v1, err := reg.svc.BranchEng.ImportToBranch(context.Background(), branch.ID,
		bytesSource("pump_7.l5x", "take 1"), "", "alice")
	require.NoError(t, err)
	v2, err := reg.svc.BranchEng.ImportToBranch(context.Background(), branch.ID,
		bytesSource("pump_7.l5x", "take 2"), "", "alice")
	require.NoError(t, err)
	reg.corruptBlob(t, v1.ContentHash)

	_, err = reg.svc.BranchEng.Compare(context.Background(), branch.ID, v1.ID, v2.ID)
	require.Error(t, err)
	assert.Equal(t, CodeIntegrity, CodeOf(err))
}
