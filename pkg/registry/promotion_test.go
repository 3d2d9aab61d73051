package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otforge/config-registry/pkg/authz"
)

func TestChangeStatusAppliesTransition(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	updated, err := reg.svc.Promoter.ChangeStatus(context.Background(), v.ID, StatusApproved, "review passed", "reviewer")
	require.NoError(t, err)
	assert.Equal(t, string(StatusApproved), updated.Status)
	assert.Equal(t, "reviewer", updated.StatusChangedBy)
	require.NotNil(t, updated.StatusChangedAt)

	stored, err := reg.svc.Versions.Get(v.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusApproved), stored.Status)
}

func TestChangeStatusRejectsUndefinedEdge(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	_, err := reg.svc.Promoter.ChangeStatus(context.Background(), v.ID, StatusGolden, "", "reviewer")
	require.Error(t, err)
	assert.Equal(t, CodeInvalidTransition, CodeOf(err))

	// The failed change must leave no trace in the history.
	history, err := reg.svc.Audit.History(v.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestChangeStatusVersionNotFound(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.svc.Promoter.ChangeStatus(context.Background(), "missing", StatusApproved, "", "reviewer")
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

// Archiving through ChangeStatus goes through the archival guard, so a
// second archive reports the already-archived conflict, not an invalid
// transition.
func TestChangeStatusArchiveTwiceReportsAlreadyArchived(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	archived, err := reg.svc.Promoter.ChangeStatus(context.Background(), v.ID, StatusArchived, "obsolete", "reviewer")
	require.NoError(t, err)
	assert.Equal(t, string(StatusArchived), archived.Status)

	_, err = reg.svc.Promoter.ChangeStatus(context.Background(), v.ID, StatusArchived, "again", "reviewer")
	require.Error(t, err)
	assert.Equal(t, CodeAlreadyArchived, CodeOf(err))

	// Only the first archive reaches the history.
	history, err := reg.svc.Audit.History(v.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestAvailableTransitions(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	set, err := reg.svc.Promoter.AvailableTransitions(context.Background(), v.ID, authz.RoleApprover)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, set.CurrentStatus)
	assert.Equal(t, []Status{StatusApproved, StatusArchived}, set.Available)
}

// Only approvers can change status, so lesser roles see no candidates at all.
func TestAvailableTransitionsBelowApproverIsEmpty(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	for _, role := range []authz.Role{authz.RoleViewer, authz.RoleOperator} {
		set, err := reg.svc.Promoter.AvailableTransitions(context.Background(), v.ID, role)
		require.NoError(t, err)
		assert.Equal(t, StatusDraft, set.CurrentStatus)
		assert.Empty(t, set.Available, "role %s", role)
	}
}

func TestAvailableTransitionsArchivedIsEmpty(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	_, err := reg.svc.Archiver.Archive(context.Background(), v.ID, "obsolete", "operator")
	require.NoError(t, err)

	set, err := reg.svc.Promoter.AvailableTransitions(context.Background(), v.ID, authz.RoleApprover)
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, set.CurrentStatus)
	assert.Empty(t, set.Available)
}

func TestGoldenEligibility(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	elig, err := reg.svc.Promoter.GoldenEligibility(context.Background(), v.ID)
	require.NoError(t, err)
	assert.False(t, elig.Eligible)
	assert.Contains(t, elig.Reason, "draft")

	reg.approve(t, v.ID)
	elig, err = reg.svc.Promoter.GoldenEligibility(context.Background(), v.ID)
	require.NoError(t, err)
	assert.True(t, elig.Eligible)
	assert.Empty(t, elig.Reason)
}

func TestPromoteToGolden(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	reg.approve(t, v.ID)

	promoted := reg.promote(t, v.ID)
	assert.Equal(t, string(StatusGolden), promoted.Status)
	assert.Empty(t, promoted.DemotedGoldenID)

	golden, err := reg.svc.Versions.Golden(asset.ID)
	require.NoError(t, err)
	require.NotNil(t, golden)
	assert.Equal(t, v.ID, golden.ID)
}

func TestPromoteToGoldenRequiresApproved(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	_, err := reg.svc.Promoter.PromoteToGolden(context.Background(), v.ID, "release", "approver")
	require.Error(t, err)
	assert.Equal(t, CodeNotEligible, CodeOf(err))

	golden, err := reg.svc.Versions.Golden(asset.ID)
	require.NoError(t, err)
	assert.Nil(t, golden)
}

func TestPromoteDemotesPreviousGolden(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v1 := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	reg.approve(t, v1.ID)
	reg.promote(t, v1.ID)

	v2 := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1 fixed")
	reg.approve(t, v2.ID)
	promoted := reg.promote(t, v2.ID)
	// The promotion names the version it demoted so callers can drop the
	// predecessor's cached reads.
	assert.Equal(t, v1.ID, promoted.DemotedGoldenID)

	golden, err := reg.svc.Versions.Golden(asset.ID)
	require.NoError(t, err)
	require.NotNil(t, golden)
	assert.Equal(t, v2.ID, golden.ID)

	demoted, err := reg.svc.Versions.Get(v1.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusArchived), demoted.Status)

	// The demotion shows up in the predecessor's history with the successor
	// named in the reason.
	history, err := reg.svc.Audit.History(v1.ID)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	last := history[len(history)-1]
	assert.Equal(t, string(StatusGolden), last.OldStatus)
	assert.Equal(t, string(StatusArchived), last.NewStatus)
	assert.Contains(t, last.Reason, "superseded by v2")
}

// Concurrent promotions of one approved version serialize on the asset row:
// exactly one wins, the losers fail eligibility, and the golden slot never
// holds more than one version.
func TestPromoteToGoldenConcurrentRace(t *testing.T) {
	reg := newFileTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	reg.approve(t, v.ID)

	const workers = 4
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reg.svc.Promoter.PromoteToGolden(context.Background(), v.ID, "release", "approver")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.Equal(t, CodeNotEligible, CodeOf(err))
	}
	assert.Equal(t, 1, wins)

	var goldenCount int64
	require.NoError(t, reg.db.Model(&ConfigurationVersionRecord{}).
		Where("asset_id = ? AND status = ?", asset.ID, string(StatusGolden)).
		Count(&goldenCount).Error)
	assert.EqualValues(t, 1, goldenCount)

	// Exactly one promotion reached the history.
	history, err := reg.svc.Audit.History(v.ID)
	require.NoError(t, err)
	promotions := 0
	for _, h := range history {
		if h.NewStatus == string(StatusGolden) {
			promotions++
		}
	}
	assert.Equal(t, 1, promotions)
}

func TestPromoteBranchToSilver(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	branch, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "retune", "", "test-user")
	require.NoError(t, err)
	bv, err := reg.svc.BranchEng.ImportToBranch(context.Background(), branch.ID,
		bytesSource("pump_7.l5x", "rung 1 retuned"), "", "test-user")
	require.NoError(t, err)

	created, err := reg.svc.Promoter.PromoteBranchToSilver(context.Background(), branch.ID, "ready for review", "operator")
	require.NoError(t, err)
	assert.Equal(t, string(StatusSilver), created.Status)
	assert.Equal(t, asset.ID, created.AssetID)
	assert.Equal(t, 2, created.VersionSeq)
	assert.Equal(t, bv.ContentHash, created.ContentHash)
	assert.Equal(t, branch.ID, created.SourceBranchID)
	assert.Equal(t, bv.ID, created.SourceBranchVersionID)

	// The branch stays active and its latest is untouched.
	after, err := reg.svc.Branches.GetBranch(branch.ID)
	require.NoError(t, err)
	assert.True(t, after.IsActive)
	latest, err := reg.svc.Branches.Latest(branch.ID)
	require.NoError(t, err)
	assert.Equal(t, bv.ID, latest.ID)

	history, err := reg.svc.Audit.History(created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "", history[0].OldStatus)
	assert.Equal(t, string(StatusSilver), history[0].NewStatus)
	assert.Contains(t, history[0].Reason, "retune")
}

func TestPromoteBranchToSilverInactiveBranch(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	branch, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "retune", "", "test-user")
	require.NoError(t, err)
	_, err = reg.svc.BranchEng.Deactivate(context.Background(), branch.ID)
	require.NoError(t, err)

	_, err = reg.svc.Promoter.PromoteBranchToSilver(context.Background(), branch.ID, "", "operator")
	require.Error(t, err)
	assert.Equal(t, CodeInactiveBranch, CodeOf(err))
}

func TestPromoteBranchToSilverEmptyBranch(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	branch, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "retune", "", "test-user")
	require.NoError(t, err)

	_, err = reg.svc.Promoter.PromoteBranchToSilver(context.Background(), branch.ID, "", "operator")
	require.Error(t, err)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

// TestSilverPromotionThenApprove walks the branch line back onto the main
// pipeline: silver versions review into approved like drafts do.
func TestSilverPromotionThenApprove(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	parent := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	branch, err := reg.svc.BranchEng.CreateBranch(context.Background(), asset.ID, parent.ID, "retune", "", "test-user")
	require.NoError(t, err)
	_, err = reg.svc.BranchEng.ImportToBranch(context.Background(), branch.ID,
		bytesSource("pump_7.l5x", "rung 1 retuned"), "", "test-user")
	require.NoError(t, err)

	silver, err := reg.svc.Promoter.PromoteBranchToSilver(context.Background(), branch.ID, "", "operator")
	require.NoError(t, err)

	approved := reg.approve(t, silver.ID)
	assert.Equal(t, string(StatusApproved), approved.Status)

	promoted := reg.promote(t, silver.ID)
	assert.Equal(t, string(StatusGolden), promoted.Status)
}
