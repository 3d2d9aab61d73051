package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveAndRestoreDraft(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	archived, err := reg.svc.Archiver.Archive(context.Background(), v.ID, "obsolete", "operator")
	require.NoError(t, err)
	assert.Equal(t, string(StatusArchived), archived.Status)

	restored, err := reg.svc.Archiver.Restore(context.Background(), v.ID, "needed again", "operator")
	require.NoError(t, err)
	assert.Equal(t, string(StatusDraft), restored.Status)
}

func TestArchiveAndRestoreApproved(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	reg.approve(t, v.ID)

	_, err := reg.svc.Archiver.Archive(context.Background(), v.ID, "obsolete", "operator")
	require.NoError(t, err)

	restored, err := reg.svc.Archiver.Restore(context.Background(), v.ID, "needed again", "operator")
	require.NoError(t, err)
	assert.Equal(t, string(StatusApproved), restored.Status)
}

func TestRestoreFormerGoldenComesBackApproved(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v1 := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	reg.approve(t, v1.ID)
	reg.promote(t, v1.ID)

	// A successor's promotion demotes v1 to archived.
	v2 := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1 fixed")
	reg.approve(t, v2.ID)
	reg.promote(t, v2.ID)

	restored, err := reg.svc.Archiver.Restore(context.Background(), v1.ID, "rollback candidate", "approver")
	require.NoError(t, err)
	assert.Equal(t, string(StatusApproved), restored.Status)

	// The golden slot stays with the successor.
	golden, err := reg.svc.Versions.Golden(asset.ID)
	require.NoError(t, err)
	require.NotNil(t, golden)
	assert.Equal(t, v2.ID, golden.ID)
}

func TestDoubleArchiveFails(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	_, err := reg.svc.Archiver.Archive(context.Background(), v.ID, "obsolete", "operator")
	require.NoError(t, err)

	_, err = reg.svc.Archiver.Archive(context.Background(), v.ID, "obsolete again", "operator")
	require.Error(t, err)
	assert.Equal(t, CodeAlreadyArchived, CodeOf(err))
}

func TestArchiveGoldenRejected(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")
	reg.approve(t, v.ID)
	reg.promote(t, v.ID)

	_, err := reg.svc.Archiver.Archive(context.Background(), v.ID, "cleanup", "operator")
	require.Error(t, err)
	assert.Equal(t, CodeInvalidTransition, CodeOf(err))

	stored, err := reg.svc.Versions.Get(v.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusGolden), stored.Status)
}

func TestRestoreNonArchivedFails(t *testing.T) {
	reg := newTestRegistry(t)
	asset := reg.createAsset(t, "pump-7")
	v := reg.importVersion(t, asset.ID, "pump_7.l5x", "rung 1")

	_, err := reg.svc.Archiver.Restore(context.Background(), v.ID, "", "operator")
	require.Error(t, err)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestArchiveVersionNotFound(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.svc.Archiver.Archive(context.Background(), "missing", "", "operator")
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))

	_, err = reg.svc.Archiver.Restore(context.Background(), "missing", "", "operator")
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}
