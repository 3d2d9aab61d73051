package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAsset(t *testing.T, store *AssetStore, name string) *AssetRecord {
	t.Helper()
	rec := &AssetRecord{Name: name, CreatedBy: "test-user"}
	require.NoError(t, store.Create(rec))
	return rec
}

func TestVersionStoreCreateAllocatesSequence(t *testing.T) {
	db := newTestDB(t)
	assets := NewAssetStore(db)
	versions := NewVersionStore(db)
	asset := seedAsset(t, assets, "pump-7")

	v1 := &ConfigurationVersionRecord{
		AssetID: asset.ID, FileName: "pump_7.l5x", FileSize: 10,
		ContentHash: "aa", Author: "alice",
	}
	require.NoError(t, versions.Create(v1))
	assert.Equal(t, 1, v1.VersionSeq)
	assert.Equal(t, string(StatusDraft), v1.Status)

	v2 := &ConfigurationVersionRecord{
		AssetID: asset.ID, FileName: "pump_7.l5x", FileSize: 12,
		ContentHash: "bb", Author: "alice",
	}
	require.NoError(t, versions.Create(v2))
	assert.Equal(t, 2, v2.VersionSeq)
}

func TestVersionStoreCreateUnknownAsset(t *testing.T) {
	db := newTestDB(t)
	versions := NewVersionStore(db)

	err := versions.Create(&ConfigurationVersionRecord{
		AssetID: "missing", FileName: "pump_7.l5x", FileSize: 10,
		ContentHash: "aa", Author: "alice",
	})
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestVersionStoreGetMissingIsNil(t *testing.T) {
	db := newTestDB(t)
	versions := NewVersionStore(db)

	rec, err := versions.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestVersionStoreListPaginates(t *testing.T) {
	db := newTestDB(t)
	assets := NewAssetStore(db)
	versions := NewVersionStore(db)
	asset := seedAsset(t, assets, "pump-7")

	for i := 0; i < 5; i++ {
		require.NoError(t, versions.Create(&ConfigurationVersionRecord{
			AssetID: asset.ID, FileName: "pump_7.l5x", FileSize: 10,
			ContentHash: "aa", Author: "alice",
		}))
	}

	page1, token1, total, err := versions.ListForAsset(asset.ID, 2, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, page1, 2)
	assert.Equal(t, 5, page1[0].VersionSeq)
	assert.Equal(t, 4, page1[1].VersionSeq)
	require.NotEmpty(t, token1)

	page2, token2, _, err := versions.ListForAsset(asset.ID, 2, token1, nil)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, 3, page2[0].VersionSeq)
	assert.Equal(t, 2, page2[1].VersionSeq)

	page3, token3, _, err := versions.ListForAsset(asset.ID, 2, token2, nil)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Equal(t, 1, page3[0].VersionSeq)
	assert.Empty(t, token3)
}

func TestVersionStoreListRejectsBadToken(t *testing.T) {
	db := newTestDB(t)
	versions := NewVersionStore(db)

	_, _, _, err := versions.ListForAsset("asset-1", 10, "not-a-number", nil)
	require.Error(t, err)
	assert.Equal(t, CodeValidation, CodeOf(err))
}

func TestVersionStoreGoldenNilWhenNone(t *testing.T) {
	db := newTestDB(t)
	assets := NewAssetStore(db)
	versions := NewVersionStore(db)
	asset := seedAsset(t, assets, "pump-7")

	golden, err := versions.Golden(asset.ID)
	require.NoError(t, err)
	assert.Nil(t, golden)
}

func TestVersionStoreUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	assets := NewAssetStore(db)
	versions := NewVersionStore(db)
	asset := seedAsset(t, assets, "pump-7")

	rec := &ConfigurationVersionRecord{
		AssetID: asset.ID, FileName: "pump_7.l5x", FileSize: 10,
		ContentHash: "aa", Author: "alice",
	}
	require.NoError(t, versions.Create(rec))

	now := time.Now()
	require.NoError(t, versions.UpdateStatus(rec.ID, StatusApproved, "reviewer", now))

	stored, err := versions.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, string(StatusApproved), stored.Status)
	assert.Equal(t, "reviewer", stored.StatusChangedBy)

	err = versions.UpdateStatus("missing", StatusApproved, "reviewer", now)
	require.Error(t, err)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestVersionStoreGetMany(t *testing.T) {
	db := newTestDB(t)
	assets := NewAssetStore(db)
	versions := NewVersionStore(db)
	asset := seedAsset(t, assets, "pump-7")

	rec := &ConfigurationVersionRecord{
		AssetID: asset.ID, FileName: "pump_7.l5x", FileSize: 10,
		ContentHash: "aa", Author: "alice",
	}
	require.NoError(t, versions.Create(rec))

	// Missing ids are skipped, not errors.
	records, err := versions.GetMany([]string{rec.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)

	records, err = versions.GetMany(nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}
