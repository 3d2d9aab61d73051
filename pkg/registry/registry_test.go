package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/otforge/config-registry/pkg/content"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&AssetRecord{},
		&ConfigurationVersionRecord{},
		&StatusChangeRecord{},
		&BranchRecord{},
		&BranchVersionRecord{},
	))
	return db
}

// testRegistry bundles a service over an in-memory database and a throwaway
// blob store.
type testRegistry struct {
	svc        *Service
	db         *gorm.DB
	blobs      *content.Store
	contentDir string
}

func newTestRegistry(t *testing.T) *testRegistry {
	t.Helper()
	dir := t.TempDir()
	blobs, err := content.NewStore(dir)
	require.NoError(t, err)
	db := newTestDB(t)
	return &testRegistry{
		svc:        NewService(db, blobs, content.StaticPolicy{P: content.DefaultPolicy}),
		db:         db,
		blobs:      blobs,
		contentDir: dir,
	}
}

// newFileTestRegistry backs the service with an on-disk database so
// concurrent goroutines share one database. With glebarez, every pooled
// connection to ":memory:" gets its own private database.
func newFileTestRegistry(t *testing.T) *testRegistry {
	t.Helper()
	dir := t.TempDir()
	dsn := filepath.Join(dir, "registry.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&AssetRecord{},
		&ConfigurationVersionRecord{},
		&StatusChangeRecord{},
		&BranchRecord{},
		&BranchVersionRecord{},
	))
	contentDir := filepath.Join(dir, "blobs")
	blobs, err := content.NewStore(contentDir)
	require.NoError(t, err)
	return &testRegistry{
		svc:        NewService(db, blobs, content.StaticPolicy{P: content.DefaultPolicy}),
		db:         db,
		blobs:      blobs,
		contentDir: contentDir,
	}
}

func (r *testRegistry) createAsset(t *testing.T, name string) *AssetRecord {
	t.Helper()
	rec := &AssetRecord{Name: name, CreatedBy: "test-user"}
	require.NoError(t, r.svc.Assets.Create(rec))
	return rec
}

func (r *testRegistry) importVersion(t *testing.T, assetID, fileName, data string) *ConfigurationVersionRecord {
	t.Helper()
	rec, err := r.svc.Importer.ImportVersion(context.Background(), assetID,
		content.BytesSource{FileName: fileName, Data: []byte(data)}, "", "test-user")
	require.NoError(t, err)
	return rec
}

func (r *testRegistry) approve(t *testing.T, versionID string) *ConfigurationVersionRecord {
	t.Helper()
	rec, err := r.svc.Promoter.ChangeStatus(context.Background(), versionID, StatusApproved, "review passed", "reviewer")
	require.NoError(t, err)
	return rec
}

func (r *testRegistry) promote(t *testing.T, versionID string) *ConfigurationVersionRecord {
	t.Helper()
	rec, err := r.svc.Promoter.PromoteToGolden(context.Background(), versionID, "release", "approver")
	require.NoError(t, err)
	return rec
}

func bytesSource(name, data string) content.BytesSource {
	return content.BytesSource{FileName: name, Data: []byte(data)}
}

// corruptBlob overwrites the stored blob for hash so verification fails.
func (r *testRegistry) corruptBlob(t *testing.T, hash string) {
	t.Helper()
	path := filepath.Join(r.contentDir, hash[:2], hash)
	require.NoError(t, os.WriteFile(path, []byte("tampered"), 0o644))
}
