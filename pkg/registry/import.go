package registry

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/otforge/config-registry/pkg/content"
)

// ImportEngine turns configuration content into main-line draft versions.
type ImportEngine struct {
	db       *gorm.DB
	assets   *AssetStore
	versions *VersionStore
	audit    *AuditStore
	blobs    *content.Store
	policy   content.PolicyProvider
}

// NewImportEngine creates an import engine.
func NewImportEngine(db *gorm.DB, assets *AssetStore, versions *VersionStore, audit *AuditStore, blobs *content.Store, policy content.PolicyProvider) *ImportEngine {
	return &ImportEngine{
		db:       db,
		assets:   assets,
		versions: versions,
		audit:    audit,
		blobs:    blobs,
		policy:   policy,
	}
}

// ImportVersion validates src against the import policy, stores its content,
// and creates a draft version with the initial status change record. The
// version row and the audit record commit in one transaction; the blob write
// happens first and is content-addressed, so an aborted import leaves no
// dangling references.
func (e *ImportEngine) ImportVersion(ctx context.Context, assetID string, src content.Source, notes, author string) (*ConfigurationVersionRecord, error) {
	asset, err := e.assets.Get(assetID)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, NotFoundf("asset %s not found", assetID)
	}

	staged, err := stageContent(e.policy.Policy(), e.blobs, src)
	if err != nil {
		return nil, err
	}

	record := &ConfigurationVersionRecord{
		ID:          uuid.New().String(),
		AssetID:     assetID,
		FileName:    staged.name,
		FileSize:    staged.size,
		ContentHash: staged.hash,
		Author:      author,
		Notes:       notes,
		Status:      string(StatusDraft),
	}
	err = e.db.Transaction(func(tx *gorm.DB) error {
		if err := e.versions.WithTx(tx).Create(record); err != nil {
			return err
		}
		return e.audit.WithTx(tx).Append(&StatusChangeRecord{
			VersionID: record.ID,
			NewStatus: string(StatusDraft),
			ChangedBy: author,
			Reason:    "imported",
		})
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// stagedContent describes a blob accepted by the import policy.
type stagedContent struct {
	name string
	size int64
	hash string
}

// stageContent enforces the import policy and writes the content blob.
func stageContent(policy content.Policy, blobs *content.Store, src content.Source) (*stagedContent, error) {
	name := src.Name()
	if err := policy.CheckName(name); err != nil {
		return nil, Validationf("%v", err)
	}

	r, err := src.Open()
	if err != nil {
		return nil, Validationf("open source %s: %v", name, err)
	}
	defer r.Close()

	hash, size, err := blobs.Put(r, policy.MaxFileBytes)
	if err != nil {
		if errors.Is(err, content.ErrTooLarge) {
			return nil, Validationf("file %s exceeds the import size limit of %d bytes", name, policy.MaxFileBytes)
		}
		return nil, Storagef(err, "store content")
	}
	if size == 0 {
		return nil, Validationf("file %s is empty", name)
	}
	return &stagedContent{name: name, size: size, hash: hash}, nil
}
