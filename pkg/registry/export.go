package registry

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/otforge/config-registry/pkg/content"
)

// ExportEngine writes verified copies of version content to caller-supplied
// paths for device download tools.
type ExportEngine struct {
	versions *VersionStore
	blobs    *content.Store
}

// NewExportEngine creates an export engine.
func NewExportEngine(versions *VersionStore, blobs *content.Store) *ExportEngine {
	return &ExportEngine{versions: versions, blobs: blobs}
}

// Export copies the version's content to exportPath, re-verifying the stored
// content hash during the copy. On mismatch the export fails with an
// integrity error and nothing is written to exportPath. Archived versions
// export like any other.
func (e *ExportEngine) Export(ctx context.Context, versionID, exportPath string) (*ExportResult, error) {
	if exportPath == "" {
		return nil, Validationf("export path is required")
	}
	version, err := e.versions.Get(versionID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, NotFoundf("version %s not found", versionID)
	}

	if err := e.blobs.ExportTo(version.ContentHash, exportPath); err != nil {
		switch {
		case errors.Is(err, content.ErrCorrupt):
			return nil, Integrityf("content hash mismatch for version %s", versionID)
		case errors.Is(err, fs.ErrNotExist):
			return nil, Integrityf("content blob missing for version %s", versionID)
		}
		return nil, Storagef(err, "export content")
	}

	return &ExportResult{
		VersionID:   versionID,
		ExportPath:  exportPath,
		FileName:    version.FileName,
		FileSize:    version.FileSize,
		ContentHash: version.ContentHash,
		ExportedAt:  time.Now().Format(time.RFC3339),
	}, nil
}
