package registry

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// ArchivalManager archives versions and restores them to their pre-archive
// status. Archival is a soft terminal state: archived versions keep their
// content and history and stay readable.
type ArchivalManager struct {
	db       *gorm.DB
	versions *VersionStore
	audit    *AuditStore
}

// NewArchivalManager creates an archival manager.
func NewArchivalManager(db *gorm.DB, versions *VersionStore, audit *AuditStore) *ArchivalManager {
	return &ArchivalManager{db: db, versions: versions, audit: audit}
}

// Archive sets a version to archived. Archiving an archived version is an
// explicit error, never a silent no-op. Golden versions cannot be archived
// directly; they leave golden only when a successor's promotion demotes
// them.
func (m *ArchivalManager) Archive(ctx context.Context, versionID, reason, actor string) (*ConfigurationVersionRecord, error) {
	var archived *ConfigurationVersionRecord
	err := m.db.Transaction(func(tx *gorm.DB) error {
		versions := m.versions.WithTx(tx)
		current, err := versions.GetLocked(versionID)
		if err != nil {
			return err
		}
		if current == nil {
			return NotFoundf("version %s not found", versionID)
		}
		switch Status(current.Status) {
		case StatusArchived:
			return AlreadyArchived(versionID)
		case StatusGolden:
			return InvalidTransition(StatusGolden, StatusArchived)
		}

		now := time.Now()
		if err := versions.UpdateStatus(versionID, StatusArchived, actor, now); err != nil {
			return err
		}
		if err := m.audit.WithTx(tx).Append(&StatusChangeRecord{
			VersionID: versionID,
			OldStatus: current.Status,
			NewStatus: string(StatusArchived),
			ChangedBy: actor,
			Reason:    reason,
		}); err != nil {
			return err
		}

		current.Status = string(StatusArchived)
		current.StatusChangedBy = actor
		current.StatusChangedAt = &now
		archived = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return archived, nil
}

// Restore returns an archived version to the status it held before archival,
// recovered by scanning the status change chain for the last non-archived
// entry. A version that was golden when archived comes back as approved:
// golden is reachable only through a promotion and the slot may already be
// held by a successor.
func (m *ArchivalManager) Restore(ctx context.Context, versionID, reason, actor string) (*ConfigurationVersionRecord, error) {
	var restored *ConfigurationVersionRecord
	err := m.db.Transaction(func(tx *gorm.DB) error {
		versions := m.versions.WithTx(tx)
		current, err := versions.GetLocked(versionID)
		if err != nil {
			return err
		}
		if current == nil {
			return NotFoundf("version %s not found", versionID)
		}
		if Status(current.Status) != StatusArchived {
			return Validationf("version %s is %s, not archived", versionID, current.Status)
		}

		audit := m.audit.WithTx(tx)
		previous, err := audit.LastActiveStatus(versionID)
		if err != nil {
			return err
		}
		if previous == "" {
			return Integrityf("version %s has no pre-archive status in its history", versionID)
		}
		if previous == StatusGolden {
			previous = StatusApproved
		}

		now := time.Now()
		if err := versions.UpdateStatus(versionID, previous, actor, now); err != nil {
			return err
		}
		if err := audit.Append(&StatusChangeRecord{
			VersionID: versionID,
			OldStatus: string(StatusArchived),
			NewStatus: string(previous),
			ChangedBy: actor,
			Reason:    reason,
		}); err != nil {
			return err
		}

		current.Status = string(previous)
		current.StatusChangedBy = actor
		current.StatusChangedAt = &now
		restored = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}
