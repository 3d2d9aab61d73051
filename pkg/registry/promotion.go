package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/otforge/config-registry/pkg/authz"
)

// PromotionEngine applies reviewer-gated status changes: the generic
// transition, the golden promotion with its singleton guarantee, and the
// branch-to-silver promotion.
type PromotionEngine struct {
	db       *gorm.DB
	machine  *StatusMachine
	versions *VersionStore
	branches *BranchStore
	audit    *AuditStore
	archiver *ArchivalManager
}

// NewPromotionEngine creates a promotion engine.
func NewPromotionEngine(db *gorm.DB, machine *StatusMachine, versions *VersionStore, branches *BranchStore, audit *AuditStore, archiver *ArchivalManager) *PromotionEngine {
	return &PromotionEngine{
		db:       db,
		machine:  machine,
		versions: versions,
		branches: branches,
		audit:    audit,
		archiver: archiver,
	}
}

// AvailableTransitions returns the statuses the caller may move a version to
// from its current status. Only approvers can change status, so any lesser
// role gets the empty set. Archived versions return the empty set for every
// role: Restore is the explicit way back, never a status change.
func (e *PromotionEngine) AvailableTransitions(ctx context.Context, versionID string, role authz.Role) (*TransitionSet, error) {
	version, err := e.versions.Get(versionID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, NotFoundf("version %s not found", versionID)
	}
	current := Status(version.Status)
	available := []Status{}
	if role.Allows(authz.RoleApprover) {
		available = sortedStatuses(e.machine.AllowedTransitions(current))
	}
	return &TransitionSet{
		VersionID:     versionID,
		CurrentStatus: current,
		Available:     available,
	}, nil
}

// ChangeStatus applies a validated transition. Archived targets route through
// the archival guard, which distinguishes an already-archived version from an
// invalid transition. Golden targets route through PromoteToGolden so the
// demotion of the previous golden stays atomic; everything else is a plain
// transition re-validated under a row lock.
func (e *PromotionEngine) ChangeStatus(ctx context.Context, versionID string, target Status, reason, actor string) (*ConfigurationVersionRecord, error) {
	if target == StatusArchived {
		return e.archiver.Archive(ctx, versionID, reason, actor)
	}

	version, err := e.versions.Get(versionID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, NotFoundf("version %s not found", versionID)
	}
	if err := e.machine.ValidateTransition(Status(version.Status), target); err != nil {
		return nil, err
	}

	if target == StatusGolden {
		return e.PromoteToGolden(ctx, versionID, reason, actor)
	}
	return e.applyTransition(versionID, target, reason, actor)
}

// applyTransition updates the version status and appends the status change
// record in one transaction. The version row is re-read under a lock and the
// transition re-validated, so two racing changes serialize and the loser
// fails validation instead of corrupting the audit chain.
func (e *PromotionEngine) applyTransition(versionID string, target Status, reason, actor string) (*ConfigurationVersionRecord, error) {
	var updated *ConfigurationVersionRecord
	err := e.db.Transaction(func(tx *gorm.DB) error {
		versions := e.versions.WithTx(tx)
		current, err := versions.GetLocked(versionID)
		if err != nil {
			return err
		}
		if current == nil {
			return NotFoundf("version %s not found", versionID)
		}
		if err := e.machine.ValidateTransition(Status(current.Status), target); err != nil {
			return err
		}

		now := time.Now()
		if err := versions.UpdateStatus(versionID, target, actor, now); err != nil {
			return err
		}
		if err := e.audit.WithTx(tx).Append(&StatusChangeRecord{
			VersionID: versionID,
			OldStatus: current.Status,
			NewStatus: string(target),
			ChangedBy: actor,
			Reason:    reason,
		}); err != nil {
			return err
		}

		current.Status = string(target)
		current.StatusChangedBy = actor
		current.StatusChangedAt = &now
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GoldenEligibility reports whether a version can be promoted to golden.
// Only approved versions are eligible.
func (e *PromotionEngine) GoldenEligibility(ctx context.Context, versionID string) (*Eligibility, error) {
	version, err := e.versions.Get(versionID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, NotFoundf("version %s not found", versionID)
	}
	current := Status(version.Status)
	elig := &Eligibility{
		VersionID:     versionID,
		CurrentStatus: current,
		Eligible:      current == StatusApproved,
	}
	if !elig.Eligible {
		elig.Reason = fmt.Sprintf("version is %s; only approved versions can become golden", current)
	}
	return elig, nil
}

// PromoteToGolden promotes an approved version to golden and demotes the
// asset's current golden (if any) to archived, in one transaction. The asset
// row is locked first so concurrent promotions for one asset serialize: the
// loser re-reads the target under the lock, finds it no longer approved (or
// finds the slot taken by the winner) and fails eligibility. SQLite ignores
// the lock clause but serializes writers globally.
func (e *PromotionEngine) PromoteToGolden(ctx context.Context, versionID, reason, actor string) (*ConfigurationVersionRecord, error) {
	version, err := e.versions.Get(versionID)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return nil, NotFoundf("version %s not found", versionID)
	}

	var promoted *ConfigurationVersionRecord
	err = e.db.Transaction(func(tx *gorm.DB) error {
		versions := e.versions.WithTx(tx)
		audit := e.audit.WithTx(tx)

		var asset AssetRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", version.AssetID).First(&asset).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return NotFoundf("asset %s not found", version.AssetID)
			}
			return Storagef(err, "lock asset for promotion")
		}

		target, err := versions.Get(versionID)
		if err != nil {
			return err
		}
		if target == nil {
			return NotFoundf("version %s not found", versionID)
		}
		if Status(target.Status) != StatusApproved {
			return NotEligible(Status(target.Status),
				fmt.Sprintf("version %s is %s; only approved versions can become golden", versionID, target.Status))
		}

		now := time.Now()
		currentGolden, err := versions.Golden(target.AssetID)
		if err != nil {
			return err
		}
		demotedID := ""
		if currentGolden != nil {
			demotedID = currentGolden.ID
			if err := versions.UpdateStatus(currentGolden.ID, StatusArchived, actor, now); err != nil {
				return err
			}
			if err := audit.Append(&StatusChangeRecord{
				VersionID: currentGolden.ID,
				OldStatus: string(StatusGolden),
				NewStatus: string(StatusArchived),
				ChangedBy: actor,
				Reason:    fmt.Sprintf("superseded by %s", target.VersionNumber()),
			}); err != nil {
				return err
			}
		}

		if err := versions.UpdateStatus(target.ID, StatusGolden, actor, now); err != nil {
			return err
		}
		if err := audit.Append(&StatusChangeRecord{
			VersionID: target.ID,
			OldStatus: string(StatusApproved),
			NewStatus: string(StatusGolden),
			ChangedBy: actor,
			Reason:    reason,
		}); err != nil {
			return err
		}

		target.Status = string(StatusGolden)
		target.StatusChangedBy = actor
		target.StatusChangedAt = &now
		target.DemotedGoldenID = demotedID
		promoted = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

// PromoteBranchToSilver copies the branch's latest content into a new
// main-line silver version. The branch is re-checked and its latest read
// inside the transaction that creates the version, so a concurrent branch
// import or deactivation cannot slip between. The branch stays active and
// untouched; duplicate content on the main line is allowed.
func (e *PromotionEngine) PromoteBranchToSilver(ctx context.Context, branchID, notes, actor string) (*ConfigurationVersionRecord, error) {
	var created *ConfigurationVersionRecord
	err := e.db.Transaction(func(tx *gorm.DB) error {
		branches := e.branches.WithTx(tx)

		branch, err := branches.GetBranch(branchID)
		if err != nil {
			return err
		}
		if branch == nil {
			return NotFoundf("branch %s not found", branchID)
		}
		if !branch.IsActive {
			return InactiveBranch(branchID)
		}

		latest, err := branches.Latest(branchID)
		if err != nil {
			return err
		}
		if latest == nil {
			return Validationf("branch %s has no versions to promote", branchID)
		}

		record := &ConfigurationVersionRecord{
			ID:                    uuid.New().String(),
			AssetID:               branch.AssetID,
			FileName:              latest.FileName,
			FileSize:              latest.FileSize,
			ContentHash:           latest.ContentHash,
			Author:                actor,
			Notes:                 notes,
			Status:                string(StatusSilver),
			SourceBranchID:        branch.ID,
			SourceBranchVersionID: latest.ID,
		}
		if err := e.versions.WithTx(tx).Create(record); err != nil {
			return err
		}
		if err := e.audit.WithTx(tx).Append(&StatusChangeRecord{
			VersionID: record.ID,
			NewStatus: string(StatusSilver),
			ChangedBy: actor,
			Reason:    fmt.Sprintf("promoted from branch %s (%s)", branch.Name, latest.VersionNumber()),
		}); err != nil {
			return err
		}
		created = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
