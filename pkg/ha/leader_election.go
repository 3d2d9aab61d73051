package ha

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// leaseRecord is the lease row contended by candidate replicas. Whoever holds
// the row and keeps renewing it is the leader; a row whose renewed_at is older
// than the lease duration is up for takeover.
type leaseRecord struct {
	Name      string    `gorm:"primaryKey;column:name"`
	Holder    string    `gorm:"column:holder;not null"`
	RenewedAt time.Time `gorm:"column:renewed_at;not null"`
}

// TableName returns the GORM table name.
func (leaseRecord) TableName() string { return "leader_leases" }

// LeaderElector manages database lease-based leader election for singleton
// background loops. Only the elected leader replica runs loops such as the
// integrity scan workers and audit retention.
type LeaderElector struct {
	config   *HAConfig
	db       *gorm.DB
	identity string
	isLeader bool
	mu       sync.RWMutex
	logger   *slog.Logger
	onStart  func(ctx context.Context)
	onStop   func()
}

// NewLeaderElector creates a new LeaderElector. The identity should be unique
// per replica (typically the pod name or hostname).
func NewLeaderElector(cfg *HAConfig, db *gorm.DB, identity string, logger *slog.Logger) *LeaderElector {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaderElector{
		config:   cfg,
		db:       db,
		identity: identity,
		logger:   logger,
	}
}

// AutoMigrate creates or updates the leader_leases table.
func (le *LeaderElector) AutoMigrate() error {
	return le.db.AutoMigrate(&leaseRecord{})
}

// OnStartLeading registers a callback invoked when this instance becomes
// leader. The callback runs on its own goroutine with a context that is
// cancelled when leadership is lost.
func (le *LeaderElector) OnStartLeading(fn func(ctx context.Context)) {
	le.onStart = fn
}

// OnStopLeading registers a callback invoked when this instance loses
// leadership.
func (le *LeaderElector) OnStopLeading(fn func()) {
	le.onStop = fn
}

// IsLeader returns true if this instance is the current leader.
func (le *LeaderElector) IsLeader() bool {
	le.mu.RLock()
	defer le.mu.RUnlock()
	return le.isLeader
}

// Run contends for the lease until the context is cancelled, renewing while
// leading. On shutdown the lease is released so a peer can take over without
// waiting out the lease duration.
func (le *LeaderElector) Run(ctx context.Context) {
	le.logger.Info("starting leader election",
		"identity", le.identity,
		"lease", le.config.LeaseName,
		"leaseDuration", le.config.LeaseDuration,
		"retryPeriod", le.config.RetryPeriod,
	)

	ticker := time.NewTicker(le.config.RetryPeriod)
	defer ticker.Stop()

	var leaderCancel context.CancelFunc
	for {
		held, err := le.tryAcquire(ctx)
		if err != nil && ctx.Err() == nil {
			le.logger.Warn("lease acquisition attempt failed", "error", err)
		}

		switch {
		case held && !le.IsLeader():
			le.setLeader(true)
			le.logger.Info("elected as leader", "identity", le.identity)
			var leaderCtx context.Context
			leaderCtx, leaderCancel = context.WithCancel(ctx)
			if le.onStart != nil {
				go le.onStart(leaderCtx)
			}
		case !held && le.IsLeader():
			le.setLeader(false)
			le.logger.Info("lost leadership", "identity", le.identity)
			if leaderCancel != nil {
				leaderCancel()
				leaderCancel = nil
			}
			if le.onStop != nil {
				le.onStop()
			}
		}

		select {
		case <-ctx.Done():
			if leaderCancel != nil {
				leaderCancel()
			}
			if le.IsLeader() {
				le.setLeader(false)
				le.release()
				if le.onStop != nil {
					le.onStop()
				}
			}
			return
		case <-ticker.C:
		}
	}
}

func (le *LeaderElector) setLeader(v bool) {
	le.mu.Lock()
	le.isLeader = v
	le.mu.Unlock()
}

// tryAcquire attempts to take or renew the lease in one transaction. The row
// is read under a lock so two candidates cannot both conclude the lease is
// free; SQLite ignores the lock clause but serializes writers globally.
func (le *LeaderElector) tryAcquire(ctx context.Context) (bool, error) {
	held := false
	err := le.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		var lease leaseRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("name = ?", le.config.LeaseName).First(&lease).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			lease = leaseRecord{Name: le.config.LeaseName, Holder: le.identity, RenewedAt: now}
			if err := tx.Create(&lease).Error; err != nil {
				return err
			}
			held = true
			return nil
		}
		if err != nil {
			return err
		}

		if lease.Holder != le.identity && now.Sub(lease.RenewedAt) <= le.config.LeaseDuration {
			return nil
		}

		// Own lease renewal, or takeover of an expired lease.
		err = tx.Model(&leaseRecord{}).Where("name = ?", le.config.LeaseName).
			Updates(map[string]any{"holder": le.identity, "renewed_at": now}).Error
		if err != nil {
			return err
		}
		held = true
		return nil
	})
	return held, err
}

// release drops the lease row if this instance still holds it.
func (le *LeaderElector) release() {
	err := le.db.Where("name = ? AND holder = ?", le.config.LeaseName, le.identity).
		Delete(&leaseRecord{}).Error
	if err != nil {
		le.logger.Warn("failed to release lease", "error", err)
	}
}
