package ha

import (
	"context"
	"fmt"
	"hash/crc32"
	"os"
	"time"

	"gorm.io/gorm"
)

// migrationLockName seeds the advisory lock key and labels the fallback row.
const migrationLockName = "config-registry-schema"

// MigrationLocker serializes schema migrations across replicas so two
// instances never run AutoMigrate at the same time.
type MigrationLocker interface {
	// WithLock runs fn under the migration lock, blocking until the lock is
	// held and releasing it when fn returns.
	WithLock(ctx context.Context, fn func() error) error
}

// NewMigrationLocker picks a locking strategy for the dialect. Postgres gets
// a session advisory lock; everything else shares a single-row lock table.
// A nil db yields a pass-through locker for single-instance setups.
func NewMigrationLocker(db *gorm.DB) MigrationLocker {
	if db == nil {
		return passThroughLock{}
	}
	if db.Dialector.Name() == "postgres" {
		return &advisoryLock{
			db:  db,
			key: int64(crc32.ChecksumIEEE([]byte(migrationLockName))),
		}
	}
	locker := &tableLock{db: db}
	// The lock table must exist before the first contended WithLock.
	_ = db.AutoMigrate(&schemaLockRow{})
	return locker
}

// passThroughLock runs fn without any coordination.
type passThroughLock struct{}

func (passThroughLock) WithLock(_ context.Context, fn func() error) error { return fn() }

// advisoryLock holds a Postgres session advisory lock around fn.
type advisoryLock struct {
	db  *gorm.DB
	key int64
}

func (l *advisoryLock) WithLock(ctx context.Context, fn func() error) error {
	if err := l.db.WithContext(ctx).Exec("SELECT pg_advisory_lock(?)", l.key).Error; err != nil {
		return fmt.Errorf("acquire migration advisory lock: %w", err)
	}
	defer func() {
		_ = l.db.Exec("SELECT pg_advisory_unlock(?)", l.key).Error
	}()
	return fn()
}

// schemaLockRow is the lock table row used off Postgres. Holding the lock
// means owning the row; a crashed holder's row goes stale and is swept by
// the next contender.
type schemaLockRow struct {
	Name       string    `gorm:"primaryKey;column:name"`
	AcquiredAt time.Time `gorm:"column:acquired_at"`
	Holder     string    `gorm:"column:holder"`
}

func (schemaLockRow) TableName() string { return "schema_migration_locks" }

const (
	lockAttempts  = 30
	lockRetryWait = time.Second
	lockStaleAge  = 5 * time.Minute
)

// tableLock acquires the migration lock as an insert-or-fail row.
type tableLock struct {
	db *gorm.DB
}

func (l *tableLock) WithLock(ctx context.Context, fn func() error) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()
	return fn()
}

func (l *tableLock) acquire(ctx context.Context) error {
	holder, _ := os.Hostname()
	if holder == "" {
		holder = "unknown"
	}

	var lastErr error
	for attempt := 0; attempt < lockAttempts; attempt++ {
		// Sweep a stale row left by a crashed holder.
		l.db.WithContext(ctx).
			Where("name = ? AND acquired_at < ?", migrationLockName, time.Now().Add(-lockStaleAge)).
			Delete(&schemaLockRow{})

		row := schemaLockRow{Name: migrationLockName, AcquiredAt: time.Now(), Holder: holder}
		err := l.db.WithContext(ctx).Create(&row).Error
		if err == nil {
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryWait):
		}
	}
	return fmt.Errorf("migration lock not acquired after %d attempts: %w", lockAttempts, lastErr)
}

func (l *tableLock) release() {
	l.db.Where("name = ?", migrationLockName).Delete(&schemaLockRow{})
}
