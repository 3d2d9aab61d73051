package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// mockScanner implements Scanner for tests.
type mockScanner struct {
	scanErr    error
	checked    int
	mismatches []string
	scanCalls  int
	lastAsset  string
}

func (m *mockScanner) Scan(ctx context.Context, assetID string) (int, []string, error) {
	m.scanCalls++
	m.lastAsset = assetID
	if m.scanErr != nil {
		return 0, nil, m.scanErr
	}
	return m.checked, m.mismatches, nil
}

// failThenSucceedScanner fails the first N calls, then succeeds.
type failThenSucceedScanner struct {
	failCount int
	callCount *int
}

func (f *failThenSucceedScanner) Scan(ctx context.Context, assetID string) (int, []string, error) {
	*f.callCount++
	if *f.callCount <= f.failCount {
		return 0, nil, fmt.Errorf("transient failure #%d", *f.callCount)
	}
	return 3, nil, nil
}

func setupWorkerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique shared-cache DSN per test to avoid interference from
	// cleanup goroutines that may run after the test completes.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ScanJob{}))
	return db
}

func workerTestConfig() *JobConfig {
	cfg := DefaultJobConfig()
	cfg.PollInterval = 50 * time.Millisecond
	cfg.Concurrency = 1
	// Disable cleanup to avoid accessing the DB after context cancellation.
	cfg.ClaimTimeout = 0
	cfg.RetentionDays = 0
	return cfg
}

func TestWorkerProcessesJob(t *testing.T) {
	db := setupWorkerTestDB(t)
	store := NewJobStore(db)

	mock := &mockScanner{checked: 5, mismatches: []string{"ver-2"}}
	wp := NewWorkerPool(store, mock, workerTestConfig(), nil)

	job := newTestJob("asset-1", "default")
	_, err := store.Enqueue(job)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go wp.Run(ctx)

	// Wait for the job to be processed.
	require.Eventually(t, func() bool {
		j, _ := store.Get(job.ID)
		return j != nil && j.State == JobStateSucceeded
	}, 2*time.Second, 50*time.Millisecond, "job should be completed")

	result, _ := store.Get(job.ID)
	assert.Equal(t, 5, result.VersionsChecked)
	assert.Equal(t, JSONStringSlice{"ver-2"}, result.Mismatches)
	assert.Equal(t, 1, mock.scanCalls)
	assert.Equal(t, "asset-1", mock.lastAsset)

	cancel()
}

func TestWorkerRetriesOnFailure(t *testing.T) {
	db := setupWorkerTestDB(t)
	store := NewJobStore(db)

	callCount := 0
	scanner := &failThenSucceedScanner{failCount: 1, callCount: &callCount}

	cfg := workerTestConfig()
	cfg.MaxRetries = 3
	wp := NewWorkerPool(store, scanner, cfg, nil)

	job := newTestJob("asset-1", "default")
	_, err := store.Enqueue(job)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go wp.Run(ctx)

	// Wait for the job to be eventually completed after retry.
	require.Eventually(t, func() bool {
		j, _ := store.Get(job.ID)
		return j != nil && j.State == JobStateSucceeded
	}, 5*time.Second, 100*time.Millisecond, "job should eventually succeed after retry")

	assert.Equal(t, 2, callCount, "should have been called twice (fail + succeed)")

	cancel()
}

func TestWorkerFailsAfterMaxRetries(t *testing.T) {
	db := setupWorkerTestDB(t)
	store := NewJobStore(db)

	mock := &mockScanner{scanErr: fmt.Errorf("persistent error")}

	cfg := workerTestConfig()
	cfg.MaxRetries = 2
	wp := NewWorkerPool(store, mock, cfg, nil)

	job := newTestJob("asset-1", "default")
	_, err := store.Enqueue(job)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go wp.Run(ctx)

	// Wait for the job to be marked as failed.
	require.Eventually(t, func() bool {
		j, _ := store.Get(job.ID)
		return j != nil && j.State == JobStateFailed
	}, 5*time.Second, 100*time.Millisecond, "job should be marked failed after max retries")

	result, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Contains(t, result.LastError, "persistent error")

	cancel()
}

func TestWorkerScansAllAssets(t *testing.T) {
	db := setupWorkerTestDB(t)
	store := NewJobStore(db)

	mock := &mockScanner{checked: 10}
	wp := NewWorkerPool(store, mock, workerTestConfig(), nil)

	// Empty AssetID scans every version.
	job := newTestJob("", "default")
	job.IdempotencyKey = uuid.New().String()
	_, err := store.Enqueue(job)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go wp.Run(ctx)

	require.Eventually(t, func() bool {
		j, _ := store.Get(job.ID)
		return j != nil && j.State == JobStateSucceeded
	}, 2*time.Second, 50*time.Millisecond)

	result, _ := store.Get(job.ID)
	assert.Equal(t, 10, result.VersionsChecked)
	assert.Equal(t, "", mock.lastAsset)

	cancel()
}

func TestWorkerDisabled(t *testing.T) {
	db := setupWorkerTestDB(t)
	store := NewJobStore(db)

	mock := &mockScanner{}
	cfg := workerTestConfig()
	cfg.Enabled = false
	wp := NewWorkerPool(store, mock, cfg, nil)

	job := newTestJob("asset-1", "default")
	_, err := store.Enqueue(job)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	// Run returns immediately when disabled; the job stays queued.
	wp.Run(ctx)

	result, err := store.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStateQueued, result.State)
	assert.Equal(t, 0, mock.scanCalls)
}
