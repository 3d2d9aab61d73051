package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRetentionWorker(t *testing.T) {
	worker := NewRetentionWorker(nil, 30, nil)

	if worker == nil {
		t.Fatal("expected non-nil worker")
	}

	expectedRetention := 30 * 24 // hours
	actualHours := int(worker.retention.Hours())
	if actualHours != expectedRetention {
		t.Errorf("expected retention %d hours, got %d", expectedRetention, actualHours)
	}

	expectedInterval := 24 // hours
	actualIntervalHours := int(worker.interval.Hours())
	if actualIntervalHours != expectedInterval {
		t.Errorf("expected interval %d hours, got %d", expectedInterval, actualIntervalHours)
	}
}

func TestNewRetentionWorker_ZeroRetention(t *testing.T) {
	// Worker with zero retention is disabled (Run returns immediately).
	worker := NewRetentionWorker(nil, 0, nil)

	if worker == nil {
		t.Fatal("expected non-nil worker")
	}

	if worker.retention != 0 {
		t.Errorf("expected zero retention, got %v", worker.retention)
	}
}

func TestRetentionWorker_Cleanup(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Append(&AccessEventRecord{
		ID: uuid.New().String(), Site: "default", Actor: "a", Outcome: "success",
		CreatedAt: time.Now().Add(-10 * 24 * time.Hour),
	}))
	require.NoError(t, store.Append(&AccessEventRecord{
		ID: uuid.New().String(), Site: "default", Actor: "a", Outcome: "success",
		CreatedAt: time.Now(),
	}))

	worker := NewRetentionWorker(store, 7, nil)
	worker.cleanup()

	_, _, total, err := store.List(ListFilter{}, 10, "")
	require.NoError(t, err)
	assert.Equal(t, 1, total, "events older than the retention window should be removed")
}
