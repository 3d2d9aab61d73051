package jobs

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&ScanJob{}))
	return db
}

func setupHandlerRouter(store *JobStore) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/integrity-scans", EnqueueJobHandler(store))
	r.Get("/integrity-scans/{jobId}", GetJobHandler(store))
	r.Get("/integrity-scans", ListJobsHandler(store))
	r.Post("/integrity-scans/{jobId}:cancel", CancelJobHandler(store))
	return r
}

func TestEnqueueJobHandler_Creates(t *testing.T) {
	db := setupHandlerTestDB(t)
	store := NewJobStore(db)

	r := setupHandlerRouter(store)
	req := httptest.NewRequest(http.MethodPost, "/integrity-scans",
		strings.NewReader(`{"assetId": "asset-1"}`))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp jobResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "asset-1", resp.AssetID)
	assert.Equal(t, "queued", resp.State)
	assert.Equal(t, "anonymous", resp.RequestedBy)
}

func TestEnqueueJobHandler_IdempotencyDedupes(t *testing.T) {
	db := setupHandlerTestDB(t)
	store := NewJobStore(db)

	r := setupHandlerRouter(store)
	body := `{"assetId": "asset-1", "idempotencyKey": "scan-asset-1"}`

	req1 := httptest.NewRequest(http.MethodPost, "/integrity-scans", strings.NewReader(body))
	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, req1)
	require.Equal(t, http.StatusCreated, w1.Code)

	var first jobResponse
	require.NoError(t, json.NewDecoder(w1.Body).Decode(&first))

	req2 := httptest.NewRequest(http.MethodPost, "/integrity-scans", strings.NewReader(body))
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusOK, w2.Code, "duplicate enqueue should return the existing job")

	var second jobResponse
	require.NoError(t, json.NewDecoder(w2.Body).Decode(&second))
	assert.Equal(t, first.ID, second.ID)
}

func TestGetJobHandler_Found(t *testing.T) {
	db := setupHandlerTestDB(t)
	store := NewJobStore(db)

	job := &ScanJob{
		ID:             uuid.New().String(),
		Site:           "default",
		AssetID:        "asset-1",
		RequestedBy:    "test-user",
		RequestedAt:    time.Now().Truncate(time.Second),
		State:          JobStateQueued,
		IdempotencyKey: uuid.New().String(),
	}
	_, err := store.Enqueue(job)
	require.NoError(t, err)

	r := setupHandlerRouter(store)
	req := httptest.NewRequest(http.MethodGet, "/integrity-scans/"+job.ID, nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp jobResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, job.ID, resp.ID)
	assert.Equal(t, "queued", resp.State)
	assert.Equal(t, "asset-1", resp.AssetID)
	assert.Equal(t, "test-user", resp.RequestedBy)
}

func TestGetJobHandler_NotFound(t *testing.T) {
	db := setupHandlerTestDB(t)
	store := NewJobStore(db)

	r := setupHandlerRouter(store)
	req := httptest.NewRequest(http.MethodGet, "/integrity-scans/nonexistent", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListJobsHandler_Pagination(t *testing.T) {
	db := setupHandlerTestDB(t)
	store := NewJobStore(db)

	// Create 3 jobs.
	for i := 0; i < 3; i++ {
		job := &ScanJob{
			ID:             uuid.New().String(),
			Site:           "default",
			AssetID:        "asset-1",
			RequestedBy:    "user",
			RequestedAt:    time.Now().Add(time.Duration(i) * time.Minute),
			State:          JobStateQueued,
			IdempotencyKey: uuid.New().String(),
		}
		_, err := store.Enqueue(job)
		require.NoError(t, err)
	}

	r := setupHandlerRouter(store)
	req := httptest.NewRequest(http.MethodGet, "/integrity-scans?pageSize=2", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	jobs := resp["jobs"].([]any)
	assert.Len(t, jobs, 2)
	assert.NotEmpty(t, resp["nextPageToken"])
	assert.Equal(t, float64(3), resp["totalSize"])
}

func TestListJobsHandler_FilterByAsset(t *testing.T) {
	db := setupHandlerTestDB(t)
	store := NewJobStore(db)

	for _, assetID := range []string{"asset-1", "asset-2"} {
		job := &ScanJob{
			ID:             uuid.New().String(),
			Site:           "default",
			AssetID:        assetID,
			RequestedBy:    "user",
			RequestedAt:    time.Now(),
			State:          JobStateQueued,
			IdempotencyKey: uuid.New().String(),
		}
		_, err := store.Enqueue(job)
		require.NoError(t, err)
	}

	r := setupHandlerRouter(store)
	req := httptest.NewRequest(http.MethodGet, "/integrity-scans?assetId=asset-1", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	jobs := resp["jobs"].([]any)
	assert.Len(t, jobs, 1)
	assert.Equal(t, float64(1), resp["totalSize"])
}

func TestCancelJobHandler_QueuedJob(t *testing.T) {
	db := setupHandlerTestDB(t)
	store := NewJobStore(db)

	job := &ScanJob{
		ID:             uuid.New().String(),
		Site:           "default",
		AssetID:        "asset-1",
		RequestedBy:    "user",
		RequestedAt:    time.Now(),
		State:          JobStateQueued,
		IdempotencyKey: uuid.New().String(),
	}
	_, err := store.Enqueue(job)
	require.NoError(t, err)

	r := setupHandlerRouter(store)
	req := httptest.NewRequest(http.MethodPost, "/integrity-scans/"+job.ID+":cancel", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "canceled", resp["status"])
}

func TestCancelJobHandler_RunningJobFails(t *testing.T) {
	db := setupHandlerTestDB(t)
	store := NewJobStore(db)

	job := &ScanJob{
		ID:             uuid.New().String(),
		Site:           "default",
		AssetID:        "asset-1",
		RequestedBy:    "user",
		RequestedAt:    time.Now(),
		State:          JobStateQueued,
		IdempotencyKey: uuid.New().String(),
	}
	_, err := store.Enqueue(job)
	require.NoError(t, err)

	// Transition to running.
	_, err = store.Claim(3)
	require.NoError(t, err)

	r := setupHandlerRouter(store)
	req := httptest.NewRequest(http.MethodPost, "/integrity-scans/"+job.ID+":cancel", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
