package jobs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/otforge/config-registry/pkg/authz"
	"github.com/otforge/config-registry/pkg/site"
)

// enqueueRequest is the request body for starting a scan. An empty assetId
// scans every version in the registry.
type enqueueRequest struct {
	AssetID        string `json:"assetId,omitempty"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// EnqueueJobHandler handles POST /integrity-scans. The asset to scan comes
// from the {assetId} URL param when present, otherwise from the body.
func EnqueueJobHandler(store *JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req enqueueRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
				return
			}
		}
		if assetID := chi.URLParam(r, "assetId"); assetID != "" {
			req.AssetID = assetID
		}

		job := &ScanJob{
			ID:             uuid.NewString(),
			Site:           site.SiteFromContext(r.Context()),
			AssetID:        req.AssetID,
			RequestedBy:    authz.ActorFromContext(r.Context()),
			RequestedAt:    time.Now(),
			State:          JobStateQueued,
			IdempotencyKey: req.IdempotencyKey,
		}

		created, err := store.Enqueue(job)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to enqueue scan: %v", err))
			return
		}

		status := http.StatusCreated
		if created.ID != job.ID {
			// Deduplicated against an existing in-flight job.
			status = http.StatusOK
		}
		writeJSON(w, status, jobToResponse(created))
	}
}

// GetJobHandler handles GET /integrity-scans/{jobId}.
func GetJobHandler(store *JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobId")
		if jobID == "" {
			writeError(w, http.StatusBadRequest, "missing job ID")
			return
		}

		job, err := store.Get(jobID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get scan job: %v", err))
			return
		}
		if job == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("scan job %q not found", jobID))
			return
		}

		writeJSON(w, http.StatusOK, jobToResponse(job))
	}
}

// ListJobsHandler handles GET /integrity-scans.
// Query params: assetId, state, requestedBy, pageSize, pageToken
func ListJobsHandler(store *JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := JobListFilter{
			Site:        site.SiteFromContext(r.Context()),
			AssetID:     r.URL.Query().Get("assetId"),
			State:       r.URL.Query().Get("state"),
			RequestedBy: r.URL.Query().Get("requestedBy"),
		}

		pageSize := 20
		if ps := r.URL.Query().Get("pageSize"); ps != "" {
			if v, err := strconv.Atoi(ps); err == nil && v > 0 {
				pageSize = v
			}
		}
		pageToken := r.URL.Query().Get("pageToken")

		records, nextToken, total, err := store.List(filter, pageSize, pageToken)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list scan jobs: %v", err))
			return
		}

		jobs := make([]jobResponse, len(records))
		for i := range records {
			jobs[i] = jobToResponse(&records[i])
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"jobs":          jobs,
			"nextPageToken": nextToken,
			"totalSize":     total,
		})
	}
}

// CancelJobHandler handles POST /integrity-scans/{jobId}:cancel.
func CancelJobHandler(store *JobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobId")
		if jobID == "" {
			writeError(w, http.StatusBadRequest, "missing job ID")
			return
		}

		if err := store.Cancel(jobID); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to cancel scan job: %v", err))
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status": "canceled",
			"jobId":  jobID,
		})
	}
}

// jobResponse is the API representation of an integrity scan job.
type jobResponse struct {
	ID              string   `json:"id"`
	AssetID         string   `json:"assetId,omitempty"`
	RequestedBy     string   `json:"requestedBy"`
	RequestedAt     string   `json:"requestedAt"`
	State           string   `json:"state"`
	Message         string   `json:"message,omitempty"`
	StartedAt       string   `json:"startedAt,omitempty"`
	FinishedAt      string   `json:"finishedAt,omitempty"`
	AttemptCount    int      `json:"attemptCount"`
	LastError       string   `json:"lastError,omitempty"`
	VersionsChecked int      `json:"versionsChecked,omitempty"`
	Mismatches      []string `json:"mismatches,omitempty"`
	DurationMs      int64    `json:"durationMs,omitempty"`
}

func jobToResponse(job *ScanJob) jobResponse {
	resp := jobResponse{
		ID:              job.ID,
		AssetID:         job.AssetID,
		RequestedBy:     job.RequestedBy,
		RequestedAt:     job.RequestedAt.Format(time.RFC3339),
		State:           string(job.State),
		Message:         job.Message,
		AttemptCount:    job.AttemptCount,
		LastError:       job.LastError,
		VersionsChecked: job.VersionsChecked,
		Mismatches:      []string(job.Mismatches),
		DurationMs:      job.DurationMs,
	}
	if job.StartedAt != nil {
		resp.StartedAt = job.StartedAt.Format(time.RFC3339)
	}
	if job.FinishedAt != nil {
		resp.FinishedAt = job.FinishedAt.Format(time.RFC3339)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
