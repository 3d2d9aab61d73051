package audit

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// ListEventsHandler handles GET .../audit/events
// Query params: site, actor, assetId, action, outcome, pageSize, pageToken
func ListEventsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := ListFilter{
			Site:    r.URL.Query().Get("site"),
			Actor:   r.URL.Query().Get("actor"),
			AssetID: r.URL.Query().Get("assetId"),
			Action:  r.URL.Query().Get("action"),
			Outcome: r.URL.Query().Get("outcome"),
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
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list access events: %v", err))
			return
		}

		events := make([]accessEventResponse, len(records))
		for i, rec := range records {
			events[i] = recordToResponse(rec)
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"events":        events,
			"nextPageToken": nextToken,
			"totalSize":     total,
		})
	}
}

// GetEventHandler handles GET .../audit/events/{eventId}
func GetEventHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "eventId")
		if eventID == "" {
			writeError(w, http.StatusBadRequest, "missing event ID")
			return
		}

		record, err := store.GetByID(eventID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get access event: %v", err))
			return
		}
		if record == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("access event %q not found", eventID))
			return
		}

		writeJSON(w, http.StatusOK, recordToResponse(*record))
	}
}

// accessEventResponse is the API response for an access audit event.
type accessEventResponse struct {
	ID            string         `json:"id"`
	Site          string         `json:"site"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Actor         string         `json:"actor"`
	Role          string         `json:"role,omitempty"`
	AssetID       string         `json:"assetId,omitempty"`
	VersionID     string         `json:"versionId,omitempty"`
	BranchID      string         `json:"branchId,omitempty"`
	ResourceType  string         `json:"resourceType,omitempty"`
	ResourceIDs   []string       `json:"resourceIds,omitempty"`
	Action        string         `json:"action,omitempty"`
	Outcome       string         `json:"outcome"`
	StatusCode    int            `json:"statusCode,omitempty"`
	RequestID     string         `json:"requestId,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     string         `json:"createdAt"`
}

func recordToResponse(rec AccessEventRecord) accessEventResponse {
	return accessEventResponse{
		ID:            rec.ID,
		Site:          rec.Site,
		CorrelationID: rec.CorrelationID,
		Actor:         rec.Actor,
		Role:          rec.Role,
		AssetID:       rec.AssetID,
		VersionID:     rec.VersionID,
		BranchID:      rec.BranchID,
		ResourceType:  rec.ResourceType,
		ResourceIDs:   []string(rec.ResourceIDs),
		Action:        rec.Action,
		Outcome:       rec.Outcome,
		StatusCode:    rec.StatusCode,
		RequestID:     rec.RequestID,
		Metadata:      map[string]any(rec.EventMetadata),
		CreatedAt:     rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
