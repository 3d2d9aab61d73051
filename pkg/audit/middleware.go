package audit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/otforge/config-registry/pkg/authz"
	"github.com/otforge/config-registry/pkg/site"
)

// responseCapture wraps http.ResponseWriter to capture the status code.
type responseCapture struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rc *responseCapture) WriteHeader(code int) {
	if !rc.written {
		rc.statusCode = code
		rc.written = true
	}
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if !rc.written {
		rc.statusCode = http.StatusOK
		rc.written = true
	}
	return rc.ResponseWriter.Write(b)
}

// Middleware creates middleware that captures access events for management
// actions. It wraps the ResponseWriter to capture the status code, then
// records an AccessEventRecord after the handler completes.
func Middleware(store *Store, cfg *Config, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip if audit is disabled.
			if cfg == nil || !cfg.Enabled || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			// Skip non-management endpoints.
			if !isAuditedEndpoint(r.Method, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()

			capture := &responseCapture{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(capture, r)

			// After handler completes, record the access event.
			statusCode := capture.statusCode
			outcome := outcomeFromStatus(statusCode)

			// Skip denied actions if LogDenied is false.
			if outcome == "denied" && !cfg.LogDenied {
				return
			}

			ctx := r.Context()
			siteID := site.SiteFromContext(ctx)
			if siteID == "" {
				siteID = "default"
			}

			actor := "anonymous"
			role := ""
			if id, ok := authz.IdentityFromContext(ctx); ok {
				actor = id.User
				role = string(id.Role)
			}

			requestID := middleware.GetReqID(ctx)

			// Correlation ID from header, fall back to request ID.
			correlationID := r.Header.Get("X-Correlation-ID")
			if correlationID == "" {
				correlationID = requestID
			}

			assetID, versionID, branchID := pathIDs(r.URL.Path)

			event := &AccessEventRecord{
				ID:            uuid.New().String(),
				Site:          siteID,
				CorrelationID: correlationID,
				Actor:         actor,
				Role:          role,
				AssetID:       assetID,
				VersionID:     versionID,
				BranchID:      branchID,
				ResourceType:  extractResourceType(r.URL.Path),
				ResourceIDs:   JSONStringSlice(extractResourceIDs(r.URL.Path)),
				Action:        extractActionVerb(r.Method, r.URL.Path),
				Outcome:       outcome,
				StatusCode:    statusCode,
				RequestID:     requestID,
				CreatedAt:     startTime,
				EventMetadata: JSONAny{
					"method":   r.Method,
					"path":     r.URL.Path,
					"duration": time.Since(startTime).String(),
				},
			}

			// Best-effort write: don't fail the request if the audit write fails.
			if err := store.Append(event); err != nil {
				logger.Error("failed to write access event", "error", err, "requestID", requestID)
			}
		})
	}
}

// outcomeFromStatus maps HTTP status codes to audit outcomes.
func outcomeFromStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "success"
	case code == http.StatusForbidden:
		return "denied"
	default:
		return "failure"
	}
}
