package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/otforge/config-registry/pkg/authz"
	"github.com/otforge/config-registry/pkg/content"
	"github.com/otforge/config-registry/pkg/gitsource"
	"github.com/otforge/config-registry/pkg/site"
)

// createAssetHandler handles POST /assets.
func createAssetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		if req.Name == "" {
			writeRegistryError(w, Validationf("asset name is required"))
			return
		}

		record := &AssetRecord{
			Site:        site.SiteFromContext(r.Context()),
			Name:        req.Name,
			Description: req.Description,
			CreatedBy:   authz.ActorFromContext(r.Context()),
		}
		if err := svc.Assets.Create(record); err != nil {
			writeRegistryError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, recordToAsset(record))
	}
}

// listAssetsHandler handles GET /assets for the resolved site.
func listAssetsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pageSize, pageToken := pageParams(r)
		records, nextToken, err := svc.Assets.List(site.SiteFromContext(r.Context()), pageSize, pageToken)
		if err != nil {
			writeRegistryError(w, err)
			return
		}

		assets := make([]Asset, len(records))
		for i, rec := range records {
			assets[i] = recordToAsset(&rec)
		}
		writeJSON(w, http.StatusOK, AssetList{Assets: assets, NextPageToken: nextToken})
	}
}

// getAssetHandler handles GET /assets/{assetId}.
func getAssetHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID := chi.URLParam(r, "assetId")
		record, err := svc.Assets.Get(assetID)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		if record == nil {
			writeRegistryError(w, NotFoundf("asset %s not found", assetID))
			return
		}
		writeJSON(w, http.StatusOK, recordToAsset(record))
	}
}

// importRequest names the content to import, either a server-reachable file
// path or a file inside a git repository.
type importRequest struct {
	FilePath string          `json:"filePath,omitempty"`
	Git      *gitsource.Spec `json:"git,omitempty"`
	Notes    string          `json:"notes,omitempty"`
}

// resolveSource turns an import request into a content source. Git fetches
// record the resolved commit in the returned provenance suffix.
func resolveSource(r *http.Request, req *importRequest) (content.Source, string, error) {
	switch {
	case req.FilePath != "" && req.Git != nil:
		return nil, "", Validationf("filePath and git are mutually exclusive")
	case req.FilePath != "":
		return content.PathSource{Path: req.FilePath}, "", nil
	case req.Git != nil:
		src, err := gitsource.Fetch(r.Context(), *req.Git)
		if err != nil {
			return nil, "", Validationf("git fetch failed: %v", err)
		}
		return src, fmt.Sprintf(" (git commit %s)", src.Commit), nil
	}
	return nil, "", Validationf("either filePath or git is required")
}

// importVersionHandler handles POST /assets/{assetId}/versions.
func importVersionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID := chi.URLParam(r, "assetId")
		var req importRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		src, provenance, err := resolveSource(r, &req)
		if err != nil {
			writeRegistryError(w, err)
			return
		}

		actor := authz.ActorFromContext(r.Context())
		record, err := svc.Importer.ImportVersion(r.Context(), assetID, src, req.Notes+provenance, actor)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		svc.invalidateAsset(assetID)
		writeJSON(w, http.StatusCreated, recordToVersion(record))
	}
}

// listVersionsHandler handles GET /assets/{assetId}/versions with pagination
// and an optional filterQuery.
func listVersionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID := chi.URLParam(r, "assetId")
		asset, err := svc.Assets.Get(assetID)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		if asset == nil {
			writeRegistryError(w, NotFoundf("asset %s not found", assetID))
			return
		}

		filter, err := ParseVersionFilter(r.URL.Query().Get("filterQuery"))
		if err != nil {
			writeRegistryError(w, err)
			return
		}

		pageSize, pageToken := pageParams(r)
		records, nextToken, total, err := svc.Versions.ListForAsset(assetID, pageSize, pageToken, filter)
		if err != nil {
			writeRegistryError(w, err)
			return
		}

		versions := make([]ConfigurationVersion, len(records))
		for i, rec := range records {
			versions[i] = recordToVersion(&rec)
		}
		writeJSON(w, http.StatusOK, ConfigurationVersionList{
			Versions:      versions,
			NextPageToken: nextToken,
			TotalSize:     total,
		})
	}
}

// getGoldenHandler handles GET /assets/{assetId}/golden. An asset without a
// golden version answers 200 with a null body, not 404: "no golden yet" is a
// normal state, not a missing resource.
func getGoldenHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID := chi.URLParam(r, "assetId")
		asset, err := svc.Assets.Get(assetID)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		if asset == nil {
			writeRegistryError(w, NotFoundf("asset %s not found", assetID))
			return
		}

		record, err := svc.Versions.Golden(assetID)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		if record == nil {
			writeJSON(w, http.StatusOK, map[string]any{"golden": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"golden": recordToVersion(record)})
	}
}

// getVersionHandler handles GET /versions/{versionId}.
func getVersionHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versionID := chi.URLParam(r, "versionId")
		record, err := svc.Versions.Get(versionID)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		if record == nil {
			writeRegistryError(w, NotFoundf("version %s not found", versionID))
			return
		}
		writeJSON(w, http.StatusOK, recordToVersion(record))
	}
}

// getTransitionsHandler handles GET /versions/{versionId}/transitions.
func getTransitionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versionID := chi.URLParam(r, "versionId")
		role := authz.RoleFromContext(r.Context())
		set, err := svc.Promoter.AvailableTransitions(r.Context(), versionID, role)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, set)
	}
}

// changeStatusHandler handles POST /versions/{versionId}/status.
func changeStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versionID := chi.URLParam(r, "versionId")
		var req struct {
			Status string `json:"status"`
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		target, err := ParseStatus(req.Status)
		if err != nil {
			writeRegistryError(w, err)
			return
		}

		actor := authz.ActorFromContext(r.Context())
		record, err := svc.Promoter.ChangeStatus(r.Context(), versionID, target, req.Reason, actor)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		svc.invalidateAsset(record.AssetID)
		svc.invalidateVersion(versionID)
		if record.DemotedGoldenID != "" {
			svc.invalidateVersion(record.DemotedGoldenID)
		}
		writeJSON(w, http.StatusOK, recordToVersion(record))
	}
}

// getEligibilityHandler handles GET /versions/{versionId}/eligibility.
func getEligibilityHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versionID := chi.URLParam(r, "versionId")
		elig, err := svc.Promoter.GoldenEligibility(r.Context(), versionID)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, elig)
	}
}

// promoteToGoldenHandler handles POST /versions/{versionId}/promote.
func promoteToGoldenHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versionID := chi.URLParam(r, "versionId")
		var req struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		actor := authz.ActorFromContext(r.Context())
		record, err := svc.Promoter.PromoteToGolden(r.Context(), versionID, req.Reason, actor)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		// The demoted predecessor's cached reads are stale too; its id is
		// not in the request, so the engine reports it on the record.
		svc.invalidateAsset(record.AssetID)
		svc.invalidateVersion(versionID)
		if record.DemotedGoldenID != "" {
			svc.invalidateVersion(record.DemotedGoldenID)
		}
		writeJSON(w, http.StatusOK, recordToVersion(record))
	}
}

// archiveHandler handles POST /versions/{versionId}/archive.
func archiveHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versionID := chi.URLParam(r, "versionId")
		var req struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		actor := authz.ActorFromContext(r.Context())
		record, err := svc.Archiver.Archive(r.Context(), versionID, req.Reason, actor)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		svc.invalidateAsset(record.AssetID)
		svc.invalidateVersion(versionID)
		writeJSON(w, http.StatusOK, recordToVersion(record))
	}
}

// restoreHandler handles POST /versions/{versionId}/restore.
func restoreHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versionID := chi.URLParam(r, "versionId")
		var req struct {
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		actor := authz.ActorFromContext(r.Context())
		record, err := svc.Archiver.Restore(r.Context(), versionID, req.Reason, actor)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		svc.invalidateAsset(record.AssetID)
		svc.invalidateVersion(versionID)
		writeJSON(w, http.StatusOK, recordToVersion(record))
	}
}

// getHistoryHandler handles GET /versions/{versionId}/history, oldest first.
func getHistoryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versionID := chi.URLParam(r, "versionId")
		version, err := svc.Versions.Get(versionID)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		if version == nil {
			writeRegistryError(w, NotFoundf("version %s not found", versionID))
			return
		}

		records, err := svc.Audit.History(versionID)
		if err != nil {
			writeRegistryError(w, err)
			return
		}

		changes := make([]StatusChange, len(records))
		for i, rec := range records {
			changes[i] = recordToStatusChange(&rec)
		}
		writeJSON(w, http.StatusOK, StatusHistory{VersionID: versionID, Changes: changes})
	}
}

// exportHandler handles POST /versions/{versionId}/export.
func exportHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		versionID := chi.URLParam(r, "versionId")
		var req struct {
			ExportPath string `json:"exportPath"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		result, err := svc.Exporter.Export(r.Context(), versionID, req.ExportPath)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// pageParams reads pageSize and pageToken query parameters.
func pageParams(r *http.Request) (int, string) {
	pageSize := 0
	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			pageSize = v
		}
	}
	return pageSize, r.URL.Query().Get("pageToken")
}

// recordToAsset converts an asset record to the API type.
func recordToAsset(rec *AssetRecord) Asset {
	return Asset{
		ID:          rec.ID,
		Site:        rec.Site,
		Name:        rec.Name,
		Description: rec.Description,
		CreatedBy:   rec.CreatedBy,
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
	}
}

// recordToVersion converts a version record to the API type.
func recordToVersion(rec *ConfigurationVersionRecord) ConfigurationVersion {
	v := ConfigurationVersion{
		ID:                    rec.ID,
		AssetID:               rec.AssetID,
		VersionNumber:         rec.VersionNumber(),
		FileName:              rec.FileName,
		FileSize:              rec.FileSize,
		ContentHash:           rec.ContentHash,
		Author:                rec.Author,
		Notes:                 rec.Notes,
		Status:                Status(rec.Status),
		StatusChangedBy:       rec.StatusChangedBy,
		SourceBranchID:        rec.SourceBranchID,
		SourceBranchVersionID: rec.SourceBranchVersionID,
		CreatedAt:             rec.CreatedAt.Format(time.RFC3339),
	}
	if rec.StatusChangedAt != nil {
		v.StatusChangedAt = rec.StatusChangedAt.Format(time.RFC3339)
	}
	return v
}

// recordToStatusChange converts a status change record to the API type.
func recordToStatusChange(rec *StatusChangeRecord) StatusChange {
	return StatusChange{
		ID:        rec.ID,
		VersionID: rec.VersionID,
		OldStatus: Status(rec.OldStatus),
		NewStatus: Status(rec.NewStatus),
		ChangedBy: rec.ChangedBy,
		Reason:    rec.Reason,
		CreatedAt: rec.CreatedAt.Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": "request_failed", "message": message})
}

// writeRegistryError maps a registry error to its HTTP status and JSON body.
func writeRegistryError(w http.ResponseWriter, err error) {
	var re *Error
	if !errors.As(err, &re) {
		re = Storagef(err, "internal error")
	}
	writeJSON(w, HTTPStatus(re), map[string]string{
		"code":    string(re.Code),
		"message": re.Error(),
	})
}
