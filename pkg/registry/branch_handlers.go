package registry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/otforge/config-registry/pkg/authz"
)

// createBranchHandler handles POST /assets/{assetId}/branches.
func createBranchHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID := chi.URLParam(r, "assetId")
		var req struct {
			ParentVersionID string `json:"parentVersionId"`
			Name            string `json:"name"`
			Description     string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		actor := authz.ActorFromContext(r.Context())
		record, err := svc.BranchEng.CreateBranch(r.Context(), assetID, req.ParentVersionID, req.Name, req.Description, actor)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, recordToBranch(record))
	}
}

// listBranchesHandler handles GET /assets/{assetId}/branches.
func listBranchesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assetID := chi.URLParam(r, "assetId")
		branches, err := svc.BranchEng.ListBranches(r.Context(), assetID)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, BranchList{Branches: branches})
	}
}

// importToBranchHandler handles POST /branches/{branchId}/versions.
func importToBranchHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID := chi.URLParam(r, "branchId")
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
		record, err := svc.BranchEng.ImportToBranch(r.Context(), branchID, src, req.Notes+provenance, actor)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, recordToBranchVersion(record))
	}
}

// listBranchVersionsHandler handles GET /branches/{branchId}/versions.
func listBranchVersionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID := chi.URLParam(r, "branchId")
		branch, err := svc.Branches.GetBranch(branchID)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		if branch == nil {
			writeRegistryError(w, NotFoundf("branch %s not found", branchID))
			return
		}

		pageSize, pageToken := pageParams(r)
		records, nextToken, total, err := svc.Branches.ListVersions(branchID, pageSize, pageToken)
		if err != nil {
			writeRegistryError(w, err)
			return
		}

		versions := make([]BranchVersion, len(records))
		for i, rec := range records {
			versions[i] = recordToBranchVersion(&rec)
		}
		writeJSON(w, http.StatusOK, BranchVersionList{
			Versions:      versions,
			NextPageToken: nextToken,
			TotalSize:     total,
		})
	}
}

// compareBranchVersionsHandler handles
// GET /branches/{branchId}/compare?version1=...&version2=...
func compareBranchVersionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID := chi.URLParam(r, "branchId")
		v1 := r.URL.Query().Get("version1")
		v2 := r.URL.Query().Get("version2")
		if v1 == "" || v2 == "" {
			writeRegistryError(w, Validationf("version1 and version2 are required"))
			return
		}

		result, err := svc.BranchEng.Compare(r.Context(), branchID, v1, v2)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// promoteBranchHandler handles POST /branches/{branchId}/promote.
func promoteBranchHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID := chi.URLParam(r, "branchId")
		var req struct {
			Notes string `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}

		actor := authz.ActorFromContext(r.Context())
		record, err := svc.Promoter.PromoteBranchToSilver(r.Context(), branchID, req.Notes, actor)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		svc.invalidateAsset(record.AssetID)
		writeJSON(w, http.StatusCreated, recordToVersion(record))
	}
}

// deactivateBranchHandler handles POST /branches/{branchId}/deactivate.
func deactivateBranchHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		branchID := chi.URLParam(r, "branchId")
		record, err := svc.BranchEng.Deactivate(r.Context(), branchID)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, recordToBranch(record))
	}
}

// recordToBranchVersion converts a branch version record to the API type.
func recordToBranchVersion(rec *BranchVersionRecord) BranchVersion {
	return BranchVersion{
		ID:                  rec.ID,
		BranchID:            rec.BranchID,
		VersionNumber:       rec.VersionNumber(),
		ParentVersionNumber: versionLabel(rec.ParentVersionSeq),
		FileName:            rec.FileName,
		FileSize:            rec.FileSize,
		ContentHash:         rec.ContentHash,
		Author:              rec.Author,
		Notes:               rec.Notes,
		IsBranchLatest:      rec.IsBranchLatest,
		CreatedAt:           rec.CreatedAt.Format(time.RFC3339),
	}
}
