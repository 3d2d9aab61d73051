package audit

import (
	"strings"
)

// pathParts splits a URL path into segments with the leading slash removed.
func pathParts(path string) []string {
	return strings.Split(strings.TrimPrefix(path, "/"), "/")
}

// stripVerb removes a ":verb" suffix from a path segment
// (e.g., "v3:promoteGolden" -> "v3").
func stripVerb(segment string) string {
	if idx := strings.Index(segment, ":"); idx > 0 {
		return segment[:idx]
	}
	return segment
}

// extractResourceType extracts the resource type from a URL path.
// Returns "assets", "versions", "branches", "integrity-scans" or "events".
func extractResourceType(path string) string {
	parts := pathParts(path)

	// Walk backwards so the most specific collection wins, e.g.
	// /assets/{id}/versions is a versions request.
	for i := len(parts) - 1; i >= 0; i-- {
		switch stripVerb(parts[i]) {
		case "assets", "versions", "branches", "integrity-scans", "events":
			return stripVerb(parts[i])
		}
	}

	return ""
}

func isCollectionSegment(s string) bool {
	switch s {
	case "assets", "versions", "branches", "golden", "history",
		"transitions", "golden-eligibility", "latest", "compare",
		"integrity-scans", "events":
		return true
	}
	return false
}

// extractResourceIDs extracts resource IDs from a URL path, in path order.
func extractResourceIDs(path string) []string {
	parts := pathParts(path)
	var ids []string

	for i, p := range parts {
		switch p {
		case "assets", "versions", "branches", "integrity-scans", "events":
			if i+1 < len(parts) {
				id := stripVerb(parts[i+1])
				// Skip nested collection segments like /assets/{id}/versions.
				if id != "" && !isCollectionSegment(id) {
					ids = append(ids, id)
				}
			}
		}
	}

	return ids
}

// pathIDs pulls out the asset, version and branch IDs referenced by a path,
// if any, for the dedicated record columns.
func pathIDs(path string) (assetID, versionID, branchID string) {
	parts := pathParts(path)
	for i, p := range parts {
		if i+1 >= len(parts) {
			break
		}
		id := stripVerb(parts[i+1])
		if id == "" || isCollectionSegment(id) {
			continue
		}
		switch p {
		case "assets":
			assetID = id
		case "versions":
			versionID = id
		case "branches":
			branchID = id
		}
	}
	return assetID, versionID, branchID
}

// extractActionVerb returns a human-readable action name from the HTTP
// method and path.
func extractActionVerb(method, path string) string {
	parts := pathParts(path)

	// Check for :verb suffixes first.
	for _, p := range parts {
		if idx := strings.Index(p, ":"); idx > 0 {
			switch p[idx+1:] {
			case "changeStatus":
				return "change-status"
			case "promoteGolden":
				return "promote-golden"
			case "promoteSilver":
				return "promote-silver"
			case "archive":
				return "archive"
			case "restore":
				return "restore"
			case "export":
				return "export"
			case "deactivate":
				return "deactivate-branch"
			}
		}
	}

	if method == "POST" {
		switch extractResourceType(path) {
		case "versions":
			return "import-version"
		case "branches":
			return "create-branch"
		case "assets":
			return "create-asset"
		case "integrity-scans":
			return "start-scan"
		}
	}

	// Fall back to HTTP method mapping.
	switch method {
	case "POST":
		return "create"
	case "PUT":
		return "update"
	case "PATCH":
		return "patch"
	case "DELETE":
		return "delete"
	default:
		return strings.ToLower(method)
	}
}

// isAuditedEndpoint returns true if the request should be audited.
// Mutating methods are audited; pure browsing (GET) is not.
func isAuditedEndpoint(method, path string) bool {
	if isHealthEndpoint(path) {
		return false
	}

	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	}

	return false
}

// isHealthEndpoint returns true for health-check paths.
func isHealthEndpoint(path string) bool {
	switch path {
	case "/livez", "/readyz", "/healthz":
		return true
	}
	return false
}
