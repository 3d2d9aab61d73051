package authz

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// RequireRole returns middleware that enforces a minimum role for a route
// group. It relies on IdentityMiddleware having stored the caller's identity
// in the request context; requests without one are treated as viewers.
func RequireRole(required Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if !role.Allows(required) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":   "forbidden",
					"message": fmt.Sprintf("%s role required, caller has %s", required, role),
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
