package authz

import (
	"context"
	"net/http"
	"strings"
)

// identityCtxKey is an unexported type used as the context key for Identity.
type identityCtxKey struct{}

// Identity represents the authenticated caller making a request.
type Identity struct {
	User   string
	Groups []string
	Role   Role
}

// RoleExtractor determines the caller's role from an incoming request.
type RoleExtractor func(r *http.Request) Role

// WithIdentity returns a new context with the given Identity attached.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

// IdentityFromContext retrieves the Identity from the context.
// Returns the zero value and false if no identity is set.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	return id, ok
}

// RoleFromContext retrieves the caller's role, defaulting to viewer when no
// identity middleware ran.
func RoleFromContext(ctx context.Context) Role {
	id, ok := IdentityFromContext(ctx)
	if !ok || id.Role == "" {
		return RoleViewer
	}
	return id.Role
}

// ActorFromContext returns the user name for audit attribution, defaulting
// to "anonymous".
func ActorFromContext(ctx context.Context) string {
	id, ok := IdentityFromContext(ctx)
	if !ok || id.User == "" {
		return "anonymous"
	}
	return id.User
}

// IdentityMiddleware returns HTTP middleware that extracts identity from
// X-Remote-User and X-Remote-Group headers, resolves the caller's role via
// the extractor and stores the result in the request context.
// If X-Remote-User is missing, the user defaults to "anonymous".
// X-Remote-Group is comma-separated.
func IdentityMiddleware(extract RoleExtractor) func(http.Handler) http.Handler {
	if extract == nil {
		extract = StaticRoleExtractor(RoleViewer)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := strings.TrimSpace(r.Header.Get("X-Remote-User"))
			if user == "" {
				user = "anonymous"
			}

			var groups []string
			groupHeader := strings.TrimSpace(r.Header.Get("X-Remote-Group"))
			if groupHeader != "" {
				for _, g := range strings.Split(groupHeader, ",") {
					g = strings.TrimSpace(g)
					if g != "" {
						groups = append(groups, g)
					}
				}
			}

			id := Identity{User: user, Groups: groups, Role: extract(r)}
			ctx := WithIdentity(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StaticRoleExtractor assigns the same role to every request. Used for the
// "none" mode where all callers act as approvers.
func StaticRoleExtractor(role Role) RoleExtractor {
	return func(*http.Request) Role { return role }
}

// GroupRoleExtractor maps X-Remote-Group entries to roles using the given
// table and returns the highest role found. Callers whose groups match
// nothing are viewers.
func GroupRoleExtractor(groupRoles map[string]Role) RoleExtractor {
	return func(r *http.Request) Role {
		role := RoleViewer
		groupHeader := r.Header.Get("X-Remote-Group")
		for _, g := range strings.Split(groupHeader, ",") {
			g = strings.TrimSpace(g)
			if g == "" {
				continue
			}
			if mapped, ok := groupRoles[g]; ok && mapped.Allows(role) {
				role = mapped
			}
		}
		return role
	}
}
