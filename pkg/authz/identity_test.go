package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"viewer", "operator", "approver"} {
		role, err := ParseRole(s)
		require.NoError(t, err)
		assert.Equal(t, Role(s), role)
	}

	_, err := ParseRole("admin")
	assert.Error(t, err)
}

func TestRoleAllows(t *testing.T) {
	assert.True(t, RoleApprover.Allows(RoleViewer))
	assert.True(t, RoleApprover.Allows(RoleOperator))
	assert.True(t, RoleApprover.Allows(RoleApprover))
	assert.True(t, RoleOperator.Allows(RoleViewer))
	assert.False(t, RoleOperator.Allows(RoleApprover))
	assert.False(t, RoleViewer.Allows(RoleOperator))
}

func TestIdentityMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		wantUser   string
		wantGroups []string
	}{
		{
			name:     "no headers defaults to anonymous",
			headers:  nil,
			wantUser: "anonymous",
		},
		{
			name:       "user and groups",
			headers:    map[string]string{"X-Remote-User": "alice", "X-Remote-Group": "ops, approvers"},
			wantUser:   "alice",
			wantGroups: []string{"ops", "approvers"},
		},
		{
			name:     "whitespace user treated as missing",
			headers:  map[string]string{"X-Remote-User": "   "},
			wantUser: "anonymous",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Identity
			handler := IdentityMiddleware(StaticRoleExtractor(RoleOperator))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = IdentityFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.wantUser, got.User)
			assert.Equal(t, tt.wantGroups, got.Groups)
			assert.Equal(t, RoleOperator, got.Role)
		})
	}
}

func TestGroupRoleExtractor(t *testing.T) {
	extract := GroupRoleExtractor(map[string]Role{
		"registry-approvers": RoleApprover,
		"registry-operators": RoleOperator,
	})

	tests := []struct {
		name   string
		groups string
		want   Role
	}{
		{"no groups", "", RoleViewer},
		{"unknown groups", "dev,qa", RoleViewer},
		{"operator group", "dev,registry-operators", RoleOperator},
		{"highest role wins", "registry-operators,registry-approvers", RoleApprover},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.groups != "" {
				req.Header.Set("X-Remote-Group", tt.groups)
			}
			assert.Equal(t, tt.want, extract(req))
		})
	}
}

func TestRoleFromContextDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, RoleViewer, RoleFromContext(req.Context()))
	assert.Equal(t, "anonymous", ActorFromContext(req.Context()))
}
