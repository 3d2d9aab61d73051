package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		callerRole Role
		required   Role
		wantStatus int
	}{
		{"viewer allowed on viewer routes", RoleViewer, RoleViewer, http.StatusOK},
		{"viewer rejected on operator routes", RoleViewer, RoleOperator, http.StatusForbidden},
		{"operator allowed on operator routes", RoleOperator, RoleOperator, http.StatusOK},
		{"operator rejected on approver routes", RoleOperator, RoleApprover, http.StatusForbidden},
		{"approver allowed everywhere", RoleApprover, RoleOperator, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			handler := IdentityMiddleware(StaticRoleExtractor(tt.callerRole))(RequireRole(tt.required)(ok))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusForbidden {
				assert.Contains(t, rec.Body.String(), "forbidden")
			}
		})
	}
}

func TestRequireRoleWithoutIdentity(t *testing.T) {
	// No identity middleware in the chain: the caller is a viewer.
	handler := RequireRole(RoleApprover)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestNewRoleExtractorModes(t *testing.T) {
	noop, err := NewRoleExtractor(Config{Mode: ModeNone}, nil)
	require.NoError(t, err)
	assert.Equal(t, RoleApprover, noop(httptest.NewRequest(http.MethodGet, "/", nil)))

	groups, err := NewRoleExtractor(Config{Mode: ModeGroups}, nil)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Remote-Group", "registry-approvers")
	assert.Equal(t, RoleApprover, groups(req))

	_, err = NewRoleExtractor(Config{Mode: "ldap"}, nil)
	assert.Error(t, err)
}
