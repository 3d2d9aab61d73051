package authz

import (
	"fmt"
	"log/slog"
)

// Mode selects how caller roles are determined.
type Mode string

const (
	// ModeNone disables authorization checks; every caller is an approver.
	ModeNone Mode = "none"
	// ModeGroups maps X-Remote-Group header entries to roles.
	ModeGroups Mode = "groups"
	// ModeJWT reads roles from JWT bearer token claims.
	ModeJWT Mode = "jwt"
)

// DefaultGroupRoles is the group-to-role table used when none is configured.
var DefaultGroupRoles = map[string]Role{
	"registry-approvers": RoleApprover,
	"registry-operators": RoleOperator,
}

// Config selects and parameterizes the role extractor.
type Config struct {
	Mode       Mode
	GroupRoles map[string]Role
	JWT        JWTConfig
}

// NewRoleExtractor builds the RoleExtractor for the configured mode. JWT
// extraction is wrapped in a token cache so hot callers skip repeated
// signature checks.
func NewRoleExtractor(cfg Config, logger *slog.Logger) (RoleExtractor, error) {
	switch cfg.Mode {
	case ModeNone, "":
		return StaticRoleExtractor(RoleApprover), nil
	case ModeGroups:
		table := cfg.GroupRoles
		if len(table) == 0 {
			table = DefaultGroupRoles
		}
		return GroupRoleExtractor(table), nil
	case ModeJWT:
		jwtCfg := cfg.JWT
		if jwtCfg.Logger == nil {
			jwtCfg.Logger = logger
		}
		inner, err := NewJWTRoleExtractor(jwtCfg)
		if err != nil {
			return nil, err
		}
		cached := NewCachedRoleExtractor(inner, DefaultCacheTTL)
		return cached.Extract, nil
	}
	return nil, fmt.Errorf("unknown authz mode %q", cfg.Mode)
}
