package authz

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT-based role extractor.
type JWTConfig struct {
	// RoleClaim is the JWT claim path containing the caller's role.
	// Supports dot-notation for nested claims (e.g., "realm_access.roles").
	// Default: "role"
	RoleClaim string

	// ApproverValue is the claim value that maps to RoleApprover.
	// Default: "approver"
	ApproverValue string

	// OperatorValue is the claim value that maps to RoleOperator.
	// Any other value (or a missing claim) maps to RoleViewer.
	// Default: "operator"
	OperatorValue string

	// PublicKeyPath is the path to the PEM-encoded RSA public key for RS256
	// verification. If empty, tokens are parsed but NOT verified (suitable
	// for dev/testing behind a trusted proxy).
	PublicKeyPath string

	// Issuer is the expected token issuer (iss claim). If empty, issuer is not validated.
	Issuer string

	// Audience is the expected token audience (aud claim). If empty, audience is not validated.
	Audience string

	// Logger for debugging. If nil, uses slog.Default().
	Logger *slog.Logger
}

// NewJWTRoleExtractor creates a RoleExtractor that reads roles from JWT
// Bearer tokens. The token is expected in the Authorization header:
// "Bearer <token>".
//
// Security model:
//   - If PublicKeyPath is set, tokens are cryptographically verified (RS256)
//   - If PublicKeyPath is empty, tokens are parsed without verification (trusted proxy mode)
//   - Missing or invalid tokens default to RoleViewer
func NewJWTRoleExtractor(cfg JWTConfig) (RoleExtractor, error) {
	if cfg.RoleClaim == "" {
		cfg.RoleClaim = "role"
	}
	if cfg.ApproverValue == "" {
		cfg.ApproverValue = string(RoleApprover)
	}
	if cfg.OperatorValue == "" {
		cfg.OperatorValue = string(RoleOperator)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	var publicKey *rsa.PublicKey
	if cfg.PublicKeyPath != "" {
		keyData, err := os.ReadFile(cfg.PublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read JWT public key from %s: %w", cfg.PublicKeyPath, err)
		}
		block, _ := pem.Decode(keyData)
		if block == nil {
			return nil, fmt.Errorf("failed to decode PEM block from %s", cfg.PublicKeyPath)
		}
		parsedKey, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse public key: %w", err)
		}
		rsaKey, ok := parsedKey.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("public key is not RSA (got %T)", parsedKey)
		}
		publicKey = rsaKey
		cfg.Logger.Info("JWT role extractor: using RS256 verification", "keyPath", cfg.PublicKeyPath)
	} else {
		cfg.Logger.Warn("JWT role extractor: no public key configured, tokens parsed without verification (trusted proxy mode)")
	}

	return func(r *http.Request) Role {
		token := extractBearerToken(r)
		if token == "" {
			return RoleViewer
		}

		claims, err := parseJWTClaims(token, publicKey, cfg)
		if err != nil {
			cfg.Logger.Debug("JWT parse failed, defaulting to viewer", "error", err)
			return RoleViewer
		}

		return roleFromClaims(claims, cfg)
	}, nil
}

// extractBearerToken extracts the token from "Authorization: Bearer <token>".
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// parseJWTClaims parses and optionally verifies a JWT token.
func parseJWTClaims(tokenString string, publicKey *rsa.PublicKey, cfg JWTConfig) (jwt.MapClaims, error) {
	parserOpts := []jwt.ParserOption{}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.Audience))
	}

	var token *jwt.Token
	var err error

	if publicKey != nil {
		token, err = jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return publicKey, nil
		}, parserOpts...)
	} else {
		// Trusted proxy mode: parse without verification
		parser := jwt.NewParser(parserOpts...)
		token, _, err = parser.ParseUnverified(tokenString, jwt.MapClaims{})
	}

	if err != nil {
		return nil, fmt.Errorf("JWT parse error: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type")
	}

	return claims, nil
}

// roleFromClaims extracts the role from JWT claims. Supports dot-notation for
// nested claims (e.g., "realm_access.roles"). For array claims, the highest
// matching role wins so a Keycloak-style ["operator", "approver"] grants
// approver.
func roleFromClaims(claims jwt.MapClaims, cfg JWTConfig) Role {
	parts := strings.Split(cfg.RoleClaim, ".")
	var current interface{} = map[string]interface{}(claims)

	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return RoleViewer
		}
		current, ok = m[part]
		if !ok {
			return RoleViewer
		}
	}

	matchValue := func(s string) Role {
		if strings.EqualFold(s, cfg.ApproverValue) {
			return RoleApprover
		}
		if strings.EqualFold(s, cfg.OperatorValue) {
			return RoleOperator
		}
		return RoleViewer
	}

	if strVal, ok := current.(string); ok {
		return matchValue(strVal)
	}

	if arrVal, ok := current.([]interface{}); ok {
		role := RoleViewer
		for _, v := range arrVal {
			if s, ok := v.(string); ok {
				if mapped := matchValue(s); mapped.Allows(role) {
					role = mapped
				}
			}
		}
		return role
	}

	return RoleViewer
}
