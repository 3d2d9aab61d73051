// Package config loads server configuration from an optional YAML file plus
// REGISTRY_-prefixed environment variables. Environment variables win over
// file values; both win over defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full registry-server configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `mapstructure:"listen"`

	Database struct {
		// Type is one of "sqlite", "postgres" or "mysql".
		Type string `mapstructure:"type"`
		// DSN is the driver connection string.
		DSN string `mapstructure:"dsn"`
		// MaxOpenConns bounds the pool.
		MaxOpenConns int `mapstructure:"maxOpenConns"`
		// MaxIdleConns bounds idle connections.
		MaxIdleConns int `mapstructure:"maxIdleConns"`
		// LogQueries enables gorm query logging.
		LogQueries bool `mapstructure:"logQueries"`
	} `mapstructure:"database"`

	Content struct {
		// Dir is the blob store root directory.
		Dir string `mapstructure:"dir"`
		// PolicyPath points to the import policy YAML. Empty uses the
		// built-in default policy.
		PolicyPath string `mapstructure:"policyPath"`
		// WatchPolicy reloads the policy file on change.
		WatchPolicy bool `mapstructure:"watchPolicy"`
	} `mapstructure:"content"`

	Site struct {
		// Mode is "single" or "multi".
		Mode string `mapstructure:"mode"`
	} `mapstructure:"site"`

	Auth struct {
		// Mode is "none", "groups" or "jwt".
		Mode string `mapstructure:"mode"`
		// GroupRoles maps X-Remote-Group values to roles ("viewer",
		// "operator", "approver").
		GroupRoles map[string]string `mapstructure:"groupRoles"`
		JWT        struct {
			RoleClaim     string `mapstructure:"roleClaim"`
			ApproverValue string `mapstructure:"approverValue"`
			OperatorValue string `mapstructure:"operatorValue"`
			PublicKeyPath string `mapstructure:"publicKeyPath"`
			Issuer        string `mapstructure:"issuer"`
			Audience      string `mapstructure:"audience"`
		} `mapstructure:"jwt"`
	} `mapstructure:"auth"`
}

// Load reads configuration from path (optional, "" skips the file) and the
// environment. Env keys use the REGISTRY_ prefix with underscores, e.g.
// REGISTRY_DATABASE_DSN overrides database.dsn.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen", ":8080")
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "registry.db")
	v.SetDefault("database.maxOpenConns", 0)
	v.SetDefault("database.maxIdleConns", 0)
	v.SetDefault("database.logQueries", false)
	v.SetDefault("content.dir", "/var/lib/registry/content")
	v.SetDefault("content.policyPath", "")
	v.SetDefault("content.watchPolicy", true)
	v.SetDefault("site.mode", "single")
	v.SetDefault("auth.mode", "none")
	v.SetDefault("auth.jwt.roleClaim", "role")

	v.SetEnvPrefix("REGISTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	switch cfg.Site.Mode {
	case "single", "multi":
	default:
		return nil, fmt.Errorf("unknown site mode %q (expected single or multi)", cfg.Site.Mode)
	}
	switch cfg.Auth.Mode {
	case "none", "groups", "jwt":
	default:
		return nil, fmt.Errorf("unknown auth mode %q (expected none, groups or jwt)", cfg.Auth.Mode)
	}

	return &cfg, nil
}
