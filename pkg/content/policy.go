package content

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy bounds what files may be imported.
type Policy struct {
	// MaxFileBytes caps the accepted content size. Zero or negative falls
	// back to the default.
	MaxFileBytes int64 `yaml:"maxFileBytes" json:"maxFileBytes"`
	// AllowedExtensions whitelists file extensions, with or without the
	// leading dot. Empty accepts every extension.
	AllowedExtensions []string `yaml:"allowedExtensions" json:"allowedExtensions,omitempty"`
}

// DefaultPolicy applies when no policy file is configured.
var DefaultPolicy = Policy{
	MaxFileBytes: 64 << 20, // 64 MiB
}

// CheckName validates a file name against the extension whitelist.
func (p Policy) CheckName(name string) error {
	if name == "" {
		return fmt.Errorf("file name is required")
	}
	if len(p.AllowedExtensions) == 0 {
		return nil
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	for _, allowed := range p.AllowedExtensions {
		if ext == strings.ToLower(strings.TrimPrefix(allowed, ".")) {
			return nil
		}
	}
	return fmt.Errorf("extension %q of %s is not allowed by the import policy", ext, name)
}

// LoadPolicy reads a YAML policy file, applying defaults for unset fields.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	policy := DefaultPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse policy file: %w", err)
	}
	if policy.MaxFileBytes <= 0 {
		policy.MaxFileBytes = DefaultPolicy.MaxFileBytes
	}
	return policy, nil
}

// PolicyProvider yields the current import policy.
type PolicyProvider interface {
	Policy() Policy
}

// StaticPolicy is a PolicyProvider with a fixed policy.
type StaticPolicy struct {
	P Policy
}

// Policy returns the fixed policy.
func (s StaticPolicy) Policy() Policy { return s.P }
