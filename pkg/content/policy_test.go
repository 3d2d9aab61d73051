package content

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyCheckName(t *testing.T) {
	open := Policy{}
	assert.NoError(t, open.CheckName("anything.bin"))
	assert.Error(t, open.CheckName(""))

	restricted := Policy{AllowedExtensions: []string{"l5x", ".ACD"}}
	assert.NoError(t, restricted.CheckName("pump_7.L5X"))
	assert.NoError(t, restricted.CheckName("line2.acd"))
	assert.Error(t, restricted.CheckName("payload.exe"))
	assert.Error(t, restricted.CheckName("no_extension"))
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("maxFileBytes: 1024\nallowedExtensions: [l5x, acd]\n"), 0o644))

	policy, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1024), policy.MaxFileBytes)
	assert.Equal(t, []string{"l5x", "acd"}, policy.AllowedExtensions)
}

func TestLoadPolicyDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("allowedExtensions: [l5x]\n"), 0o644))

	policy, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy.MaxFileBytes, policy.MaxFileBytes)
}

func TestLoadPolicyErrors(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("maxFileBytes: [not a number\n"), 0o644))
	_, err = LoadPolicy(bad)
	assert.Error(t, err)
}
