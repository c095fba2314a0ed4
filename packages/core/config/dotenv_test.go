package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvFile(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected map[string]string
	}{
		{"simple", "HITCHAIN_TIMEOUT=500", map[string]string{"HITCHAIN_TIMEOUT": "500"}},
		{"double quoted", `HITCHAIN_PROXY="http://proxy:8080"`, map[string]string{"HITCHAIN_PROXY": "http://proxy:8080"}},
		{"single quoted", `NAME='with spaces'`, map[string]string{"NAME": "with spaces"}},
		{"comments and blanks", "# comment\n\nA=1\n", map[string]string{"A": "1"}},
		{"export prefix", "export HITCHAIN_SILENT=true", map[string]string{"HITCHAIN_SILENT": "true"}},
		{"value with equals", "URL=http://x/?a=b", map[string]string{"URL": "http://x/?a=b"}},
		{"lines without equals", "garbage\nA=1", map[string]string{"A": "1"}},
		{"empty key", "=value", map[string]string{}},
		{"lone quote", `A="`, map[string]string{"A": `"`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".env")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			vars, err := LoadEnvFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, vars)
		})
	}
}

func TestEnvLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HITCHAIN_TEST_A=file\nHITCHAIN_TEST_B=file\n"), 0644))
	t.Setenv("HITCHAIN_TEST_A", "process")

	lookup, err := EnvLookup(path, true)
	require.NoError(t, err)

	v, ok := lookup("HITCHAIN_TEST_A")
	assert.True(t, ok)
	assert.Equal(t, "process", v)

	v, ok = lookup("HITCHAIN_TEST_B")
	assert.True(t, ok)
	assert.Equal(t, "file", v)

	_, ok = lookup("HITCHAIN_TEST_C")
	assert.False(t, ok)
}

func TestEnvLookup_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), ".env")

	lookup, err := EnvLookup(missing, false)
	require.NoError(t, err)
	assert.NotNil(t, lookup)

	_, err = EnvLookup(missing, true)
	assert.Error(t, err)
}

func TestFromEnv_WithEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HITCHAIN_TIMEOUT=1500\nHITCHAIN_OUTPUT=tap\n"), 0644))

	lookup, err := EnvLookup(path, true)
	require.NoError(t, err)

	cfg, err := FromEnv(lookup)
	require.NoError(t, err)
	assert.Equal(t, 1500, cfg.Timeout)
	assert.Equal(t, "tap", cfg.Output)
}
