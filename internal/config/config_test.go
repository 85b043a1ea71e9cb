package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.Policy.Valid())
	assert.Greater(t, cfg.NProc, 0)
	assert.Greater(t, cfg.NOFile, 0)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
policy = "fcfs"
nproc = 32
quantum = 3
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, PolicyFCFS, cfg.Policy)
	assert.Equal(t, 32, cfg.NProc)
	assert.Equal(t, 3, cfg.Quantum)
	// Fields absent from the file keep their Default() value.
	assert.Equal(t, Default().NOFile, cfg.NOFile)
}

func TestLoadRejectsInvalidPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.toml")
	require.NoError(t, os.WriteFile(path, []byte(`policy = "round-robin-ish"`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsNonPositiveLimits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.toml")
	require.NoError(t, os.WriteFile(path, []byte(`nproc = 0`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsNOFileBeyondTableSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.toml")
	require.NoError(t, os.WriteFile(path, []byte(`nofile = 64`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
