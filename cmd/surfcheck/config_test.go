package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingDefaultIsEmpty(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)
}

func TestLoadConfig_MissingExplicitPathErrors(t *testing.T) {
	t.Parallel()
	_, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfig_ParsesFields(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "surfcheck.yaml")
	data := `typeshed: /opt/typeshed
python_version: "3.9"
platform: linux
interpreters:
  "3.9": /usr/bin/python3.9
exclude:
  - antigravity
  - this
jobs: 4
db: history.db
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/typeshed", cfg.Typeshed)
	assert.Equal(t, "3.9", cfg.PythonVersion)
	assert.Equal(t, "linux", cfg.Platform)
	assert.Equal(t, 4, cfg.Jobs)
	assert.Equal(t, "history.db", cfg.DB)

	path39, ok := cfg.interpreterFor("3.9")
	assert.True(t, ok)
	assert.Equal(t, "/usr/bin/python3.9", path39)
	_, ok = cfg.interpreterFor("3.8")
	assert.False(t, ok)

	assert.True(t, cfg.excluded("antigravity"))
	assert.False(t, cfg.excluded("json"))
}

func TestLoadConfig_RejectsMalformedYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("typeshed: [unterminated"), 0o644))

	_, err := loadConfig(path)
	assert.Error(t, err)
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("text"))
	assert.NoError(t, validateFormat("json"))
	assert.Error(t, validateFormat("xml"))
}
