package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "package.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "name": "site",
  "version": "1.2.3",
  "license": "MIT",
  "scripts": {"build": "sitebuild build"}
}`), 0o644))

	project, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", project.Version)
	assert.Equal(t, "MIT", project.License)
	assert.Equal(t, map[string]interface{}{"version": "1.2.3", "license": "MIT"}, project.Locals())
}

func TestLoadMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "package.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "site"}`), 0o644))

	project, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, project.Version)
	assert.Empty(t, project.License)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	broken := filepath.Join(dir, "package.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"version": `), 0o644))
	_, err = Load(broken)
	assert.Error(t, err)
}
