package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := Load("config.yaml")
	require.NoError(t, err)
	require.Equal(t, "data/anemia_cbc.csv", c.Data.Path)
	require.Equal(t, "models", c.Model.Dir)
	require.Equal(t, 5000, c.Http.Port)
	require.Equal(t, int64(42), c.Model.Seed)
	require.Equal(t, []string{"*"}, c.Http.AllowedOrigins)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	yaml := `
model:
  dir: artifacts
  n_trees: 10
  category_policy: lenient
http:
  port: 8081
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("ANEMIA_PORT", "9090")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "artifacts", c.Model.Dir)
	require.Equal(t, 10, c.Model.NTrees)
	require.Equal(t, "lenient", c.Model.CategoryPolicy)
	require.Equal(t, 9090, c.Http.Port)
	require.Equal(t, "debug", c.Log.Level)
	require.Equal(t, 0.2, c.Model.TestRatio)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ANEMIA_MODEL_DIR=from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ANEMIA_MODEL_DIR") })

	c, err := Load("config.yaml")
	require.NoError(t, err)
	require.Equal(t, "from-dotenv", c.Model.Dir)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  threshold: 2\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)

	t.Setenv("ANEMIA_PORT", "not-a-port")
	_, err = Load("missing.yaml")
	require.Error(t, err)
}
