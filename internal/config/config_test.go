package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	content := `server_command: typescript-language-server
server_args: ["--stdio"]
project_root: /srv/app
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "typescript-language-server", cfg.ServerCommand)
	assert.Equal(t, []string{"--stdio"}, cfg.ServerArgs)
	assert.Equal(t, "/srv/app", cfg.ProjectRoot)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project_root: /srv/app\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gopls", cfg.ServerCommand)
	assert.Equal(t, "/srv/app", cfg.ProjectRoot)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LSP_SERVER_BIN", "rust-analyzer")
	t.Setenv("LSP_SERVER_ARGS", "--log-file /tmp/ra.log")
	t.Setenv("PROJECT_ROOT", "/srv/rust")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "rust-analyzer", cfg.ServerCommand)
	assert.Equal(t, []string{"--log-file", "/tmp/ra.log"}, cfg.ServerArgs)
	assert.Equal(t, "/srv/rust", cfg.ProjectRoot)
}
