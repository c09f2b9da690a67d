package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "/var/lib/pacelink", cfg.DataDir)
	assert.Equal(t, "ha", cfg.RelationName)
	assert.Equal(t, 4440, cfg.McastPort)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pacelink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /tmp/pacelink
relation_name: hacluster
bind_interface: eth0
mcast_port: 5405
log_level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/pacelink", cfg.DataDir)
	assert.Equal(t, "hacluster", cfg.RelationName)
	assert.Equal(t, "eth0", cfg.BindInterface)
	assert.Equal(t, 5405, cfg.McastPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pacelink.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "/var/lib/pacelink", cfg.DataDir)
	assert.Equal(t, 4440, cfg.McastPort)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pacelink.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mcast_port: 700000\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pacelink.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
