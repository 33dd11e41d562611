package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "wikiSpaceId: spc1\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "spc1", cfg.WikiSpaceID)
	assert.Equal(t, DefaultFolderPath, cfg.Sync.FolderPath)
	assert.Equal(t, float64(0), cfg.Sync.PollIntervalSeconds)
	assert.True(t, cfg.Sync.InitialSync)
	assert.Equal(t, path, cfg.Path)
}

func TestLoadFullConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, `
wikiSpaceId: spc2
tokenPath: `+filepath.Join(dir, "token")+`
auth:
  clientId: cli_x
  clientSecret: shh
sync:
  folderPath: `+filepath.Join(dir, "docs")+`
  pollIntervalSeconds: 30
  initialSync: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "spc2", cfg.WikiSpaceID)
	assert.Equal(t, "cli_x", cfg.Auth.ClientID)
	assert.Equal(t, "shh", cfg.Auth.ClientSecret)
	assert.Equal(t, filepath.Join(dir, "docs"), cfg.Sync.FolderPath)
	assert.Equal(t, float64(30), cfg.Sync.PollIntervalSeconds)
	assert.False(t, cfg.Sync.InitialSync)
}

func TestLoadRequiresSpaceID(t *testing.T) {
	path := writeConfig(t, "sync:\n  initialSync: true\n")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrNoSpaceID)
}

func TestLoadRejectsNegativePollInterval(t *testing.T) {
	path := writeConfig(t, "wikiSpaceId: spc1\nsync:\n  pollIntervalSeconds: -1\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "pollIntervalSeconds")
}

func TestEnvOverridesAuth(t *testing.T) {
	t.Setenv("FEISHU_APP_ID", "cli_env")
	t.Setenv("FEISHU_APP_SECRET", "env_secret")
	path := writeConfig(t, "wikiSpaceId: spc1\nauth:\n  clientId: cli_file\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cli_env", cfg.Auth.ClientID)
	assert.Equal(t, "env_secret", cfg.Auth.ClientSecret)
}

func TestToken(t *testing.T) {
	dir := t.TempDir()
	tokenPath := filepath.Join(dir, "token")

	cfg := &Config{TokenPath: tokenPath}

	_, err := cfg.Token()
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, os.WriteFile(tokenPath, []byte("  t-abc123\n"), 0o600))
	token, err := cfg.Token()
	require.NoError(t, err)
	assert.Equal(t, "t-abc123", token)

	require.NoError(t, os.WriteFile(tokenPath, []byte("   \n"), 0o600))
	_, err = cfg.Token()
	assert.ErrorIs(t, err, ErrNoToken)
}
