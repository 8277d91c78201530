package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LUCA_API_KEY", "")
	for _, names := range credentialEnv {
		for _, name := range names {
			t.Setenv(name, "")
		}
	}
}

// chdir changes the working directory for the duration of the test,
// mirroring testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	clearCredentialEnv(t)
	chdir(t, t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Empty(t, cfg.Model.APIKey)
	assert.Equal(t, "en", cfg.Conversation.DefaultLanguage)
	assert.Equal(t, "@every 10m", cfg.Conversation.CleanupSchedule)
	assert.Equal(t, int64(5*1024*1024), cfg.Conversation.MaxImageBytes)
	assert.Equal(t, 2*time.Hour, cfg.Conversation.TTL)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.False(t, cfg.Archive.Enabled)
}

func TestLoadFileAndEnv(t *testing.T) {
	clearCredentialEnv(t)
	chdir(t, t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "model:\n  provider: claude\n  max_tokens: 512\nconversation:\n  ttl: 30m\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	t.Setenv("LUCA_SERVER_PORT", "9090")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "claude", cfg.Model.Provider)
	assert.Equal(t, 512, cfg.Model.MaxTokens)
	assert.Equal(t, 30*time.Minute, cfg.Conversation.TTL)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sk-ant", cfg.Model.APIKey)
}

func TestGenericKeyWins(t *testing.T) {
	clearCredentialEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("LUCA_API_KEY", "generic")
	t.Setenv("OPENAI_API_KEY", "specific")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "generic", cfg.Model.APIKey)
}

func TestLoadDotEnv(t *testing.T) {
	clearCredentialEnv(t)
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LUCA_LOG_LEVEL=debug\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("LUCA_LOG_LEVEL") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	clearCredentialEnv(t)
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}
