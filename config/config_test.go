package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentmem/core"
	"github.com/hupe1980/agentmem/logging"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New(
		WithAPIKey(CredentialOpenAI, "sk-test"),
		WithDefault("temperature", 0.2),
		func(s *Settings) { s.Runner = "simple" },
	)
	require.NoError(t, err)

	key, ok := cfg.Credential(CredentialOpenAI)
	assert.True(t, ok)
	assert.Equal(t, "sk-test", key)
	assert.Equal(t, "simple", cfg.Runner())

	defaults := cfg.Defaults()
	defaults["temperature"] = 1.0
	v, _ := cfg.Default("temperature")
	assert.Equal(t, 0.2, v, "Defaults must return a copy")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(WithAPIKey(CredentialOpenAI, " "))
	assert.True(t, core.IsConfiguration(err))

	_, err = New(func(s *Settings) { s.Provider = "Not Valid" })
	assert.True(t, core.IsConfiguration(err))

	_, err = New(WithDefault(DefaultTimeout, "soon"))
	assert.True(t, core.IsConfiguration(err))
}

func TestDurationDefault(t *testing.T) {
	cfg, err := New(WithDefault(DefaultTimeout, "1500ms"), WithDefault("retry", 2))
	require.NoError(t, err)

	d, ok := cfg.DurationDefault(DefaultTimeout)
	assert.True(t, ok)
	assert.Equal(t, 1500*time.Millisecond, d)

	d, ok = cfg.DurationDefault("retry")
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)

	_, ok = cfg.DurationDefault("missing")
	assert.False(t, ok)
}

func TestNilConfiguration(t *testing.T) {
	var cfg *Configuration
	_, ok := cfg.Credential(CredentialOpenAI)
	assert.False(t, ok)
	assert.NotNil(t, cfg.Defaults())
	assert.Empty(t, cfg.Provider())
}

func TestLoadFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentmem.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: redis
runner: anthropic
model: claude-3-5-haiku-latest
credentials:
  anthropic_api_key: sk-ant
defaults:
  redis_url: redis://localhost:6379/2
  timeout: 30s
`), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.Provider())
	assert.Equal(t, "anthropic", cfg.Runner())
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.Model())
	url, ok := cfg.StringDefault(DefaultRedisURL)
	assert.True(t, ok)
	assert.Equal(t, "redis://localhost:6379/2", url)
	d, _ := cfg.DurationDefault(DefaultTimeout)
	assert.Equal(t, 30*time.Second, d)
}

func TestLoadFile_JSONWithOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentmem.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"runner":"echo","defaults":{"temperature":0.5}}`), 0o600))

	cfg, err := LoadFile(path, func(s *Settings) { s.Runner = "simple" })
	require.NoError(t, err)
	assert.Equal(t, "simple", cfg.Runner())
	v, _ := cfg.Default("temperature")
	assert.Equal(t, 0.5, v)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile("settings.toml")
	assert.True(t, core.IsConfiguration(err))

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, core.IsConfiguration(err))

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("credentials: [unterminated"), 0o600))
	_, err = LoadFile(bad)
	assert.True(t, core.IsConfiguration(err))
}

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestFromEnv(t *testing.T) {
	unsetEnv(t, EnvOpenAIKey, EnvAnthropicKey, EnvProvider, EnvRunner, EnvModel, EnvRedisURL, EnvLogLevel)

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("OPENAI_API_KEY=sk-env\nAGENTMEM_RUNNER=simple\nAGENTMEM_REDIS_URL=redis://cache:6379\nAGENTMEM_LOG_LEVEL=debug\n"), 0o600))

	cfg, err := FromEnv(path)
	require.NoError(t, err)
	key, ok := cfg.Credential(CredentialOpenAI)
	assert.True(t, ok)
	assert.Equal(t, "sk-env", key)
	assert.Equal(t, "simple", cfg.Runner())
	url, _ := cfg.StringDefault(DefaultRedisURL)
	assert.Equal(t, "redis://cache:6379", url)
	_, ok = cfg.Credential(CredentialAnthropic)
	assert.False(t, ok)
	assert.Equal(t, logging.LogLevelDebug, cfg.LogLevel())
}

func TestConfiguration_LogLevel(t *testing.T) {
	var nilCfg *Configuration
	assert.Equal(t, logging.LogLevelInfo, nilCfg.LogLevel())

	cfg, err := New(WithDefault(DefaultLogLevel, "warn"))
	require.NoError(t, err)
	assert.Equal(t, logging.LogLevelWarn, cfg.LogLevel())

	cfg, err = New(WithDefault(DefaultLogLevel, 3))
	require.NoError(t, err)
	assert.Equal(t, logging.LogLevelInfo, cfg.LogLevel())
}

func TestFromEnv_MissingExplicitFile(t *testing.T) {
	_, err := FromEnv(filepath.Join(t.TempDir(), "nope.env"))
	assert.True(t, core.IsConfiguration(err))
}
