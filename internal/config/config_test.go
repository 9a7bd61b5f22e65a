package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm/localmock"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm/provider"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, llm.ProviderTypeGemini, cfg.Provider.Type)
	assert.Equal(t, "gemini-2.0-flash", cfg.Provider.Model)
	assert.Equal(t, llm.DefaultTimeout, cfg.Provider.Timeout)
	assert.Contains(t, cfg.Explain.Language, "Hinglish")
	assert.Equal(t, "storage.yaml", filepath.Base(cfg.Store.Path))
}

func TestLoad_MissingDefaultFileIsFine(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderTypeGemini, cfg.Provider.Type)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider:
  type: genai
  model: gemini-2.5-flash
  timeout: 30s
  thinking: true
  thinking_budget: 1024
explain:
  language: English
  stream: true
store:
  path: /tmp/explainer/storage.yaml
  keyring: true
render:
  style: notty
  width: 60
log:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderTypeGenAI, cfg.Provider.Type)
	assert.Equal(t, "gemini-2.5-flash", cfg.Provider.Model)
	assert.Empty(t, cfg.Provider.BaseURL, "genai 使用 SDK 默认地址")
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.True(t, cfg.Provider.Thinking)
	assert.Equal(t, int32(1024), cfg.Provider.ThinkingBudget)
	assert.Equal(t, "English", cfg.Explain.Language)
	assert.True(t, cfg.Explain.Stream)
	assert.Equal(t, "/tmp/explainer/storage.yaml", cfg.Store.Path)
	assert.True(t, cfg.Store.Keyring)
	assert.Equal(t, "explainer", cfg.Store.KeyringService)
	assert.Equal(t, 60, cfg.Render.Width)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  type: gemini\n"), 0o600))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("EXPLAINER_MODEL=gemini-2.5-pro\nEXPLAINER_STREAM=true\n"), 0o600))

	t.Setenv("EXPLAINER_PROVIDER", "localmock")
	t.Setenv("EXPLAINER_TIMEOUT", "5s")
	// godotenv.Load 写入进程环境，用 Setenv 登记以便测试结束后还原
	t.Setenv("EXPLAINER_MODEL", "")
	require.NoError(t, os.Unsetenv("EXPLAINER_MODEL"))
	t.Setenv("EXPLAINER_STREAM", "")
	require.NoError(t, os.Unsetenv("EXPLAINER_STREAM"))

	cfg, err := Load(path, envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, llm.ProviderTypeLocalMock, cfg.Provider.Type)
	assert.Equal(t, "gemini-2.5-pro", cfg.Provider.Model)
	assert.Empty(t, cfg.Provider.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Provider.Timeout)
	assert.True(t, cfg.Explain.Stream)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  type: openai\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, llm.IsConfigError(err))

	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))
	t.Setenv("EXPLAINER_KEYRING", "maybe")
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EXPLAINER_KEYRING")
}

// ═══════════════════════════════════════════════════════════════════════════
// 按类型填充默认值
// ═══════════════════════════════════════════════════════════════════════════

func TestLoad_ProviderDefaultsFollowType(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     string
		want    llm.ProviderType
		model   string
		baseURL string
	}{
		{"default", "{}\n", "", llm.ProviderTypeGemini, "gemini-2.0-flash", "https://generativelanguage.googleapis.com/v1beta"},
		{"yaml genai", "provider:\n  type: genai\n", "", llm.ProviderTypeGenAI, "gemini-2.0-flash", ""},
		{"env localmock", "{}\n", "localmock", llm.ProviderTypeLocalMock, "localmock", ""},
		{"explicit base url kept", "provider:\n  type: gemini\n  base_url: http://proxy.local/v1beta\n", "", llm.ProviderTypeGemini, "gemini-2.0-flash", "http://proxy.local/v1beta"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))
			if tt.env != "" {
				t.Setenv("EXPLAINER_PROVIDER", tt.env)
			}

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Provider.Type)
			assert.Equal(t, tt.model, cfg.Provider.Model)
			assert.Equal(t, tt.baseURL, cfg.Provider.BaseURL)
		})
	}
}

func TestLoad_EnvLocalMockBuildsWorkingProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("provider:\n  type: gemini\n"), 0o600))
	t.Setenv("EXPLAINER_PROVIDER", "localmock")

	cfg, err := Load(path)
	require.NoError(t, err)

	p, err := provider.Factory(cfg.Provider)(context.Background(), "")
	require.NoError(t, err)
	defer func() { _ = p.Close() }()

	resp, err := p.Complete(context.Background(), []llm.Message{llm.UserMessage("x := 1")}, nil)
	require.NoError(t, err)
	assert.Equal(t, localmock.DefaultResponse, resp.Text())
}
