// Package config 加载 explainer 命令行的配置
//
// 优先级（低 → 高）：默认值 → YAML 配置文件 → .env → EXPLAINER_* 环境变量 → 命令行参数。
// 凭证不在配置中：它只保存在存储里（见 pkg/store）。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/explain"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/render"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/store"
)

// AppName 应用名称（配置目录、钥匙串服务名）
const AppName = "explainer"

// EnvPrefix 环境变量前缀
const EnvPrefix = "EXPLAINER_"

// ═══════════════════════════════════════════════════════════════════════════
// 配置结构
// ═══════════════════════════════════════════════════════════════════════════

// Config 完整配置
type Config struct {
	Provider llm.Config    `yaml:"provider"`
	Explain  ExplainConfig `yaml:"explain"`
	Store    StoreConfig   `yaml:"store"`
	Render   RenderConfig  `yaml:"render"`
	Log      LogConfig     `yaml:"log"`
}

// ExplainConfig 讲解配置
type ExplainConfig struct {
	Language string `yaml:"language"`
	Stream   bool   `yaml:"stream"`
}

// StoreConfig 存储配置
type StoreConfig struct {
	// Path 存储文件路径
	Path string `yaml:"path"`

	// Keyring 为 true 时凭证保存在系统钥匙串
	Keyring bool `yaml:"keyring"`

	// KeyringService 钥匙串服务名
	KeyringService string `yaml:"keyring_service"`
}

// RenderConfig 渲染配置
type RenderConfig struct {
	Style string `yaml:"style"`
	Width int    `yaml:"width"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultDir 返回配置目录（$XDG_CONFIG_HOME/explainer 或等价位置）
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, AppName)
}

// DefaultPath 返回默认配置文件路径
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Provider: llm.DefaultConfig(llm.ProviderTypeGemini),
		Explain: ExplainConfig{
			Language: explain.DefaultLanguage,
		},
		Store: StoreConfig{
			Path:           filepath.Join(DefaultDir(), "storage.yaml"),
			KeyringService: store.DefaultKeyringService,
		},
		Render: RenderConfig{
			Style: render.StyleAuto,
			Width: render.DefaultWidth,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 加载
// ═══════════════════════════════════════════════════════════════════════════

// Load 加载配置
//
// path 为空时使用 [DefaultPath]，文件不存在不算错误；显式指定的文件必须存在。
// envFiles 为要加载的 .env 文件（不存在的忽略，已有环境变量不被覆盖）。
// Provider 的模型与地址默认值在文件和环境变量之后按最终类型填充。
func Load(path string, envFiles ...string) (Config, error) {
	cfg := DefaultConfig()
	cfg.Provider = llm.Config{Timeout: llm.DefaultTimeout}

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate 校验并规范化配置
//
// 未设置的模型与地址取所选类型的默认值。
func (c *Config) Validate() error {
	t, err := llm.ParseProviderType(string(c.Provider.Type))
	if err != nil {
		return err
	}
	c.Provider.Type = t
	if c.Provider.Model == "" {
		c.Provider.Model = t.DefaultModel()
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = t.DefaultBaseURL()
	}
	if c.Provider.Timeout <= 0 {
		c.Provider.Timeout = llm.DefaultTimeout
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	return nil
}

// applyEnv 应用 EXPLAINER_* 环境变量
func applyEnv(c *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) error {
		v, ok := os.LookupEnv(EnvPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = b
		return nil
	}

	var providerType string
	str("PROVIDER", &providerType)
	if providerType != "" {
		c.Provider.Type = llm.ProviderType(providerType)
	}
	str("MODEL", &c.Provider.Model)
	str("BASE_URL", &c.Provider.BaseURL)
	if err := boolean("THINKING", &c.Provider.Thinking); err != nil {
		return err
	}
	if v, ok := os.LookupEnv(EnvPrefix + "TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Provider.Timeout = d
	}

	str("LANGUAGE", &c.Explain.Language)
	if err := boolean("STREAM", &c.Explain.Stream); err != nil {
		return err
	}

	str("STORE", &c.Store.Path)
	if err := boolean("KEYRING", &c.Store.Keyring); err != nil {
		return err
	}

	str("STYLE", &c.Render.Style)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FILE", &c.Log.File)
	return nil
}
