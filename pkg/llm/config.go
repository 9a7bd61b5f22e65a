package llm

import (
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// Provider 配置
// ═══════════════════════════════════════════════════════════════════════════

// Config Provider 创建配置
//
// APIKey 不出现在配置文件中：凭证只来自存储（见 pkg/store），
// 每次解释调用时由调用方填入。
//
// 基本用法：
//
//	cfg := llm.DefaultConfig(llm.ProviderTypeGemini)
//	cfg.APIKey = key
//	p, err := provider.New(&cfg)
type Config struct {
	// Provider 类型（默认 Gemini）
	Type ProviderType `yaml:"type"`

	// APIKey 凭证（运行时填入）
	APIKey string `yaml:"-"`

	// 可选字段（有默认值）
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`

	// 网络配置
	Timeout time.Duration `yaml:"timeout"`

	// Headers 额外的请求头
	Headers map[string]string `yaml:"headers,omitempty"`

	// Thinking 开启 Gemini 2.5 系列的思考模式，思考过程以
	// [EventTypeThinking] 事件输出，不计入讲解文本
	Thinking       bool  `yaml:"thinking"`
	ThinkingBudget int32 `yaml:"thinking_budget"` // 0 表示动态
}

// DefaultTimeout 默认请求超时
const DefaultTimeout = 120 * time.Second

// DefaultConfig 返回默认的 Provider 配置
// 不指定类型时默认使用 Gemini
func DefaultConfig(types ...ProviderType) Config {
	t := ProviderTypeGemini
	if len(types) > 0 {
		t = types[0]
	}
	return Config{
		Type:    t,
		BaseURL: t.DefaultBaseURL(),
		Model:   t.DefaultModel(),
		Timeout: DefaultTimeout,
	}
}

// WithAPIKey 返回填入凭证后的配置副本
func (c Config) WithAPIKey(key string) Config {
	c.APIKey = key
	return c
}
