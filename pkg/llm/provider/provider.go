// Package provider 提供 [llm.Provider] 的统一工厂
//
// 使用方式：
//
//	cfg := llm.DefaultConfig(llm.ProviderTypeGemini).WithAPIKey(key)
//	p, err := provider.New(ctx, &cfg)
//
//	// 本地 Mock（无需凭证）
//	p := provider.LocalMock()
package provider

import (
	"context"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm/gemini"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm/genai"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm/localmock"
)

// ═══════════════════════════════════════════════════════════════════════════
// 工厂函数
// ═══════════════════════════════════════════════════════════════════════════

// New 创建 Provider
//
// Type 为空时使用 Gemini REST 后端。localmock 类型的 BaseURL 若非空，
// 视为脚本文件路径（见 [localmock.Config]）。
func New(ctx context.Context, cfg *llm.Config) (llm.Provider, error) {
	if cfg == nil {
		return nil, llm.NewConfigError("config is required", nil)
	}

	providerType := cfg.Type
	if providerType == "" {
		providerType = llm.ProviderTypeGemini
	}

	if providerType.RequiresAPIKey() && cfg.APIKey == "" {
		return nil, llm.NewConfigError("API key is required", nil)
	}

	model := cfg.Model
	if model == "" {
		model = providerType.DefaultModel()
	}

	switch providerType {
	case llm.ProviderTypeGemini:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = providerType.DefaultBaseURL()
		}
		return gemini.New(&gemini.Config{
			APIKey:  cfg.APIKey,
			BaseURL: baseURL,
			Model:   model,
			Timeout: cfg.Timeout,
			Headers: cfg.Headers,

			EnableThinking: cfg.Thinking,
			ThinkingBudget: cfg.ThinkingBudget,
		})

	case llm.ProviderTypeGenAI:
		return genai.New(ctx, &genai.Config{
			APIKey:         cfg.APIKey,
			BaseURL:        cfg.BaseURL,
			Model:          model,
			Timeout:        cfg.Timeout,
			EnableThinking: cfg.Thinking,
			ThinkingBudget: cfg.ThinkingBudget,
		})

	case llm.ProviderTypeLocalMock:
		if cfg.BaseURL != "" {
			return localmock.New(localmock.WithConfigFile(cfg.BaseURL)), nil
		}
		return localmock.New(), nil

	default:
		return nil, llm.NewConfigError("unsupported provider type: "+providerType.String(), nil)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 便捷函数
// ═══════════════════════════════════════════════════════════════════════════

// Factory 绑定基础配置，按凭证创建 Provider
//
// 凭证在每次解释时从存储读取，因此工厂只固定除凭证外的部分。
func Factory(base llm.Config) func(ctx context.Context, apiKey string) (llm.Provider, error) {
	return func(ctx context.Context, apiKey string) (llm.Provider, error) {
		cfg := base.WithAPIKey(apiKey)
		return New(ctx, &cfg)
	}
}

// LocalMock 创建 LocalMock Provider（用于测试）
func LocalMock(opts ...localmock.Option) *localmock.Client {
	return localmock.New(opts...)
}
