// Package explain 把一段代码交给生成式 AI，返回 markdown 格式的讲解
//
// 提示词固定：要求用指定语言（默认 Hinglish）简单讲解代码、
// 指出潜在 bug，并使用 markdown（粗体、列表）输出。
package explain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 常量与类型
// ═══════════════════════════════════════════════════════════════════════════

// DefaultLanguage 默认讲解语言
const DefaultLanguage = "Hinglish(hindi written in roman script)"

// DefaultPrompt 默认提示词模板
const DefaultPrompt = `You are an expert coding assistant. Explain this code simply in {{.Language}}.
Also point out any bugs if present.
Format: Use Markdown (Bold, Bullet points).
Code:
{{.Code}}`

// ProviderFactory 按凭证创建 Provider
//
// 凭证随每次调用传入，不在 Explainer 中缓存。
type ProviderFactory func(ctx context.Context, apiKey string) (llm.Provider, error)

// Func 讲解函数签名，面板只依赖这一形状
type Func func(ctx context.Context, code, apiKey string) (string, error)

// Explainer 代码讲解器
type Explainer struct {
	factory  ProviderFactory
	prompt   *template.Template
	language string
	options  *llm.Options
	logger   *slog.Logger
}

// Option 配置选项
type Option func(*Explainer) error

// WithLanguage 设置讲解语言
func WithLanguage(language string) Option {
	return func(e *Explainer) error {
		if strings.TrimSpace(language) != "" {
			e.language = language
		}
		return nil
	}
}

// WithPrompt 替换提示词模板（text/template 语法，可用 .Code 与 .Language）
func WithPrompt(text string) Option {
	return func(e *Explainer) error {
		tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
		if err != nil {
			return fmt.Errorf("parse prompt template: %w", err)
		}
		e.prompt = tmpl
		return nil
	}
}

// WithOptions 设置请求选项
func WithOptions(opts *llm.Options) Option {
	return func(e *Explainer) error {
		e.options = opts
		return nil
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *slog.Logger) Option {
	return func(e *Explainer) error {
		e.logger = logger
		return nil
	}
}

// New 创建讲解器
func New(factory ProviderFactory, opts ...Option) (*Explainer, error) {
	if factory == nil {
		return nil, errors.New("explain: provider factory is required")
	}

	e := &Explainer{
		factory:  factory,
		prompt:   template.Must(template.New("prompt").Parse(DefaultPrompt)),
		language: DefaultLanguage,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 讲解
// ═══════════════════════════════════════════════════════════════════════════

// Prompt 渲染提示词
func (e *Explainer) Prompt(code string) (string, error) {
	var sb strings.Builder
	err := e.prompt.Execute(&sb, struct {
		Code     string
		Language string
	}{Code: code, Language: e.language})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}

// Explain 同步讲解
func (e *Explainer) Explain(ctx context.Context, code, apiKey string) (string, error) {
	provider, messages, err := e.prepare(ctx, code, apiKey)
	if err != nil {
		return "", err
	}
	defer func() { _ = provider.Close() }()

	resp, err := provider.Complete(ctx, messages, e.options)
	if err != nil {
		e.logger.Debug("explain failed", "error", err, "status", llm.GetStatusCode(err))
		return "", err
	}

	e.logger.Debug("explain done", "model", resp.Model, "finish_reason", resp.FinishReason)
	return resp.Text(), nil
}

// ExplainStream 流式讲解
//
// onDelta 在每个文本增量到达时调用（可为 nil），返回完整文本。
// 出错时同时返回已收到的部分文本。
func (e *Explainer) ExplainStream(ctx context.Context, code, apiKey string, onDelta func(string)) (string, error) {
	provider, messages, err := e.prepare(ctx, code, apiKey)
	if err != nil {
		return "", err
	}
	defer func() { _ = provider.Close() }()

	events, err := provider.Stream(ctx, messages, e.options)
	if err != nil {
		e.logger.Debug("explain stream failed", "error", err, "status", llm.GetStatusCode(err))
		return "", err
	}

	text, err := llm.Collect(ctx, events, onDelta)
	if err != nil {
		e.logger.Debug("explain stream interrupted", "error", err, "received", len(text))
	}
	return text, err
}

// Func 返回绑定到本讲解器的 [Func]
func (e *Explainer) Func() Func {
	return e.Explain
}

func (e *Explainer) prepare(ctx context.Context, code, apiKey string) (llm.Provider, []llm.Message, error) {
	prompt, err := e.Prompt(code)
	if err != nil {
		return nil, nil, err
	}
	provider, err := e.factory(ctx, apiKey)
	if err != nil {
		return nil, nil, err
	}
	return provider, []llm.Message{llm.UserMessage(prompt)}, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 用户可见的错误文本
// ═══════════════════════════════════════════════════════════════════════════

// FormatError 将任意讲解失败折叠为面板展示的固定文本
func FormatError(err error) string {
	return fmt.Sprintf("Error: %s. Please check your API Key.", errorMessage(err))
}

// errorMessage 取面向用户的错误消息
//
// APIError 只取服务端消息本身，不带 "API error (status N):" 前缀。
func errorMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	if apiErr, ok := llm.GetAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
