// Package genai 基于 Google 官方 SDK（google.golang.org/genai）的 Provider 实现
//
// 与 pkg/llm/gemini 功能相同，区别在于传输与协议细节交给官方 SDK 处理。
// 通过配置 provider.type = genai 选用。
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 配置和客户端
// ═══════════════════════════════════════════════════════════════════════════

// DefaultModel 默认模型
const DefaultModel = "gemini-2.0-flash"

const providerName = "genai"

// Config 客户端配置
type Config struct {
	APIKey  string
	Model   string
	BaseURL string // 为空时使用 SDK 默认地址（测试时指向 httptest）
	Timeout time.Duration

	EnableThinking bool
	ThinkingBudget int32 // 0 表示动态
}

// Client 官方 SDK 客户端包装
//
// 实现 [llm.Provider] 接口。
type Client struct {
	sdk      *genai.Client
	model    string
	thinking *genai.ThinkingConfig
}

// New 创建客户端
func New(ctx context.Context, config *Config) (*Client, error) {
	if config == nil {
		return nil, llm.NewConfigError("config is required", nil)
	}
	if config.APIKey == "" {
		return nil, llm.NewConfigError("API key is required", nil)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = llm.DefaultTimeout
	}

	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     config.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
		HTTPOptions: genai.HTTPOptions{
			BaseURL: config.BaseURL,
		},
	})
	if err != nil {
		return nil, llm.NewConfigError("failed to create GenAI client", err)
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	client := &Client{sdk: sdk, model: model}
	if config.EnableThinking {
		client.thinking = &genai.ThinkingConfig{IncludeThoughts: true}
		if config.ThinkingBudget > 0 {
			client.thinking.ThinkingBudget = genai.Ptr(config.ThinkingBudget)
		}
	}
	return client, nil
}

// Model 返回模型名称
func (c *Client) Model() string {
	return c.model
}

// ═══════════════════════════════════════════════════════════════════════════
// Provider 接口实现
// ═══════════════════════════════════════════════════════════════════════════

// Complete 同步完成
func (c *Client) Complete(ctx context.Context, messages []llm.Message, opts *llm.Options) (*llm.Response, error) {
	contents, cfg := buildRequest(messages, opts, c.thinking)

	result, err := c.sdk.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return nil, convertError(err)
	}
	if len(result.Candidates) == 0 {
		return nil, llm.NewResponseError("candidates", errors.New("no candidates returned"))
	}

	model := c.model
	if result.ModelVersion != "" {
		model = result.ModelVersion
	}

	return &llm.Response{
		Message:      llm.Message{Role: llm.RoleAssistant, Content: result.Text()},
		FinishReason: mapFinishReason(result.Candidates[0].FinishReason),
		Model:        model,
		Usage:        convertUsage(result.UsageMetadata),
	}, nil
}

// Stream 流式完成
//
// SDK 返回 iter.Seq2，这里在 goroutine 中转换为事件 channel。
func (c *Client) Stream(ctx context.Context, messages []llm.Message, opts *llm.Options) (<-chan *llm.Event, error) {
	contents, cfg := buildRequest(messages, opts, c.thinking)

	events := make(chan *llm.Event, 10)
	go func() {
		defer close(events)

		send := func(e *llm.Event) bool {
			select {
			case events <- e:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var usage *llm.TokenUsage
		finishReason := "stop"
		for chunk, err := range c.sdk.Models.GenerateContentStream(ctx, c.model, contents, cfg) {
			if err != nil {
				send(llm.NewErrorEvent(convertError(err)))
				return
			}
			for _, text := range thoughts(chunk) {
				if !send(&llm.Event{Type: llm.EventTypeThinking, TextDelta: text, Timestamp: time.Now()}) {
					return
				}
			}
			if text := chunk.Text(); text != "" {
				if !send(&llm.Event{Type: llm.EventTypeText, TextDelta: text, Timestamp: time.Now()}) {
					return
				}
			}
			if chunk.UsageMetadata != nil {
				usage = convertUsage(chunk.UsageMetadata)
			}
			if len(chunk.Candidates) > 0 && chunk.Candidates[0].FinishReason != "" {
				finishReason = mapFinishReason(chunk.Candidates[0].FinishReason)
			}
		}

		send(&llm.Event{Type: llm.EventTypeDone, FinishReason: finishReason, Usage: usage, Timestamp: time.Now()})
	}()

	return events, nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 转换辅助函数
// ═══════════════════════════════════════════════════════════════════════════

func buildRequest(messages []llm.Message, opts *llm.Options, thinking *genai.ThinkingConfig) ([]*genai.Content, *genai.GenerateContentConfig) {
	if opts == nil {
		opts = &llm.Options{}
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		text := msg.GetContent()
		if msg.Role == llm.RoleSystem || text == "" {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if msg.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(text, role))
	}

	cfg := &genai.GenerateContentConfig{}
	system := opts.System
	if system == "" {
		system = llm.SystemPrompt(messages)
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	if opts.TopP > 0 {
		cfg.TopP = genai.Ptr(float32(opts.TopP))
	}
	cfg.StopSequences = opts.StopSequences
	cfg.ThinkingConfig = thinking

	return contents, cfg
}

// convertError 将 SDK 错误转换为统一错误类型
func convertError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErrorFrom(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrorFrom(*apiErrPtr)
	}
	return llm.NewHTTPError("request failed", err)
}

func apiErrorFrom(e genai.APIError) *llm.APIError {
	result := llm.NewAPIError(e.Code, e.Message).
		WithProvider(providerName).
		WithErrorCode(e.Status)
	result.Message = fmt.Sprintf("%s (status %d)", e.Message, e.Code)
	return result
}

// thoughts 取出思考片段（Text() 不包含它们）
func thoughts(resp *genai.GenerateContentResponse) []string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var result []string
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil && p.Thought && p.Text != "" {
			result = append(result, p.Text)
		}
	}
	return result
}

func convertUsage(u *genai.GenerateContentResponseUsageMetadata) *llm.TokenUsage {
	if u == nil {
		return nil
	}
	return &llm.TokenUsage{
		InputTokens:     int64(u.PromptTokenCount),
		OutputTokens:    int64(u.CandidatesTokenCount),
		TotalTokens:     int64(u.TotalTokenCount),
		ReasoningTokens: int64(u.ThoughtsTokenCount),
	}
}

func mapFinishReason(reason genai.FinishReason) string {
	switch reason {
	case genai.FinishReasonStop, genai.FinishReasonOther, "":
		return "stop"
	case genai.FinishReasonMaxTokens:
		return "length"
	default:
		return "content_filter"
	}
}

// 确保 Client 实现了 Provider 接口
var _ llm.Provider = (*Client)(nil)
