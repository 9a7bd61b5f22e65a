package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 常量定义
// ═══════════════════════════════════════════════════════════════════════════

const (
	// DefaultBaseURL Gemini API 默认地址
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel 默认模型
	DefaultModel = ModelGemini20Flash

	// DefaultTimeout 默认超时时间
	DefaultTimeout = llm.DefaultTimeout

	// DefaultMaxTokens 默认最大输出 tokens
	DefaultMaxTokens = 8192

	providerName = "gemini"
)

// 模型常量
const (
	ModelGemini25Pro       = "gemini-2.5-pro"
	ModelGemini25Flash     = "gemini-2.5-flash"
	ModelGemini25FlashLite = "gemini-2.5-flash-lite"
	ModelGemini20Flash     = "gemini-2.0-flash"
)

// ═══════════════════════════════════════════════════════════════════════════
// 配置和客户端
// ═══════════════════════════════════════════════════════════════════════════

// Config 客户端配置
type Config struct {
	// APIKey Gemini API 密钥（必需）
	APIKey string

	// BaseURL API 基础地址，默认 https://generativelanguage.googleapis.com/v1beta
	BaseURL string

	// Model 模型名称，默认 gemini-2.0-flash
	Model string

	// Timeout 请求超时时间，默认 120 秒
	Timeout time.Duration

	// Headers 额外的请求头
	Headers map[string]string

	// Thinking 配置（Gemini 2.5 系列）
	EnableThinking bool
	ThinkingBudget int32 // 0 表示动态
}

// Client Gemini 客户端
//
// 实现 [llm.Provider] 接口。
type Client struct {
	config Config
	resty  *resty.Client
}

// New 创建新的 Gemini 客户端
func New(config *Config) (*Client, error) {
	if config == nil {
		return nil, llm.NewConfigError("config is required", nil)
	}
	if config.APIKey == "" {
		return nil, llm.NewConfigError("API key is required", nil)
	}

	// 应用默认值
	cfg := *config
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	headers := map[string]string{"Content-Type": "application/json"}
	maps.Copy(headers, cfg.Headers)

	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeaders(headers)

	return &Client{config: cfg, resty: r}, nil
}

// Model 返回实际使用的模型
func (c *Client) Model() string {
	return c.config.Model
}

// ═══════════════════════════════════════════════════════════════════════════
// Provider 接口实现
// ═══════════════════════════════════════════════════════════════════════════

// Complete 同步完成
//
// 流程：
//  1. 构建并序列化请求体
//  2. POST models/{model}:generateContent
//  3. 检查 HTTP 状态码（>= 400 返回 APIError）
//  4. 解析响应为统一格式
func (c *Client) Complete(ctx context.Context, messages []llm.Message, opts *llm.Options) (*llm.Response, error) {
	body, err := json.Marshal(c.buildRequest(messages, opts))
	if err != nil {
		return nil, llm.NewRequestError("marshal", err)
	}

	resp, err := c.resty.R().
		SetContext(ctx).
		SetQueryParam("key", c.config.APIKey).
		SetBody(body).
		Post(c.endpoint(false))
	if err != nil {
		return nil, llm.NewHTTPError("request failed", err)
	}

	if resp.StatusCode() >= 400 {
		return nil, c.apiError(resp, resp.String())
	}

	var apiResp generateResponse
	if err := json.Unmarshal(resp.Body(), &apiResp); err != nil {
		return nil, llm.NewResponseError("body", err)
	}

	msg, finishReason, err := parseResponse(&apiResp)
	if err != nil {
		return nil, err
	}

	model := c.config.Model
	if apiResp.ModelVersion != "" {
		model = apiResp.ModelVersion
	}

	return &llm.Response{
		Message:      msg,
		FinishReason: finishReason,
		Model:        model,
		Usage:        convertUsage(apiResp.UsageMetadata),
	}, nil
}

// Stream 流式完成
//
// 返回的 channel 缓冲区大小为 10，完成、出错或 ctx 取消后自动关闭。
func (c *Client) Stream(ctx context.Context, messages []llm.Message, opts *llm.Options) (<-chan *llm.Event, error) {
	body, err := json.Marshal(c.buildRequest(messages, opts))
	if err != nil {
		return nil, llm.NewRequestError("marshal", err)
	}

	resp, err := c.resty.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key": c.config.APIKey,
			"alt": "sse",
		}).
		SetBody(body).
		SetDoNotParseResponse(true).
		Post(c.endpoint(true))
	if err != nil {
		return nil, llm.NewHTTPError("request failed", err)
	}

	raw := resp.RawBody()
	if resp.StatusCode() >= 400 {
		// SetDoNotParseResponse 时 resp.String() 为空，需要自己读
		data, _ := io.ReadAll(raw)
		_ = raw.Close()
		return nil, c.apiError(resp, string(data))
	}

	events := make(chan *llm.Event, 10)
	go parseStream(ctx, raw, events)

	return events, nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 辅助方法
// ═══════════════════════════════════════════════════════════════════════════

// endpoint 构建 API 端点（不含 key，key 走查询参数）
func (c *Client) endpoint(stream bool) string {
	action := "generateContent"
	if stream {
		action = "streamGenerateContent"
	}
	return fmt.Sprintf("/models/%s:%s", c.config.Model, action)
}

func (c *Client) apiError(resp *resty.Response, body string) *llm.APIError {
	apiErr := llm.NewAPIError(resp.StatusCode(), body).WithProvider(providerName)
	if requestID := resp.Header().Get("X-Request-ID"); requestID != "" {
		apiErr = apiErr.WithRequestID(requestID)
	}
	return apiErr
}

// 确保 Client 实现了 Provider 接口
var _ llm.Provider = (*Client)(nil)
