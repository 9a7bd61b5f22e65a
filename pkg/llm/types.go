package llm

import "context"

// ═══════════════════════════════════════════════════════════════════════════
// Provider 接口
// ═══════════════════════════════════════════════════════════════════════════

// Provider 生成式 AI 提供者接口
type Provider interface {
	// Complete 同步完成，返回完整响应
	Complete(ctx context.Context, messages []Message, opts *Options) (*Response, error)

	// Stream 流式完成，channel 在完成或出错后关闭
	Stream(ctx context.Context, messages []Message, opts *Options) (<-chan *Event, error)

	// Close 关闭连接
	Close() error
}

// ═══════════════════════════════════════════════════════════════════════════
// 选项与响应
// ═══════════════════════════════════════════════════════════════════════════

// Options 请求选项
//
// 零值表示使用服务端默认值。
type Options struct {
	System        string   `json:"system,omitempty" yaml:"system,omitempty"`
	MaxTokens     int      `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Temperature   float64  `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP          float64  `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	StopSequences []string `json:"stop_sequences,omitempty" yaml:"stop_sequences,omitempty"`
}

// Response Provider 响应
type Response struct {
	Message      Message     `json:"message"`
	FinishReason string      `json:"finish_reason"`
	Model        string      `json:"model,omitempty"` // 实际使用的模型
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Text 返回响应的文本内容
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return r.Message.Content
}

// TokenUsage Token 使用量
type TokenUsage struct {
	InputTokens     int64 `json:"input_tokens"`
	OutputTokens    int64 `json:"output_tokens"`
	TotalTokens     int64 `json:"total_tokens"`
	ReasoningTokens int64 `json:"reasoning_tokens,omitempty"` // thinking tokens (Gemini 2.5)
}
