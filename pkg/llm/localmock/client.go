// Package localmock 提供不访问网络的 [llm.Provider] 实现
//
// 用于测试和离线演示：响应可以是固定文本、响应队列或动态函数，
// 并记录每次调用，便于断言"恰好调用一次"之类的行为。
//
//	client := localmock.New(localmock.WithResponse("**ok**"))
//	resp, _ := client.Complete(ctx, msgs, nil)
//	client.CallCount() // 1
package localmock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm"
)

// DefaultResponse 未配置任何响应时返回的文本
const DefaultResponse = "This is a mock response."

// CallRecord 记录一次调用的详情
type CallRecord struct {
	Messages []llm.Message
	Options  *llm.Options
	Time     time.Time
}

// Input 返回本次调用中最后一条用户消息的内容
func (r CallRecord) Input() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == llm.RoleUser {
			return r.Messages[i].GetContent()
		}
	}
	return ""
}

// ResponseFunc 动态响应函数类型
// 接收消息列表和调用次数（从 1 开始），返回响应文本
type ResponseFunc func(messages []llm.Message, callCount int) string

// Client Mock Provider
type Client struct {
	mu        sync.RWMutex
	response  string        // 默认响应
	responses []string      // 响应队列（依次返回，用完后循环）
	respIdx   int           // 当前响应索引
	respFunc  ResponseFunc  // 动态响应函数
	delay     time.Duration // 响应延迟（Stream 为首包延迟）
	err       error         // 返回错误
	calls     []CallRecord  // 调用记录
}

// Option 配置选项函数
type Option func(*Client)

// WithResponse 设置预设响应文本
func WithResponse(text string) Option {
	return func(c *Client) {
		c.response = text
	}
}

// WithResponses 设置响应队列
func WithResponses(texts ...string) Option {
	return func(c *Client) {
		c.responses = texts
	}
}

// WithResponseFunc 设置动态响应函数
func WithResponseFunc(fn ResponseFunc) Option {
	return func(c *Client) {
		c.respFunc = fn
	}
}

// WithDelay 设置响应延迟
func WithDelay(d time.Duration) Option {
	return func(c *Client) {
		c.delay = d
	}
}

// WithError 设置返回错误
func WithError(err error) Option {
	return func(c *Client) {
		c.err = err
	}
}

// New 创建 Mock Client
func New(opts ...Option) *Client {
	c := &Client{response: DefaultResponse}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// record 记录调用并取出本次响应（内部方法，持有锁）
func (c *Client) record(messages []llm.Message, opts *llm.Options) (string, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, CallRecord{
		Messages: messages,
		Options:  opts,
		Time:     time.Now(),
	})

	if c.err != nil {
		return "", c.delay, c.err
	}

	switch {
	case c.respFunc != nil:
		return c.respFunc(messages, len(c.calls)), c.delay, nil
	case len(c.responses) > 0:
		resp := c.responses[c.respIdx%len(c.responses)]
		c.respIdx++
		return resp, c.delay, nil
	default:
		return c.response, c.delay, nil
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Provider 接口实现
// ═══════════════════════════════════════════════════════════════════════════

// Complete 同步完成
func (c *Client) Complete(ctx context.Context, messages []llm.Message, opts *llm.Options) (*llm.Response, error) {
	response, delay, err := c.record(messages, opts)

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	return &llm.Response{
		Message:      llm.Message{Role: llm.RoleAssistant, Content: response},
		FinishReason: "stop",
		Model:        llm.ProviderTypeLocalMock.DefaultModel(),
		Usage: &llm.TokenUsage{
			InputTokens:  int64(len(messages) * 10),
			OutputTokens: int64(len(response) / 4),
			TotalTokens:  int64(len(messages)*10 + len(response)/4),
		},
	}, nil
}

// Stream 流式完成
//
// 响应按空白切分后逐词发送（保留分隔符，拼接后与 Complete 结果一致）。
func (c *Client) Stream(ctx context.Context, messages []llm.Message, opts *llm.Options) (<-chan *llm.Event, error) {
	response, delay, err := c.record(messages, opts)
	if err != nil {
		return nil, err
	}

	words := strings.SplitAfter(response, " ")
	events := make(chan *llm.Event, len(words)+1)

	go func() {
		defer close(events)

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}
		}

		for _, w := range words {
			if w == "" {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case events <- &llm.Event{Type: llm.EventTypeText, TextDelta: w, Timestamp: time.Now()}:
			}
		}

		select {
		case <-ctx.Done():
		case events <- &llm.Event{Type: llm.EventTypeDone, FinishReason: "stop", Timestamp: time.Now()}:
		}
	}()

	return events, nil
}

// Close 关闭连接
func (c *Client) Close() error {
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 运行时修改与调用记录
// ═══════════════════════════════════════════════════════════════════════════

// SetResponse 动态修改响应（线程安全）
func (c *Client) SetResponse(text string) {
	c.mu.Lock()
	c.response = text
	c.mu.Unlock()
}

// SetError 动态修改错误（线程安全）
func (c *Client) SetError(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// Calls 返回所有调用记录
func (c *Client) Calls() []CallRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]CallRecord, len(c.calls))
	copy(result, c.calls)
	return result
}

// CallCount 返回调用次数
func (c *Client) CallCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.calls)
}

// LastCall 返回最后一次调用记录
func (c *Client) LastCall() *CallRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.calls) == 0 {
		return nil
	}
	call := c.calls[len(c.calls)-1]
	return &call
}

// Reset 重置调用记录和响应队列位置
func (c *Client) Reset() {
	c.mu.Lock()
	c.calls = nil
	c.respIdx = 0
	c.mu.Unlock()
}

// 编译时接口检查
var _ llm.Provider = (*Client)(nil)
