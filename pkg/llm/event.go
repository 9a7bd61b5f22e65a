package llm

import (
	"context"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// 事件类型
// ═══════════════════════════════════════════════════════════════════════════

// EventType 事件类型
type EventType string

const (
	EventTypeText     EventType = "text"     // 文本增量
	EventTypeThinking EventType = "thinking" // 思考过程（Gemini 2.5 thought part）
	EventTypeDone     EventType = "done"     // 完成
	EventTypeError    EventType = "error"    // 错误
)

// Event 流式事件
//
// 使用示例：
//
//	for event := range events {
//	    switch event.Type {
//	    case llm.EventTypeText:
//	        fmt.Print(event.TextDelta)
//	    case llm.EventTypeDone:
//	        fmt.Printf("\nDone! Reason: %s\n", event.FinishReason)
//	    }
//	}
type Event struct {
	Type EventType `json:"type"`

	// Text / Thinking event - 文本增量
	TextDelta string `json:"text_delta,omitempty"`

	// Done event - 完成原因
	FinishReason string      `json:"finish_reason,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`

	// Error event - 错误信息
	Error        error  `json:"-"`
	ErrorMessage string `json:"error,omitempty"`

	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Text 获取文本内容
func (e *Event) Text() string {
	return e.TextDelta
}

// NewErrorEvent 创建错误事件
func NewErrorEvent(err error) *Event {
	return &Event{
		Type:         EventTypeError,
		Error:        err,
		ErrorMessage: err.Error(),
		Timestamp:    time.Now(),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 流式辅助函数
// ═══════════════════════════════════════════════════════════════════════════

// Collect 消费事件流并拼接文本
//
// onDelta 可为 nil；每个文本增量到达时调用。
// 遇到错误事件立即返回该错误（已拼接的部分文本一并返回）。
// Thinking 增量不计入结果。
func Collect(ctx context.Context, events <-chan *Event, onDelta func(string)) (string, error) {
	var sb strings.Builder
	for {
		select {
		case <-ctx.Done():
			return sb.String(), ctx.Err()
		case event, ok := <-events:
			if !ok {
				return sb.String(), nil
			}
			switch event.Type {
			case EventTypeText:
				sb.WriteString(event.TextDelta)
				if onDelta != nil {
					onDelta(event.TextDelta)
				}
			case EventTypeError:
				if event.Error != nil {
					return sb.String(), event.Error
				}
				return sb.String(), NewStreamError(event.ErrorMessage, nil)
			case EventTypeDone:
				return sb.String(), nil
			}
		}
	}
}
