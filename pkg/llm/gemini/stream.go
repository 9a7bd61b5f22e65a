package gemini

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// SSE 流解析
// ═══════════════════════════════════════════════════════════════════════════

// maxLineSize 单行 SSE 数据上限（大段代码解释可能超过 bufio 默认的 64KB）
const maxLineSize = 1 << 20

// parseStream 解析 streamGenerateContent?alt=sse 响应
//
// SSE 格式（每个 data 行是一个完整的 generateResponse）：
//
//	data: {"candidates":[{"content":{"parts":[{"text":"Hello"}]}}]}
//
//	data: {"candidates":[{"content":{"parts":[{"text":"!"}]},"finishReason":"STOP"}]}
//
// 行为：
//   - 自动关闭 body 和 events
//   - JSON 解析失败静默忽略
//   - 同一分块内先输出文本再输出完成事件
//   - 流正常结束但没有 finishReason 时补发完成事件
//   - ctx 取消后停止发送
func parseStream(ctx context.Context, body io.ReadCloser, events chan<- *llm.Event) {
	defer func() { _ = body.Close() }()
	defer close(events)

	send := func(e *llm.Event) bool {
		if e.Timestamp.IsZero() {
			e.Timestamp = time.Now()
		}
		select {
		case events <- e:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "" {
			continue
		}

		var chunk generateResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}

		chunkEvents, done := handleChunk(&chunk)
		for _, e := range chunkEvents {
			if !send(e) {
				return
			}
		}
		if done {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() == nil {
			send(llm.NewErrorEvent(llm.NewStreamError("read stream", err)))
		}
		return
	}

	send(&llm.Event{Type: llm.EventTypeDone, FinishReason: "stop"})
}

// handleChunk 将单个流式分块转换为事件
//
// 返回 done=true 表示流已结束（finishReason 或错误）。
func handleChunk(chunk *generateResponse) ([]*llm.Event, bool) {
	if chunk.Error != nil {
		body, _ := json.Marshal(map[string]any{"error": chunk.Error})
		apiErr := llm.NewAPIError(chunk.Error.Code, string(body)).WithProvider(providerName)
		return []*llm.Event{llm.NewErrorEvent(apiErr)}, true
	}

	if len(chunk.Candidates) == 0 {
		if chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "" {
			_, _, err := parseResponse(chunk)
			return []*llm.Event{llm.NewErrorEvent(err)}, true
		}
		return nil, false
	}

	var result []*llm.Event
	cand := chunk.Candidates[0]
	for _, p := range cand.Content.Parts {
		if p.Text == "" {
			continue
		}
		eventType := llm.EventTypeText
		if p.Thought {
			eventType = llm.EventTypeThinking
		}
		result = append(result, &llm.Event{Type: eventType, TextDelta: p.Text})
	}

	if cand.FinishReason != "" {
		result = append(result, &llm.Event{
			Type:         llm.EventTypeDone,
			FinishReason: mapFinishReason(cand.FinishReason),
			Usage:        convertUsage(chunk.UsageMetadata),
		})
		return result, true
	}

	return result, false
}
