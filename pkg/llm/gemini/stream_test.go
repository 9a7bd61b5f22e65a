package gemini

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ═══════════════════════════════════════════════════════════════════════════
// parseStream 测试
// ═══════════════════════════════════════════════════════════════════════════

func runParse(t *testing.T, ctx context.Context, sse string) []*llm.Event {
	t.Helper()
	events := make(chan *llm.Event, 10)
	go parseStream(ctx, io.NopCloser(strings.NewReader(sse)), events)

	var result []*llm.Event //nolint:prealloc // channel 收集数量未知
	for e := range events {
		result = append(result, e)
	}
	return result
}

func TestParseStream_TextThenDoneInSameChunk(t *testing.T) {
	events := runParse(t, context.Background(),
		"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"a\"}]}}]}\n\n"+
			"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"b\"}]},\"finishReason\":\"STOP\"}],"+
			"\"usageMetadata\":{\"promptTokenCount\":3,\"candidatesTokenCount\":2,\"totalTokenCount\":5}}\n\n"+
			"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"ignored\"}]}}]}\n\n")

	require.Len(t, events, 3)
	assert.Equal(t, "a", events[0].TextDelta)
	assert.Equal(t, "b", events[1].TextDelta)
	assert.Equal(t, llm.EventTypeDone, events[2].Type)
	assert.Equal(t, "stop", events[2].FinishReason)
	require.NotNil(t, events[2].Usage)
	assert.Equal(t, int64(5), events[2].Usage.TotalTokens)
}

func TestParseStream_ThoughtParts(t *testing.T) {
	events := runParse(t, context.Background(),
		"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"thinking\",\"thought\":true},{\"text\":\"answer\"}]},\"finishReason\":\"STOP\"}]}\n")

	require.Len(t, events, 3)
	assert.Equal(t, llm.EventTypeThinking, events[0].Type)
	assert.Equal(t, llm.EventTypeText, events[1].Type)
}

func TestParseStream_IgnoresGarbage(t *testing.T) {
	events := runParse(t, context.Background(),
		": keep-alive\n"+
			"data: not-json\n"+
			"data:\n"+
			"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"x\"}]}}]}\n")

	// 无 finishReason 时 EOF 补发 done
	require.Len(t, events, 2)
	assert.Equal(t, "x", events[0].TextDelta)
	assert.Equal(t, llm.EventTypeDone, events[1].Type)
}

func TestParseStream_ErrorChunk(t *testing.T) {
	events := runParse(t, context.Background(),
		"data: {\"error\":{\"code\":429,\"message\":\"Resource has been exhausted\",\"status\":\"RESOURCE_EXHAUSTED\"}}\n")

	require.Len(t, events, 1)
	assert.Equal(t, llm.EventTypeError, events[0].Type)
	assert.True(t, llm.IsRetryableError(events[0].Error))
	assert.Contains(t, events[0].ErrorMessage, "Resource has been exhausted")
}

func TestParseStream_Blocked(t *testing.T) {
	events := runParse(t, context.Background(),
		"data: {\"promptFeedback\":{\"blockReason\":\"PROHIBITED_CONTENT\"}}\n")

	require.Len(t, events, 1)
	assert.True(t, llm.IsResponseError(events[0].Error))
}

func TestParseStream_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events := make(chan *llm.Event) // 无缓冲，发送必然阻塞
	done := make(chan struct{})
	go func() {
		parseStream(ctx, io.NopCloser(strings.NewReader(
			"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"x\"}]}}]}\n")), events)
		close(done)
	}()

	<-done
	_, ok := <-events
	assert.False(t, ok)
}

// ═══════════════════════════════════════════════════════════════════════════
// 请求构建测试
// ═══════════════════════════════════════════════════════════════════════════

func TestBuildRequest(t *testing.T) {
	client, err := New(&Config{APIKey: "k", Model: ModelGemini25Flash, EnableThinking: true, ThinkingBudget: 1024})
	require.NoError(t, err)

	req := client.buildRequest([]llm.Message{
		{Role: llm.RoleSystem, Content: "be brief"},
		llm.UserMessage("explain"),
		{Role: llm.RoleAssistant, Content: "sure"},
		{Role: llm.RoleUser},
	}, nil)

	require.Len(t, req.Contents, 2)
	assert.Equal(t, "user", req.Contents[0].Role)
	assert.Equal(t, "model", req.Contents[1].Role)
	require.NotNil(t, req.SystemInstruction)
	assert.Equal(t, "be brief", req.SystemInstruction.Parts[0].Text)
	require.NotNil(t, req.GenerationConfig)
	assert.Equal(t, DefaultMaxTokens, req.GenerationConfig.MaxOutputTokens)
	assert.Nil(t, req.GenerationConfig.Temperature)
	require.NotNil(t, req.GenerationConfig.ThinkingConfig)
	assert.Equal(t, int32(1024), req.GenerationConfig.ThinkingConfig.ThinkingBudget)
}

func TestBuildRequest_NoThinkingForFlash20(t *testing.T) {
	client, err := New(&Config{APIKey: "k", EnableThinking: true})
	require.NoError(t, err)

	req := client.buildRequest([]llm.Message{llm.UserMessage("x")}, nil)
	assert.Nil(t, req.GenerationConfig.ThinkingConfig)
}

func TestParseResponse_SkipsThoughts(t *testing.T) {
	msg, reason, err := parseResponse(&generateResponse{
		Candidates: []candidate{{
			Content: content{Parts: []part{
				{Text: "hidden", Thought: true},
				{Text: "- **bug**: "},
				{Text: "off by one"},
			}},
			FinishReason: "SAFETY",
		}},
	})

	require.NoError(t, err)
	assert.Equal(t, "- **bug**: off by one", msg.Content)
	assert.Equal(t, []string{"- **bug**: ", "off by one"}, msg.Parts)
	assert.Equal(t, "content_filter", reason)
}
