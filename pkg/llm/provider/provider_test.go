package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm/gemini"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm/genai"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm/localmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ═══════════════════════════════════════════════════════════════════════════
// New 函数测试
// ═══════════════════════════════════════════════════════════════════════════

func TestNew_NilConfig(t *testing.T) {
	p, err := New(context.Background(), nil)

	assert.Nil(t, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config is required")
}

func TestNew_MissingAPIKey(t *testing.T) {
	for _, typ := range []llm.ProviderType{"", llm.ProviderTypeGemini, llm.ProviderTypeGenAI} {
		p, err := New(context.Background(), &llm.Config{Type: typ})

		assert.Nil(t, p, typ)
		require.Error(t, err, typ)
		assert.True(t, llm.IsConfigError(err), typ)
		assert.Contains(t, err.Error(), "API key is required")
	}
}

func TestNew_DefaultProviderType(t *testing.T) {
	p, err := New(context.Background(), &llm.Config{APIKey: "test-key"})

	require.NoError(t, err)
	client, ok := p.(*gemini.Client)
	require.True(t, ok)
	assert.Equal(t, "gemini-2.0-flash", client.Model())
}

func TestNew_GenAI(t *testing.T) {
	p, err := New(context.Background(), &llm.Config{Type: llm.ProviderTypeGenAI, APIKey: "k", Model: "gemini-2.5-flash"})

	require.NoError(t, err)
	client, ok := p.(*genai.Client)
	require.True(t, ok)
	assert.Equal(t, "gemini-2.5-flash", client.Model())
}

func TestNew_LocalMockNoAPIKey(t *testing.T) {
	p, err := New(context.Background(), &llm.Config{Type: llm.ProviderTypeLocalMock})

	require.NoError(t, err)
	_, ok := p.(*localmock.Client)
	assert.True(t, ok)
}

func TestNew_Unsupported(t *testing.T) {
	_, err := New(context.Background(), &llm.Config{Type: "openai", APIKey: "k"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported provider type: openai")
}

func TestFactory(t *testing.T) {
	factory := Factory(llm.DefaultConfig(llm.ProviderTypeGemini))

	_, err := factory(context.Background(), "")
	require.Error(t, err)

	p, err := factory(context.Background(), "KEY123")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestNew_GeminiThinkingPassedThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			GenerationConfig struct {
				ThinkingConfig *struct {
					IncludeThoughts bool  `json:"includeThoughts"`
					ThinkingBudget  int32 `json:"thinkingBudget"`
				} `json:"thinkingConfig"`
			} `json:"generationConfig"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.NotNil(t, body.GenerationConfig.ThinkingConfig) {
			assert.True(t, body.GenerationConfig.ThinkingConfig.IncludeThoughts)
			assert.Equal(t, int32(256), body.GenerationConfig.ThinkingConfig.ThinkingBudget)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: {\"candidates\":[{\"content\":{\"parts\":[" +
			"{\"text\":\"hmm\",\"thought\":true},{\"text\":\"answer\"}]},\"finishReason\":\"STOP\"}]}\n\n"))
	}))
	defer server.Close()

	cfg := llm.Config{
		Type:           llm.ProviderTypeGemini,
		APIKey:         "k",
		Model:          gemini.ModelGemini25Flash,
		BaseURL:        server.URL,
		Thinking:       true,
		ThinkingBudget: 256,
	}
	p, err := New(context.Background(), &cfg)
	require.NoError(t, err)

	events, err := p.Stream(context.Background(), []llm.Message{llm.UserMessage("x")}, nil)
	require.NoError(t, err)

	var thinking []string
	for e := range events {
		if e.Type == llm.EventTypeThinking {
			thinking = append(thinking, e.TextDelta)
			continue
		}
		if e.Type == llm.EventTypeText {
			assert.Equal(t, "answer", e.TextDelta)
		}
	}
	assert.Equal(t, []string{"hmm"}, thinking)
}
