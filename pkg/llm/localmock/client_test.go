package localmock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Complete_Default(t *testing.T) {
	client := New()

	resp, err := client.Complete(context.Background(), []llm.Message{llm.UserMessage("hi")}, nil)

	require.NoError(t, err)
	assert.Equal(t, DefaultResponse, resp.Text())
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 1, client.CallCount())
	require.NotNil(t, client.LastCall())
	assert.Equal(t, "hi", client.LastCall().Input())
}

func TestClient_Complete_ResponsesCycle(t *testing.T) {
	client := New(WithResponses("a", "b"))
	ctx := context.Background()

	var got []string
	for range 3 {
		resp, err := client.Complete(ctx, nil, nil)
		require.NoError(t, err)
		got = append(got, resp.Text())
	}

	assert.Equal(t, []string{"a", "b", "a"}, got)
}

func TestClient_Complete_ResponseFunc(t *testing.T) {
	client := New(WithResponseFunc(func(messages []llm.Message, n int) string {
		return messages[0].GetContent() + "!"
	}))

	resp, err := client.Complete(context.Background(), []llm.Message{llm.UserMessage("x")}, nil)

	require.NoError(t, err)
	assert.Equal(t, "x!", resp.Text())
}

func TestClient_Complete_ErrorStillRecorded(t *testing.T) {
	boom := errors.New("boom")
	client := New(WithError(boom))

	_, err := client.Complete(context.Background(), nil, nil)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, client.CallCount())
}

func TestClient_Complete_DelayHonorsContext(t *testing.T) {
	client := New(WithDelay(time.Second))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, nil, nil)

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_Stream_MatchesComplete(t *testing.T) {
	client := New(WithResponse("Yeh **loop** hai"))

	events, err := client.Stream(context.Background(), nil, nil)
	require.NoError(t, err)

	text, err := llm.Collect(context.Background(), events, nil)
	require.NoError(t, err)
	assert.Equal(t, "Yeh **loop** hai", text)
}

func TestClient_Stream_Error(t *testing.T) {
	client := New(WithError(errors.New("down")))

	events, err := client.Stream(context.Background(), nil, nil)

	assert.Nil(t, events)
	require.Error(t, err)
}

func TestClient_ConcurrentCalls(t *testing.T) {
	client := New()
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = client.Complete(context.Background(), nil, nil)
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, client.CallCount())
	client.Reset()
	assert.Zero(t, client.CallCount())
	assert.Nil(t, client.LastCall())
}

func TestWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte("responses:\n  - one\n  - two\ndelay: 1ms\n"), 0o600))

	client := New(WithConfigFile(path))

	resp, err := client.Complete(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "one", resp.Text())
}

func TestWithConfigFile_Invalid(t *testing.T) {
	client := New(WithConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))

	_, err := client.Complete(context.Background(), nil, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read script file")
}

func TestConfig_Options_BadDelay(t *testing.T) {
	cfg, err := LoadConfigFromBytes([]byte("delay: soon\n"))
	require.NoError(t, err)

	_, err = cfg.Options()
	require.Error(t, err)
}
