package llm

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ═══════════════════════════════════════════════════════════════════════════
// 基础错误测试
// ═══════════════════════════════════════════════════════════════════════════

func TestConfigError(t *testing.T) {
	t.Run("创建配置错误（无底层错误）", func(t *testing.T) {
		err := NewConfigError("API key is required", nil)

		require.NotNil(t, err)
		assert.True(t, IsConfigError(err))
		assert.False(t, IsRequestError(err))
		assert.Equal(t, "config_error: API key is required", err.Error())
	})

	t.Run("错误链支持", func(t *testing.T) {
		underlying := errors.New("underlying error")
		err := NewConfigError("config failed", underlying)

		require.ErrorIs(t, err, underlying)
		assert.Equal(t, underlying, errors.Unwrap(err))
		assert.Contains(t, err.Error(), "underlying error")
	})
}

func TestRequestError(t *testing.T) {
	stages := []string{"marshal", "build"}
	for _, stage := range stages {
		err := NewRequestError(stage, errors.New(stage+" error"))
		assert.True(t, IsRequestError(err))
		assert.Equal(t, stage, err.Stage)
		assert.Contains(t, err.Error(), "failed to "+stage)
	}
}

func TestHTTPAndStreamError(t *testing.T) {
	httpErr := NewHTTPError("request failed", errors.New("dial tcp: connection refused"))
	assert.True(t, IsHTTPError(httpErr))
	assert.False(t, IsAPIError(httpErr))
	assert.Contains(t, httpErr.Error(), "connection refused")

	streamErr := NewStreamError("scan stream", errors.New("unexpected EOF"))
	assert.True(t, IsStreamError(streamErr))
	assert.Contains(t, streamErr.Error(), "stream_error")
}

func TestResponseError(t *testing.T) {
	err := NewResponseError("candidates", errors.New("empty"))

	assert.True(t, IsResponseError(err))
	assert.Equal(t, "candidates", err.Field)
	assert.Contains(t, err.Error(), "candidates")
}

// ═══════════════════════════════════════════════════════════════════════════
// APIError 测试
// ═══════════════════════════════════════════════════════════════════════════

func TestAPIError(t *testing.T) {
	t.Run("非 JSON 响应体", func(t *testing.T) {
		err := NewAPIError(502, "Bad Gateway")

		assert.True(t, IsAPIError(err))
		assert.Equal(t, 502, err.StatusCode)
		assert.Equal(t, "Bad Gateway", err.Response)
		assert.Equal(t, "api_error: API returned error status 502", err.Error())
		assert.Empty(t, err.ErrorCode)
	})

	t.Run("Gemini 错误体解析", func(t *testing.T) {
		body := `{"error": {"code": 400, "message": "API key not valid. Please pass a valid API key.",
			"status": "INVALID_ARGUMENT", "details": [{"@type": "type.googleapis.com/google.rpc.ErrorInfo", "reason": "API_KEY_INVALID"}]}}`
		err := NewAPIError(http.StatusBadRequest, body).WithProvider("gemini")

		assert.Equal(t, "INVALID_ARGUMENT", err.ErrorCode)
		assert.Equal(t, "API_KEY_INVALID", err.Reason)
		assert.Equal(t, "gemini", err.Provider)
		assert.Contains(t, err.Error(), "API key not valid. Please pass a valid API key. (status 400)")
		assert.True(t, err.IsAuth())
		assert.True(t, IsAuthError(err))
	})

	t.Run("链式设置", func(t *testing.T) {
		err := NewAPIError(429, "Resource exhausted").
			WithProvider("gemini").
			WithRequestID("req-123").
			WithErrorCode("RESOURCE_EXHAUSTED")

		assert.Equal(t, "req-123", err.RequestID)
		assert.Equal(t, "RESOURCE_EXHAUSTED", err.ErrorCode)
		assert.Contains(t, err.Error(), "(request_id: req-123)")
	})

	t.Run("IsRetryable 判断", func(t *testing.T) {
		tests := []struct {
			name       string
			statusCode int
			retryable  bool
		}{
			{"400 Bad Request", 400, false},
			{"401 Unauthorized", 401, false},
			{"429 Rate Limit", 429, true},
			{"500 Internal Server Error", 500, true},
			{"503 Service Unavailable", 503, true},
			{"505 HTTP Version", 505, false},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := NewAPIError(tt.statusCode, "error")
				assert.Equal(t, tt.retryable, err.IsRetryable())
				assert.Equal(t, tt.retryable, IsRetryableError(err))
			})
		}
	})

	t.Run("提取状态码", func(t *testing.T) {
		wrapped := NewRequestError("send", NewAPIError(403, "Forbidden"))

		apiErr, ok := GetAPIError(wrapped)
		require.True(t, ok)
		assert.Equal(t, 403, apiErr.StatusCode)
		assert.Equal(t, 403, GetStatusCode(wrapped))
		assert.True(t, IsAuthError(wrapped))

		assert.Equal(t, 0, GetStatusCode(errors.New("other error")))
		assert.False(t, IsAuthError(errors.New("other error")))
	})
}

// ═══════════════════════════════════════════════════════════════════════════
// 错误链测试
// ═══════════════════════════════════════════════════════════════════════════

func TestErrorMatching(t *testing.T) {
	cases := []struct {
		err error
		fn  func(error) bool
	}{
		{NewConfigError("", nil), IsConfigError},
		{NewRequestError("", nil), IsRequestError},
		{NewHTTPError("", nil), IsHTTPError},
		{NewAPIError(500, ""), IsAPIError},
		{NewResponseError("", nil), IsResponseError},
		{NewStreamError("", nil), IsStreamError},
	}

	for _, tt := range cases {
		assert.True(t, tt.fn(tt.err), "Error type check failed: %T", tt.err)
	}
}

func TestErrorChaining(t *testing.T) {
	root := errors.New("root")
	l1 := NewRequestError("stage1", root)
	l2 := NewConfigError("stage2", l1)

	require.ErrorIs(t, l2, root)
	require.ErrorIs(t, l2, l1)
	assert.True(t, IsRequestError(l2))
	assert.Equal(t, l1, errors.Unwrap(l2))
}
