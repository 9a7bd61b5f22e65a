package llm

import (
	"fmt"
	"strings"
)

// ProviderType 生成式 AI 后端类型
type ProviderType string

const (
	// ProviderTypeGemini Gemini REST API（resty 直连）
	ProviderTypeGemini ProviderType = "gemini"

	// ProviderTypeGenAI Google 官方 genai SDK
	ProviderTypeGenAI ProviderType = "genai"

	// ProviderTypeLocalMock 本地 Mock（测试用）
	ProviderTypeLocalMock ProviderType = "localmock"
)

// String 返回字符串表示
func (t ProviderType) String() string {
	return string(t)
}

// RequiresAPIKey 判断该后端是否需要 API Key
func (t ProviderType) RequiresAPIKey() bool {
	return t != ProviderTypeLocalMock
}

// DefaultBaseURL 返回默认 Base URL
func (t ProviderType) DefaultBaseURL() string {
	switch t {
	case ProviderTypeGemini:
		return "https://generativelanguage.googleapis.com/v1beta"
	case ProviderTypeGenAI:
		return "" // 由 SDK 决定
	default:
		return ""
	}
}

// DefaultModel 返回默认模型
func (t ProviderType) DefaultModel() string {
	switch t {
	case ProviderTypeGemini, ProviderTypeGenAI:
		return "gemini-2.0-flash"
	case ProviderTypeLocalMock:
		return "localmock"
	default:
		return ""
	}
}

// ParseProviderType 解析 Provider 类型（大小写不敏感，空字符串返回 Gemini）
func ParseProviderType(s string) (ProviderType, error) {
	switch t := ProviderType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return ProviderTypeGemini, nil
	case ProviderTypeGemini, ProviderTypeGenAI, ProviderTypeLocalMock:
		return t, nil
	default:
		return "", NewConfigError(fmt.Sprintf("unsupported provider type: %s", s), nil)
	}
}
