package gemini

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm"
)

// ═══════════════════════════════════════════════════════════════════════════
// 协议结构
// ═══════════════════════════════════════════════════════════════════════════

// part Gemini Part（只处理文本与 thought）
type part struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

// content Gemini Content{Role, Parts[]}
type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type thinkingConfig struct {
	IncludeThoughts bool  `json:"includeThoughts"`
	ThinkingBudget  int32 `json:"thinkingBudget,omitempty"`
}

type generationConfig struct {
	MaxOutputTokens int             `json:"maxOutputTokens,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"topP,omitempty"`
	StopSequences   []string        `json:"stopSequences,omitempty"`
	ThinkingConfig  *thinkingConfig `json:"thinkingConfig,omitempty"`
}

// generateRequest generateContent 请求体
type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount     int64 `json:"promptTokenCount"`
	CandidatesTokenCount int64 `json:"candidatesTokenCount"`
	TotalTokenCount      int64 `json:"totalTokenCount"`
	ThoughtsTokenCount   int64 `json:"thoughtsTokenCount,omitempty"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type apiStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// generateResponse generateContent 响应体，也是流式响应中的单个分块
type generateResponse struct {
	Candidates     []candidate     `json:"candidates"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
	Error          *apiStatus      `json:"error,omitempty"` // 流中途出错时出现
}

// ═══════════════════════════════════════════════════════════════════════════
// 请求构建
// ═══════════════════════════════════════════════════════════════════════════

// buildRequest 将统一消息转换为 Gemini 请求体
//
// 关键协议差异：
//  1. 角色映射：assistant → model
//  2. 系统消息：独立的 systemInstruction 字段
//  3. thinkingConfig 位于 generationConfig 内
func (c *Client) buildRequest(messages []llm.Message, opts *llm.Options) *generateRequest {
	if opts == nil {
		opts = &llm.Options{}
	}

	req := &generateRequest{Contents: toContents(messages)}

	systemPrompt := opts.System
	if systemPrompt == "" {
		systemPrompt = llm.SystemPrompt(messages)
	}
	if systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}

	gc := &generationConfig{MaxOutputTokens: DefaultMaxTokens}
	if opts.MaxTokens > 0 {
		gc.MaxOutputTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		gc.Temperature = &opts.Temperature
	}
	if opts.TopP > 0 {
		gc.TopP = &opts.TopP
	}
	gc.StopSequences = opts.StopSequences

	if c.config.EnableThinking && supportsThinking(c.config.Model) {
		gc.ThinkingConfig = &thinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  c.config.ThinkingBudget,
		}
	}
	req.GenerationConfig = gc

	return req
}

// toContents 转换消息数组（跳过系统消息）
func toContents(messages []llm.Message) []content {
	result := make([]content, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			continue
		}
		text := msg.GetContent()
		if text == "" {
			continue
		}
		result = append(result, content{
			Role:  mapRole(msg.Role),
			Parts: []part{{Text: text}},
		})
	}
	return result
}

// mapRole 将统一角色映射到 Gemini 角色
func mapRole(role llm.Role) string {
	if role == llm.RoleAssistant {
		return "model"
	}
	return "user"
}

// ═══════════════════════════════════════════════════════════════════════════
// 响应解析
// ═══════════════════════════════════════════════════════════════════════════

// parseResponse 解析 generateContent 响应
//
// 没有候选结果时返回 ResponseError；被安全策略拦截的提示词会带上 blockReason。
func parseResponse(resp *generateResponse) (llm.Message, string, error) {
	msg := llm.Message{Role: llm.RoleAssistant}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return msg, "", llm.NewResponseError("candidates",
				fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason))
		}
		return msg, "", llm.NewResponseError("candidates", errors.New("no candidates returned"))
	}

	cand := resp.Candidates[0]
	for _, p := range cand.Content.Parts {
		if p.Thought || p.Text == "" {
			continue
		}
		msg.Parts = append(msg.Parts, p.Text)
	}
	msg.Content = strings.Join(msg.Parts, "")

	return msg, mapFinishReason(cand.FinishReason), nil
}

// convertUsage 解析 Token 使用量
func convertUsage(u *usageMetadata) *llm.TokenUsage {
	if u == nil {
		return nil
	}
	return &llm.TokenUsage{
		InputTokens:     u.PromptTokenCount,
		OutputTokens:    u.CandidatesTokenCount,
		TotalTokens:     u.TotalTokenCount,
		ReasoningTokens: u.ThoughtsTokenCount,
	}
}

// mapFinishReason 将 Gemini 完成原因映射到标准格式
func mapFinishReason(reason string) string {
	switch reason {
	case "STOP", "OTHER":
		return "stop"
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT":
		return "content_filter"
	default:
		return strings.ToLower(reason)
	}
}

// supportsThinking 检查模型是否支持 thinking 能力
func supportsThinking(model string) bool {
	switch model {
	case ModelGemini25Pro, ModelGemini25Flash:
		return true
	default:
		return false
	}
}
