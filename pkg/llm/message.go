package llm

import "strings"

// ═══════════════════════════════════════════════════════════════════════════
// 角色定义
// ═══════════════════════════════════════════════════════════════════════════

// Role 消息角色
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ═══════════════════════════════════════════════════════════════════════════
// 消息结构
// ═══════════════════════════════════════════════════════════════════════════

// Message 对话消息
//
// 解释器只处理纯文本；一条消息可以由多个文本片段组成（流式拼接、多 part 响应）。
type Message struct {
	Role    Role     `json:"role"`
	Content string   `json:"content,omitempty"`
	Parts   []string `json:"parts,omitempty"`
}

// UserMessage 创建用户消息
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// GetContent 获取消息文本内容
//
// Content 优先；为空时拼接所有 Parts。
func (m *Message) GetContent() string {
	if m.Content != "" {
		return m.Content
	}
	return strings.Join(m.Parts, "")
}

// SystemPrompt 从消息列表中提取第一条系统消息
func SystemPrompt(messages []Message) string {
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			return msg.GetContent()
		}
	}
	return ""
}
