// Package render 将 markdown 讲解渲染为终端文本（基于 glamour）
package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// 样式名称
const (
	StyleAuto  = "auto"  // 根据终端背景自动选择
	StyleDark  = "dark"
	StyleLight = "light"
	StyleNoTTY = "notty" // 无颜色，适合管道与测试
)

// DefaultWidth 默认换行宽度
const DefaultWidth = 80

// Markdown markdown 渲染器
//
// glamour.TermRenderer 不保证并发安全，这里加锁串行化。
type Markdown struct {
	mu       sync.Mutex
	renderer *glamour.TermRenderer
}

// NewMarkdown 创建渲染器；width <= 0 时使用 [DefaultWidth]
func NewMarkdown(style string, width int) (*Markdown, error) {
	if width <= 0 {
		width = DefaultWidth
	}

	styleOpt := glamour.WithStylePath(style)
	if style == "" || style == StyleAuto {
		styleOpt = glamour.WithAutoStyle()
	}

	r, err := glamour.NewTermRenderer(
		styleOpt,
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return &Markdown{renderer: r}, nil
}

// Render 渲染 markdown；失败时退回原文
func (m *Markdown) Render(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	m.mu.Lock()
	out, err := m.renderer.Render(markdown)
	m.mu.Unlock()
	if err != nil {
		return markdown
	}
	return out
}
