package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/bus"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/store"
)

// ═══════════════════════════════════════════════════════════════════════════
// 常量与类型
// ═══════════════════════════════════════════════════════════════════════════

const (
	// MenuItemID 解释菜单项 ID
	MenuItemID = "explain-code"

	// MenuItemTitle 解释菜单项标题
	MenuItemTitle = "Explain this code with AI"
)

// ClickInfo 菜单点击信息
type ClickInfo struct {
	MenuItemID    string
	SelectionText string
	WindowID      int
}

// Selection 一次代码捕获
type Selection struct {
	Code     string
	WindowID int
	At       time.Time
}

// Opener 面板打开器
type Opener interface {
	Open(ctx context.Context, windowID int) error
}

// OpenerFunc 函数适配器
type OpenerFunc func(ctx context.Context, windowID int) error

// Open 实现 [Opener]
func (f OpenerFunc) Open(ctx context.Context, windowID int) error {
	return f(ctx, windowID)
}

// ═══════════════════════════════════════════════════════════════════════════
// Capture
// ═══════════════════════════════════════════════════════════════════════════

// Capture 选择捕获组件
type Capture struct {
	menu       *Menu
	store      store.Store
	selections *bus.Bus[Selection]
	opener     Opener
	logger     *slog.Logger
	now        func() time.Time
}

// Option 配置选项
type Option func(*Capture)

// WithLogger 设置日志记录器
func WithLogger(logger *slog.Logger) Option {
	return func(c *Capture) {
		c.logger = logger
	}
}

// WithOpener 设置面板打开器
func WithOpener(opener Opener) Option {
	return func(c *Capture) {
		c.opener = opener
	}
}

// New 创建捕获组件
//
// selections 可为 nil（仅写存储，由 [Relay] 转发）。
func New(menu *Menu, st store.Store, selections *bus.Bus[Selection], opts ...Option) *Capture {
	c := &Capture{
		menu:       menu,
		store:      st,
		selections: selections,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Install 注册解释菜单项（可重复调用）
func (c *Capture) Install(_ context.Context) {
	c.menu.Register(MenuItem{
		ID:       MenuItemID,
		Title:    MenuItemTitle,
		Contexts: []Context{ContextSelection},
	})
	c.logger.Debug("menu item installed", "id", MenuItemID)
}

// HandleClick 处理菜单点击
//
// 其他菜单项和空白选择被忽略（返回 handled=false）。
// 否则依次：写入 selectedCode、发布 Selection、请求打开面板。
// 失败只记录日志并返回，不向用户展示。
func (c *Capture) HandleClick(ctx context.Context, info ClickInfo) (bool, error) {
	if info.MenuItemID != MenuItemID || strings.TrimSpace(info.SelectionText) == "" {
		return false, nil
	}

	if err := store.SetString(ctx, c.store, store.KeySelectedCode, info.SelectionText); err != nil {
		c.logger.Error("persist selection failed", "error", err)
		return true, fmt.Errorf("persist selection: %w", err)
	}

	if c.selections != nil {
		sel := Selection{Code: info.SelectionText, WindowID: info.WindowID, At: c.now()}
		if err := c.selections.Publish(sel); err != nil {
			c.logger.Warn("publish selection failed", "error", err)
		}
	}

	if c.opener != nil {
		if err := c.opener.Open(ctx, info.WindowID); err != nil {
			c.logger.Error("open panel failed", "window", info.WindowID, "error", err)
			return true, fmt.Errorf("open panel: %w", err)
		}
	}

	c.logger.Info("selection captured", "bytes", len(info.SelectionText), "window", info.WindowID)
	return true, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 跨进程转发
// ═══════════════════════════════════════════════════════════════════════════

// Relay 将存储中 selectedCode 的变更转发到选择总线
//
// 用于捕获方与面板不在同一进程的场景（CLI select + panel）。
// 阻塞直到 ctx 取消或监听 channel 关闭；删除与空白值不转发。
func Relay(ctx context.Context, w store.Watcher, selections *bus.Bus[Selection]) error {
	changes, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch store: %w", err)
	}
	return RelayChanges(ctx, changes, selections)
}

// RelayChanges 与 [Relay] 相同，但消费已建立的监听 channel
func RelayChanges(ctx context.Context, changes <-chan store.Change, selections *bus.Bus[Selection]) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			if c.Key != store.KeySelectedCode || c.Removed || strings.TrimSpace(c.NewValue) == "" {
				continue
			}
			if err := selections.Publish(Selection{Code: c.NewValue, At: time.Now()}); err != nil {
				return fmt.Errorf("publish selection: %w", err)
			}
		}
	}
}
