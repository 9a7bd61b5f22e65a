// Package capture 实现选择捕获：注册上下文菜单项，处理点击，
// 将选中的代码写入存储、发布到选择总线并请求打开面板。
package capture

import (
	"slices"
	"sync"
)

// Context 菜单项生效的上下文
type Context string

const (
	ContextSelection Context = "selection" // 有文本选中时
	ContextPage      Context = "page"      // 页面空白处
	ContextAll       Context = "all"       // 任意上下文
)

// MenuItem 上下文菜单项
type MenuItem struct {
	ID       string
	Title    string
	Contexts []Context
}

// Enabled 判断菜单项在 ctx 下是否可见
func (m MenuItem) Enabled(ctx Context) bool {
	return slices.Contains(m.Contexts, ctx) || slices.Contains(m.Contexts, ContextAll)
}

// Menu 菜单注册表
//
// 按 ID 幂等：重复注册同一 ID 会替换原有项，重装后仍然只有一项。
type Menu struct {
	mu    sync.RWMutex
	items []MenuItem
}

// NewMenu 创建空菜单
func NewMenu() *Menu {
	return &Menu{}
}

// Register 注册或替换菜单项
func (m *Menu) Register(item MenuItem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := slices.IndexFunc(m.items, func(it MenuItem) bool { return it.ID == item.ID }); i >= 0 {
		m.items[i] = item
		return
	}
	m.items = append(m.items, item)
}

// Items 返回所有菜单项（注册顺序）
func (m *Menu) Items() []MenuItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.items)
}

// Match 返回在 ctx 下可见的菜单项
func (m *Menu) Match(ctx Context) []MenuItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []MenuItem
	for _, it := range m.items {
		if it.Enabled(ctx) {
			result = append(result, it)
		}
	}
	return result
}
