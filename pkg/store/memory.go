package store

import (
	"context"
	"maps"
	"sync"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/bus"
)

// Memory 进程内存储
type Memory struct {
	mu      sync.RWMutex
	data    map[string]string
	changes *bus.Bus[Change]
	closed  bool
}

// NewMemory 创建内存存储，可选初始数据
func NewMemory(initial map[string]string) *Memory {
	data := make(map[string]string, len(initial))
	maps.Copy(data, initial)
	return &Memory{
		data:    data,
		changes: bus.New[Change](32),
	}
}

// Get 读取键
func (m *Memory) Get(_ context.Context, keys ...string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	return pick(m.data, keys), nil
}

// Set 写入键
func (m *Memory) Set(_ context.Context, items map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	before := maps.Clone(m.data)
	maps.Copy(m.data, items)
	m.publish(diff(before, m.data))
	return nil
}

// Remove 删除键，不存在的键忽略
func (m *Memory) Remove(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	before := maps.Clone(m.data)
	for _, k := range keys {
		delete(m.data, k)
	}
	m.publish(diff(before, m.data))
	return nil
}

// Watch 订阅变更
func (m *Memory) Watch(ctx context.Context) (<-chan Change, error) {
	return watchBus(ctx, m.changes)
}

// Close 关闭存储，所有 Watch channel 随之关闭
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.changes.Close()
	return nil
}

func (m *Memory) publish(changes []Change) {
	for _, c := range changes {
		_ = m.changes.Publish(c)
	}
}

// watchBus 订阅总线，ctx 取消时自动退订
func watchBus(ctx context.Context, b *bus.Bus[Change]) (<-chan Change, error) {
	ch, cancel, err := b.Subscribe()
	if err != nil {
		return nil, ErrClosed
	}
	context.AfterFunc(ctx, cancel)
	return ch, nil
}

var _ WatchStore = (*Memory)(nil)
