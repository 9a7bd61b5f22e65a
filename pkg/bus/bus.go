// Package bus 提供进程内的泛型发布/订阅通道
//
// 发布永不阻塞：订阅者缓冲区满时丢弃其最旧的一条待处理值，
// 保证订阅者总能拿到最新值（"最新选择优先"）。
//
//	b := bus.New[capture.Selection](4)
//	ch, cancel, _ := b.Subscribe()
//	defer cancel()
//	_ = b.Publish(sel)
package bus

import (
	"errors"
	"sync"
)

// ErrClosed 总线已关闭
var ErrClosed = errors.New("bus: closed")

// DefaultBuffer 默认订阅者缓冲区大小
const DefaultBuffer = 8

// Bus 泛型发布/订阅总线
//
// 零值不可用，请使用 [New] 创建。
type Bus[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]chan T
	nextID uint64
	buffer int
	closed bool
}

// New 创建总线，buffer <= 0 时使用 [DefaultBuffer]
func New[T any](buffer int) *Bus[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Bus[T]{
		subs:   make(map[uint64]chan T),
		buffer: buffer,
	}
}

// Subscribe 注册订阅者
//
// 返回的 cancel 可重复调用；调用后 channel 被关闭。
// 总线关闭时所有订阅 channel 同样被关闭。
func (b *Bus[T]) Subscribe() (<-chan T, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, nil, ErrClosed
	}

	id := b.nextID
	b.nextID++
	ch := make(chan T, b.buffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel, nil
}

// Publish 向所有订阅者投递 v
func (b *Bus[T]) Publish(v T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	for _, ch := range b.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// 缓冲区满：丢弃最旧值后重试（持锁期间只有本方法写入）
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
	return nil
}

// Len 返回当前订阅者数量
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close 关闭总线及所有订阅 channel，可重复调用
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
