// Package store 提供按安装隔离的持久化键值存储
//
// 存储只保存状态，不承担信号传递：变更通知通过 [Watcher] 以
// [Change] 的形式投递，由调用方决定是否转发到事件总线。
//
// 后端：
//   - [Memory] 进程内存储（测试、嵌入使用）
//   - [File] 磁盘上的 YAML 文档，支持跨进程变更监听
//   - [Keyring] 装饰器，将凭证路由到系统钥匙串
package store

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/samber/lo"
)

// 存储键
const (
	// KeyAPIKey 生成式 AI 凭证；首次保存时创建，重置时删除
	KeyAPIKey = "geminiApiKey"

	// KeySelectedCode 最近一次捕获的代码；每次捕获覆盖，系统从不删除
	KeySelectedCode = "selectedCode"
)

// ErrClosed 存储已关闭
var ErrClosed = errors.New("store: closed")

// Store 键值存储接口
//
// Get 只返回存在的键；不存在的键不出现在结果中。
// 同一键的并发写入以最后一次为准。
type Store interface {
	Get(ctx context.Context, keys ...string) (map[string]string, error)
	Set(ctx context.Context, items map[string]string) error
	Remove(ctx context.Context, keys ...string) error
	Close() error
}

// Watcher 变更监听接口
//
// 返回的 channel 在 ctx 取消或存储关闭后关闭。
// 消费过慢时旧通知可能被丢弃，调用方应以 NewValue 为准。
type Watcher interface {
	Watch(ctx context.Context) (<-chan Change, error)
}

// WatchStore 同时支持读写和监听的存储
type WatchStore interface {
	Store
	Watcher
}

// Change 单个键的变更通知
type Change struct {
	Key      string
	OldValue string
	NewValue string
	Removed  bool
}

// GetString 读取单个键
func GetString(ctx context.Context, s Store, key string) (string, bool, error) {
	items, err := s.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	v, ok := items[key]
	return v, ok, nil
}

// SetString 写入单个键
func SetString(ctx context.Context, s Store, key, value string) error {
	return s.Set(ctx, map[string]string{key: value})
}

// diff 计算两个快照之间的变更，按键排序
func diff(before, after map[string]string) []Change {
	keys := lo.Union(slices.Collect(maps.Keys(before)), slices.Collect(maps.Keys(after)))
	slices.Sort(keys)

	var changes []Change
	for _, k := range keys {
		oldV, hadOld := before[k]
		newV, hasNew := after[k]
		switch {
		case hadOld && !hasNew:
			changes = append(changes, Change{Key: k, OldValue: oldV, Removed: true})
		case !hadOld || oldV != newV:
			changes = append(changes, Change{Key: k, OldValue: oldV, NewValue: newV})
		}
	}
	return changes
}

// pick 按键过滤快照（去重）
func pick(data map[string]string, keys []string) map[string]string {
	return lo.PickByKeys(data, lo.Uniq(keys))
}
