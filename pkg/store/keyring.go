package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"github.com/zalando/go-keyring"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/bus"
)

// DefaultKeyringService 钥匙串服务名
const DefaultKeyringService = "explainer"

// Keyring 将凭证保存在系统钥匙串中的存储装饰器
//
// [KeyAPIKey] 读写系统钥匙串，其余键交给被包装的存储。
// 钥匙串没有变更通知，因此只有经由本实例的凭证写入会出现在 Watch 中。
type Keyring struct {
	inner   WatchStore
	service string
	secrets []string

	mu      sync.Mutex
	changes *bus.Bus[Change]
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewKeyring 包装 inner；service 为空时使用 [DefaultKeyringService]
func NewKeyring(inner WatchStore, service string) *Keyring {
	if service == "" {
		service = DefaultKeyringService
	}
	return &Keyring{
		inner:   inner,
		service: service,
		secrets: []string{KeyAPIKey},
		changes: bus.New[Change](8),
		done:    make(chan struct{}),
	}
}

func (k *Keyring) split(keys []string) (secret, plain []string) {
	unique := lo.Uniq(keys)
	isSecret := func(key string, _ int) bool {
		return lo.Contains(k.secrets, key)
	}
	return lo.Filter(unique, isSecret), lo.Reject(unique, isSecret)
}

// Get 读取键
func (k *Keyring) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	secret, plain := k.split(keys)

	result := map[string]string{}
	if len(plain) > 0 {
		items, err := k.inner.Get(ctx, plain...)
		if err != nil {
			return nil, err
		}
		result = items
	}

	for _, key := range secret {
		v, err := keyring.Get(k.service, key)
		if errors.Is(err, keyring.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("keyring get %s: %w", key, err)
		}
		result[key] = v
	}
	return result, nil
}

// Set 写入键
func (k *Keyring) Set(ctx context.Context, items map[string]string) error {
	plain := lo.OmitByKeys(items, k.secrets)
	if len(plain) > 0 {
		if err := k.inner.Set(ctx, plain); err != nil {
			return err
		}
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for key, v := range lo.PickByKeys(items, k.secrets) {
		old, err := keyring.Get(k.service, key)
		if err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("keyring get %s: %w", key, err)
		}
		if err := keyring.Set(k.service, key, v); err != nil {
			return fmt.Errorf("keyring set %s: %w", key, err)
		}
		if old != v {
			_ = k.changes.Publish(Change{Key: key, OldValue: old, NewValue: v})
		}
	}
	return nil
}

// Remove 删除键
func (k *Keyring) Remove(ctx context.Context, keys ...string) error {
	secret, plain := k.split(keys)
	if len(plain) > 0 {
		if err := k.inner.Remove(ctx, plain...); err != nil {
			return err
		}
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	for _, key := range secret {
		old, err := keyring.Get(k.service, key)
		if errors.Is(err, keyring.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("keyring get %s: %w", key, err)
		}
		if err := keyring.Delete(k.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("keyring delete %s: %w", key, err)
		}
		_ = k.changes.Publish(Change{Key: key, OldValue: old, Removed: true})
	}
	return nil
}

// Watch 合并被包装存储与钥匙串写入的变更
func (k *Keyring) Watch(ctx context.Context) (<-chan Change, error) {
	innerCh, err := k.inner.Watch(ctx)
	if err != nil {
		return nil, err
	}
	ownCh, err := watchBus(ctx, k.changes)
	if err != nil {
		return nil, err
	}

	out := make(chan Change, 8)
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		defer close(out)
		for innerCh != nil || ownCh != nil {
			var (
				c  Change
				ok bool
			)
			select {
			case c, ok = <-innerCh:
				if !ok {
					innerCh = nil
					continue
				}
			case c, ok = <-ownCh:
				if !ok {
					ownCh = nil
					continue
				}
			case <-ctx.Done():
				return
			case <-k.done:
				return
			}
			select {
			case out <- c:
			case <-ctx.Done():
				return
			case <-k.done:
				return
			}
		}
	}()
	return out, nil
}

// Close 关闭装饰器与被包装的存储
func (k *Keyring) Close() error {
	k.once.Do(func() { close(k.done) })
	k.changes.Close()
	err := k.inner.Close()
	k.wg.Wait()
	return err
}

var _ WatchStore = (*Keyring)(nil)
