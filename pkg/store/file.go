package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/bus"
)

// ═══════════════════════════════════════════════════════════════════════════
// 文件存储
// ═══════════════════════════════════════════════════════════════════════════

// File 以 YAML 文档保存在磁盘上的存储
//
// 写入先落临时文件再 rename，读者不会看到半截文档。
// Watch 通过 fsnotify 监听所在目录，其他进程的写入同样会产生 [Change]。
// 本进程写入的变更只通知一次（快照比对去重）。
type File struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	snapshot map[string]string // 最近一次读写后的内容
	closed   bool

	changes   *bus.Bus[Change]
	watchOnce sync.Once
	watchErr  error
	watcher   *fsnotify.Watcher
	wg        sync.WaitGroup
}

// FileOption 文件存储选项
type FileOption func(*File)

// WithLogger 设置日志记录器
func WithLogger(logger *slog.Logger) FileOption {
	return func(f *File) {
		f.logger = logger
	}
}

// OpenFile 打开（必要时创建所在目录）文件存储
func OpenFile(path string, opts ...FileOption) (*File, error) {
	if path == "" {
		return nil, errors.New("store: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	f := &File{
		path:    path,
		logger:  slog.New(slog.DiscardHandler),
		changes: bus.New[Change](32),
	}
	for _, opt := range opts {
		opt(f)
	}

	data, err := f.read()
	if err != nil {
		return nil, err
	}
	f.snapshot = data
	return f, nil
}

// Path 返回文件路径
func (f *File) Path() string {
	return f.path
}

// Get 读取键（每次从磁盘读取，反映其他进程的写入）
func (f *File) Get(_ context.Context, keys ...string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}

	data, err := f.read()
	if err != nil {
		return nil, err
	}
	return pick(data, keys), nil
}

// Set 写入键
func (f *File) Set(_ context.Context, items map[string]string) error {
	return f.update(func(data map[string]string) {
		maps.Copy(data, items)
	})
}

// Remove 删除键
func (f *File) Remove(_ context.Context, keys ...string) error {
	return f.update(func(data map[string]string) {
		for _, k := range keys {
			delete(data, k)
		}
	})
}

// update 读-改-写，并发布相对上次快照的变更
func (f *File) update(mutate func(map[string]string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	data, err := f.read()
	if err != nil {
		return err
	}
	mutate(data)
	if err := f.write(data); err != nil {
		return err
	}
	f.advance(data)
	return nil
}

// advance 更新快照并发布变更（持锁调用）
func (f *File) advance(data map[string]string) {
	changes := diff(f.snapshot, data)
	f.snapshot = data
	for _, c := range changes {
		_ = f.changes.Publish(c)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 变更监听
// ═══════════════════════════════════════════════════════════════════════════

// Watch 订阅变更，首次调用时启动 fsnotify 监听
func (f *File) Watch(ctx context.Context) (<-chan Change, error) {
	f.watchOnce.Do(func() {
		f.watchErr = f.startWatcher()
	})
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	return watchBus(ctx, f.changes)
}

func (f *File) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// 监听目录而不是文件：rename 替换会让文件级监听失效
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}

	f.mu.Lock()
	f.watcher = w
	f.mu.Unlock()

	f.wg.Add(1)
	go f.watchLoop(w)
	return nil
}

func (f *File) watchLoop(w *fsnotify.Watcher) {
	defer f.wg.Done()

	name := filepath.Clean(f.path)
	for {
		select {
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			f.reload()
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.logger.Warn("store watcher error", "path", f.path, "error", err)
		}
	}
}

// reload 重新读取文件并发布外部写入产生的变更
func (f *File) reload() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}

	data, err := f.read()
	if err != nil {
		f.logger.Warn("store reload failed", "path", f.path, "error", err)
		return
	}
	f.advance(data)
}

// Close 停止监听并关闭所有 Watch channel
func (f *File) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	w := f.watcher
	f.mu.Unlock()

	var err error
	if w != nil {
		err = w.Close()
	}
	f.wg.Wait()
	f.changes.Close()
	return err
}

// ═══════════════════════════════════════════════════════════════════════════
// 磁盘读写
// ═══════════════════════════════════════════════════════════════════════════

// read 读取文档；文件不存在或为空时返回空文档
func (f *File) read() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	data := map[string]string{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse store %s: %w", f.path, err)
	}
	if data == nil {
		data = map[string]string{}
	}
	return data, nil
}

// write 原子写入文档（0600，内容可能包含凭证）
func (f *File) write(data map[string]string) error {
	raw, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".store-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}

var _ WatchStore = (*File)(nil)
