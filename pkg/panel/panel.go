// Package panel 实现讲解面板：读取凭证与选择、调用讲解、维护单一状态值
//
// 面板监听选择总线，每个新选择（且已有凭证）触发一次讲解。
// 每次请求带代数编号，被取代的请求会被取消，迟到的响应被丢弃。
// 状态变更通过 [Panel.Subscribe] 以快照形式推送给视图。
package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/bus"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/capture"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/explain"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/store"
)

// ErrClosed 面板已关闭
var ErrClosed = errors.New("panel: closed")

// StreamFunc 流式讲解函数，onDelta 在每个文本增量到达时调用
type StreamFunc func(ctx context.Context, code, apiKey string, onDelta func(string)) (string, error)

// ═══════════════════════════════════════════════════════════════════════════
// Panel
// ═══════════════════════════════════════════════════════════════════════════

// Panel 讲解面板
type Panel struct {
	store      store.Store
	selections *bus.Bus[capture.Selection]
	explain    explain.Func
	stream     StreamFunc
	logger     *slog.Logger

	mu       sync.Mutex
	state    State
	apiKey   string
	inflight context.CancelFunc
	active   bool
	closed   bool

	states *bus.Bus[State]
	ctx    context.Context
	stop   context.CancelFunc
	unsub  func()
	wg     sync.WaitGroup
}

// Option 配置选项
type Option func(*Panel)

// WithLogger 设置日志记录器
func WithLogger(logger *slog.Logger) Option {
	return func(p *Panel) {
		p.logger = logger
	}
}

// WithStream 使用流式讲解（增量写入 Analysis）
func WithStream(fn StreamFunc) Option {
	return func(p *Panel) {
		p.stream = fn
	}
}

// New 创建面板
//
// selections 可为 nil，此时只能通过 [Panel.Select] 提交选择。
func New(st store.Store, selections *bus.Bus[capture.Selection], fn explain.Func, opts ...Option) *Panel {
	ctx, stop := context.WithCancel(context.Background())
	p := &Panel{
		store:      st,
		selections: selections,
		explain:    fn,
		logger:     slog.New(slog.DiscardHandler),
		state:      State{Phase: PhaseNeedsKey},
		states:     bus.New[State](16),
		ctx:        ctx,
		stop:       stop,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State 返回当前状态快照
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Subscribe 订阅状态快照
//
// 订阅时立即收到当前状态；消费过慢时只保证拿到最新状态。
func (p *Panel) Subscribe() (<-chan State, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, cancel, err := p.states.Subscribe()
	if err != nil {
		return nil, nil, ErrClosed
	}
	_ = p.states.Publish(p.state)
	return ch, cancel, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// 生命周期
// ═══════════════════════════════════════════════════════════════════════════

// Activate 激活面板
//
// 读取凭证与已存的选择：无凭证进入 NeedsKey（选择仍被记住）；
// 有凭证且有选择时立即讲解。之后持续监听选择总线直到 Close。
func (p *Panel) Activate(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.active {
		p.mu.Unlock()
		return nil
	}
	p.active = true
	p.mu.Unlock()

	// 先订阅再读取，避免错过两者之间的选择
	p.mu.Lock()
	gen := p.state.Generation
	p.mu.Unlock()
	if p.selections != nil {
		ch, cancel, err := p.selections.Subscribe()
		if err != nil {
			return fmt.Errorf("subscribe selections: %w", err)
		}
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			cancel()
			return ErrClosed
		}
		p.unsub = cancel
		p.wg.Add(1)
		p.mu.Unlock()
		go p.consume(ch)
	}

	items, err := p.store.Get(ctx, store.KeyAPIKey, store.KeySelectedCode)
	if err != nil {
		return fmt.Errorf("load panel state: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// 读取期间总线上的选择已发起讲解，存储里的值不会比它更新
	if p.state.Generation != gen {
		p.logger.Debug("panel activated", "selection_in_flight", true)
		return nil
	}

	code := items[store.KeySelectedCode]
	if code != "" {
		p.state.Code = code
	}
	if key := items[store.KeyAPIKey]; key != "" {
		p.apiKey = key
		p.state.Phase = PhaseIdle
		if code != "" {
			p.startLocked(code, key)
			return nil
		}
	} else {
		p.state.Phase = PhaseNeedsKey
	}
	p.publishLocked()

	p.logger.Debug("panel activated", "has_key", p.apiKey != "", "has_code", code != "")
	return nil
}

// Close 停止监听、取消进行中的请求并等待后台 goroutine 退出
func (p *Panel) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	unsub := p.unsub
	p.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	p.stop()
	p.wg.Wait()
	p.states.Close()
	return nil
}

func (p *Panel) consume(ch <-chan capture.Selection) {
	defer p.wg.Done()
	for sel := range ch {
		p.Select(p.ctx, sel)
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// 用户操作
// ═══════════════════════════════════════════════════════════════════════════

// Open 实现 [capture.Opener]
func (p *Panel) Open(_ context.Context, windowID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.state.Visible = true
	p.state.WindowID = windowID
	p.publishLocked()
	return nil
}

// SetKeyInput 更新凭证输入框
func (p *Panel) SetKeyInput(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.KeyInput = s
	p.publishLocked()
}

// SaveKey 保存凭证
//
// 空白凭证不做任何事并返回 false。保存后进入 Idle，
// 若已有选择则立即讲解。
func (p *Panel) SaveKey(ctx context.Context, key string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, nil
	}
	if err := store.SetString(ctx, p.store, store.KeyAPIKey, key); err != nil {
		return false, fmt.Errorf("save key: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.apiKey = key
	if p.state.Phase == PhaseNeedsKey {
		p.state.Phase = PhaseIdle
	}
	if p.state.Code != "" {
		p.startLocked(p.state.Code, key)
		return true, nil
	}
	p.publishLocked()
	p.logger.Info("api key saved")
	return true, nil
}

// SaveKeyInput 保存输入框中的凭证
func (p *Panel) SaveKeyInput(ctx context.Context) (bool, error) {
	return p.SaveKey(ctx, p.State().KeyInput)
}

// ResetKey 删除凭证，回到录入表单
//
// 进行中的请求被取消，其响应不会再生效。
func (p *Panel) ResetKey(ctx context.Context) error {
	if err := p.store.Remove(ctx, store.KeyAPIKey); err != nil {
		return fmt.Errorf("reset key: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.apiKey = ""
	p.invalidateLocked()
	p.state.Phase = PhaseNeedsKey
	p.state.KeyInput = ""
	p.state.Analysis = ""
	p.publishLocked()
	p.logger.Info("api key reset")
	return nil
}

// Select 提交一次选择
//
// 凭证从存储读取（其他进程可能已写入）；无凭证时只记住选择，不发请求。
func (p *Panel) Select(ctx context.Context, sel capture.Selection) {
	key, _, err := store.GetString(ctx, p.store, store.KeyAPIKey)
	if err != nil {
		p.logger.Warn("read api key failed", "error", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}

	p.state.Code = sel.Code
	if key == "" {
		p.logger.Debug("selection stored without key")
		p.publishLocked()
		return
	}

	p.apiKey = key
	p.startLocked(sel.Code, key)
}

// ═══════════════════════════════════════════════════════════════════════════
// 请求调度
// ═══════════════════════════════════════════════════════════════════════════

// startLocked 发起新一代请求，取消上一代（持锁调用）
func (p *Panel) startLocked(code, key string) {
	if p.closed {
		return
	}
	p.invalidateLocked()

	gen := p.state.Generation
	ctx, cancel := context.WithCancel(p.ctx)
	p.inflight = cancel

	p.state.Phase = PhaseLoading
	p.state.Analysis = ""
	p.publishLocked()

	p.logger.Debug("explain started", "generation", gen, "bytes", len(code))

	p.wg.Add(1)
	go p.run(ctx, cancel, gen, code, key)
}

// invalidateLocked 推进代数并取消进行中的请求（持锁调用）
func (p *Panel) invalidateLocked() {
	p.state.Generation++
	if p.inflight != nil {
		p.inflight()
		p.inflight = nil
	}
}

func (p *Panel) run(ctx context.Context, cancel context.CancelFunc, gen uint64, code, key string) {
	defer p.wg.Done()
	defer cancel()

	var (
		text string
		err  error
	)
	if p.stream != nil {
		text, err = p.stream(ctx, code, key, func(delta string) {
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.state.Generation == gen && p.state.Phase == PhaseLoading {
				p.state.Analysis += delta
				p.publishLocked()
			}
		})
	} else {
		text, err = p.explain(ctx, code, key)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Generation != gen || p.closed {
		p.logger.Debug("stale response discarded", "generation", gen, "current", p.state.Generation)
		return
	}
	p.inflight = nil

	if err != nil {
		p.logger.Warn("explain failed", "generation", gen, "error", err)
		p.state.Phase = PhaseFailed
		p.state.Analysis = explain.FormatError(err)
	} else {
		p.state.Phase = PhaseResult
		p.state.Analysis = text
	}
	p.publishLocked()
}

// publishLocked 推送当前快照（持锁调用，保证顺序）
func (p *Panel) publishLocked() {
	_ = p.states.Publish(p.state)
}

var _ capture.Opener = (*Panel)(nil)
