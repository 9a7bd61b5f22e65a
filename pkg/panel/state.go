package panel

// Phase 面板所处阶段
//
// 单一阶段值取代分散的布尔标志，非法组合（比如"无凭证但在加载"）无法表达。
type Phase int

const (
	PhaseNeedsKey Phase = iota // 未保存凭证，显示录入表单
	PhaseIdle                  // 已就绪，等待选择
	PhaseLoading               // 请求进行中
	PhaseResult                // 展示讲解
	PhaseFailed                // 展示错误文本
)

// String 返回阶段名称
func (p Phase) String() string {
	switch p {
	case PhaseNeedsKey:
		return "needs_key"
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseResult:
		return "result"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State 面板状态快照
type State struct {
	Phase Phase

	// Code 最近一次选择的代码
	Code string

	// Analysis 讲解（markdown）或失败时的错误文本；流式时为已收到部分
	Analysis string

	// KeyInput 凭证输入框内容（未保存）
	KeyInput string

	// Visible 面板是否已被打开
	Visible  bool
	WindowID int

	// Generation 最近一次请求的代数，旧代数的响应一律丢弃
	Generation uint64
}

// HasKey 是否已保存凭证
func (s State) HasKey() bool {
	return s.Phase != PhaseNeedsKey
}

// Loading 是否有请求在进行
func (s State) Loading() bool {
	return s.Phase == PhaseLoading
}
