package panel

import (
	"strings"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/render"
)

// 界面文本
const (
	TitleText       = "Code Explainer"
	SetupStepText   = "Step 1: Setup API Key"
	SetupHintText   = "Paste your Gemini API Key below:"
	KeyPlaceholder  = "Paste Key Here..."
	SaveButtonText  = "Save & Start"
	KeyLocalText    = "Key is saved locally on your device only."
	ReadyText       = "● System Ready"
	ResetButtonText = "Reset Key"
	ThinkingText    = "Thinking..."
	IdleSelectText  = "Select any code on a webpage"
	IdleActionText  = `Right Click "Explain with AI"`
)

// View 将状态渲染为终端文本
type View struct {
	markdown *render.Markdown
}

// NewView 创建视图；markdown 为 nil 时原样输出讲解
func NewView(markdown *render.Markdown) *View {
	return &View{markdown: markdown}
}

// Render 渲染状态
func (v *View) Render(s State) string {
	var sb strings.Builder
	sb.WriteString(TitleText + "\n")
	sb.WriteString(strings.Repeat("─", len(TitleText)) + "\n\n")

	if !s.HasKey() {
		sb.WriteString(SetupStepText + "\n")
		sb.WriteString(SetupHintText + "\n\n")
		input := KeyPlaceholder
		if s.KeyInput != "" {
			input = MaskKey(s.KeyInput)
		}
		sb.WriteString("[ " + input + " ]\n")
		sb.WriteString("[ " + SaveButtonText + " ]\n\n")
		sb.WriteString(KeyLocalText + "\n")
		return sb.String()
	}

	sb.WriteString(ReadyText + "   [ " + ResetButtonText + " ]\n\n")

	switch {
	case s.Loading() && s.Analysis == "":
		sb.WriteString(ThinkingText + "\n")
	case s.Analysis != "":
		sb.WriteString(v.markdownText(s.Analysis))
		if s.Loading() {
			sb.WriteString("\n" + ThinkingText + "\n")
		}
	default:
		sb.WriteString(IdleSelectText + "\n")
		sb.WriteString(IdleActionText + "\n")
	}
	return sb.String()
}

func (v *View) markdownText(md string) string {
	if v.markdown == nil {
		return md + "\n"
	}
	return v.markdown.Render(md)
}

// MaskKey 只显示凭证末 4 个字符，其余以圆点代替（按字符计，不按字节）
func MaskKey(key string) string {
	runes := []rune(key)
	if len(runes) <= 4 {
		return strings.Repeat("•", len(runes))
	}
	return strings.Repeat("•", len(runes)-4) + string(runes[len(runes)-4:])
}
