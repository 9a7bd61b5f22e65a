package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"golang.org/x/term"
)

// readCode 读取代码：参数为文件路径，缺省或 "-" 时读标准输入
func readCode(in io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}

// interactive 标准输入是否为终端
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptKey 交互式读取凭证（输入被遮盖）
func promptKey() (string, error) {
	return pterm.DefaultInteractiveTextInput.
		WithMask("*").
		Show("Paste your Gemini API Key")
}

// stderrIsTerminal 错误输出是否为终端（决定是否显示动画）
func stderrIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
