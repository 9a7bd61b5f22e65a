// Package cli 实现 explainer 命令行（基于 cobra）
//
// select 扮演右键菜单点击，panel 扮演侧边面板，两者通过共享的存储文件通信。
package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/lwmacct/251215-go-pkg-explainer/internal/config"
	"github.com/lwmacct/251215-go-pkg-explainer/internal/logs"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/explain"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/llm/provider"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/render"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/store"
)

var (
	configPath string
	storePath  string
	logLevel   string
	provType   string
	verbose    bool
)

// app 命令共享的运行时依赖，在 PersistentPreRunE 中构建
var app struct {
	cfg      config.Config
	logger   *slog.Logger
	closeLog func() error
}

var rootCmd = &cobra.Command{
	Use:   "explainer",
	Short: "Explain selected code with generative AI",
	Long: `explainer sends a code selection to Gemini and renders the markdown
explanation (with bug notes) in the terminal.

Run "explainer panel" in one terminal, then pipe code into
"explainer select" from anywhere to get it explained.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, ".env")
		if err != nil {
			return err
		}
		if storePath != "" {
			cfg.Store.Path = storePath
		}
		if provType != "" {
			t, err := llm.ParseProviderType(provType)
			if err != nil {
				return err
			}
			if t != cfg.Provider.Type {
				p := llm.DefaultConfig(t)
				p.Timeout = cfg.Provider.Timeout
				p.Headers = cfg.Provider.Headers
				cfg.Provider = p
			}
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if verbose {
			cfg.Log.Level = "debug"
		}

		logger, closeLog, err := logs.New(logs.Options{
			Level:  cfg.Log.Level,
			Writer: cmd.ErrOrStderr(),
			File:   cfg.Log.File,
		})
		if err != nil {
			return err
		}

		app.cfg = cfg
		app.logger = logger
		app.closeLog = closeLog
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app.closeLog != nil {
			return app.closeLog()
		}
		return nil
	},
}

// reportedError 命令已自行输出的错误，Execute 不再重复打印
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// Execute 运行根命令，错误只输出一次
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	var reported reportedError
	if err != nil && !errors.As(err, &reported) {
		pterm.Error.WithWriter(rootCmd.ErrOrStderr()).Println(err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/explainer/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "storage file shared by select and panel (env: EXPLAINER_STORE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&provType, "provider", "", "backend: gemini, genai, localmock (env: EXPLAINER_PROVIDER)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// ═══════════════════════════════════════════════════════════════════════════
// 依赖构建
// ═══════════════════════════════════════════════════════════════════════════

// openStore 打开配置指定的存储，按需包装钥匙串
func openStore() (store.WatchStore, error) {
	f, err := store.OpenFile(app.cfg.Store.Path, store.WithLogger(app.logger))
	if err != nil {
		return nil, err
	}
	if app.cfg.Store.Keyring {
		return store.NewKeyring(f, app.cfg.Store.KeyringService), nil
	}
	return f, nil
}

func newExplainer() (*explain.Explainer, error) {
	return explain.New(
		provider.Factory(app.cfg.Provider),
		explain.WithLanguage(app.cfg.Explain.Language),
		explain.WithLogger(app.logger),
	)
}

func newMarkdown() (*render.Markdown, error) {
	return render.NewMarkdown(app.cfg.Render.Style, app.cfg.Render.Width)
}

func closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		app.logger.Warn("close store", "error", err)
	}
}
