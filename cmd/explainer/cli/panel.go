package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/bus"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/capture"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/panel"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/store"
)

var noPrompt bool

func init() {
	panelCmd.Flags().BoolVar(&noPrompt, "no-prompt", false, "do not prompt for a missing API key")
	rootCmd.AddCommand(panelCmd)
}

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Run the explanation panel (explains every captured selection)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)

		e, err := newExplainer()
		if err != nil {
			return err
		}
		md, err := newMarkdown()
		if err != nil {
			return err
		}

		selections := bus.New[capture.Selection](bus.DefaultBuffer)
		defer selections.Close()

		opts := []panel.Option{panel.WithLogger(app.logger)}
		if app.cfg.Explain.Stream {
			opts = append(opts, panel.WithStream(e.ExplainStream))
		}
		p := panel.New(st, selections, e.Func(), opts...)
		defer func() { _ = p.Close() }()

		// 先建立监听再激活，激活期间的写入不会丢失
		changes, err := st.Watch(ctx)
		if err != nil {
			return err
		}
		keyChanges, err := st.Watch(ctx)
		if err != nil {
			return err
		}

		if err := p.Activate(ctx); err != nil {
			return err
		}
		_ = p.Open(ctx, 0)

		if !p.State().HasKey() && !noPrompt && interactive() {
			if err := promptUntilSaved(ctx, p); err != nil {
				return err
			}
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return capture.RelayChanges(ctx, changes, selections)
		})
		g.Go(func() error {
			return syncKey(ctx, p, keyChanges)
		})
		g.Go(func() error {
			return renderLoop(ctx, p, panel.NewView(md))
		})

		err = g.Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

// promptUntilSaved 反复提示直到保存了非空凭证
func promptUntilSaved(ctx context.Context, p *panel.Panel) error {
	pterm.DefaultSection.Println(panel.SetupStepText)
	for {
		key, err := promptKey()
		if err != nil {
			return err
		}
		saved, err := p.SaveKey(ctx, key)
		if err != nil {
			return err
		}
		if saved {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// syncKey 将其他进程的 key set/reset 同步到面板状态
func syncKey(ctx context.Context, p *panel.Panel, changes <-chan store.Change) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			if c.Key != store.KeyAPIKey {
				continue
			}
			var err error
			if c.Removed {
				if p.State().HasKey() {
					err = p.ResetKey(ctx)
				}
			} else if strings.TrimSpace(c.NewValue) != "" && !p.State().HasKey() {
				// 已有凭证时无需处理：每次讲解都会从存储重新读取凭证
				_, err = p.SaveKey(ctx, c.NewValue)
			}
			if err != nil {
				app.logger.Warn("sync key failed", "error", err)
			}
		}
	}
}

// renderLoop 每次状态变更时重绘面板
func renderLoop(ctx context.Context, p *panel.Panel, view *panel.View) error {
	states, cancel, err := p.Subscribe()
	if err != nil {
		return err
	}
	defer cancel()

	area, err := pterm.DefaultArea.Start()
	if err != nil {
		return err
	}
	defer func() { _ = area.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-states:
			if !ok {
				return nil
			}
			area.Update(view.Render(s))
		}
	}
}
