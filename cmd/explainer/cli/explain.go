package cli

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/explain"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/panel"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/store"
)

var explainKey string

func init() {
	explainCmd.Flags().StringVar(&explainKey, "key", "", "API key for this call only (default: saved key)")
	rootCmd.AddCommand(explainCmd)
}

var explainCmd = &cobra.Command{
	Use:   "explain [FILE|-]",
	Short: "Explain code once and print the rendered result",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		code, err := readCode(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		key := explainKey
		if key == "" {
			st, err := openStore()
			if err != nil {
				return err
			}
			key, _, err = store.GetString(ctx, st, store.KeyAPIKey)
			closeStore(st)
			if err != nil {
				return err
			}
		}
		if key == "" && app.cfg.Provider.Type.RequiresAPIKey() {
			return errors.New("no API key saved, run: explainer key set")
		}

		e, err := newExplainer()
		if err != nil {
			return err
		}
		md, err := newMarkdown()
		if err != nil {
			return err
		}

		var spinner *pterm.SpinnerPrinter
		if stderrIsTerminal(cmd.ErrOrStderr()) {
			spinner, _ = pterm.DefaultSpinner.
				WithWriter(cmd.ErrOrStderr()).
				WithRemoveWhenDone(true).
				Start(panel.ThinkingText)
		}
		var text string
		if app.cfg.Explain.Stream {
			text, err = e.ExplainStream(ctx, code, key, nil)
		} else {
			text, err = e.Explain(ctx, code, key)
		}
		if spinner != nil {
			_ = spinner.Stop()
		}

		if err != nil {
			pterm.Error.WithWriter(cmd.ErrOrStderr()).Println(explain.FormatError(err))
			return reportedError{err}
		}
		fmt.Fprint(cmd.OutOrStdout(), md.Render(text))
		return nil
	},
}
