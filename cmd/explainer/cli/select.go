package cli

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/capture"
)

func init() {
	rootCmd.AddCommand(selectCmd)
}

var selectCmd = &cobra.Command{
	Use:   "select [FILE|-]",
	Short: "Capture a code selection for the running panel",
	Long: `select stores code as the current selection, the way the
"Explain this code with AI" menu entry does. A running "explainer panel"
picks it up and explains it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := readCode(cmd.InOrStdin(), args)
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)

		c := capture.New(capture.NewMenu(), st, nil, capture.WithLogger(app.logger))
		c.Install(cmd.Context())

		handled, err := c.HandleClick(cmd.Context(), capture.ClickInfo{
			MenuItemID:    capture.MenuItemID,
			SelectionText: code,
		})
		if err != nil {
			return err
		}
		if !handled {
			pterm.Warning.WithWriter(cmd.OutOrStdout()).Println("Empty selection ignored")
			return nil
		}
		pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Selection captured (%d bytes)", len(code))
		return nil
	},
}
