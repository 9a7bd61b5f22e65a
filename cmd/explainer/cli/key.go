package cli

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/lwmacct/251215-go-pkg-explainer/pkg/panel"
	"github.com/lwmacct/251215-go-pkg-explainer/pkg/store"
)

func init() {
	keyCmd.AddCommand(keySetCmd, keyResetCmd, keyStatusCmd)
	rootCmd.AddCommand(keyCmd)
}

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the saved Gemini API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set [KEY]",
	Short: "Save the API key (prompts when omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var key string
		if len(args) == 1 {
			key = args[0]
		} else if interactive() {
			k, err := promptKey()
			if err != nil {
				return err
			}
			key = k
		} else {
			k, err := readCode(cmd.InOrStdin(), nil)
			if err != nil {
				return err
			}
			key = strings.TrimRight(k, "\r\n")
		}

		if strings.TrimSpace(key) == "" {
			pterm.Warning.WithWriter(cmd.OutOrStdout()).Println("Empty key ignored")
			return nil
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)

		if err := store.SetString(cmd.Context(), st, store.KeyAPIKey, key); err != nil {
			return err
		}
		pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("API key saved (%s)", panel.MaskKey(key))
		return nil
	},
}

var keyResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the saved API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)

		if err := st.Remove(cmd.Context(), store.KeyAPIKey); err != nil {
			return err
		}
		pterm.Success.WithWriter(cmd.OutOrStdout()).Println("API key removed")
		return nil
	},
}

var keyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether an API key is saved",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)

		key, ok, err := store.GetString(cmd.Context(), st, store.KeyAPIKey)
		if err != nil {
			return err
		}
		if !ok {
			pterm.Info.WithWriter(cmd.OutOrStdout()).Println("No API key saved. Run: explainer key set")
			return nil
		}
		pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("API key saved (%s)", panel.MaskKey(key))
		return nil
	},
}
