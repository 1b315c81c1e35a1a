package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/diffcore/internal/config"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Manage persisted diff viewing preferences",
}

var prefsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPrefs()
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(p.Snapshot(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a preference (defaultContextLines, enableWordDiffOnDemand)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadPrefs()
		if err != nil {
			return err
		}
		if err := config.SetPref(p, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
		return nil
	},
}

var prefsOverrideCmd = &cobra.Command{
	Use:   "override <path> <on|off|clear>",
	Short: "Force large file mode on or off for a path, or clear the override",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		on, ok, err := config.ParseOverride(args[1])
		if err != nil {
			return err
		}
		p, err := loadPrefs()
		if err != nil {
			return err
		}
		if !ok {
			if err := p.ClearLFMOverride(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared large file mode override for %s\n", args[0])
			return nil
		}
		if err := p.SetLFMOverride(args[0], on); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Large file mode for %s: %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	prefsCmd.AddCommand(prefsShowCmd)
	prefsCmd.AddCommand(prefsSetCmd)
	prefsCmd.AddCommand(prefsOverrideCmd)
}
