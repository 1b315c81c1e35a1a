package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/diffcore/internal/config"
	"github.com/dshills/diffcore/internal/preflight"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage diffcore configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}

		if _, err := os.Stat(path); err == nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Config file already exists at %s\n", path)
			return nil
		}

		cfg := config.Default()
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Config file created at %s\n", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Start from the defaults so the saved file never carries zero ceilings
		// the user did not ask for.
		cfg, err := config.LoadFileOnDefaults()
		if err != nil {
			return err
		}

		if err := config.SetField(&cfg, args[0], args[1]); err != nil {
			return err
		}

		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Set %s = %s\n", args[0], args[1])
		if strings.HasPrefix(args[0], "lfm.") {
			effective, err := config.Load(nil)
			if err != nil {
				return err
			}
			writeThresholds(out, effective.LFM)
		}
		return nil
	},
}

var configLFMCmd = &cobra.Command{
	Use:   "lfm",
	Short: "Show the Large File Mode thresholds in effect",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			return err
		}
		writeThresholds(cmd.OutOrStdout(), cfg.LFM)
		return nil
	},
}

func writeThresholds(w io.Writer, t preflight.Thresholds) {
	fmt.Fprintln(w, "LFM thresholds:")
	fmt.Fprintf(w, "  lfm.maxPatchBytes  %s\n", ceiling(t.MaxPatchBytes))
	fmt.Fprintf(w, "  lfm.maxLines       %s\n", ceiling(int64(t.MaxLines)))
	fmt.Fprintf(w, "  lfm.maxLineLength  %s\n", ceiling(int64(t.MaxLineLength)))
	fmt.Fprintf(w, "  lfm.maxHunks       %s\n", ceiling(int64(t.MaxHunks)))
}

// ceiling renders a threshold; zero disables it.
func ceiling(n int64) string {
	if n == 0 {
		return "disabled"
	}
	return strconv.FormatInt(n, 10)
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configLFMCmd)
}
