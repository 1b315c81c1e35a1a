package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/diffcore/internal/preflight"
)

type preflightFile struct {
	preflight.FileStats
	LFM preflight.Decision `json:"lfm"`
}

type preflightResult struct {
	Total preflight.Stats `json:"total"`
	Files []preflightFile `json:"files"`
}

var preflightCmd = &cobra.Command{
	Use:   "preflight [file]",
	Short: "Show size statistics and the large file mode decision for a diff",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		in, err := fileInput(path, cmd.InOrStdin(), nil)
		if err != nil {
			return fail(cmd, err)
		}
		total, files, err := preflight.AnalyzeFiles(in.lines(commandContext(cmd)))
		if err != nil {
			return fail(cmd, err)
		}

		res := preflightResult{Total: total}
		for _, f := range files {
			res.Files = append(res.Files, preflightFile{
				FileStats: f,
				LFM:       preflight.Decide(f.Path, f.Stats, e.cfg.LFM, e.prefs),
			})
		}

		out := cmd.OutOrStdout()
		if e.cfg.Format == "json" {
			data, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return fail(cmd, err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		fmt.Fprintf(out, "%s: %d bytes, %d lines, %d hunks (+%d -%d), longest line %d chars\n",
			in.name, total.PatchSizeBytes, total.EstimatedLines, total.HunkCount,
			total.Additions, total.Deletions, total.MaxLineLength)
		for _, f := range res.Files {
			mode := "normal"
			if f.LFM.Active {
				mode = "large file mode"
			}
			fmt.Fprintf(out, "  %s: %d lines, %d hunks, longest line %d chars: %s (%s)\n",
				f.Path, f.EstimatedLines, f.HunkCount, f.MaxLineLength, mode, f.LFM.Reason)
		}
		return nil
	},
}

func init() {
	preflightCmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json)")
}
