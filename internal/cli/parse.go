package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/diffcore/internal/config"
	"github.com/dshills/diffcore/internal/diff"
	"github.com/dshills/diffcore/internal/gitctx"
	"github.com/dshills/diffcore/internal/output"
	"github.com/dshills/diffcore/internal/preflight"
	"github.com/dshills/diffcore/internal/redact"
)

// Shared parse flags
var (
	flagPaths        string
	flagExclude      string
	flagContextLines int
	flagMaxDiffBytes int
	flagFormat       string
	flagOut          string
	flagLFM          string
	flagStrict       bool
	flagRedact       bool
)

func addParseFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().IntVar(&flagContextLines, "context-lines", -1, "Number of context lines in git diffs (default: preference)")
	cmd.Flags().IntVar(&flagMaxDiffBytes, "max-diff-bytes", 0, "Stop reading git diffs after this many bytes")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagLFM, "lfm", "auto", "Large file mode (auto, on, off)")
	cmd.Flags().BoolVar(&flagStrict, "strict", false, "Exit 1 when any parse diagnostic is reported")
	cmd.Flags().BoolVar(&flagRedact, "redact", false, "Mask secrets in rendered lines")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagMaxDiffBytes > 0 {
		m["maxDiffBytes"] = strconv.Itoa(flagMaxDiffBytes)
	}
	if flagRedact {
		m["redact.secrets"] = "true"
	}
	return m
}

func buildDiffOpts(cfg config.Config, prefs *config.Prefs) gitctx.DiffOptions {
	opts := gitctx.DiffOptions{
		ContextLines: prefs.ContextLines(),
		MaxDiffBytes: int64(cfg.MaxDiffBytes),
		Include:      cfg.Include,
		Exclude:      cfg.Exclude,
	}
	if flagContextLines >= 0 {
		opts.ContextLines = flagContextLines
	}
	if flagPaths != "" {
		opts.Include = splitComma(flagPaths)
	}
	if flagExclude != "" {
		opts.Exclude = append(opts.Exclude, splitComma(flagExclude)...)
	}
	return opts
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// env is what every parse-like command needs.
type env struct {
	cfg    config.Config
	prefs  *config.Prefs
	logger *slog.Logger
}

func loadEnv(cmd *cobra.Command) (env, error) {
	cfg, err := config.Load(buildOverrides())
	if err != nil {
		return env{}, err
	}
	switch flagLFM {
	case "auto", "on", "off":
	default:
		return env{}, fmt.Errorf("invalid --lfm value %q (want auto, on or off)", flagLFM)
	}
	prefs, err := loadPrefs()
	if err != nil {
		return env{}, err
	}
	return env{cfg: cfg, prefs: prefs, logger: newLogger(cmd.ErrOrStderr(), cfg)}, nil
}

func loadPrefs() (*config.Prefs, error) {
	path, err := config.DefaultStorePath()
	if err != nil {
		return nil, err
	}
	return config.LoadPrefs(config.NewFileStore(path))
}

// input is a diff that can be read more than once: once for preflight and
// once for parsing.
type input struct {
	name      string
	rangeStr  string
	repo      output.RepoInfo
	lines     func(ctx context.Context) iter.Seq2[string, error]
	truncated func() bool
}

func fileInput(path string, stdin io.Reader, excludes []string) (input, error) {
	in := input{name: path}
	if path == "-" {
		in.name = "stdin"
		// stdin cannot be rewound, so it is held in memory.
		data, err := io.ReadAll(stdin)
		if err != nil {
			return input{}, fmt.Errorf("reading stdin: %w", err)
		}
		s := string(data)
		in.lines = func(context.Context) iter.Seq2[string, error] {
			return diff.Lines(strings.NewReader(s))
		}
	} else {
		if _, err := os.Stat(path); err != nil {
			return input{}, err
		}
		in.lines = func(context.Context) iter.Seq2[string, error] {
			return func(yield func(string, error) bool) {
				f, err := os.Open(path)
				if err != nil {
					yield("", err)
					return
				}
				defer f.Close()
				for line, err := range diff.Lines(f) {
					if !yield(line, err) {
						return
					}
				}
			}
		}
	}
	if len(excludes) > 0 {
		read := in.lines
		in.lines = func(ctx context.Context) iter.Seq2[string, error] {
			return gitctx.FilterExcluded(read(ctx), excludes)
		}
	}
	return in, nil
}

func gitInput(d *gitctx.Diff) input {
	return input{
		name:      d.Mode,
		rangeStr:  d.Range,
		repo:      output.RepoInfo{Root: d.Repo.Root, Head: d.Repo.Head, Branch: d.Repo.Branch},
		lines:     d.Lines,
		truncated: d.Truncated,
	}
}

// lfmDecider returns the Large File Mode decision function for in.
func lfmDecider(ctx context.Context, in input, e env) (func(string) preflight.Decision, error) {
	switch flagLFM {
	case "off":
		return nil, nil
	case "on":
		return func(string) preflight.Decision {
			return preflight.Decision{Active: true, Reason: "--lfm on"}
		}, nil
	}
	total, files, err := preflight.AnalyzeFiles(in.lines(ctx))
	if err != nil {
		return nil, fmt.Errorf("preflight %s: %w", in.name, err)
	}
	e.logger.Debug("preflight", "input", in.name, "files", len(files),
		"bytes", total.PatchSizeBytes, "lines", total.EstimatedLines, "hunks", total.HunkCount)
	decisions := make(map[string]preflight.Decision, len(files))
	for _, f := range files {
		d := preflight.Decide(f.Path, f.Stats, e.cfg.LFM, e.prefs)
		if d.Active {
			e.logger.Info("large file mode", "path", f.Path, "reason", d.Reason)
		}
		decisions[f.Path] = d
	}
	return func(path string) preflight.Decision {
		if d, ok := decisions[path]; ok {
			return d
		}
		return preflight.Decide(path, preflight.Stats{}, e.cfg.LFM, e.prefs)
	}, nil
}

// render parses in and writes it to w in the configured format.
func render(ctx context.Context, w io.Writer, in input, e env) (output.Summary, error) {
	writer, err := output.GetWriter(e.cfg.Format)
	if err != nil {
		return output.Summary{}, err
	}
	lfm, err := lfmDecider(ctx, in, e)
	if err != nil {
		return output.Summary{}, err
	}
	parser := diff.NewParser(diff.WithLogger(e.logger.With("input", in.name)))
	hunks := parser.Parse(ctx, in.lines(ctx))
	if e.cfg.Redact.Secrets {
		hunks = redact.Hunks(hunks, e.cfg.Redact.Paths)
	}
	report := &output.Report{
		Tool:    "diffcore",
		Version: version,
		Source:  in.name,
		Range:   in.rangeStr,
		Repo:    in.repo,
		LFM:     lfm,
		Hunks:   hunks,
	}
	if err := writer.Write(w, report); err != nil {
		return report.Summary, err
	}
	if in.truncated != nil && in.truncated() {
		e.logger.Warn("diff truncated at max-diff-bytes; the last hunk may be incomplete", "input", in.name)
	}
	e.logger.Info("parsed", "input", in.name, "hunks", report.Summary.Hunks,
		"files", report.Summary.Files, "diagnostics", report.Summary.Diagnostics)
	return report.Summary, nil
}

// runInputs renders every input and sets the exit code. Inputs are parsed
// concurrently and written in argument order.
func runInputs(cmd *cobra.Command, inputs []input, e env) error {
	out := cmd.OutOrStdout()
	if flagOut != "" {
		f, err := os.Create(flagOut)
		if err != nil {
			return fail(cmd, fmt.Errorf("creating output file: %w", err))
		}
		defer f.Close()
		out = f
	}

	bufs := make([]bytes.Buffer, len(inputs))
	sums := make([]output.Summary, len(inputs))
	g, ctx := errgroup.WithContext(commandContext(cmd))
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, in := range inputs {
		g.Go(func() error {
			s, err := render(ctx, &bufs[i], in, e)
			sums[i] = s
			return err
		})
	}
	err := g.Wait()
	for i := range bufs {
		if _, werr := bufs[i].WriteTo(out); werr != nil && err == nil {
			err = fmt.Errorf("writing output: %w", werr)
		}
	}
	if err != nil {
		return fail(cmd, err)
	}

	diagnostics := 0
	for _, s := range sums {
		diagnostics += s.Diagnostics
	}
	if flagStrict && diagnostics > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d parse diagnostics reported\n", diagnostics)
		exitCode = ExitDiagnostics
	}
	return nil
}

var parseCmd = &cobra.Command{
	Use:   "parse [files...]",
	Short: "Parse unified diff files (or stdin)",
	Long:  "Parse one or more unified diff files. With no arguments, or with \"-\", the diff is read from stdin.",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			args = []string{"-"}
		}
		// Config excludes apply to repositories; diff files are only
		// filtered by an explicit --exclude.
		excludes := splitComma(flagExclude)
		var inputs []input
		for _, a := range args {
			in, err := fileInput(a, cmd.InOrStdin(), excludes)
			if err != nil {
				return fail(cmd, err)
			}
			inputs = append(inputs, in)
		}
		return runInputs(cmd, inputs, e)
	},
}

// gitCommand builds a command that parses the diff returned by get.
func gitCommand(use, short string, args cobra.PositionalArgs, get func(ctx context.Context, args []string, opts gitctx.DiffOptions) (*gitctx.Diff, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			d, err := get(commandContext(cmd), args, buildDiffOpts(e.cfg, e.prefs))
			if err != nil {
				return fail(cmd, err)
			}
			return runInputs(cmd, []input{gitInput(d)}, e)
		},
	}
}

var unstagedCmd = gitCommand("unstaged", "Parse unstaged changes (working tree vs index)", cobra.NoArgs,
	func(ctx context.Context, _ []string, opts gitctx.DiffOptions) (*gitctx.Diff, error) {
		return gitctx.Unstaged(ctx, opts)
	})

var stagedCmd = gitCommand("staged", "Parse staged changes (index vs HEAD)", cobra.NoArgs,
	func(ctx context.Context, _ []string, opts gitctx.DiffOptions) (*gitctx.Diff, error) {
		return gitctx.Staged(ctx, opts)
	})

var (
	flagParent string
)

var commitCmd = gitCommand("commit <sha>", "Parse a specific commit", cobra.ExactArgs(1),
	func(ctx context.Context, args []string, opts gitctx.DiffOptions) (*gitctx.Diff, error) {
		return gitctx.Commit(ctx, args[0], flagParent, opts)
	})

var (
	flagMergeBase bool
)

var rangeCmd = gitCommand("range <revRange>", "Parse a revision range (e.g., origin/main..HEAD)", cobra.ExactArgs(1),
	func(ctx context.Context, args []string, opts gitctx.DiffOptions) (*gitctx.Diff, error) {
		return gitctx.Range(ctx, args[0], flagMergeBase, opts)
	})

func init() {
	for _, cmd := range []*cobra.Command{
		parseCmd,
		unstagedCmd,
		stagedCmd,
		commitCmd,
		rangeCmd,
	} {
		addParseFlags(cmd)
	}

	// Commit-specific flags
	commitCmd.Flags().StringVar(&flagParent, "parent", "", "Override parent SHA (for merge commits)")

	// Range-specific flags
	rangeCmd.Flags().BoolVar(&flagMergeBase, "merge-base", true, "Use merge base for branch comparisons")
}
