package cli

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/diffcore/internal/cache"
	"github.com/dshills/diffcore/internal/diff"
	"github.com/dshills/diffcore/internal/gitctx"
	"github.com/dshills/diffcore/internal/watcher"
)

// refresher re-parses a diff and keeps its hunks in a cache across runs.
// A hunk whose file, blob range and header are unchanged is checked against
// the cached copy; it counts as reused only when its body matches, otherwise
// the cached entry is replaced. Hunks that disappeared from the diff are
// removed from the cache.
type refresher struct {
	cache  *cache.Cache
	parser *diff.Parser
	live   map[string]struct{}
}

type refreshStats struct {
	Files       int
	Hunks       int
	Reused      int
	Parsed      int
	Dropped     int
	Diagnostics int
}

func newRefresher(c *cache.Cache, logger *slog.Logger) *refresher {
	return &refresher{
		cache:  c,
		parser: diff.NewParser(diff.WithLogger(logger)),
		live:   map[string]struct{}{},
	}
}

func (r *refresher) refresh(ctx context.Context, lines iter.Seq2[string, error]) (refreshStats, error) {
	var st refreshStats
	seen := make(map[string]struct{})
	var prev diff.FileRef
	first := true
	for h, err := range r.parser.Parse(ctx, lines) {
		if err != nil {
			return st, err
		}
		if first || h.File != prev {
			st.Files++
		}
		first, prev = false, h.File
		st.Hunks++
		st.Diagnostics += len(h.Diagnostics)

		key := cache.BuildKey(h.File.Path(), h.File.Index, h.Header)
		seen[key] = struct{}{}
		// Diffs without index lines keep the same key when only the body changes.
		if cached, ok := r.cache.Get(key); ok && slices.Equal(cached.Lines, h.Lines) {
			st.Reused++
			continue
		}
		r.cache.Set(key, cache.NewCachedHunk(h, h.File.Path()))
		st.Parsed++
	}
	for key := range r.live {
		if _, ok := seen[key]; !ok && r.cache.Remove(key) {
			st.Dropped++
		}
	}
	r.live = seen
	return st, nil
}

var flagWatchOnce bool

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-parse unstaged changes whenever the working tree changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv(cmd)
		if err != nil {
			return err
		}
		ctx := commandContext(cmd)
		opts := buildDiffOpts(e.cfg, e.prefs)
		opts.Dir = "."
		if len(args) == 1 {
			opts.Dir = args[0]
		}
		if _, err := gitctx.GetRepoMeta(ctx, opts.Dir); err != nil {
			return fail(cmd, err)
		}

		c := cache.New(e.cfg.Cache.MaxBytes, e.cfg.Cache.MaxEntries, cache.WithLogger(e.logger))
		r := newRefresher(c, e.logger)
		out := cmd.OutOrStdout()

		run := func() error {
			d, err := gitctx.Unstaged(ctx, opts)
			if err != nil {
				return err
			}
			st, err := r.refresh(ctx, d.Lines(ctx))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %d hunks in %d files (%d cached, %d parsed, %d dropped)\n",
				time.Now().Format(time.TimeOnly), st.Hunks, st.Files, st.Reused, st.Parsed, st.Dropped)
			cs := c.Stats()
			e.logger.Info("cache", "hits", cs.Hits, "misses", cs.Misses, "entries", cs.Entries,
				"bytes", cs.TotalBytes, "evictions", cs.Evictions)
			if st.Diagnostics > 0 {
				e.logger.Warn("parse diagnostics", "count", st.Diagnostics)
			}
			return nil
		}

		if err := run(); err != nil {
			return fail(cmd, err)
		}
		if flagWatchOnce {
			return nil
		}

		w, err := watcher.New(opts.Dir,
			watcher.WithDebounce(time.Duration(e.cfg.Watch.DebounceMs)*time.Millisecond),
			watcher.WithIgnore(e.cfg.Watch.Ignore),
			watcher.WithLogger(e.logger),
		)
		if err != nil {
			return fail(cmd, err)
		}
		w.Start()
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return nil
			case batch, ok := <-w.Changes:
				if !ok {
					return nil
				}
				e.logger.Debug("working tree changed", "paths", len(batch))
				if err := run(); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					e.logger.Error("refresh failed", "err", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return nil
				}
				e.logger.Warn("watch error", "err", err)
			}
		}
	},
}

func init() {
	watchCmd.Flags().BoolVar(&flagWatchOnce, "once", false, "Refresh once and exit")
	watchCmd.Flags().StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	watchCmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	watchCmd.Flags().IntVar(&flagContextLines, "context-lines", -1, "Number of context lines (default: preference)")
}
