package gitctx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/dshills/diffcore/internal/diff"
)

// DiffOptions controls how diffs are gathered.
type DiffOptions struct {
	Dir          string // repository working directory; "" means the process cwd
	ContextLines int    // passed as -U<n>; negative leaves git's default
	MaxDiffBytes int64  // stop streaming after this many bytes; 0 means no limit
	Include      []string
	Exclude      []string
}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string `json:"root"`
	Head   string `json:"head,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// Diff is a git diff that has not been run yet. Each call to Lines runs git
// again and streams its output.
type Diff struct {
	Mode  string
	Range string
	Repo  RepoMeta

	args      []string
	opts      DiffOptions
	truncated atomic.Bool
}

// Args returns the git arguments the diff runs with.
func (d *Diff) Args() []string {
	return append([]string(nil), d.args...)
}

// Truncated reports whether the last Lines run stopped at MaxDiffBytes.
func (d *Diff) Truncated() bool {
	return d.truncated.Load()
}

// Lines runs git and yields its output one line at a time, with excluded
// file sections removed. Breaking out of the loop or cancelling ctx kills
// the git process.
func (d *Diff) Lines(ctx context.Context) iter.Seq2[string, error] {
	d.truncated.Store(false)
	seq := Stream(ctx, d.opts.Dir, d.args...)
	if len(d.opts.Exclude) > 0 {
		seq = FilterExcluded(seq, d.opts.Exclude)
	}
	if d.opts.MaxDiffBytes > 0 {
		seq = limitBytes(seq, d.opts.MaxDiffBytes, &d.truncated)
	}
	return seq
}

// GetRepoMeta collects repository metadata from git.
func GetRepoMeta(ctx context.Context, dir string) (RepoMeta, error) {
	root, err := gitOutput(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return RepoMeta{}, fmt.Errorf("not a git repository: %w", err)
	}
	head, err := gitOutput(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := gitOutput(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   strings.TrimSpace(root),
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}, nil
}

// Unstaged returns the diff of working tree vs index.
func Unstaged(ctx context.Context, opts DiffOptions) (*Diff, error) {
	return newDiff(ctx, "unstaged", "", opts, "diff")
}

// Staged returns the diff of index vs HEAD.
func Staged(ctx context.Context, opts DiffOptions) (*Diff, error) {
	return newDiff(ctx, "staged", "", opts, "diff", "--cached")
}

// Commit returns the diff for a specific commit vs its parent, or vs parent
// when it is not empty. A root commit is diffed against the empty tree.
func Commit(ctx context.Context, sha, parent string, opts DiffOptions) (*Diff, error) {
	if _, err := gitOutput(ctx, opts.Dir, "rev-parse", "--verify", "--quiet", sha+"^{commit}"); err != nil {
		return nil, fmt.Errorf("unknown commit %s: %w", sha, err)
	}
	if parent != "" {
		return newDiff(ctx, "commit", sha, opts, "diff", parent, sha)
	}
	if _, err := gitOutput(ctx, opts.Dir, "rev-parse", "--verify", "--quiet", sha+"~1"); err != nil {
		return newDiff(ctx, "commit", sha, opts, "show", "--format=", sha)
	}
	return newDiff(ctx, "commit", sha, opts, "diff", sha+"~1", sha)
}

// Range returns the combined diff for a revision range. With mergeBase, "a..b"
// is diffed as "a...b".
func Range(ctx context.Context, revRange string, mergeBase bool, opts DiffOptions) (*Diff, error) {
	diffRange := revRange
	if mergeBase && strings.Contains(revRange, "..") && !strings.Contains(revRange, "...") {
		diffRange = strings.Replace(revRange, "..", "...", 1)
	}
	return newDiff(ctx, "range", revRange, opts, "diff", diffRange)
}

func newDiff(ctx context.Context, mode, rangeStr string, opts DiffOptions, cmd ...string) (*Diff, error) {
	meta, err := GetRepoMeta(ctx, opts.Dir)
	if err != nil {
		return nil, err
	}
	return &Diff{
		Mode:  mode,
		Range: rangeStr,
		Repo:  meta,
		args:  append(cmd, buildDiffArgs(opts)...),
		opts:  opts,
	}, nil
}

func buildDiffArgs(opts DiffOptions) []string {
	args := []string{"--no-color", "--no-ext-diff"}
	if opts.ContextLines >= 0 {
		args = append(args, fmt.Sprintf("-U%d", opts.ContextLines))
	}
	args = append(args, "--")
	for _, p := range opts.Include {
		if p != "**/*" {
			args = append(args, p)
		}
	}
	return args
}

// Stream runs git with args in dir and yields stdout line by line. A non-zero
// exit is yielded as the final error, with git's stderr attached.
func Stream(ctx context.Context, dir string, args ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		cmd := exec.CommandContext(ctx, "git", args...)
		cmd.Dir = dir
		var stderr bytes.Buffer
		cmd.Stderr = &stderr
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			yield("", fmt.Errorf("git %s: %w", args[0], err))
			return
		}
		if err := cmd.Start(); err != nil {
			yield("", fmt.Errorf("git %s: %w", args[0], err))
			return
		}
		stop := func() {
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
		}
		for line, err := range diff.Lines(stdout) {
			if err != nil {
				stop()
				yield("", fmt.Errorf("reading git output: %w", err))
				return
			}
			if !yield(line, nil) {
				stop()
				return
			}
		}
		if err := cmd.Wait(); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				yield("", ctxErr)
				return
			}
			yield("", gitError(args, err, stderr.String()))
		}
	}
}

// FilterExcluded drops every file section whose path matches one of the
// exclude patterns. Lines before the first "diff --git" header pass through.
func FilterExcluded(lines iter.Seq2[string, error], excludes []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		skip := false
		for line, err := range lines {
			if err != nil {
				yield("", err)
				return
			}
			if strings.HasPrefix(line, "diff --git ") {
				path := sectionPath(line)
				skip = path != "" && MatchesAny(path, excludes)
			}
			if skip {
				continue
			}
			if !yield(line, nil) {
				return
			}
		}
	}
}

// limitBytes ends the sequence at the last whole line that fits in max bytes.
func limitBytes(lines iter.Seq2[string, error], max int64, truncated *atomic.Bool) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var n int64
		for line, err := range lines {
			if err != nil {
				yield("", err)
				return
			}
			n += int64(len(line)) + 1
			if n > max {
				truncated.Store(true)
				return
			}
			if !yield(line, nil) {
				return
			}
		}
	}
}

// sectionPath returns the new-side path of a "diff --git a/x b/y" line.
func sectionPath(line string) string {
	rest := strings.TrimPrefix(line, "diff --git ")
	if i := strings.LastIndex(rest, " b/"); i >= 0 {
		return rest[i+3:]
	}
	return ""
}

// MatchesAny returns true if the path matches any of the given glob patterns.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		matched, err := filepath.Match(pattern, path)
		if err == nil && matched {
			return true
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			matched, err = filepath.Match(clean, filepath.Base(path))
			if err == nil && matched {
				return true
			}
			matched, err = filepath.Match(clean, path)
			if err == nil && matched {
				return true
			}
		}
		// "dir/**" also covers nested paths below dir.
		if prefix, ok := strings.CutSuffix(clean, "/**"); ok && !strings.ContainsAny(prefix, "*?[") {
			if strings.HasPrefix(path, prefix+"/") || strings.Contains(path, "/"+prefix+"/") {
				return true
			}
		}
	}
	return false
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), gitError(args, err, string(exitErr.Stderr))
		}
		return "", err
	}
	return string(out), nil
}

func gitError(args []string, err error, stderr string) error {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return fmt.Errorf("git %s: %w", args[0], err)
	}
	return fmt.Errorf("git %s: %w: %s", args[0], err, stderr)
}
