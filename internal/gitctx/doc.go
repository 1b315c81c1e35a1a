// Package gitctx streams diffs out of a git repository.
//
// [Unstaged], [Staged], [Commit] and [Range] describe a diff without running
// it. [Diff.Lines] starts git and yields its output one line at a time, so the
// diff parser reads it lazily and a consumer that stops early kills git
// instead of waiting for the whole patch. File sections matching the exclude
// globs are dropped from the stream, and MaxDiffBytes ends it at a line
// boundary.
package gitctx
