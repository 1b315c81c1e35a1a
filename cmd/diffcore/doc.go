// Diffcore is a CLI for parsing and viewing unified diffs.
//
// It parses diff files, stdin, and git unstaged, staged, commit, and range
// diffs lazily, switches very large files into a degraded rendering mode,
// and can watch a working tree, reusing cached hunks between refreshes.
//
// Usage:
//
//	diffcore parse change.diff          # parse a diff file
//	git diff | diffcore parse           # parse stdin
//	diffcore unstaged                   # parse working tree changes
//	diffcore commit <sha>               # parse a specific commit
//	diffcore range origin/main..HEAD    # parse a revision range
//	diffcore preflight big.diff         # show size stats and LFM decisions
//	diffcore watch                      # re-parse on every change
package main
