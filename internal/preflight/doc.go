// Package preflight measures a raw unified diff cheaply and decides whether
// it should be shown in Large File Mode.
//
// [Analyze] makes one linear pass over the text, counting lines, bytes, hunk
// headers and +/- lines without building hunks, so it can run before deciding
// whether full parsing is worthwhile. [Thresholds.ShouldActivateLFM] trips
// when any single ceiling is exceeded. [Decide] layers per-path overrides on
// top: an explicit override always wins.
package preflight
