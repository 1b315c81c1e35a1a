// Package output renders parsed hunks for display or machine consumption.
//
// Two formats are supported:
//   - text: human-readable terminal output (default)
//   - json: one JSON object with a header, a hunks array and a summary
//
// A [Report] carries a lazy hunk sequence, so writers render hunks as the
// parser produces them. Files in Large File Mode are rendered degraded in
// text output and annotated in JSON.
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then call
// [Writer.Write] with an [io.Writer] and a [*Report].
package output
