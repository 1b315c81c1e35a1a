// Package diff defines the hunk data model and a streaming unified diff parser.
//
// [Parser.Parse] consumes lines from an [iter.Seq2] source and yields
// completed [Hunk] values lazily: lines are pulled only as the consumer asks
// for the next hunk, and only the hunk being assembled is held in memory.
//
// Malformed hunk headers and hunks whose body does not match the counts in
// their header are reported as [Diagnostic] values rather than errors, so a
// corrupt or truncated diff still yields every hunk that can be recovered.
// When a hunk's body and header disagree the hunk keeps every body line that
// was read and carries a [CountMismatch] diagnostic.
package diff
