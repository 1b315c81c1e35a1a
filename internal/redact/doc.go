// Package redact masks secrets in parsed hunks before they are rendered.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS access key IDs and secret access keys, bearer
// tokens, and provider-specific tokens (GitHub, Slack, Anthropic, OpenAI).
//
// Path-based redaction is also supported: hunks of files whose paths match
// configured glob patterns have every line replaced with [REDACTED] rather
// than being scanned line by line.
package redact
