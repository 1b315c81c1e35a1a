package redact

import (
	"iter"
	"regexp"

	"github.com/dshills/diffcore/internal/diff"
	"github.com/dshills/diffcore/internal/gitctx"
)

const placeholder = "[REDACTED]"

// secretPatterns are regex heuristics for common secret types.
var secretPatterns = []*regexp.Regexp{
	// Generic API keys (long hex/base64 strings after common key patterns)
	regexp.MustCompile(`(?i)(api[_-]?key|apikey|api[_-]?secret)\s*[:=]\s*["']?([A-Za-z0-9/+=_-]{20,})["']?`),
	// AWS access key IDs
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	// AWS secret access keys
	regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)\s*[:=]\s*["']?([A-Za-z0-9/+=]{40})["']?`),
	// Generic secrets/tokens/passwords in assignments
	regexp.MustCompile(`(?i)(secret|token|password|passwd|credential)\s*[:=]\s*["']([^"']{8,})["']`),
	// Bearer tokens
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._-]{20,}`),
	// JWTs (three base64 segments separated by dots)
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`),
	// Private key blocks
	regexp.MustCompile(`-----BEGIN\s+(RSA\s+)?PRIVATE KEY-----`),
	// GitHub tokens
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{36,}`),
	// Slack tokens
	regexp.MustCompile(`xox[bporas]-[A-Za-z0-9-]{10,}`),
	// Anthropic API keys
	regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
	// OpenAI API keys
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),
	// Generic long hex strings that look like secrets (32+ chars in an assignment)
	regexp.MustCompile(`(?i)(key|secret|token)\s*[:=]\s*["']?[0-9a-f]{32,}["']?`),
}

// Secrets replaces detected secrets in text with [REDACTED].
func Secrets(text string) string {
	result := text
	for _, pat := range secretPatterns {
		result = pat.ReplaceAllLiteralString(result, placeholder)
	}
	return result
}

// ShouldRedactPath reports whether path matches one of the path patterns.
func ShouldRedactPath(path string, patterns []string) bool {
	return path != "" && gitctx.MatchesAny(path, patterns)
}

// Hunk returns a copy of h with secrets masked in every line. When the
// file matches one of paths, every line's content is replaced instead.
// Line numbers, types and counts are left alone.
func Hunk(h diff.Hunk, paths []string) diff.Hunk {
	whole := ShouldRedactPath(h.File.Path(), paths)
	lines := make([]diff.Line, len(h.Lines))
	for i, l := range h.Lines {
		if whole {
			l.Content = placeholder
		} else {
			l.Content = Secrets(l.Content)
		}
		lines[i] = l
	}
	h.Lines = lines
	return h
}

// Hunks applies Hunk to every hunk of seq.
func Hunks(seq iter.Seq2[diff.Hunk, error], paths []string) iter.Seq2[diff.Hunk, error] {
	return func(yield func(diff.Hunk, error) bool) {
		for h, err := range seq {
			if err != nil {
				yield(diff.Hunk{}, err)
				return
			}
			if !yield(Hunk(h, paths), nil) {
				return
			}
		}
	}
}
