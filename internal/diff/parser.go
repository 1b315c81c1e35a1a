package diff

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// hunkHeaderRegex matches unified diff hunk headers like:
// @@ -1,5 +1,7 @@
// @@ -0,0 +1,10 @@ (new file)
// @@ -3 +3 @@ func main() { (counts elided, section heading)
var hunkHeaderRegex = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(?: ?(.*))?$`)

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used to report diagnostics. Diagnostics are
// logged at warn level.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithDiagnosticHandler registers fn to receive every diagnostic, including
// ones that cannot be attached to a hunk (malformed headers, orphan markers).
// fn is called synchronously from the goroutine driving the iteration.
func WithDiagnosticHandler(fn func(Diagnostic)) Option {
	return func(p *Parser) {
		p.onDiag = fn
	}
}

// Parser turns a stream of unified diff lines into hunks.
//
// A Parser holds configuration only; each call to Parse has its own state, so
// one Parser may be used for any number of concurrent parses.
type Parser struct {
	logger *slog.Logger
	onDiag func(Diagnostic)
}

// NewParser creates a new diff parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse returns a lazy sequence of the hunks found in lines.
//
// Lines are pulled from the source only as the consumer asks for hunks, and
// at most one hunk is buffered. Recoverable problems are recorded as
// diagnostics and parsing continues. If the source yields an error, or ctx is
// done, the error is yielded as the final element and the partially built
// hunk is dropped. Stopping the iteration early stops pulling from lines.
func (p *Parser) Parse(ctx context.Context, lines iter.Seq2[string, error]) iter.Seq2[Hunk, error] {
	return func(yield func(Hunk, error) bool) {
		if err := ctx.Err(); err != nil {
			yield(Hunk{}, err)
			return
		}
		s := &parseState{p: p}
		for line, err := range lines {
			if err != nil {
				yield(Hunk{}, err)
				return
			}
			if err := ctx.Err(); err != nil {
				yield(Hunk{}, err)
				return
			}
			s.lineNo++
			if h, ok := s.feed(line); ok {
				if !yield(h, nil) {
					return
				}
			}
		}
		if s.state != stateScanning {
			yield(s.close(), nil)
		}
	}
}

// ParseReader parses the unified diff read from r.
func (p *Parser) ParseReader(ctx context.Context, r io.Reader) iter.Seq2[Hunk, error] {
	return p.Parse(ctx, Lines(r))
}

// ParseString parses an in-memory unified diff.
func (p *Parser) ParseString(ctx context.Context, s string) iter.Seq2[Hunk, error] {
	return p.ParseReader(ctx, strings.NewReader(s))
}

// Collect drains seq. It returns the hunks received before the first error
// together with that error.
func Collect(seq iter.Seq2[Hunk, error]) ([]Hunk, error) {
	var hunks []Hunk
	for h, err := range seq {
		if err != nil {
			return hunks, err
		}
		hunks = append(hunks, h)
	}
	return hunks, nil
}

type parseMode int

const (
	stateScanning parseMode = iota
	stateInHunk
	// stateComplete means the body counts in the header are satisfied. The
	// hunk stays open for a trailing "\ No newline" marker or overflow lines.
	stateComplete
)

type parseState struct {
	p      *Parser
	state  parseMode
	lineNo int

	file       FileRef
	cur        Hunk
	headerLine int
	oldNum     int // next old-side line number
	newNum     int // next new-side line number
	oldSeen    int
	newSeen    int
}

// feed consumes one input line and returns a hunk when the line closes one.
// A single line never closes more than one hunk.
func (s *parseState) feed(line string) (Hunk, bool) {
	if !utf8.ValidString(line) {
		line = strings.ToValidUTF8(line, "\uFFFD")
	}
	switch s.state {
	case stateInHunk:
		return s.feedHunk(line)
	case stateComplete:
		return s.feedComplete(line)
	default:
		s.feedScanning(line)
		return Hunk{}, false
	}
}

func (s *parseState) feedScanning(line string) {
	switch {
	case strings.HasPrefix(line, "@@"):
		s.open(line)
	case strings.HasPrefix(line, "diff "):
		s.file = FileRef{}
		if oldPath, newPath, ok := parseGitDiffLine(line); ok {
			s.file.OldPath, s.file.NewPath = oldPath, newPath
		}
	case strings.HasPrefix(line, "index "):
		if fields := strings.Fields(line); len(fields) >= 2 {
			s.file.Index = fields[1]
		}
	case strings.HasPrefix(line, "--- "):
		s.file.OldPath = headerPath(line[4:], "a/")
	case strings.HasPrefix(line, "+++ "):
		s.file.NewPath = headerPath(line[4:], "b/")
	case strings.HasPrefix(line, `\`):
		s.report(Diagnostic{
			Kind:    OrphanLine,
			Message: "no-newline marker outside of a hunk",
			Line:    s.lineNo,
		})
	}
}

func (s *parseState) feedHunk(line string) (Hunk, bool) {
	if line == "" {
		// Some tools strip the single space from blank context lines.
		s.appendLine(LineContext, "")
		return Hunk{}, false
	}
	switch line[0] {
	case ' ':
		s.appendLine(LineContext, line[1:])
	case '+':
		s.appendLine(LineAdded, line[1:])
	case '-':
		s.appendLine(LineDeleted, line[1:])
	case '\\':
		s.markNoNewline()
	default:
		h := s.close()
		s.feedScanning(line)
		return h, true
	}
	return Hunk{}, false
}

func (s *parseState) feedComplete(line string) (Hunk, bool) {
	switch {
	case strings.HasPrefix(line, `\`):
		s.markNoNewline()
		return Hunk{}, false
	case strings.HasPrefix(line, "--- "), strings.HasPrefix(line, "+++ "):
	case line == "-- ":
		// Signature separator that ends git format-patch output.
	case line != "" && (line[0] == ' ' || line[0] == '+' || line[0] == '-'):
		// More body than the header announced; close reports the mismatch.
		return s.feedHunk(line)
	}
	h := s.close()
	s.feedScanning(line)
	return h, true
}

func (s *parseState) open(line string) {
	h, err := ParseHeader(line)
	if err != nil {
		s.report(Diagnostic{
			Kind:    MalformedHeader,
			Message: err.Error(),
			Line:    s.lineNo,
		})
		s.state = stateScanning
		return
	}
	h.File = s.file
	s.cur = h
	s.headerLine = s.lineNo
	s.oldSeen, s.newSeen = 0, 0
	// A zero count means the start names the line before the change.
	s.oldNum = h.OldStart
	if h.OldLines == 0 {
		s.oldNum++
	}
	s.newNum = h.NewStart
	if h.NewLines == 0 {
		s.newNum++
	}
	s.state = stateInHunk
	s.checkComplete()
}

func (s *parseState) appendLine(t LineType, content string) {
	l := Line{Type: t, Content: content}
	if t != LineAdded {
		l.OldLineNum = s.oldNum
		s.oldNum++
		s.oldSeen++
	}
	if t != LineDeleted {
		l.NewLineNum = s.newNum
		s.newNum++
		s.newSeen++
	}
	s.cur.Lines = append(s.cur.Lines, l)
	s.checkComplete()
}

func (s *parseState) checkComplete() {
	if s.state == stateInHunk && s.oldSeen >= s.cur.OldLines && s.newSeen >= s.cur.NewLines {
		s.state = stateComplete
	}
}

func (s *parseState) markNoNewline() {
	if len(s.cur.Lines) == 0 {
		s.report(Diagnostic{
			Kind:    OrphanLine,
			Message: "no-newline marker before any hunk line",
			Line:    s.lineNo,
		})
		return
	}
	s.cur.Lines[len(s.cur.Lines)-1].NoNewline = true
}

// close finishes the current hunk and returns to scanning.
func (s *parseState) close() Hunk {
	h := s.cur
	if s.oldSeen != h.OldLines || s.newSeen != h.NewLines {
		d := Diagnostic{
			Kind: CountMismatch,
			Message: fmt.Sprintf("header expects -%d +%d lines, body has -%d +%d",
				h.OldLines, h.NewLines, s.oldSeen, s.newSeen),
			Line: s.headerLine,
		}
		h.Diagnostics = append(h.Diagnostics, d)
		s.report(d)
	}
	s.cur = Hunk{}
	s.state = stateScanning
	return h
}

func (s *parseState) report(d Diagnostic) {
	s.p.logger.Warn("diff parse diagnostic",
		"kind", string(d.Kind),
		"line", d.Line,
		"message", d.Message,
	)
	if s.p.onDiag != nil {
		s.p.onDiag(d)
	}
}

// ParseHeader parses a hunk header line into a Hunk with no body. Omitted
// counts default to 1.
func ParseHeader(line string) (Hunk, error) {
	m := hunkHeaderRegex.FindStringSubmatch(line)
	if m == nil {
		return Hunk{}, fmt.Errorf("invalid hunk header %q", truncate(line, 80))
	}
	nums := [4]int{}
	for i, raw := range []string{m[1], m[2], m[3], m[4]} {
		if raw == "" {
			nums[i] = 1
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Hunk{}, fmt.Errorf("invalid hunk header %q: %w", truncate(line, 80), err)
		}
		nums[i] = n
	}
	// Line numbers are 1-based; a zero start only fits an empty side.
	if nums[0] == 0 && nums[1] > 0 || nums[2] == 0 && nums[3] > 0 {
		return Hunk{}, fmt.Errorf("invalid hunk header %q: zero start with a non-zero count", truncate(line, 80))
	}
	return Hunk{
		Header:   line,
		OldStart: nums[0],
		OldLines: nums[1],
		NewStart: nums[2],
		NewLines: nums[3],
		Section:  m[5],
	}, nil
}

// parseGitDiffLine extracts both paths from "diff --git a/<old> b/<new>".
// Paths containing " b/" are ambiguous; the ---/+++ lines that follow win.
func parseGitDiffLine(line string) (string, string, bool) {
	rest, ok := strings.CutPrefix(line, "diff --git ")
	if !ok {
		return "", "", false
	}
	i := strings.LastIndex(rest, " b/")
	if i < 0 || !strings.HasPrefix(rest, "a/") {
		return "", "", false
	}
	return rest[2:i], rest[i+3:], true
}

// headerPath cleans the path of a ---/+++ line.
func headerPath(p, prefix string) string {
	// diff -u appends a tab and a timestamp.
	if i := strings.IndexByte(p, '\t'); i >= 0 {
		p = p[:i]
	}
	if p == "/dev/null" {
		return ""
	}
	return strings.TrimPrefix(p, prefix)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary.
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
