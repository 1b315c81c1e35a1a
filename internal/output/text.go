package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dshills/diffcore/internal/diff"
)

// TextWriter outputs a human-readable text rendering of the hunks.
//
// For files in Large File Mode it degrades the rendering: line content is cut
// to Width display columns and at most MaxHunkLines lines of each hunk are
// printed.
type TextWriter struct {
	Width        int
	MaxHunkLines int
}

// NewTextWriter returns a TextWriter with the default Large File Mode limits.
func NewTextWriter() *TextWriter {
	return &TextWriter{Width: 160, MaxHunkLines: 200}
}

func (t *TextWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}

	ew.printf("%s: %s\n", report.Tool, report.Source)
	if report.Range != "" {
		ew.printf("Range: %s\n", report.Range)
	}
	if report.Repo.Root != "" {
		ew.printf("Repository: %s (branch: %s)\n", report.Repo.Root, report.Repo.Branch)
	}
	ew.println(strings.Repeat("─", 60))

	var (
		prev  diff.FileRef
		first = true
		lfm   bool
	)
	for h, err := range report.Hunks {
		if err != nil {
			return err
		}
		newFile := first || h.File != prev
		if newFile {
			d := report.decision(h.File.Path())
			lfm = d.Active
			ew.printf("\n== %s", fileLabel(h.File))
			if h.File.Index != "" {
				ew.printf(" (index %s)", h.File.Index)
			}
			ew.println("")
			if lfm {
				ew.printf("   [large file mode: %s]\n", d.Reason)
			}
		}
		first, prev = false, h.File
		report.Summary.tally(h, newFile, lfm)

		t.writeHunk(ew, h, lfm)
		if ew.err != nil {
			return ew.err
		}
	}

	s := report.Summary
	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Hunks: %d in %d files (+%d -%d)", s.Hunks, s.Files, s.Additions, s.Deletions)
	if s.Diagnostics > 0 {
		ew.printf(", %d diagnostics", s.Diagnostics)
	}
	if s.LFMFiles > 0 {
		ew.printf(", %d in large file mode", s.LFMFiles)
	}
	ew.println("")
	return ew.err
}

func (t *TextWriter) writeHunk(ew *errWriter, h diff.Hunk, lfm bool) {
	ew.println(h.Header)
	for _, d := range h.Diagnostics {
		ew.printf("  ! %s\n", d)
	}
	lines := h.Lines
	hidden := 0
	if lfm && t.MaxHunkLines > 0 && len(lines) > t.MaxHunkLines {
		hidden = len(lines) - t.MaxHunkLines
		lines = lines[:t.MaxHunkLines]
	}
	for _, l := range lines {
		content := l.Content
		if lfm && t.Width > 0 {
			content = runewidth.Truncate(content, t.Width, "…")
		}
		ew.printf("%5s %5s %s %s\n", lineNum(l.OldLineNum), lineNum(l.NewLineNum), marker(l.Type), content)
		if l.NoNewline {
			ew.println(`            \ No newline at end of file`)
		}
	}
	if hidden > 0 {
		ew.printf("            ... %d more lines\n", hidden)
	}
}

func fileLabel(f diff.FileRef) string {
	switch {
	case f.OldPath == "" && f.NewPath == "":
		return "(unnamed)"
	case f.OldPath == "":
		return f.NewPath + " (new)"
	case f.NewPath == "":
		return f.OldPath + " (deleted)"
	case f.OldPath != f.NewPath:
		return f.OldPath + " -> " + f.NewPath
	default:
		return f.NewPath
	}
}

func lineNum(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprint(n)
}

func marker(t diff.LineType) string {
	switch t {
	case diff.LineAdded:
		return "+"
	case diff.LineDeleted:
		return "-"
	default:
		return " "
	}
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
