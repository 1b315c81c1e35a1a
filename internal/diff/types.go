package diff

import (
	"encoding/json"
	"fmt"
)

// LineType represents the type of a diff line.
type LineType int

// Line types.
const (
	LineContext LineType = iota
	LineAdded
	LineDeleted
)

func (t LineType) String() string {
	switch t {
	case LineContext:
		return "context"
	case LineAdded:
		return "addition"
	case LineDeleted:
		return "deletion"
	default:
		return fmt.Sprintf("LineType(%d)", int(t))
	}
}

// MarshalJSON encodes the type by name.
func (t LineType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a type name produced by MarshalJSON.
func (t *LineType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "context":
		*t = LineContext
	case "addition":
		*t = LineAdded
	case "deletion":
		*t = LineDeleted
	default:
		return fmt.Errorf("unknown line type %q", s)
	}
	return nil
}

// Line represents a single line within a hunk.
type Line struct {
	Type       LineType `json:"type"`
	Content    string   `json:"content"`
	OldLineNum int      `json:"oldLine,omitempty"`  // 0 if line is Added
	NewLineNum int      `json:"newLine,omitempty"`  // 0 if line is Deleted
	NoNewline  bool     `json:"noNewline,omitempty"` // "\ No newline at end of file" marker
}

// HasOld reports whether the line exists on the old side.
func (l Line) HasOld() bool { return l.OldLineNum > 0 }

// HasNew reports whether the line exists on the new side.
func (l Line) HasNew() bool { return l.NewLineNum > 0 }

// FileRef identifies the file section a hunk was read from.
type FileRef struct {
	OldPath string `json:"oldPath,omitempty"`
	NewPath string `json:"newPath,omitempty"`
	Index   string `json:"index,omitempty"` // blob range from the "index" line, e.g. "3b18e51..a1c2f0d"
}

// Path returns the new path, falling back to the old path for deletions.
func (f FileRef) Path() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}

// Hunk represents a contiguous block of changes within a file.
//
// A Hunk is not modified after the parser yields it; values may be shared
// freely between goroutines.
type Hunk struct {
	Header      string       `json:"header"`    // verbatim "@@ -a,b +c,d @@ section" line
	OldStart    int          `json:"oldStart"`  // From @@ -X,...
	OldLines    int          `json:"oldLines"`  // From @@ -X,Y ...
	NewStart    int          `json:"newStart"`  // From @@ ...,+X
	NewLines    int          `json:"newLines"`  // From @@ ...,+X,Y
	Section     string       `json:"section,omitempty"`
	File        FileRef      `json:"file"`
	Lines       []Line       `json:"lines"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// OldCount returns the number of body lines on the old side (context + deletions).
func (h Hunk) OldCount() int {
	n := 0
	for _, l := range h.Lines {
		if l.Type != LineAdded {
			n++
		}
	}
	return n
}

// NewCount returns the number of body lines on the new side (context + additions).
func (h Hunk) NewCount() int {
	n := 0
	for _, l := range h.Lines {
		if l.Type != LineDeleted {
			n++
		}
	}
	return n
}

// Consistent reports whether the body line counts match the header.
func (h Hunk) Consistent() bool {
	return h.OldCount() == h.OldLines && h.NewCount() == h.NewLines
}

// DiagnosticKind classifies a recoverable parse problem.
type DiagnosticKind string

const (
	// MalformedHeader is a line starting with "@@" that is not a valid hunk header.
	MalformedHeader DiagnosticKind = "malformed-header"
	// CountMismatch is a hunk whose body does not match the counts in its header.
	CountMismatch DiagnosticKind = "count-mismatch"
	// OrphanLine is a body line found outside of any hunk.
	OrphanLine DiagnosticKind = "orphan-line"
)

// Diagnostic describes a non-fatal problem found while parsing.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
	Line    int            `json:"line"` // 1-based input line number
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %s", d.Line, d.Kind, d.Message)
}
