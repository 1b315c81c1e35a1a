package output

import (
	"fmt"
	"io"
	"iter"

	"github.com/dshills/diffcore/internal/diff"
	"github.com/dshills/diffcore/internal/preflight"
)

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *Report) error
}

// RepoInfo identifies the repository a diff came from.
type RepoInfo struct {
	Root   string `json:"root,omitempty"`
	Head   string `json:"head,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// Report is one parsed diff ready for rendering. Hunks is consumed exactly
// once by Write; writers fill in Summary as they go.
type Report struct {
	Tool    string
	Version string
	Source  string // "unstaged", "staged", "commit", "range" or an input file name
	Range   string
	Repo    RepoInfo

	// LFM returns the Large File Mode decision for a file path. Nil means
	// Large File Mode never applies.
	LFM   func(path string) preflight.Decision
	Hunks iter.Seq2[diff.Hunk, error]

	Summary Summary
}

// Summary counts what a Write call rendered.
type Summary struct {
	Files       int `json:"files"`
	Hunks       int `json:"hunks"`
	Additions   int `json:"additions"`
	Deletions   int `json:"deletions"`
	Diagnostics int `json:"diagnostics"`
	LFMFiles    int `json:"lfmFiles"`
}

func (r *Report) decision(path string) preflight.Decision {
	if r.LFM == nil {
		return preflight.Decision{}
	}
	return r.LFM(path)
}

// tally adds h to the summary. newFile reports whether h starts a file
// section different from the previous hunk's.
func (s *Summary) tally(h diff.Hunk, newFile, lfm bool) {
	if newFile {
		s.Files++
		if lfm {
			s.LFMFiles++
		}
	}
	s.Hunks++
	s.Diagnostics += len(h.Diagnostics)
	for _, l := range h.Lines {
		switch l.Type {
		case diff.LineAdded:
			s.Additions++
		case diff.LineDeleted:
			s.Deletions++
		}
	}
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text":
		return NewTextWriter(), nil
	case "json":
		return &JSONWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
