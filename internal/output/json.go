package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dshills/diffcore/internal/diff"
	"github.com/dshills/diffcore/internal/preflight"
)

// JSONWriter outputs the report as one JSON object. Hunks are encoded as they
// arrive, so the whole diff is never held in memory.
type JSONWriter struct{}

type jsonHeader struct {
	Tool    string   `json:"tool"`
	Version string   `json:"version"`
	Source  string   `json:"source"`
	Range   string   `json:"range,omitempty"`
	Repo    RepoInfo `json:"repo"`
}

type jsonHunk struct {
	diff.Hunk
	LFM *preflight.Decision `json:"lfm,omitempty"`
}

func (j *JSONWriter) Write(w io.Writer, report *Report) error {
	ew := &errWriter{w: w}
	head, err := json.Marshal(jsonHeader{
		Tool:    report.Tool,
		Version: report.Version,
		Source:  report.Source,
		Range:   report.Range,
		Repo:    report.Repo,
	})
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	// Reopen the header object to append the hunks array.
	ew.printf("%s,\n\"hunks\": [", head[:len(head)-1])

	var (
		prev  diff.FileRef
		first = true
		lfm   *preflight.Decision
	)
	for h, err := range report.Hunks {
		if err != nil {
			return err
		}
		newFile := first || h.File != prev
		if newFile {
			lfm = nil
			if d := report.decision(h.File.Path()); d.Active {
				lfm = &d
			}
		}
		data, err := json.Marshal(jsonHunk{Hunk: h, LFM: lfm})
		if err != nil {
			return fmt.Errorf("marshaling hunk: %w", err)
		}
		if !first {
			ew.printf(",")
		}
		ew.printf("\n  %s", data)
		first, prev = false, h.File
		report.Summary.tally(h, newFile, lfm != nil)
		if ew.err != nil {
			return fmt.Errorf("writing JSON: %w", ew.err)
		}
	}

	sum, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	ew.printf("\n],\n\"summary\": %s}\n", sum)
	if ew.err != nil {
		return fmt.Errorf("writing JSON: %w", ew.err)
	}
	return nil
}
