package preflight

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/dshills/diffcore/internal/diff"
)

// Stats summarizes a raw diff without parsing its structure.
type Stats struct {
	Additions      int   `json:"additions"`
	Deletions      int   `json:"deletions"`
	PatchSizeBytes int64 `json:"patchSizeBytes"`
	EstimatedLines int   `json:"estimatedLines"`
	MaxLineLength  int   `json:"maxLineLength"` // in characters
	HunkCount      int   `json:"hunkCount"`
}

// Analyze scans raw in a single pass.
func Analyze(raw string) Stats {
	var c counter
	for len(raw) > 0 {
		i := strings.IndexByte(raw, '\n')
		if i < 0 {
			c.line(raw)
			c.size += int64(len(raw))
			break
		}
		c.line(raw[:i])
		c.size += int64(i + 1)
		raw = raw[i+1:]
	}
	return c.stats()
}

// AnalyzeReader performs the same scan as Analyze on a stream.
func AnalyzeReader(r io.Reader) (Stats, error) {
	var c counter
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			c.size += int64(len(line))
			c.line(strings.TrimSuffix(line, "\n"))
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return c.stats(), nil
			}
			return c.stats(), fmt.Errorf("reading diff: %w", err)
		}
	}
}

// FileStats are the Stats of one file section of a multi-file diff.
type FileStats struct {
	Path string `json:"path"`
	Stats
}

// AnalyzeFiles scans a line source once and returns the stats of the whole
// diff along with the stats of each file section, in input order. A section
// starts at a "diff " line or, outside a hunk, at a "--- " line. Its path is
// the "+++" path, or the "---" path for deletions, with a/ and b/ removed.
func AnalyzeFiles(lines iter.Seq2[string, error]) (Stats, []FileStats, error) {
	var total counter
	var files []FileStats
	var cur *counter
	var path, oldPath string
	flush := func() {
		if cur != nil {
			p := path
			if p == "" {
				p = oldPath
			}
			files = append(files, FileStats{Path: p, Stats: cur.stats()})
		}
		cur, path, oldPath = nil, "", ""
	}
	for l, err := range lines {
		if err != nil {
			return total.stats(), files, err
		}
		switch {
		case strings.HasPrefix(l, "diff "):
			flush()
			cur = &counter{}
			path, oldPath = gitPaths(l)
		case !total.inHunk && strings.HasPrefix(l, "--- "):
			if cur == nil || cur.s.HunkCount > 0 {
				flush()
				cur = &counter{}
			}
			oldPath = headerPath(l[4:], "a/")
		case !total.inHunk && strings.HasPrefix(l, "+++ "):
			path = headerPath(l[4:], "b/")
		}
		total.add(l)
		if cur != nil {
			cur.add(l)
		}
	}
	flush()
	return total.stats(), files, nil
}

func gitPaths(line string) (newPath, oldPath string) {
	rest, ok := strings.CutPrefix(line, "diff --git a/")
	if !ok {
		return "", ""
	}
	i := strings.LastIndex(rest, " b/")
	if i < 0 {
		return "", ""
	}
	return rest[i+3:], rest[:i]
}

func headerPath(p, prefix string) string {
	if i := strings.IndexByte(p, '\t'); i >= 0 {
		p = p[:i]
	}
	if p == "/dev/null" {
		return ""
	}
	return strings.TrimPrefix(p, prefix)
}

type counter struct {
	s      Stats
	size   int64
	inHunk bool
	// Body lines the current hunk header still announces per side. Without
	// usable counts the hunk runs until a line that cannot be body.
	bounded          bool
	oldLeft, newLeft int
}

func (c *counter) add(l string) {
	c.size += int64(len(l)) + 1
	c.line(l)
}

func (c *counter) line(l string) {
	c.s.EstimatedLines++
	if n := utf8.RuneCountInString(l); n > c.s.MaxLineLength {
		c.s.MaxLineLength = n
	}
	if strings.HasPrefix(l, "@@ ") {
		c.s.HunkCount++
		c.inHunk = true
		h, err := diff.ParseHeader(l)
		c.bounded = err == nil
		c.oldLeft, c.newLeft = h.OldLines, h.NewLines
		c.take(0, 0)
		return
	}
	if !c.inHunk {
		return
	}
	switch {
	case l == "" || l[0] == ' ':
		c.take(1, 1)
	case l[0] == '+':
		c.s.Additions++
		c.take(0, 1)
	case l[0] == '-':
		c.s.Deletions++
		c.take(1, 0)
	case l[0] == '\\':
	default:
		c.inHunk = false
	}
}

// take consumes body lines and ends the hunk once both sides are used up.
func (c *counter) take(oldN, newN int) {
	if !c.bounded {
		return
	}
	c.oldLeft -= oldN
	c.newLeft -= newN
	if c.oldLeft <= 0 && c.newLeft <= 0 {
		c.inHunk = false
	}
}

func (c *counter) stats() Stats {
	s := c.s
	s.PatchSizeBytes = c.size
	return s
}
