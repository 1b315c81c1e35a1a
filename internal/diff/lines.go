package diff

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"strings"
)

// Lines adapts r into a line source for Parser.Parse.
//
// Lines are split on '\n' only, so multibyte UTF-8 sequences are never cut,
// and there is no limit on line length. The trailing '\n' is removed; a '\r'
// before it is content and is kept. Read errors other than io.EOF are yielded
// once and end the sequence.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		br := bufio.NewReaderSize(r, 64*1024)
		for {
			line, err := br.ReadString('\n')
			if len(line) > 0 {
				if !yield(strings.TrimSuffix(line, "\n"), nil) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield("", err)
				}
				return
			}
		}
	}
}

// SliceLines adapts an in-memory slice of lines into a line source.
func SliceLines(lines []string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, l := range lines {
			if !yield(l, nil) {
				return
			}
		}
	}
}
