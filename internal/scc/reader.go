package scc

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/zsiec/ccextract/internal/media"
)

var (
	// ErrBadHeader means the input does not start with the SCC header line.
	ErrBadHeader = errors.New("scc: missing or invalid header")
	// ErrMalformedLine means a record could not be parsed.
	ErrMalformedLine = errors.New("scc: malformed line")
)

// Parse reads an SCC document. Records must be separated by blank lines.
// Parsing stops cleanly at end of input.
func Parse(r io.Reader) (*Document, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, ErrBadHeader
	}
	header := strings.TrimPrefix(sc.Text(), "\uFEFF")
	if strings.TrimRight(header, " \t\r") != Header {
		return nil, fmt.Errorf("%w: %q", ErrBadHeader, header)
	}

	doc := &Document{}
	lineNo := 1
	expectBlank := true
	for sc.Scan() {
		lineNo++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			expectBlank = false
			continue
		}
		if expectBlank {
			return nil, fmt.Errorf("%w: line %d: expected blank line", ErrMalformedLine, lineNo)
		}
		line, err := parseDataLine(text)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedLine, lineNo, err)
		}
		doc.Lines = append(doc.Lines, line)
		expectBlank = true
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}

func parseDataLine(text string) (Line, error) {
	fields := strings.Fields(text)
	ticks, err := ParseTimeCode(fields[0])
	if err != nil {
		return Line{}, err
	}
	line := Line{Ticks: ticks, TimeCode: fields[0]}
	for _, f := range fields[1:] {
		if len(f) != 4 {
			return Line{}, fmt.Errorf("pair %q: want 4 hex digits", f)
		}
		var p media.BytePair
		if _, err := hex.Decode(p[:], []byte(f)); err != nil {
			return Line{}, fmt.Errorf("pair %q: %v", f, err)
		}
		line.Pairs = append(line.Pairs, p)
	}
	return line, nil
}

// Decode replays a parsed document into sink in file order.
func Decode(doc *Document, sink Sink) {
	for _, l := range doc.Lines {
		for _, p := range l.Pairs {
			sink.Feed(l.Ticks, p)
		}
	}
}
