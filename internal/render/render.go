// Package render serializes cues as SRT or WebVTT through go-astisub.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/asticode/go-astisub"

	"github.com/zsiec/ccextract/internal/media"
)

// ErrNoCaptions is returned when there is nothing to write.
var ErrNoCaptions = errors.New("no captions found")

// Format is a subtitle output format.
type Format int

const (
	FormatSRT Format = iota
	FormatVTT
)

func (f Format) String() string {
	switch f {
	case FormatSRT:
		return "SRT"
	case FormatVTT:
		return "VTT"
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// Ext returns the conventional file extension, with the dot.
func (f Format) Ext() string {
	if f == FormatVTT {
		return ".vtt"
	}
	return ".srt"
}

// ParseFormat accepts "srt", "vtt" or "webvtt" in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SRT":
		return FormatSRT, nil
	case "VTT", "WEBVTT":
		return FormatVTT, nil
	}
	return 0, fmt.Errorf("unknown subtitle format %q", s)
}

// Render writes cues in order. An empty cue list returns ErrNoCaptions.
func Render(cues []media.Cue, f Format) (string, error) {
	if len(cues) == 0 {
		return "", ErrNoCaptions
	}
	subs := astisub.NewSubtitles()
	for _, c := range cues {
		item := &astisub.Item{StartAt: c.Start, EndAt: c.End}
		for _, line := range strings.Split(c.Text, "\n") {
			item.Lines = append(item.Lines, astisub.Line{
				Items: []astisub.LineItem{{Text: line}},
			})
		}
		subs.Items = append(subs.Items, item)
	}

	var buf bytes.Buffer
	var err error
	switch f {
	case FormatSRT:
		err = subs.WriteToSRT(&buf)
	case FormatVTT:
		err = subs.WriteToWebVTT(&buf)
	default:
		return "", fmt.Errorf("render: unsupported format %v", f)
	}
	if err != nil {
		return "", fmt.Errorf("render %v: %w", f, err)
	}
	return strings.TrimPrefix(buf.String(), "\uFEFF"), nil
}
