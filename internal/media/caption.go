// Package media defines the caption data types that flow through the
// ccextract pipeline, from demuxing through cue export.
package media

import (
	"fmt"
	"time"
)

// Source identifies where in the video elementary stream a caption byte pair
// was carried.
type Source int

const (
	// SourceEmbedded is DVD-style "CC" user data in MPEG-2 video.
	SourceEmbedded Source = iota
	// SourceSCTE is SCTE-20 user data in MPEG-2 video.
	SourceSCTE
	// SourceATSC is A/53 GA94 cc_data, in MPEG-2 picture user data or in
	// H.264/H.265 SEI.
	SourceATSC
)

func (s Source) String() string {
	switch s {
	case SourceEmbedded:
		return "EMBEDDED"
	case SourceSCTE:
		return "SCTE"
	case SourceATSC:
		return "ATSC"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// BytePair is one line-21 transmission unit: two bytes, parity bits intact.
type BytePair [2]byte

// String formats the pair as the four lowercase hex digits used by SCC.
func (p BytePair) String() string {
	return fmt.Sprintf("%02x%02x", p[0], p[1])
}

// IsNull reports whether both bytes are zero after stripping parity.
func (p BytePair) IsNull() bool {
	return p[0]&0x7F == 0 && p[1]&0x7F == 0
}

// ByteEvent is a caption byte pair with the presentation time of the
// access unit that carried it.
type ByteEvent struct {
	PTS    int64 // 90 kHz ticks
	Pair   BytePair
	Source Source
	Field  int // 0 = field 1 (CC1/CC2), 1 = field 2 (CC3/CC4)
}

// Track groups ByteEvents that form one continuous caption stream.
type Track struct {
	Source Source
	Field  int
}

func (t Track) String() string {
	return fmt.Sprintf("%s/field%d", t.Source, t.Field+1)
}

// Style carries the presentation attributes a cue was painted with.
type Style struct {
	Color     string
	Italic    bool
	Underline bool
}

// Cue is a flat timed caption ready for export.
type Cue struct {
	Start   time.Duration
	End     time.Duration
	Text    string
	Style   Style
	Channel int // 1-4
}

// TicksPerSecond is the MPEG system clock rate used for PTS values.
const TicksPerSecond = 90000

// TicksToDuration converts 90 kHz ticks to a time.Duration.
func TicksToDuration(ticks int64) time.Duration {
	return time.Duration(ticks) * time.Second / TicksPerSecond
}
