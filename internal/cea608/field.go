package cea608

import (
	"fmt"
	"log/slog"
	"math/bits"

	"github.com/zsiec/ccx"

	"github.com/zsiec/ccextract/internal/media"
)

// Mode is a caption display mode.
type Mode int

const (
	ModePopOn Mode = iota
	ModeRollUp
	ModePaintOn
	ModeText
)

func (m Mode) String() string {
	switch m {
	case ModePopOn:
		return "pop-on"
	case ModeRollUp:
		return "roll-up"
	case ModePaintOn:
		return "paint-on"
	case ModeText:
		return "text"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Event is a span during which one channel displayed fixed text.
type Event struct {
	Start   int64 // 90 kHz ticks
	End     int64
	Channel int // 1-4
	Mode    Mode
	Rows    []Row
}

// Stats counts what a Field has seen.
type Stats struct {
	Pairs        int64
	ParityErrors int64
	Commands     int64
	Duplicates   int64
	Characters   int64
	Events       int64
}

// Option configures a Field.
type Option func(*Field)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Field) {
		if l != nil {
			f.log = l
		}
	}
}

// WithTextLog logs every decoded character.
func WithTextLog(on bool) Option {
	return func(f *Field) { f.logText = on }
}

// WithControlLog logs the name of every applied control code.
func WithControlLog(on bool) Option {
	return func(f *Field) { f.logControl = on }
}

// WithCrossCheck runs a ccx CEA-608 decoder next to each channel and logs
// its output. It has no effect on the events produced.
func WithCrossCheck(on bool) Option {
	return func(f *Field) { f.crossCheck = on }
}

// Field decodes the byte pairs of one line-21 field. It is not safe for
// concurrent use.
type Field struct {
	field      int
	log        *slog.Logger
	logText    bool
	logControl bool
	crossCheck bool

	channels [2]*channel
	current  int // data channel selected by the last control code, -1 before any

	lastCtrl    media.BytePair
	lastWasCtrl bool
	xds         bool

	events []Event
	stats  Stats
}

// NewField returns a decoder for field 0 (CC1/CC2) or field 1 (CC3/CC4).
func NewField(field int, opts ...Option) *Field {
	f := &Field{
		field:   field,
		log:     slog.Default(),
		current: -1,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.With("component", "cea608", "field", field+1)
	for i := range f.channels {
		c := newChannel(f, field*2+i+1)
		if f.crossCheck {
			c.xcheck = ccx.NewCEA608Decoder()
		}
		f.channels[i] = c
	}
	return f
}

// Feed decodes one pair received at ticks.
func (f *Field) Feed(ticks int64, pair media.BytePair) {
	f.stats.Pairs++
	b1, ok1 := checkParity(pair[0])
	b2, ok2 := checkParity(pair[1])
	if !ok1 || !ok2 {
		if !ok1 {
			f.stats.ParityErrors++
		}
		if !ok2 {
			f.stats.ParityErrors++
		}
		f.log.Debug("parity error", "pair", pair.String(), "ticks", ticks)
	}
	if b1 == 0 && b2 == 0 {
		return
	}

	if b1 >= 0x10 && b1 <= 0x1F {
		f.xds = false
		cp := media.BytePair{b1, b2}
		if f.lastWasCtrl && cp == f.lastCtrl {
			f.lastWasCtrl = false
			f.stats.Duplicates++
			return
		}
		f.lastCtrl, f.lastWasCtrl = cp, true
		f.stats.Commands++
		f.current = int(b1 >> 3 & 0x01)
		c := f.channels[f.current]
		if f.logControl {
			f.log.Info("cc control", "channel", c.number, "ticks", ticks, "code", controlName(b1&^0x08, b2))
		}
		c.control(ticks, b1&^0x08, b2)
		c.crossCheck(b1, b2)
		return
	}
	f.lastWasCtrl = false

	// XDS packets run from a 0x01-0x0E class code to the 0x0F checksum.
	if b1 >= 0x01 && b1 <= 0x0F {
		f.xds = b1 != 0x0F
		return
	}
	if f.xds || f.current < 0 {
		return
	}

	c := f.channels[f.current]
	for _, b := range [2]byte{b1, b2} {
		if b < 0x20 {
			continue
		}
		r := basicChar(b)
		f.stats.Characters++
		if f.logText {
			f.log.Info("cc text", "channel", c.number, "ticks", ticks, "char", string(r))
		}
		c.putChar(ticks, r)
	}
	c.crossCheck(b1, b2)
}

// Flush publishes pending changes and closes every open event at ticks.
// Call it once at end of stream.
func (f *Field) Flush(ticks int64) {
	for _, c := range f.channels {
		c.publish()
		c.closeOpen(ticks)
	}
}

// Events returns the completed events in the order they were closed.
func (f *Field) Events() []Event { return f.events }

// Stats returns a snapshot of the decoder counters.
func (f *Field) Stats() Stats { return f.stats }

func (f *Field) emit(ev Event) {
	f.events = append(f.events, ev)
	f.stats.Events++
	f.log.Debug("caption event", "channel", ev.Channel, "mode", ev.Mode.String(),
		"start", ev.Start, "end", ev.End, "rows", len(ev.Rows))
}

// checkParity strips the odd-parity bit. A byte with even parity comes
// back as 0x00.
func checkParity(b byte) (byte, bool) {
	if bits.OnesCount8(b)%2 == 0 {
		return 0, false
	}
	return b & 0x7F, true
}

func controlName(c1, c2 byte) string {
	switch {
	case c2 >= 0x40:
		return fmt.Sprintf("PAC row %d", pacRow(c1, c2)+1)
	case (c1 == 0x14 || c1 == 0x15) && c2 >= 0x20 && c2 <= 0x2F:
		return miscNames[c2-0x20]
	case c1 == 0x17 && c2 >= 0x21 && c2 <= 0x23:
		return fmt.Sprintf("TO%d", c2-0x20)
	case c1 == 0x11 && c2 >= 0x20 && c2 <= 0x2F:
		return "mid-row"
	case c1 == 0x11 && c2 >= 0x30 && c2 <= 0x3F:
		return "special char"
	case (c1 == 0x12 || c1 == 0x13) && c2 >= 0x20 && c2 <= 0x3F:
		return "extended char"
	}
	return fmt.Sprintf("%02x%02x", c1, c2)
}
