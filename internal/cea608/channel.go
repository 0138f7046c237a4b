package cea608

import (
	"slices"

	"github.com/zsiec/ccx"

	"github.com/zsiec/ccextract/internal/media"
)

var defaultStyle = media.Style{Color: "white"}

// channel is the state of one data channel.
type channel struct {
	f      *Field
	number int

	mode         Mode
	displayed    memory
	nonDisplayed memory
	row, col     int
	style        media.Style
	rollRows     int
	baseRow      int

	open         *Event
	pending      bool
	pendingStart int64

	xcheck *ccx.CEA608Decoder
}

func newChannel(f *Field, number int) *channel {
	return &channel{
		f:        f,
		number:   number,
		mode:     ModePopOn,
		row:      defaultRow,
		style:    defaultStyle,
		rollRows: 2,
		baseRow:  defaultRow,
	}
}

// control applies a control code whose first byte has the channel bit
// cleared.
func (c *channel) control(t int64, c1, c2 byte) {
	switch {
	case c2 >= 0x40:
		c.pac(t, c1, c2)
	case (c1 == 0x14 || c1 == 0x15 && c.f.field == 1) && c2 >= 0x20 && c2 <= 0x2F:
		c.misc(t, c2)
	case c1 == 0x17 && c2 >= 0x21 && c2 <= 0x23:
		c.col = min(c.col+int(c2-0x20), numColumns-1)
	case c1 == 0x11 && c2 >= 0x20 && c2 <= 0x2F:
		c.midRow(c2)
	case c1 == 0x11 && c2 >= 0x30 && c2 <= 0x3F:
		c.putChar(t, specialChars[c2-0x30])
	case (c1 == 0x12 || c1 == 0x13) && c2 >= 0x20 && c2 <= 0x3F:
		c.backspace(t)
		c.putChar(t, extendedChars[c1-0x12][c2-0x20])
	}
}

func (c *channel) misc(t int64, cmd byte) {
	switch cmd {
	case cmdRCL:
		c.setMode(ModePopOn)
	case cmdBS:
		c.backspace(t)
	case cmdAOF, cmdAON, cmdFON:
	case cmdDER:
		if c.mode == ModeText {
			return
		}
		c.target().clearFrom(c.row, c.col)
		c.touch(t)
	case cmdRU2, cmdRU3, cmdRU4:
		c.rollUp(t, int(cmd-cmdRU2)+2)
	case cmdRDC:
		c.setMode(ModePaintOn)
	case cmdTR, cmdRTD:
		c.setMode(ModeText)
	case cmdEDM:
		c.publish()
		c.displayed.erase()
		c.closeOpen(t)
	case cmdCR:
		c.carriageReturn(t)
	case cmdENM:
		c.nonDisplayed.erase()
	case cmdEOC:
		c.publish()
		c.mode = ModePopOn
		c.displayed, c.nonDisplayed = c.nonDisplayed, c.displayed
		c.closeOpen(t)
		c.openEvent(t)
	}
}

func (c *channel) setMode(m Mode) {
	if c.mode == m {
		return
	}
	c.publish()
	c.mode = m
}

func (c *channel) rollUp(t int64, n int) {
	if c.mode == ModePopOn || c.mode == ModePaintOn {
		c.publish()
		c.displayed.erase()
		c.nonDisplayed.erase()
		c.closeOpen(t)
		c.baseRow = defaultRow
	}
	c.mode = ModeRollUp
	c.rollRows = n
	c.baseRow = max(c.baseRow, n-1)
	c.displayed.clearOutside(c.baseRow-n+1, c.baseRow)
	c.row, c.col = c.baseRow, 0
	c.touch(t)
}

func (c *channel) carriageReturn(t int64) {
	switch c.mode {
	case ModeRollUp:
		c.closeOpen(t)
		c.displayed.rollUp(c.baseRow, c.rollRows)
		c.row, c.col = c.baseRow, 0
		c.openEvent(t)
	case ModePaintOn:
		c.publish()
	}
}

func (c *channel) pac(t int64, c1, c2 byte) {
	if c.mode == ModeText {
		return
	}
	row := pacRow(c1, c2)
	switch c.mode {
	case ModePaintOn:
		c.publish()
	case ModeRollUp:
		row = max(row, c.rollRows-1)
		if row != c.baseRow {
			c.displayed.moveWindow(c.baseRow, row, c.rollRows)
			c.baseRow = row
			c.touch(t)
		}
	}
	color, italic, indent := styleAttr(c2 >> 1 & 0x0F)
	c.style = media.Style{Color: color, Italic: italic, Underline: c2&0x01 != 0}
	c.row, c.col = row, max(indent, 0)
}

func (c *channel) midRow(c2 byte) {
	attr := c2 >> 1 & 0x07
	if attr == 7 {
		c.style.Italic = true
	} else {
		color, _, _ := styleAttr(attr)
		c.style.Color, c.style.Italic = color, false
	}
	c.style.Underline = c2&0x01 != 0
}

func (c *channel) target() *memory {
	if c.mode == ModePopOn {
		return &c.nonDisplayed
	}
	return &c.displayed
}

func (c *channel) putChar(t int64, r rune) {
	if c.mode == ModeText {
		return
	}
	c.target().put(c.row, c.col, r, c.style)
	if c.col < numColumns-1 {
		c.col++
	}
	c.touch(t)
}

func (c *channel) backspace(t int64) {
	if c.mode == ModeText || c.col == 0 {
		return
	}
	c.col--
	c.target().clearCell(c.row, c.col)
	c.touch(t)
}

// touch records a change to displayed memory. In roll-up the open event
// tracks the window as it is typed and only a carriage return starts a new
// one. In paint-on the first change after a publication sets the start of
// the next event.
func (c *channel) touch(t int64) {
	switch c.mode {
	case ModeRollUp:
		rows := c.displayed.rows()
		switch {
		case len(rows) == 0:
			c.closeOpen(t)
		case c.open == nil:
			c.openEvent(t)
		default:
			c.open.Rows = rows
		}
	case ModePaintOn:
		if !c.pending {
			c.pending, c.pendingStart = true, t
		}
	}
}

// publish turns pending displayed changes into a new open event.
func (c *channel) publish() {
	if !c.pending {
		return
	}
	c.pending = false
	if c.open != nil && slices.Equal(c.open.Rows, c.displayed.rows()) {
		return
	}
	c.closeOpen(c.pendingStart)
	c.openEvent(c.pendingStart)
}

func (c *channel) openEvent(t int64) {
	rows := c.displayed.rows()
	if len(rows) == 0 {
		return
	}
	c.open = &Event{Start: t, Channel: c.number, Mode: c.mode, Rows: rows}
}

// closeOpen ends the open event at t. Events that would last no time are
// discarded.
func (c *channel) closeOpen(t int64) {
	if c.open == nil {
		return
	}
	ev := *c.open
	c.open = nil
	if t <= ev.Start {
		c.f.log.Debug("empty caption event dropped", "channel", c.number, "start", ev.Start, "end", t)
		return
	}
	ev.End = t
	c.f.emit(ev)
}

func (c *channel) crossCheck(b1, b2 byte) {
	if c.xcheck == nil {
		return
	}
	if text := c.xcheck.Decode(b1, b2); text != "" {
		c.f.log.Debug("ccx cross-check", "channel", c.number, "text", text)
	}
}
