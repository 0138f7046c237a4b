package scc

import (
	"log/slog"
	"strings"

	"github.com/zsiec/ccextract/internal/media"
)

// Header is the first line of every SCC document.
const Header = "Scenarist_SCC V1.0"

const (
	wrapThreshold = -(int64(1) << 32)
	ptsModulus    = int64(1) << 33
)

// Sink consumes ordered pairs with ticks relative to the start of the
// track. *cea608.Field satisfies it.
type Sink interface {
	Feed(ticks int64, pair media.BytePair)
}

// Timed is one pair of an ordered stream.
type Timed struct {
	Ticks int64
	Pair  media.BytePair
}

// Line is one SCC record.
type Line struct {
	Ticks    int64 // relative to the document start
	TimeCode string
	Pairs    []media.BytePair
}

// Document is the in-memory form of one track's SCC file.
type Document struct {
	Track media.Track
	Lines []Line
}

// Events flattens the document into an ordered pair stream.
func (d *Document) Events() []Timed {
	var out []Timed
	for _, l := range d.Lines {
		for _, p := range l.Pairs {
			out = append(out, Timed{Ticks: l.Ticks, Pair: p})
		}
	}
	return out
}

// Text renders the document as SCC.
func (d *Document) Text() string {
	var b strings.Builder
	b.WriteString(Header)
	for _, l := range d.Lines {
		writeLine(&b, l)
	}
	b.WriteString("\n")
	return b.String()
}

func writeLine(b *strings.Builder, l Line) {
	b.WriteString("\n\n")
	b.WriteString(l.TimeCode)
	for i, p := range l.Pairs {
		if i == 0 {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
		b.WriteString(p.String())
	}
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithSink forwards every written line to s.
func WithSink(s Sink) WriterOption {
	return func(w *Writer) { w.sink = s }
}

// WithOverlap sets how many timestamp buckets are held back. The default
// is DefaultOverlap.
func WithOverlap(n int) WriterOption {
	return func(w *Writer) { w.overlap = n }
}

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.log = l
		}
	}
}

// Writer sequences one track's pairs and builds its SCC document.
// Pairs still held in the reorder buffer are lost unless Close is called.
type Writer struct {
	track   media.Track
	sorter  Sorter
	overlap int
	sink    Sink
	log     *slog.Logger

	offset    int64
	hasOffset bool
	lastTicks int64
	wraps     int
	dropped   int

	buf strings.Builder
	doc *Document
}

// NewWriter returns a Writer for track.
func NewWriter(track media.Track, opts ...WriterOption) *Writer {
	w := &Writer{
		track:   track,
		overlap: DefaultOverlap,
		log:     slog.Default(),
		doc:     &Document{Track: track},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.With("component", "scc", "track", track.String())
	return w
}

// Add buffers one pair and writes out any buckets that have aged past the
// reorder window.
func (w *Writer) Add(pts int64, pair media.BytePair) {
	if w.buf.Len() == 0 {
		w.buf.WriteString(Header)
	}
	w.sorter.Add(pts, pair)
	w.Flush()
}

// Flush writes every bucket older than the reorder window.
func (w *Writer) Flush() {
	w.write(w.overlap)
}

// Close drains the reorder buffer and returns the finished document and
// its SCC text. The text is empty if no pair was ever added.
func (w *Writer) Close() (*Document, string) {
	w.write(0)
	if w.buf.Len() == 0 {
		return w.doc, ""
	}
	w.buf.WriteString("\n")
	if w.dropped > 0 {
		w.log.Warn("SCC lines dropped", "count", w.dropped)
	}
	return w.doc, w.buf.String()
}

// Offset returns the PTS that maps to time code zero, once the first line
// has been written.
func (w *Writer) Offset() (int64, bool) { return w.offset, w.hasOffset }

// Wraps returns how many PTS wrap corrections were applied.
func (w *Writer) Wraps() int { return w.wraps }

// Dropped returns how many lines were discarded for bad timing.
func (w *Writer) Dropped() int { return w.dropped }

func (w *Writer) write(overlap int) {
	for _, b := range w.sorter.Drain(overlap) {
		if !w.hasOffset {
			w.offset, w.hasOffset = b.Ticks, true
		}
		delta := b.Ticks - w.offset
		if delta < wrapThreshold {
			w.offset -= ptsModulus
			w.wraps++
			delta = b.Ticks - w.offset
			w.log.Warn("PTS wrap-around", "pts", b.Ticks, "offset", w.offset)
		}
		if delta < 0 {
			w.dropped++
			w.log.Warn("negative SCC time code, line dropped", "pts", b.Ticks, "delta", delta)
			continue
		}
		if delta < w.lastTicks {
			w.dropped++
			w.log.Warn("SCC line earlier than its predecessor, dropped", "pts", b.Ticks, "delta", delta, "last", w.lastTicks)
			continue
		}
		w.lastTicks = delta

		line := Line{Ticks: delta, TimeCode: FormatTimeCode(delta), Pairs: b.Pairs}
		w.doc.Lines = append(w.doc.Lines, line)
		writeLine(&w.buf, line)
		if w.sink != nil {
			for _, p := range b.Pairs {
				w.sink.Feed(delta, p)
			}
		}
	}
}
