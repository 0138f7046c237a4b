// Package pipeline runs the caption extraction stages for one input:
// demux, per-track SCC sequencing, CEA-608 decoding, cue assembly and
// rendering. Each call is synchronous and owns all of its state.
package pipeline

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/zsiec/ccextract/internal/cea608"
	"github.com/zsiec/ccextract/internal/cues"
	"github.com/zsiec/ccextract/internal/demux"
	"github.com/zsiec/ccextract/internal/media"
	"github.com/zsiec/ccextract/internal/mpegts"
	"github.com/zsiec/ccextract/internal/progress"
	"github.com/zsiec/ccextract/internal/render"
	"github.com/zsiec/ccextract/internal/scc"
)

// ErrNoCaptions means the input was readable but carried no captions.
var ErrNoCaptions = render.ErrNoCaptions

const ptsModulus = int64(1) << 33

// Options controls one extraction.
type Options struct {
	Format     render.Format
	NoMerge    bool
	SplitLines bool
	MergeGap   time.Duration
	// Reorder is the number of timestamp groups held back to undo frame
	// reordering.
	Reorder int
	// Channel selects CC1-CC4. Zero picks the channel of the earliest cue.
	Channel    int
	PacketSize int

	Logger   *slog.Logger
	Progress progress.Func
	Total    int64 // input size for progress, 0 if unknown

	LogVideo bool
	LogAudio bool
	LogText  bool
	LogCC    bool
}

// DefaultOptions returns the options the CLI starts from.
func DefaultOptions() Options {
	return Options{
		Format:     render.FormatSRT,
		MergeGap:   cues.DefaultMergeGap,
		Reorder:    scc.DefaultOverlap,
		PacketSize: mpegts.PacketSize,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// TrackSummary describes one caption track.
type TrackSummary struct {
	Track        media.Track
	Pairs        int
	Lines        int
	Dropped      int
	Wraps        int
	Events       int
	ParityErrors int64
}

// Summary reports what an extraction found.
type Summary struct {
	Codec         string
	VideoPID      uint16
	Tracks        []TrackSummary
	DTVCCServices []int
	Stream        mpegts.Stats
	// Exported is the track and channel that produced subtitles.
	Exported *media.Track
	Channel  int
	Cues     int
}

func (s *Summary) track(t media.Track) *TrackSummary {
	for i := range s.Tracks {
		if s.Tracks[i].Track == t {
			return &s.Tracks[i]
		}
	}
	s.Tracks = append(s.Tracks, TrackSummary{Track: t})
	return &s.Tracks[len(s.Tracks)-1]
}

func (s *Summary) log(l *slog.Logger) {
	l.Info("extraction summary",
		"codec", s.Codec,
		"video_pid", s.VideoPID,
		"tracks", len(s.Tracks),
		"dtvcc_services", s.DTVCCServices,
		"discontinuities", s.Stream.Discontinuities,
		"transport_errors", s.Stream.TransportErrors,
		"malformed_pes", s.Stream.MalformedPES,
		"channel", s.Channel,
		"cues", s.Cues)
	for _, t := range s.Tracks {
		l.Info("caption track", "track", t.Track.String(), "pairs", t.Pairs,
			"lines", t.Lines, "dropped", t.Dropped, "wraps", t.Wraps,
			"events", t.Events, "parity_errors", t.ParityErrors)
	}
}

// SCCFile is the SCC rendition of one caption track.
type SCCFile struct {
	Name    string // caption source, e.g. ATSC
	Field   int    // 1 or 2
	Content string
}

func extract(ctx context.Context, r io.Reader, opts Options) (*demux.Result, *Summary, error) {
	ex := demux.NewExtractor(r,
		demux.WithLogger(opts.Logger),
		demux.WithProgress(opts.Progress, opts.Total),
		demux.WithPacketSize(opts.PacketSize),
		demux.WithVideoLog(opts.LogVideo),
		demux.WithAudioLog(opts.LogAudio),
	)
	res, err := ex.Run(ctx)
	if err != nil {
		return nil, nil, err
	}
	sum := &Summary{
		Codec:         res.Codec,
		VideoPID:      res.VideoPID,
		DTVCCServices: res.DTVCCServices,
		Stream:        res.Stats,
	}
	for _, t := range res.Order {
		sum.track(t).Pairs = len(res.Tracks[t])
	}
	return res, sum, nil
}

// sequence orders one track's pairs through an SCC writer, feeding sink if
// it is not nil.
func sequence(res *demux.Result, t media.Track, sink scc.Sink, opts Options, sum *Summary) (*scc.Writer, *scc.Document, string) {
	wopts := []scc.WriterOption{scc.WithOverlap(opts.Reorder), scc.WithLogger(opts.Logger)}
	if sink != nil {
		wopts = append(wopts, scc.WithSink(sink))
	}
	w := scc.NewWriter(t, wopts...)
	for _, ev := range res.Tracks[t] {
		w.Add(ev.PTS, ev.Pair)
	}
	doc, text := w.Close()
	ts := sum.track(t)
	ts.Lines, ts.Dropped, ts.Wraps = len(doc.Lines), w.Dropped(), w.Wraps()
	return w, doc, text
}

// ExtractSCC demuxes r and returns one SCC document per caption track, in
// the order the tracks were first seen.
func ExtractSCC(ctx context.Context, r io.Reader, opts Options) ([]SCCFile, *Summary, error) {
	res, sum, err := extract(ctx, r, opts)
	if err != nil {
		return nil, nil, err
	}
	var files []SCCFile
	for _, t := range res.Order {
		_, _, text := sequence(res, t, nil, opts, sum)
		if text == "" {
			continue
		}
		files = append(files, SCCFile{Name: t.Source.String(), Field: t.Field + 1, Content: text})
	}
	sum.log(opts.logger())
	if len(files) == 0 {
		return nil, sum, ErrNoCaptions
	}
	return files, sum, nil
}

// ExtractSubtitles demuxes r, decodes each caption track in first-seen
// order and renders the first one that yields cues.
func ExtractSubtitles(ctx context.Context, r io.Reader, opts Options) (string, *Summary, error) {
	res, sum, err := extract(ctx, r, opts)
	if err != nil {
		return "", nil, err
	}
	defer sum.log(opts.logger())

	for _, t := range res.Order {
		if opts.Channel != 0 && (opts.Channel-1)/2 != t.Field {
			continue
		}
		field := newField(t.Field, opts)
		w, doc, _ := sequence(res, t, field, opts, sum)
		field.Flush(streamEnd(res.LastPTS, w, doc))

		ts := sum.track(t)
		ts.Events = len(field.Events())
		ts.ParityErrors = field.Stats().ParityErrors

		cs, ch := selectChannel(field.Events(), opts)
		if len(cs) == 0 {
			continue
		}
		out, err := render.Render(cs, opts.Format)
		if err != nil {
			return "", nil, err
		}
		sum.Exported, sum.Channel, sum.Cues = &t, ch, len(cs)
		return out, sum, nil
	}
	return "", sum, ErrNoCaptions
}

// DecodeSCC renders subtitles from SCC text. Channels 3 and 4 select the
// second field decoder; anything else decodes CC1/CC2.
func DecodeSCC(ctx context.Context, r io.Reader, opts Options) (string, error) {
	doc, err := scc.Parse(r)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fieldNum := 0
	if opts.Channel > 2 {
		fieldNum = 1
	}
	field := newField(fieldNum, opts)
	scc.Decode(doc, field)
	var end int64
	if n := len(doc.Lines); n > 0 {
		end = doc.Lines[n-1].Ticks
	}
	field.Flush(end)

	cs, _ := selectChannel(field.Events(), opts)
	if len(cs) == 0 {
		return "", ErrNoCaptions
	}
	return render.Render(cs, opts.Format)
}

func newField(field int, opts Options) *cea608.Field {
	return cea608.NewField(field,
		cea608.WithLogger(opts.Logger),
		cea608.WithTextLog(opts.LogText),
		cea608.WithControlLog(opts.LogCC),
		cea608.WithCrossCheck(opts.LogCC),
	)
}

// selectChannel assembles cues and keeps one channel: opts.Channel, or the
// channel of the earliest cue.
func selectChannel(events []cea608.Event, opts Options) ([]media.Cue, int) {
	all := cues.Assemble(events, !opts.SplitLines)
	ch := opts.Channel
	if ch == 0 && len(all) > 0 {
		ch = all[0].Channel
	}
	var out []media.Cue
	for _, c := range all {
		if c.Channel == ch {
			out = append(out, c)
		}
	}
	if !opts.NoMerge && !opts.SplitLines {
		out = cues.Merge(out, opts.MergeGap)
	}
	return out, ch
}

// streamEnd maps the last video PTS onto the track's time line, so
// captions still on screen at the end of the input are closed there.
func streamEnd(lastPTS int64, w *scc.Writer, doc *scc.Document) int64 {
	var end int64
	if n := len(doc.Lines); n > 0 {
		end = doc.Lines[n-1].Ticks
	}
	offset, ok := w.Offset()
	if !ok {
		return end
	}
	rel := ((lastPTS-offset)%ptsModulus + ptsModulus) % ptsModulus
	if rel >= ptsModulus/2 {
		return end
	}
	return max(end, rel)
}
