package demux

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/zsiec/ccx"

	"github.com/zsiec/ccextract/internal/media"
	"github.com/zsiec/ccextract/internal/mpegts"
	"github.com/zsiec/ccextract/internal/progress"
)

// Video stream types that can carry line-21 captions.
const (
	streamTypeMPEG1 = 0x01
	streamTypeMPEG2 = 0x02
	streamTypeH264  = 0x1B
	streamTypeH265  = 0x24
)

type videoCodec int

const (
	codecNone videoCodec = iota
	codecMPEG2
	codecH264
	codecH265
)

func (c videoCodec) String() string {
	switch c {
	case codecMPEG2:
		return "MPEG-2"
	case codecH264:
		return "H.264"
	case codecH265:
		return "H.265"
	}
	return "none"
}

// Result is everything an extraction found.
type Result struct {
	// Tracks holds the caption pairs of each track in arrival order.
	Tracks map[media.Track][]media.ByteEvent
	// Order lists tracks in the order their first pair was seen.
	Order []media.Track
	// DTVCCServices lists the CEA-708 service numbers that carried data.
	DTVCCServices []int
	VideoPID      uint16
	Codec         string
	LastPTS       int64 // PTS of the last video access unit
	Stats         mpegts.Stats
}

// Pairs returns the total number of caption pairs across all tracks.
func (r *Result) Pairs() int {
	n := 0
	for _, evs := range r.Tracks {
		n += len(evs)
	}
	return n
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithProgress reports consumed input bytes to fn. total is the input size,
// or 0 when unknown. fn gets exactly one final call however Run returns.
func WithProgress(fn progress.Func, total int64) Option {
	return func(e *Extractor) {
		e.progressFn = fn
		e.total = total
	}
}

// WithProgressInterval overrides progress.DefaultInterval.
func WithProgressInterval(d time.Duration) Option {
	return func(e *Extractor) { e.progressInterval = d }
}

// WithPacketSize selects 188-byte TS or 192-byte M2TS input.
func WithPacketSize(n int) Option {
	return func(e *Extractor) { e.packetSize = n }
}

// WithVideoLog logs every video PES at debug level.
func WithVideoLog(on bool) Option {
	return func(e *Extractor) { e.logVideo = on }
}

// WithAudioLog logs every audio PES at debug level.
func WithAudioLog(on bool) Option {
	return func(e *Extractor) { e.logAudio = on }
}

// Extractor pulls caption byte pairs out of a transport stream.
type Extractor struct {
	log              *slog.Logger
	reader           io.Reader
	packetSize       int
	progressFn       progress.Func
	total            int64
	progressInterval time.Duration
	logVideo         bool
	logAudio         bool

	videoPID  uint16
	codec     videoCodec
	audioPIDs map[uint16]bool
	lastPTS   int64
	dtvcc     *dtvccInventory
	res       *Result
}

// NewExtractor creates an Extractor reading from r. Call Run once.
func NewExtractor(r io.Reader, opts ...Option) *Extractor {
	e := &Extractor{
		log:              slog.Default(),
		reader:           r,
		packetSize:       mpegts.PacketSize,
		progressInterval: progress.DefaultInterval,
		audioPIDs:        make(map[uint16]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "demux")
	e.dtvcc = newDTVCCInventory(e.log)
	return e
}

// Run reads the stream to the end. A lost sync byte yields a
// *mpegts.FormatError and no result.
func (e *Extractor) Run(ctx context.Context) (*Result, error) {
	rep := progress.New(e.progressFn, e.total,
		progress.WithInterval(e.progressInterval), progress.WithLogger(e.log))
	defer rep.Finish()

	e.res = &Result{Tracks: make(map[media.Track][]media.ByteEvent)}

	dmx := mpegts.NewDemuxer(ctx, e.reader,
		mpegts.DemuxerOptPacketSize(e.packetSize),
		mpegts.DemuxerOptLogger(e.log),
		mpegts.DemuxerOptOnDiscontinuity(func(pid uint16, expected, got uint8) {
			if pid == e.videoPID {
				e.log.Warn("continuity gap on video PID, partial PES dropped", "pid", pid, "expected", expected, "got", got)
			}
		}),
	)

	for {
		u, err := dmx.Next()
		rep.Update(dmx.BytesRead())
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		switch {
		case u.PMT != nil:
			e.handlePMT(u.PMT)
		case u.PES != nil && u.PID == e.videoPID:
			e.handleVideo(u.PES)
		case u.PES != nil && e.audioPIDs[u.PID]:
			if e.logAudio {
				e.log.Debug("audio PES", "pid", u.PID, "pts", ptsAttr(u.PES.PTS), "bytes", len(u.PES.Data))
			}
		}
	}

	e.res.DTVCCServices = e.dtvcc.finish()
	e.res.VideoPID = e.videoPID
	e.res.Codec = e.codec.String()
	e.res.LastPTS = e.lastPTS
	e.res.Stats = dmx.Stats()
	return e.res, nil
}

func (e *Extractor) handlePMT(pmt *mpegts.PMTData) {
	for _, es := range pmt.ElementaryStreams {
		var codec videoCodec
		switch es.StreamType {
		case streamTypeMPEG1, streamTypeMPEG2:
			codec = codecMPEG2
		case streamTypeH264:
			codec = codecH264
		case streamTypeH265:
			codec = codecH265
		default:
			if isAudioStreamType(es.StreamType) && !e.audioPIDs[es.PID] {
				e.audioPIDs[es.PID] = true
				e.log.Debug("found audio PID", "pid", es.PID, "streamType", es.StreamType)
			}
			continue
		}
		if e.videoPID == 0 {
			e.videoPID = es.PID
			e.codec = codec
			e.log.Info("found video PID", "pid", es.PID, "codec", codec.String())
		}
	}
}

func isAudioStreamType(st uint8) bool {
	switch st {
	case 0x03, 0x04, 0x0F, 0x11, 0x81, 0x87:
		return true
	}
	return false
}

func (e *Extractor) handleVideo(pes *mpegts.PESData) {
	if pes.PTS != nil {
		e.lastPTS = *pes.PTS
	}
	pts := e.lastPTS
	if e.logVideo {
		e.log.Debug("video PES", "pid", e.videoPID, "pts", ptsAttr(pes.PTS), "bytes", len(pes.Data))
	}

	switch e.codec {
	case codecMPEG2:
		pairs, dtvcc := mpeg2UserData(pes.Data)
		for _, p := range pairs {
			e.emit(pts, p.source, p.field, p.pair)
		}
		e.addDTVCC(dtvcc)
	case codecH264:
		for _, nal := range ParseAnnexB(pes.Data) {
			if nal.Type == NALTypeSEI {
				e.handleSEI(pts, seiCaptions(nal.Data[1:]), ccx.ExtractCaptions(nal.Data))
			}
		}
	case codecH265:
		for _, nal := range ParseAnnexBHEVC(pes.Data) {
			if nal.Type == HEVCNALSEIPrefix {
				e.handleSEI(pts, seiCaptions(nal.Data[2:]), ccx.ExtractCaptionsHEVC(nal.Data))
			}
		}
	}
}

// handleSEI takes line-21 pairs from the raw cc_data walk, which keeps
// parity bits and null pairs, and DTVCC data from ccx.
func (e *Extractor) handleSEI(pts int64, triplets []ccTriplet, cd *ccx.CaptionData) {
	for _, t := range triplets {
		if t.typ <= 1 {
			e.emit(pts, media.SourceATSC, int(t.typ), t.data)
		}
	}
	if cd == nil {
		return
	}
	for _, p := range cd.DTVCC {
		e.dtvcc.addPair(p)
	}
}

func (e *Extractor) addDTVCC(triplets []ccTriplet) {
	for _, t := range triplets {
		e.dtvcc.add(t)
	}
}

// emit records a pair. Padding pairs (0x80 0x80) carry nothing and are
// dropped here.
func (e *Extractor) emit(pts int64, src media.Source, field int, pair media.BytePair) {
	if pair == (media.BytePair{0x80, 0x80}) {
		return
	}
	tr := media.Track{Source: src, Field: field}
	evs, seen := e.res.Tracks[tr]
	if !seen {
		e.res.Order = append(e.res.Order, tr)
		e.log.Info("found caption track", "track", tr.String(), "pts", pts)
	}
	e.res.Tracks[tr] = append(evs, media.ByteEvent{PTS: pts, Pair: pair, Source: src, Field: field})
}

func ptsAttr(pts *int64) any {
	if pts == nil {
		return "none"
	}
	return *pts
}
