package mpegts

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// DiscontinuityFunc is called when a PID's continuity counter skips.
// expected is the counter that should have arrived, got the one that did.
type DiscontinuityFunc func(pid uint16, expected, got uint8)

// Demuxer reads MPEG-TS packets from a reader and produces Units
// containing parsed PAT, PMT and PES payloads.
type Demuxer struct {
	ctx        context.Context
	reader     io.Reader
	readBuf    []byte
	pool       *packetPool
	programMap *programMap
	pending    []*Unit
	pktSize    int
	eof        bool
	log        *slog.Logger
	onGap      DiscontinuityFunc
	stats      Stats
}

// NewDemuxer creates a new MPEG-TS demuxer reading from r.
func NewDemuxer(ctx context.Context, r io.Reader, opts ...func(*Demuxer)) *Demuxer {
	pm := newProgramMap()
	d := &Demuxer{
		ctx:        ctx,
		reader:     r,
		pktSize:    PacketSize,
		programMap: pm,
		pool:       newPacketPool(pm),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With("component", "mpegts")
	d.readBuf = make([]byte, d.pktSize)
	return d
}

// DemuxerOptPacketSize sets the on-disk packet size: 188 for plain TS or
// 192 for M2TS, whose 4-byte timestamp prefix is stripped.
func DemuxerOptPacketSize(size int) func(*Demuxer) {
	return func(d *Demuxer) {
		if size == PacketSize || size == M2TSPacketSize {
			d.pktSize = size
		}
	}
}

// DemuxerOptLogger sets the logger. A nil logger keeps slog.Default().
func DemuxerOptLogger(l *slog.Logger) func(*Demuxer) {
	return func(d *Demuxer) {
		if l != nil {
			d.log = l
		}
	}
}

// DemuxerOptOnDiscontinuity installs a hook called on every continuity gap.
func DemuxerOptOnDiscontinuity(fn DiscontinuityFunc) func(*Demuxer) {
	return func(d *Demuxer) {
		d.onGap = fn
	}
}

// Stats returns a snapshot of the demuxer counters.
func (d *Demuxer) Stats() Stats { return d.stats }

// BytesRead returns the number of input bytes consumed so far.
func (d *Demuxer) BytesRead() int64 { return d.stats.Bytes }

// Next returns the next parsed unit from the stream. It returns io.EOF when
// all data has been consumed and a *FormatError on a lost sync byte.
func (d *Demuxer) Next() (*Unit, error) {
	for {
		if len(d.pending) > 0 {
			u := d.pending[0]
			d.pending = d.pending[1:]
			return u, nil
		}
		if d.eof {
			return nil, io.EOF
		}
		if err := d.ctx.Err(); err != nil {
			return nil, err
		}

		offset := d.stats.Bytes
		n, err := io.ReadFull(d.reader, d.readBuf)
		d.stats.Bytes += int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				if n > 0 {
					d.log.Warn("trailing partial packet ignored", "bytes", n)
				}
				d.eof = true
				d.drainPool()
				continue
			}
			return nil, err
		}

		buf := d.readBuf
		if d.pktSize == M2TSPacketSize {
			buf = buf[4:]
		}
		pkt, err := parsePacket(buf)
		if err != nil {
			return nil, &FormatError{Offset: offset, Err: err}
		}
		d.stats.Packets++
		d.handlePacket(pkt)
	}
}

func (d *Demuxer) handlePacket(pkt *Packet) {
	pid := pkt.Header.PID
	if pid == 0x1FFF {
		return // null packet
	}
	acc := d.pool.get(pid)
	if pkt.Header.TransportErrorIndicator {
		d.stats.TransportErrors++
		acc.reset()
		return
	}

	prev := acc.lastCC
	flushed, res := acc.add(pkt)
	switch res {
	case ccDuplicate:
		d.stats.Duplicates++
	case ccGap:
		d.stats.Discontinuities++
		expected := (prev + 1) & 0x0F
		d.log.Debug("continuity gap", "pid", pid, "expected", expected, "got", pkt.Header.ContinuityCounter)
		if d.onGap != nil {
			d.onGap(pid, expected, pkt.Header.ContinuityCounter)
		}
	}
	if flushed != nil {
		d.pending = append(d.pending, d.processPackets(flushed)...)
	}
}

func (d *Demuxer) drainPool() {
	for _, packets := range d.pool.dump() {
		d.pending = append(d.pending, d.processPackets(packets)...)
	}
}

// processPackets parses one reassembled unit. Malformed PSI or PES is
// logged, counted and skipped.
func (d *Demuxer) processPackets(packets []*Packet) []*Unit {
	pid := packets[0].Header.PID

	var payload []byte
	for _, p := range packets {
		payload = append(payload, p.Payload...)
	}
	if len(payload) == 0 {
		return nil
	}

	if d.programMap.isPSI(pid) {
		units, err := parsePSI(payload, pid)
		if err != nil {
			d.stats.MalformedPSI++
			d.log.Warn("malformed PSI section skipped", "pid", pid, "error", err)
		}
		for _, u := range units {
			if u.PAT != nil {
				for _, p := range u.PAT.Programs {
					d.programMap.addPMTPID(p.PMTPID)
				}
			}
		}
		return units
	}

	pes, err := parsePES(payload)
	if err != nil {
		d.stats.MalformedPES++
		d.log.Warn("malformed PES skipped", "pid", pid, "error", err)
		return nil
	}
	return []*Unit{{PID: pid, PES: pes}}
}
