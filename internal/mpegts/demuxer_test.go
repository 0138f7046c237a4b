package mpegts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func readAll(t *testing.T, d *Demuxer) []*Unit {
	t.Helper()
	var units []*Unit
	for {
		u, err := d.Next()
		if errors.Is(err, io.EOF) {
			return units
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		units = append(units, u)
	}
}

func syntheticStream() *bytes.Buffer {
	var stream bytes.Buffer
	stream.Write(makePacket(0x0000, 0, true, withPointer(buildPAT(1, []patEntry{{1, 0x1000}}))))
	stream.Write(makePacket(0x1000, 0, true, withPointer(buildPMT(1, 0x100, []pmtEntry{{0x1B, 0x100}, {0x0F, 0x101}}))))
	stream.Write(makePacket(0x100, 0, true, buildPES(0xE0, 90000, []byte{0x00, 0x00, 0x01, 0x09})))
	stream.Write(makePacket(0x101, 0, true, buildPES(0xC0, 90000, []byte{0xFF, 0xF1})))
	stream.Write(makePacket(0x100, 1, true, buildPES(0xE0, 93003, []byte{0x00, 0x00, 0x01, 0x09})))
	return &stream
}

func TestDemuxer_Synthetic(t *testing.T) {
	t.Parallel()
	d := NewDemuxer(context.Background(), syntheticStream())
	units := readAll(t, d)

	var pat, pmt int
	var videoPTS []int64
	for _, u := range units {
		switch {
		case u.PAT != nil:
			pat++
		case u.PMT != nil:
			pmt++
			if len(u.PMT.ElementaryStreams) != 2 {
				t.Errorf("PMT streams = %d, want 2", len(u.PMT.ElementaryStreams))
			}
		case u.PES != nil && u.PID == 0x100:
			videoPTS = append(videoPTS, *u.PES.PTS)
		}
	}
	if pat != 1 || pmt != 1 {
		t.Errorf("PAT=%d PMT=%d, want 1 each", pat, pmt)
	}
	if len(videoPTS) != 2 || videoPTS[0] != 90000 || videoPTS[1] != 93003 {
		t.Errorf("video PTS = %v, want [90000 93003]", videoPTS)
	}

	st := d.Stats()
	if st.Packets != 5 {
		t.Errorf("Packets = %d, want 5", st.Packets)
	}
	if st.Bytes != 5*PacketSize {
		t.Errorf("Bytes = %d, want %d", st.Bytes, 5*PacketSize)
	}
}

func TestDemuxer_BadSyncIsFatal(t *testing.T) {
	t.Parallel()
	stream := syntheticStream()
	bad := makePacket(0x100, 2, true, nil)
	bad[0] = 0x00
	stream.Write(bad)

	d := NewDemuxer(context.Background(), stream)
	var err error
	for err == nil {
		_, err = d.Next()
	}
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
	if fe.Offset != 5*PacketSize {
		t.Errorf("Offset = %d, want %d", fe.Offset, 5*PacketSize)
	}
	if !errors.Is(err, ErrSyncByte) {
		t.Error("FormatError should wrap ErrSyncByte")
	}
}

func TestDemuxer_DiscontinuityHook(t *testing.T) {
	t.Parallel()
	var stream bytes.Buffer
	stream.Write(makePacket(0x100, 0, true, buildPES(0xE0, 0, []byte{0x01})))
	stream.Write(makePacket(0x100, 1, false, []byte{0x02}))
	stream.Write(makePacket(0x100, 4, false, []byte{0x03})) // 2 and 3 lost
	stream.Write(makePacket(0x100, 5, true, buildPES(0xE0, 3003, []byte{0x04})))

	type gap struct {
		pid           uint16
		expected, got uint8
	}
	var gaps []gap
	d := NewDemuxer(context.Background(), &stream, DemuxerOptOnDiscontinuity(func(pid uint16, expected, got uint8) {
		gaps = append(gaps, gap{pid, expected, got})
	}))
	units := readAll(t, d)

	if len(gaps) != 1 || gaps[0] != (gap{0x100, 2, 4}) {
		t.Errorf("gaps = %+v, want one {0x100 2 4}", gaps)
	}
	if d.Stats().Discontinuities != 1 {
		t.Errorf("Discontinuities = %d, want 1", d.Stats().Discontinuities)
	}
	// The damaged first unit is dropped; the one after the gap survives.
	if len(units) != 1 || *units[0].PES.PTS != 3003 {
		t.Errorf("units = %+v, want only the PES at 3003", units)
	}
}

func TestDemuxer_MalformedPESSkipped(t *testing.T) {
	t.Parallel()
	var stream bytes.Buffer
	stream.Write(makePacket(0x100, 0, true, []byte{0x00, 0x00, 0x01, 0xE0, 0x00, 0x00, 0x80, 0x80, 0xF0}))
	stream.Write(makePacket(0x100, 1, true, buildPES(0xE0, 3003, []byte{0x01})))

	d := NewDemuxer(context.Background(), &stream)
	units := readAll(t, d)
	if len(units) != 1 {
		t.Fatalf("units = %d, want 1", len(units))
	}
	if d.Stats().MalformedPES != 1 {
		t.Errorf("MalformedPES = %d, want 1", d.Stats().MalformedPES)
	}
}

func TestDemuxer_TransportErrorDropsUnit(t *testing.T) {
	t.Parallel()
	var stream bytes.Buffer
	stream.Write(makePacket(0x100, 0, true, buildPES(0xE0, 0, []byte{0x01})))
	tei := makePacket(0x100, 1, false, []byte{0x02})
	tei[1] |= 0x80
	stream.Write(tei)
	stream.Write(makePacket(0x100, 2, true, buildPES(0xE0, 3003, []byte{0x03})))

	d := NewDemuxer(context.Background(), &stream)
	units := readAll(t, d)
	if len(units) != 1 || *units[0].PES.PTS != 3003 {
		t.Errorf("units = %+v, want only the PES at 3003", units)
	}
	if d.Stats().TransportErrors != 1 {
		t.Errorf("TransportErrors = %d, want 1", d.Stats().TransportErrors)
	}
}

func TestDemuxer_M2TS(t *testing.T) {
	t.Parallel()
	var stream bytes.Buffer
	for _, p := range [][]byte{
		makePacket(0x100, 0, true, buildPES(0xE0, 1234, []byte{0x01})),
		makePacket(0x100, 1, true, buildPES(0xE0, 4237, []byte{0x02})),
	} {
		stream.Write([]byte{0x00, 0x00, 0x00, 0x00})
		stream.Write(p)
	}

	d := NewDemuxer(context.Background(), &stream, DemuxerOptPacketSize(M2TSPacketSize))
	units := readAll(t, d)
	if len(units) != 2 || *units[0].PES.PTS != 1234 {
		t.Errorf("units = %+v", units)
	}
	if d.BytesRead() != 2*M2TSPacketSize {
		t.Errorf("BytesRead = %d, want %d", d.BytesRead(), 2*M2TSPacketSize)
	}
}

func TestDemuxer_ContextCancellation(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDemuxer(ctx, syntheticStream())
	if _, err := d.Next(); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestDemuxer_EmptyInput(t *testing.T) {
	t.Parallel()
	d := NewDemuxer(context.Background(), bytes.NewReader(nil))
	if _, err := d.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want io.EOF", err)
	}
}
