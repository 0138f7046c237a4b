package mpegts

import (
	"errors"
	"testing"
)

func TestParsePES_Timestamps(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		pts  int64
	}{
		{"zero", 0},
		{"one_second", 90000},
		{"max_33_bit", 1<<33 - 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			pes, err := parsePES(buildPES(0xE0, tc.pts, []byte{0xAA}))
			if err != nil {
				t.Fatal(err)
			}
			if pes.PTS == nil || *pes.PTS != tc.pts {
				t.Errorf("PTS = %v, want %d", pes.PTS, tc.pts)
			}
			if len(pes.Data) != 1 || pes.Data[0] != 0xAA {
				t.Errorf("data = %X", pes.Data)
			}
		})
	}
}

func TestParsePES_PTSAndDTS(t *testing.T) {
	t.Parallel()
	opt := append(encodeTimestamp(0x03, 183003), encodeTimestamp(0x01, 180000)...)
	buf := []byte{0x00, 0x00, 0x01, 0xE0, 0x00, 0x00, 0x80, 0xC0, byte(len(opt))}
	buf = append(append(buf, opt...), 0x01, 0x02)

	pes, err := parsePES(buf)
	if err != nil {
		t.Fatal(err)
	}
	if pes.PTS == nil || *pes.PTS != 183003 {
		t.Errorf("PTS = %v, want 183003", pes.PTS)
	}
	if pes.DTS == nil || *pes.DTS != 180000 {
		t.Errorf("DTS = %v, want 180000", pes.DTS)
	}
	if len(pes.Data) != 2 {
		t.Errorf("data length = %d, want 2", len(pes.Data))
	}
}

func TestParsePES_NoTimestamp(t *testing.T) {
	t.Parallel()
	pes, err := parsePES(buildPES(0xC0, -1, []byte{0x01}))
	if err != nil {
		t.Fatal(err)
	}
	if pes.PTS != nil || pes.DTS != nil {
		t.Error("expected no timestamps")
	}
}

func TestParsePES_BoundedLengthTrimsStuffing(t *testing.T) {
	t.Parallel()
	buf := append(buildPES(0xC0, 0, []byte{0x01, 0x02}), 0xFF, 0xFF, 0xFF)
	pes, err := parsePES(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(pes.Data) != 2 {
		t.Errorf("data length = %d, want 2", len(pes.Data))
	}
}

func TestParsePES_PaddingStream(t *testing.T) {
	t.Parallel()
	buf := []byte{0x00, 0x00, 0x01, 0xBE, 0x00, 0x03, 0xFF, 0xFF, 0xFF}
	pes, err := parsePES(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(pes.Data) != 3 {
		t.Errorf("data length = %d, want 3", len(pes.Data))
	}
}

func TestParsePES_Malformed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{"too_short", []byte{0x00, 0x00, 0x01}, errPESShort},
		{"bad_start_code", []byte{0x00, 0x00, 0x02, 0xE0, 0x00, 0x00, 0x80, 0x00, 0x00}, errPESStartCode},
		{"header_overrun", []byte{0x00, 0x00, 0x01, 0xE0, 0x00, 0x00, 0x80, 0x80, 0x20, 0x00}, errPESHeaderLen},
		{"packet_length_short", []byte{0x00, 0x00, 0x01, 0xC0, 0x00, 0x02, 0x80, 0x00, 0x05, 0, 0, 0, 0, 0}, errPESPacketLen},
		{"marker_bits", []byte{0x00, 0x00, 0x01, 0xE0, 0x00, 0x00, 0x00, 0x00, 0x00}, errPESMarkerBits},
		{"pts_truncated", []byte{0x00, 0x00, 0x01, 0xE0, 0x00, 0x00, 0x80, 0x80, 0x02, 0x21, 0x00}, errPESTimestamp},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := parsePES(tc.buf)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}
