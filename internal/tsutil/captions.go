package tsutil

import (
	"math/bits"

	"github.com/zsiec/ccextract/internal/media"
)

// Triplet is one cc_data construct. Type 0/1 is line-21 field 1/2,
// 2/3 is DTVCC. Data bytes are written as given; use Control or Chars to
// get parity-correct 608 pairs.
type Triplet struct {
	Type  byte
	Data1 byte
	Data2 byte
	// Invalid clears cc_valid.
	Invalid bool
}

// AddParity sets the high bit for odd parity.
func AddParity(b byte) byte {
	b &= 0x7F
	if bits.OnesCount8(b)%2 == 0 {
		return b | 0x80
	}
	return b
}

// Control returns a parity-correct control code pair.
func Control(b1, b2 byte) media.BytePair {
	return media.BytePair{AddParity(b1), AddParity(b2)}
}

// Chars packs printable ASCII two characters per pair, padding an odd
// trailing character with a null.
func Chars(s string) []media.BytePair {
	var out []media.BytePair
	for i := 0; i < len(s); i += 2 {
		p := media.BytePair{AddParity(s[i]), 0x80}
		if i+1 < len(s) {
			p[1] = AddParity(s[i+1])
		}
		out = append(out, p)
	}
	return out
}

// Field1 wraps 608 pairs as field 1 triplets.
func Field1(pairs ...media.BytePair) []Triplet {
	return fieldTriplets(0, pairs)
}

// Field2 wraps 608 pairs as field 2 triplets.
func Field2(pairs ...media.BytePair) []Triplet {
	return fieldTriplets(1, pairs)
}

func fieldTriplets(field byte, pairs []media.BytePair) []Triplet {
	out := make([]Triplet, len(pairs))
	for i, p := range pairs {
		out[i] = Triplet{Type: field, Data1: p[0], Data2: p[1]}
	}
	return out
}

// CCData builds the cc_data() structure: flags, em_data, triplets and the
// trailing marker byte.
func CCData(triplets []Triplet) []byte {
	n := min(len(triplets), 31)
	out := []byte{0x40 | byte(n), 0xFF}
	for _, t := range triplets[:n] {
		marker := byte(0xF8) | t.Type&0x03
		if !t.Invalid {
			marker |= 0x04
		}
		out = append(out, marker, t.Data1, t.Data2)
	}
	return append(out, 0xFF)
}

// A53 builds the ATSC A/53 user data body: GA94, type 0x03, cc_data.
func A53(triplets []Triplet) []byte {
	return append([]byte{'G', 'A', '9', '4', 0x03}, CCData(triplets)...)
}

// T35 prefixes an A/53 body with the US country and ATSC provider codes.
func T35(triplets []Triplet) []byte {
	return append([]byte{0xB5, 0x00, 0x31}, A53(triplets)...)
}

// EncodeSEIMessage encodes an SEI message with the given payload type
// and payload bytes, using the multi-byte size encoding when needed.
func EncodeSEIMessage(payloadType int, payload []byte) []byte {
	var out []byte
	pt := payloadType
	for pt >= 255 {
		out = append(out, 0xFF)
		pt -= 255
	}
	out = append(out, byte(pt))

	ps := len(payload)
	for ps >= 255 {
		out = append(out, 0xFF)
		ps -= 255
	}
	out = append(out, byte(ps))
	return append(out, payload...)
}

// AddEPB inserts emulation prevention bytes: 0x03 before any 0x00-0x03
// byte that follows two consecutive 0x00 bytes.
func AddEPB(data []byte) []byte {
	var out []byte
	zeroCount := 0
	for _, b := range data {
		if zeroCount >= 2 && b <= 0x03 {
			out = append(out, 0x03)
			zeroCount = 0
		}
		out = append(out, b)
		if b == 0x00 {
			zeroCount++
		} else {
			zeroCount = 0
		}
	}
	return out
}

// H264CaptionSEI builds a start-code-prefixed H.264 SEI NAL (type 6)
// carrying the triplets as a registered user data message.
func H264CaptionSEI(triplets []Triplet) []byte {
	msg := append(EncodeSEIMessage(4, T35(triplets)), 0x80)
	nal := []byte{0x00, 0x00, 0x00, 0x01, 0x06}
	return append(nal, AddEPB(msg)...)
}

// H265CaptionSEI builds a start-code-prefixed HEVC prefix SEI NAL (type 39).
func H265CaptionSEI(triplets []Triplet) []byte {
	msg := append(EncodeSEIMessage(4, T35(triplets)), 0x80)
	nal := []byte{0x00, 0x00, 0x00, 0x01, 39 << 1, 0x01}
	return append(nal, AddEPB(msg)...)
}

// H264AccessUnit returns an AUD, the caption SEI and a dummy slice.
func H264AccessUnit(triplets []Triplet) []byte {
	au := []byte{0x00, 0x00, 0x00, 0x01, 0x09, 0xF0}
	au = append(au, H264CaptionSEI(triplets)...)
	return append(au, 0x00, 0x00, 0x00, 0x01, 0x01, 0x88, 0x84, 0x00)
}

// H265AccessUnit returns an AUD, the caption SEI and a dummy slice.
func H265AccessUnit(triplets []Triplet) []byte {
	au := []byte{0x00, 0x00, 0x00, 0x01, 35 << 1, 0x01, 0x50}
	au = append(au, H265CaptionSEI(triplets)...)
	return append(au, 0x00, 0x00, 0x00, 0x01, 0x02, 0x01, 0xD0, 0x00)
}

var mpeg2Picture = []byte{0x00, 0x00, 0x01, 0x00, 0x00, 0x0F, 0xFF, 0xF8}

// MPEG2ATSCPicture returns a picture header followed by GA94 user data.
func MPEG2ATSCPicture(triplets []Triplet) []byte {
	out := append([]byte{}, mpeg2Picture...)
	out = append(out, 0x00, 0x00, 0x01, 0xB2)
	return append(out, A53(triplets)...)
}

// SCTE20Item is one SCTE-20 caption entry. Field is 0 or 1.
type SCTE20Item struct {
	Field int
	Pair  media.BytePair
}

// MPEG2SCTE20Picture returns a picture header followed by SCTE-20 user
// data. Bytes go on the wire LSB first.
func MPEG2SCTE20Picture(items []SCTE20Item) []byte {
	var w bitWriter
	w.write(uint32(len(items)), 5)
	for _, it := range items {
		w.write(0, 2) // priority
		w.write(uint32(it.Field+1), 2)
		w.write(11, 5) // line_offset: line 21
		w.write(uint32(bits.Reverse8(it.Pair[0])), 8)
		w.write(uint32(bits.Reverse8(it.Pair[1])), 8)
		w.write(1, 1) // marker
	}
	out := append([]byte{}, mpeg2Picture...)
	out = append(out, 0x00, 0x00, 0x01, 0xB2, 0x03, 0x81)
	return append(out, w.bytes()...)
}

// DVDItem is one DVD user data caption entry.
type DVDItem struct {
	Field int
	Pair  media.BytePair
}

// MPEG2DVDPicture returns a picture header followed by DVD "CC" user data.
func MPEG2DVDPicture(items []DVDItem) []byte {
	n := len(items)
	out := append([]byte{}, mpeg2Picture...)
	out = append(out, 0x00, 0x00, 0x01, 0xB2, 'C', 'C', 0x01, 0xF8, 0x80|byte(n/2)<<1|byte(n%2))
	for _, it := range items {
		fb := byte(0xFF)
		if it.Field == 1 {
			fb = 0xFE
		}
		out = append(out, fb, it.Pair[0], it.Pair[1])
	}
	return out
}

type bitWriter struct {
	buf  []byte
	nbit int
}

func (w *bitWriter) write(v uint32, n int) {
	for i := n - 1; i >= 0; i-- {
		if w.nbit%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		if v>>i&1 != 0 {
			w.buf[len(w.buf)-1] |= 0x80 >> (w.nbit % 8)
		}
		w.nbit++
	}
}

func (w *bitWriter) bytes() []byte { return w.buf }
