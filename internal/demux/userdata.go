package demux

import (
	"math/bits"

	"github.com/zsiec/ccextract/internal/media"
)

const userDataStartCode = 0xB2

// userDataCaption is one line-21 pair found in MPEG-2 user data.
type userDataCaption struct {
	source media.Source
	field  int
	pair   media.BytePair
}

// mpeg2UserData scans an MPEG-2 video elementary stream for user_data
// start codes and decodes each block it recognizes. DTVCC triplets from
// GA94 blocks are returned separately.
func mpeg2UserData(es []byte) (pairs []userDataCaption, dtvcc []ccTriplet) {
	for i := 0; i+4 <= len(es); i++ {
		if es[i] != 0x00 || es[i+1] != 0x00 || es[i+2] != 0x01 || es[i+3] != userDataStartCode {
			continue
		}
		end := nextStartCode(es, i+4)
		block := es[i+4 : end]
		i = end - 1

		if triplets, ok := parseGA94(block); ok {
			for _, t := range triplets {
				if t.typ <= 1 {
					pairs = append(pairs, userDataCaption{media.SourceATSC, int(t.typ), t.data})
				} else {
					dtvcc = append(dtvcc, t)
				}
			}
			continue
		}
		if scte, ok := parseSCTE20(block); ok {
			pairs = append(pairs, scte...)
			continue
		}
		if dvd, ok := parseDVD(block); ok {
			pairs = append(pairs, dvd...)
		}
	}
	return pairs, dtvcc
}

func nextStartCode(data []byte, start int) int {
	for i := start; i+3 <= len(data); i++ {
		if data[i] == 0x00 && data[i+1] == 0x00 && data[i+2] == 0x01 {
			return i
		}
	}
	return len(data)
}

// parseSCTE20 decodes SCTE-20 caption user data:
//
//	user_data_type_code(8) = 0x03, then a byte whose low 7 bits are 0x01,
//	then cc_count(5) and per entry priority(2) field_number(2)
//	line_offset(5) cc_data_1(8) cc_data_2(8) marker(1).
//
// cc_data bytes are sent LSB first. field_number 1 and 2 map to fields 0
// and 1; field_number 0 is forbidden and the entry is skipped.
func parseSCTE20(b []byte) ([]userDataCaption, bool) {
	if len(b) < 3 || b[0] != 0x03 || b[1]&0x7F != 0x01 {
		return nil, false
	}
	br := newBitReader(b[2:])
	count, err := br.readBits(5)
	if err != nil {
		return nil, true
	}
	var out []userDataCaption
	for range count {
		if br.remaining() < 26 {
			break
		}
		br.readBits(2) // priority
		field, _ := br.readBits(2)
		br.readBits(5) // line_offset
		cc1, _ := br.readBits(8)
		cc2, _ := br.readBits(8)
		br.readBits(1) // marker
		if field == 0 {
			continue
		}
		out = append(out, userDataCaption{
			source: media.SourceSCTE,
			field:  int(field) - 1,
			pair:   media.BytePair{bits.Reverse8(byte(cc1)), bits.Reverse8(byte(cc2))},
		})
	}
	return out, true
}

// parseDVD decodes DVD-style line-21 user data:
//
//	'C' 'C' 0x01 0xF8, flags: block_count(5) at bits 1-5, extra(1) at bit 0,
//	then (2*block_count + extra) × { field marker, cc1, cc2 }.
//
// A marker of 0xFF is field 0 and 0xFE field 1. Other markers are skipped.
func parseDVD(b []byte) ([]userDataCaption, bool) {
	if len(b) < 5 || b[0] != 'C' || b[1] != 'C' || b[2] != 0x01 || b[3] != 0xF8 {
		return nil, false
	}
	flags := b[4]
	total := int(flags>>1&0x1F)*2 + int(flags&0x01)
	var out []userDataCaption
	idx := 5
	for range total {
		if idx+3 > len(b) {
			break
		}
		marker := b[idx]
		if marker&0xFE == 0xFE {
			field := 1
			if marker&0x01 != 0 {
				field = 0
			}
			out = append(out, userDataCaption{media.SourceEmbedded, field, media.BytePair{b[idx+1], b[idx+2]}})
		}
		idx += 3
	}
	return out, true
}
