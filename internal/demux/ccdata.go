package demux

// ccTriplet is one valid cc_data construct.
type ccTriplet struct {
	typ  byte // 0/1 line-21 field, 2 DTVCC data, 3 DTVCC packet start
	data [2]byte
}

// parseCCData decodes an A/53 cc_data() structure starting at the
// process_cc_data_flag byte. Triplets with cc_valid clear are dropped.
//
//	[0]  reserved(1) process_cc_data_flag(1) zero(1) cc_count(5)
//	[1]  em_data
//	then cc_count × { marker(5) cc_valid(1) cc_type(2), cc_data_1, cc_data_2 }
func parseCCData(b []byte) []ccTriplet {
	if len(b) < 2 || b[0]&0x40 == 0 {
		return nil
	}
	count := int(b[0] & 0x1F)
	p := b[2:]
	out := make([]ccTriplet, 0, count)
	for range count {
		if len(p) < 3 {
			break
		}
		if p[0]&0x04 != 0 {
			out = append(out, ccTriplet{typ: p[0] & 0x03, data: [2]byte{p[1], p[2]}})
		}
		p = p[3:]
	}
	return out
}

// parseGA94 decodes ATSC user data that begins with the GA94 identifier.
// ok is false for any other user_data_type_code.
func parseGA94(b []byte) (triplets []ccTriplet, ok bool) {
	if len(b) < 5 || b[0] != 'G' || b[1] != 'A' || b[2] != '9' || b[3] != '4' || b[4] != 0x03 {
		return nil, false
	}
	return parseCCData(b[5:]), true
}
