package mpegts

import "errors"

var (
	errPESShort      = errors.New("mpegts: PES packet too short")
	errPESStartCode  = errors.New("mpegts: invalid PES start code")
	errPESHeaderLen  = errors.New("mpegts: PES header data length overruns payload")
	errPESPacketLen  = errors.New("mpegts: PES packet length shorter than its header")
	errPESMarkerBits = errors.New("mpegts: PES optional header marker bits missing")
	errPESTimestamp  = errors.New("mpegts: PES timestamp truncated")
)

// isPESPayload checks for the PES start code prefix (0x000001).
func isPESPayload(data []byte) bool {
	return len(data) >= 3 && data[0] == 0x00 && data[1] == 0x00 && data[2] == 0x01
}

// hasOptionalHeader reports whether a stream_id carries the optional PES
// header. padding, private_stream_2, ECM, EMM, DSMCC, H.222.1 type E and
// the program stream directory do not.
func hasOptionalHeader(streamID byte) bool {
	switch streamID {
	case 0xBC, 0xBE, 0xBF, 0xF0, 0xF1, 0xF2, 0xF8, 0xFF:
		return false
	}
	return true
}

func parsePES(payload []byte) (*PESData, error) {
	if len(payload) < 6 {
		return nil, errPESShort
	}
	if !isPESPayload(payload) {
		return nil, errPESStartCode
	}

	pes := &PESData{StreamID: payload[3]}
	packetLength := int(payload[4])<<8 | int(payload[5])

	end := len(payload)
	if packetLength > 0 && 6+packetLength < end {
		end = 6 + packetLength
	}

	if !hasOptionalHeader(pes.StreamID) {
		pes.Data = payload[6:end]
		return pes, nil
	}

	if len(payload) < 9 {
		return nil, errPESShort
	}
	if payload[6]&0xC0 != 0x80 {
		return nil, errPESMarkerBits
	}

	// payload[7]: PTS_DTS_flags(2) ESCR(1) ES_rate(1) DSM_trick(1) copy(1) CRC(1) ext(1)
	// payload[8]: PES_header_data_length
	flags := payload[7] >> 6
	dataStart := 9 + int(payload[8])
	if dataStart > len(payload) {
		return nil, errPESHeaderLen
	}
	if packetLength > 0 && dataStart > 6+packetLength {
		return nil, errPESPacketLen
	}

	switch flags {
	case 2:
		if dataStart < 14 {
			return nil, errPESTimestamp
		}
		pts := decodeTimestamp(payload[9:14])
		pes.PTS = &pts
	case 3:
		if dataStart < 19 {
			return nil, errPESTimestamp
		}
		pts := decodeTimestamp(payload[9:14])
		dts := decodeTimestamp(payload[14:19])
		pes.PTS, pes.DTS = &pts, &dts
	}

	pes.Data = payload[dataStart:end]
	return pes, nil
}

// decodeTimestamp extracts a 33-bit PTS/DTS from its 5-byte marker-bit encoding.
func decodeTimestamp(bs []byte) int64 {
	return int64(bs[0]>>1&0x07)<<30 |
		int64(bs[1])<<22 |
		int64(bs[2]>>1&0x7F)<<15 |
		int64(bs[3])<<7 |
		int64(bs[4]>>1&0x7F)
}
