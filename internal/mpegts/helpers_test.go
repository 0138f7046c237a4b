package mpegts

import "encoding/binary"

type patEntry struct{ num, pid uint16 }

type pmtEntry struct {
	streamType uint8
	pid        uint16
}

// buildPAT constructs a PAT section with a valid CRC32.
func buildPAT(tsID uint16, programs []patEntry) []byte {
	sectionLength := 5 + len(programs)*4 + 4

	data := make([]byte, 3+sectionLength)
	data[0] = tableIDPAT
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	data[3] = byte(tsID >> 8)
	data[4] = byte(tsID)
	data[5] = 0xC1

	offset := 8
	for _, p := range programs {
		data[offset] = byte(p.num >> 8)
		data[offset+1] = byte(p.num)
		data[offset+2] = 0xE0 | byte(p.pid>>8)&0x1F
		data[offset+3] = byte(p.pid)
		offset += 4
	}
	binary.BigEndian.PutUint32(data[offset:], CRC32(data[:offset]))
	return data
}

// buildPMT constructs a PMT section with a valid CRC32.
func buildPMT(programNum, pcrPID uint16, streams []pmtEntry) []byte {
	sectionLength := 9 + len(streams)*5 + 4

	data := make([]byte, 3+sectionLength)
	data[0] = tableIDPMT
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	data[3] = byte(programNum >> 8)
	data[4] = byte(programNum)
	data[5] = 0xC1
	data[8] = 0xE0 | byte(pcrPID>>8)&0x1F
	data[9] = byte(pcrPID)
	data[10] = 0xF0

	offset := 12
	for _, s := range streams {
		data[offset] = s.streamType
		data[offset+1] = 0xE0 | byte(s.pid>>8)&0x1F
		data[offset+2] = byte(s.pid)
		data[offset+3] = 0xF0
		offset += 5
	}
	binary.BigEndian.PutUint32(data[offset:], CRC32(data[:offset]))
	return data
}

func withPointer(section []byte) []byte {
	return append([]byte{0x00}, section...)
}

// encodeTimestamp encodes a 33-bit PTS/DTS into 5 bytes with marker bits.
func encodeTimestamp(prefix byte, value int64) []byte {
	return []byte{
		prefix<<4 | byte(value>>29&0x0E) | 0x01,
		byte(value >> 22),
		byte(value>>14&0xFE) | 0x01,
		byte(value >> 7),
		byte(value<<1&0xFE) | 0x01,
	}
}

// buildPES builds a PES packet. A negative pts omits the timestamp. Video
// stream IDs get an unbounded packet length.
func buildPES(streamID byte, pts int64, data []byte) []byte {
	var opt []byte
	flags := byte(0)
	if pts >= 0 {
		flags = 0x80
		opt = encodeTimestamp(0x02, pts)
	}
	packetLength := 3 + len(opt) + len(data)
	if streamID&0xF0 == 0xE0 {
		packetLength = 0
	}
	buf := []byte{0x00, 0x00, 0x01, streamID, byte(packetLength >> 8), byte(packetLength), 0x80, flags, byte(len(opt))}
	buf = append(buf, opt...)
	return append(buf, data...)
}
