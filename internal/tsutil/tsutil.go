// Package tsutil builds synthetic MPEG-TS streams carrying CEA-608 captions
// in each of the layouts the extractor understands. It is shared by the
// package tests.
package tsutil

import (
	"bytes"
	"encoding/binary"
)

// TSPacketSize is the fixed size of an MPEG-TS packet.
const TSPacketSize = 188

// Stream types written into PMTs.
const (
	StreamTypeMPEG2 = 0x02
	StreamTypeH264  = 0x1B
	StreamTypeH265  = 0x24
	StreamTypeAAC   = 0x0F
)

// Default PIDs used by Stream.
const (
	PMTPID   = 0x1000
	VideoPID = 0x0100
	AudioPID = 0x0101
)

// Stream accumulates TS packets with per-PID continuity counters.
type Stream struct {
	buf bytes.Buffer
	cc  map[uint16]*byte
}

// NewStream returns a stream that starts with a PAT and a PMT announcing
// one video elementary stream of the given type and an AAC audio stream.
func NewStream(videoStreamType byte) *Stream {
	s := &Stream{cc: make(map[uint16]*byte)}
	s.WriteTables(videoStreamType)
	return s
}

func (s *Stream) counter(pid uint16) *byte {
	c, ok := s.cc[pid]
	if !ok {
		c = new(byte)
		s.cc[pid] = c
	}
	return c
}

// WriteTables appends a PAT and PMT.
func (s *Stream) WriteTables(videoStreamType byte) {
	s.buf.Write(Packetize(append([]byte{0x00}, PAT(PMTPID)...), 0x0000, s.counter(0x0000)))
	s.buf.Write(Packetize(append([]byte{0x00}, PMT(VideoPID, videoStreamType)...), PMTPID, s.counter(PMTPID)))
}

// WriteVideo appends one video PES. A negative pts omits the timestamp.
func (s *Stream) WriteVideo(pts int64, es []byte) {
	s.buf.Write(Packetize(PES(0xE0, pts, es), VideoPID, s.counter(VideoPID)))
}

// WriteAudio appends one audio PES.
func (s *Stream) WriteAudio(pts int64, es []byte) {
	s.buf.Write(Packetize(PES(0xC0, pts, es), AudioPID, s.counter(AudioPID)))
}

// WriteRaw appends already-built packets.
func (s *Stream) WriteRaw(p []byte) { s.buf.Write(p) }

// Bytes returns the stream so far.
func (s *Stream) Bytes() []byte { return s.buf.Bytes() }

// PAT builds a PAT section for program 1 pointing at pmtPID.
func PAT(pmtPID uint16) []byte {
	body := []byte{
		0x00, 0x01, 0xC1, 0x00, 0x00, // ts id, version, section numbers
		0x00, 0x01, 0xE0 | byte(pmtPID>>8)&0x1F, byte(pmtPID),
	}
	return section(0x00, body)
}

// PMT builds a PMT section for program 1 with a video stream on videoPID
// and an AAC stream on AudioPID.
func PMT(videoPID uint16, videoStreamType byte) []byte {
	body := []byte{
		0x00, 0x01, 0xC1, 0x00, 0x00,
		0xE0 | byte(videoPID>>8)&0x1F, byte(videoPID), // PCR PID
		0xF0, 0x00, // program_info_length
		videoStreamType, 0xE0 | byte(videoPID>>8)&0x1F, byte(videoPID), 0xF0, 0x00,
		StreamTypeAAC, 0xE0 | byte(AudioPID>>8)&0x1F, byte(AudioPID & 0xFF), 0xF0, 0x00,
	}
	return section(0x02, body)
}

func section(tableID byte, body []byte) []byte {
	length := len(body) + 4
	out := []byte{tableID, 0xB0 | byte(length>>8)&0x0F, byte(length)}
	out = append(out, body...)
	return binary.BigEndian.AppendUint32(out, mpegCRC32(out))
}

// mpegCRC32 is the non-reflected MPEG-2 CRC, computed bit by bit so the
// builder does not depend on the demuxer under test.
func mpegCRC32(data []byte) uint32 {
	crc := uint32(0xFFFFFFFF)
	for _, b := range data {
		crc ^= uint32(b) << 24
		for range 8 {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ 0x04C11DB7
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// PES builds a PES packet with an optional PTS. Video stream IDs get an
// unbounded packet length.
func PES(streamID byte, pts int64, es []byte) []byte {
	var opt []byte
	flags := byte(0)
	if pts >= 0 {
		flags = 0x80
		opt = []byte{
			0x21 | byte(pts>>29&0x0E),
			byte(pts >> 22),
			byte(pts>>14&0xFE) | 0x01,
			byte(pts >> 7),
			byte(pts<<1&0xFE) | 0x01,
		}
	}
	length := 3 + len(opt) + len(es)
	if streamID&0xF0 == 0xE0 || length > 0xFFFF {
		length = 0
	}
	out := []byte{0x00, 0x00, 0x01, streamID, byte(length >> 8), byte(length), 0x80, flags, byte(len(opt))}
	out = append(out, opt...)
	return append(out, es...)
}

// Packetize splits pesData into 188-byte TS packets on the given PID,
// incrementing the continuity counter cc between packets. The last packet
// is padded with adaptation field stuffing.
func Packetize(pesData []byte, pid uint16, cc *byte) []byte {
	var result []byte
	offset := 0
	first := true

	for offset < len(pesData) {
		var pkt [TSPacketSize]byte
		pkt[0] = 0x47
		pkt[1] = byte(pid>>8) & 0x1F
		pkt[2] = byte(pid)
		if first {
			pkt[1] |= 0x40
			first = false
		}
		pkt[3] = 0x10 | (*cc & 0x0F)
		*cc = (*cc + 1) & 0x0F

		remaining := len(pesData) - offset
		capacity := TSPacketSize - 4

		if remaining < capacity {
			stuffLen := capacity - remaining
			pkt[3] |= 0x20
			pkt[4] = byte(stuffLen - 1)
			if stuffLen > 1 {
				pkt[5] = 0
				for i := 6; i < 4+stuffLen; i++ {
					pkt[i] = 0xFF
				}
			}
			copy(pkt[4+stuffLen:], pesData[offset:])
			offset = len(pesData)
		} else {
			copy(pkt[4:], pesData[offset:offset+capacity])
			offset += capacity
		}

		result = append(result, pkt[:]...)
	}

	return result
}
