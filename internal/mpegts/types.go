// Package mpegts implements the transport stream layer of the caption
// extractor: packet parsing, per-PID continuity tracking, PAT/PMT discovery
// and PES reassembly with PTS/DTS extraction.
//
// Structural corruption (a lost sync byte) is fatal and surfaces as a
// *FormatError. Per-unit damage such as continuity gaps or malformed PES
// headers is counted in Stats and skipped.
package mpegts

import (
	"errors"
	"fmt"
)

// ErrSyncByte is wrapped by FormatError when a packet does not start with 0x47.
var ErrSyncByte = errors.New("mpegts: invalid sync byte")

// FormatError reports structural corruption that makes the rest of the
// stream uninterpretable.
type FormatError struct {
	Offset int64 // byte offset of the offending packet
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("mpegts: fatal format error at offset %d: %v", e.Offset, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// Packet is a parsed 188-byte transport stream packet.
type Packet struct {
	Header  PacketHeader
	Payload []byte
}

// PacketHeader contains the parsed header fields of a transport stream packet.
type PacketHeader struct {
	PID                       uint16
	ContinuityCounter         uint8
	HasAdaptationField        bool
	HasPayload                bool
	PayloadUnitStartIndicator bool
	TransportErrorIndicator   bool
	DiscontinuityIndicator    bool
}

// Unit is one logical output of the demuxer. Exactly one of PAT, PMT or
// PES is non-nil.
type Unit struct {
	PID uint16
	PAT *PATData
	PMT *PMTData
	PES *PESData
}

// PATData contains the parsed Program Association Table.
type PATData struct {
	Programs []PATProgram
}

// PATProgram maps a program number to its PMT PID.
type PATProgram struct {
	ProgramNumber uint16
	PMTPID        uint16
}

// PMTData contains the parsed Program Map Table.
type PMTData struct {
	ProgramNumber     uint16
	ElementaryStreams []ElementaryStream
}

// ElementaryStream describes a single elementary stream entry of a PMT.
type ElementaryStream struct {
	PID        uint16
	StreamType uint8
}

// PESData contains a reassembled Packetized Elementary Stream packet.
type PESData struct {
	StreamID uint8
	PTS      *int64 // 33-bit, 90 kHz
	DTS      *int64
	Data     []byte
}

// Stats counts recoverable anomalies and throughput seen by a Demuxer.
type Stats struct {
	Packets         int64
	Bytes           int64
	Discontinuities int64
	Duplicates      int64
	TransportErrors int64
	MalformedPES    int64
	MalformedPSI    int64
}
