// Package ingest opens extractor inputs: transport stream and SCC files,
// standard input, and byte streams handed over by the SRT capture, behind
// a single Stream type that counts what the extractor has read.
package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

// InputFormat identifies the container format of an input.
type InputFormat int

// Supported input formats.
const (
	FormatMPEGTS InputFormat = iota
	FormatSCC
)

func (f InputFormat) String() string {
	switch f {
	case FormatMPEGTS:
		return "MPEG-TS"
	case FormatSCC:
		return "SCC"
	}
	return fmt.Sprintf("InputFormat(%d)", int(f))
}

// DetectFormat picks the format from the file extension. Anything that is
// not .scc is treated as a transport stream.
func DetectFormat(name string) InputFormat {
	if strings.EqualFold(filepath.Ext(name), ".scc") {
		return FormatSCC
	}
	return FormatMPEGTS
}

// Stats captures read-side metrics of an input.
type Stats struct {
	BytesReceived int64
	ReadCount     int64
	ConnectedAt   int64 // unix milliseconds
	UptimeMs      int64
	RemoteAddr    string
}

// Stream is one open input. Reads are counted so progress and summaries
// can report them.
type Stream struct {
	Name      string
	Format    InputFormat
	Size      int64 // -1 when unknown
	StartedAt time.Time

	input io.ReadCloser

	bytesReceived atomic.Int64
	readCount     atomic.Int64
	remoteAddr    atomic.Value
}

// NewStream wraps r. size is -1 when the length is not known in advance.
func NewStream(name string, format InputFormat, r io.ReadCloser, size int64) *Stream {
	return &Stream{
		Name:      name,
		Format:    format,
		Size:      size,
		StartedAt: time.Now(),
		input:     r,
	}
}

// Open opens a file input, or standard input for "-".
func Open(name string) (*Stream, error) {
	if name == "-" {
		return NewStream("stdin", FormatMPEGTS, io.NopCloser(os.Stdin), -1), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	size := int64(-1)
	if fi, err := f.Stat(); err == nil && fi.Mode().IsRegular() {
		size = fi.Size()
	}
	return NewStream(name, DetectFormat(name), f, size), nil
}

func (s *Stream) Read(p []byte) (int, error) {
	n, err := s.input.Read(p)
	if n > 0 {
		s.RecordRead(n)
	}
	return n, err
}

func (s *Stream) Close() error { return s.input.Close() }

// RecordRead increments the byte and read counters.
func (s *Stream) RecordRead(n int) {
	s.bytesReceived.Add(int64(n))
	s.readCount.Add(1)
}

// SetRemoteAddr stores the peer address of a network input.
func (s *Stream) SetRemoteAddr(addr string) {
	s.remoteAddr.Store(addr)
}

// Stats returns a snapshot of the stream counters.
func (s *Stream) Stats() Stats {
	addr, _ := s.remoteAddr.Load().(string)
	return Stats{
		BytesReceived: s.bytesReceived.Load(),
		ReadCount:     s.readCount.Load(),
		ConnectedAt:   s.StartedAt.UnixMilli(),
		UptimeMs:      time.Since(s.StartedAt).Milliseconds(),
		RemoteAddr:    addr,
	}
}
