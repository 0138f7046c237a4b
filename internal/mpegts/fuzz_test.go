package mpegts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
)

func FuzzParsePacket(f *testing.F) {
	pkt := make([]byte, PacketSize)
	pkt[0] = syncByte
	pkt[1] = 0x40 // PUSI, PID 0
	pkt[3] = 0x10
	f.Add(pkt)

	af := make([]byte, PacketSize)
	af[0] = syncByte
	af[1] = 0x01
	af[3] = 0x30 // adaptation + payload
	af[4] = 0xB7 // runs past the packet end
	f.Add(af)

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) != PacketSize {
			return
		}
		parsePacket(data)
	})
}

func FuzzDemuxer(f *testing.F) {
	stream := syntheticStream().Bytes()
	f.Add(stream)
	f.Add(stream[:PacketSize+17])

	f.Fuzz(func(t *testing.T, data []byte) {
		data = bytes.Clone(data)
		// Keep whole packets synced so the fuzzer reaches the PSI and PES paths.
		for i := 0; i+PacketSize <= len(data); i += PacketSize {
			data[i] = syncByte
		}
		d := NewDemuxer(context.Background(), bytes.NewReader(data))
		for range 10000 {
			_, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				var fe *FormatError
				if !errors.As(err, &fe) {
					t.Fatalf("unexpected error type %T: %v", err, err)
				}
				return
			}
		}
	})
}
