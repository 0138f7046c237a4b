package srt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	srtgo "github.com/zsiec/srtgo"

	"github.com/zsiec/ccextract/internal/ingest"
)

// srtReadBufferSize is the read buffer for SRT socket reads.
const srtReadBufferSize = 1316 * 10

// srtLatencyNs is the SRT latency setting in nanoseconds (120ms).
const srtLatencyNs = 120_000_000

const defaultDialTimeout = 10 * time.Second

// CaptureRequest describes a remote SRT source to record.
type CaptureRequest struct {
	Address  string
	StreamID string
	// Duration bounds the capture. Zero captures until the peer hangs up
	// or the context is cancelled.
	Duration time.Duration
}

// DialFunc opens a caller-mode connection.
type DialFunc func(addr, streamID string) (io.ReadCloser, error)

// CallerOption configures a Caller.
type CallerOption func(*Caller)

// WithDialer replaces the srtgo dialer.
func WithDialer(d DialFunc) CallerOption {
	return func(c *Caller) { c.dial = d }
}

// WithDialTimeout bounds how long Capture waits for the handshake.
func WithDialTimeout(d time.Duration) CallerOption {
	return func(c *Caller) { c.dialTimeout = d }
}

// Caller dials remote SRT sources. If log is nil, slog.Default() is used.
type Caller struct {
	log         *slog.Logger
	dial        DialFunc
	dialTimeout time.Duration
}

func NewCaller(log *slog.Logger, opts ...CallerOption) *Caller {
	if log == nil {
		log = slog.Default()
	}
	c := &Caller{
		log:         log.With("component", "srt-caller"),
		dial:        dialSRT,
		dialTimeout: defaultDialTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func dialSRT(addr, streamID string) (io.ReadCloser, error) {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs
	cfg.StreamID = streamID
	conn, err := srtgo.Dial(addr, cfg)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Capture dials the remote SRT listener synchronously (with a timeout) and
// returns a stream that yields the received bytes. The stream ends with
// io.EOF when the capture duration elapses or the peer disconnects, and
// with the context error if ctx is cancelled first.
func (c *Caller) Capture(ctx context.Context, req CaptureRequest) (*ingest.Stream, error) {
	if req.Address == "" {
		return nil, fmt.Errorf("address is required")
	}

	c.log.Info("dialing", "address", req.Address, "stream_id", req.StreamID)

	type dialResult struct {
		conn io.ReadCloser
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := c.dial(req.Address, req.StreamID)
		ch <- dialResult{conn, err}
	}()

	timer := time.NewTimer(c.dialTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("SRT dial failed: %w", res.err)
		}
		return c.startCapture(ctx, req, res.conn), nil
	case <-timer.C:
		// Drain the dial result in the background and close any leaked connection.
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, fmt.Errorf("SRT dial timed out after %s", c.dialTimeout)
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (c *Caller) startCapture(ctx context.Context, req CaptureRequest, conn io.ReadCloser) *ingest.Stream {
	pr, pw := io.Pipe()
	stream := ingest.NewStream("srt://"+req.Address, ingest.FormatMPEGTS, pr, -1)
	stream.SetRemoteAddr(req.Address)

	var captureCtx context.Context
	var cancel context.CancelFunc
	if req.Duration > 0 {
		captureCtx, cancel = context.WithTimeout(ctx, req.Duration)
	} else {
		captureCtx, cancel = context.WithCancel(ctx)
	}
	closeConn := sync.OnceFunc(func() { conn.Close() })
	stop := context.AfterFunc(captureCtx, closeConn)

	c.log.Info("capturing", "address", req.Address, "duration", req.Duration)

	go func() {
		defer func() {
			stop()
			cancel()
			closeConn()
			if err := ctx.Err(); err != nil {
				pw.CloseWithError(err)
			} else {
				pw.Close()
			}
			stats := stream.Stats()
			c.log.Info("capture ended", "address", req.Address,
				"bytes", stats.BytesReceived, "reads", stats.ReadCount,
				"uptime_ms", stats.UptimeMs)
		}()

		buf := make([]byte, srtReadBufferSize)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				if _, werr := pw.Write(buf[:n]); werr != nil {
					c.log.Debug("pipe write error", "address", req.Address, "error", werr)
					return
				}
			}
			if err != nil {
				if captureCtx.Err() == nil && !errors.Is(err, io.EOF) {
					c.log.Warn("read error", "address", req.Address, "error", err)
				}
				return
			}
		}
	}()

	return stream
}
