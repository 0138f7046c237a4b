package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/ccextract/internal/config"
	"github.com/zsiec/ccextract/internal/ingest"
	srtingest "github.com/zsiec/ccextract/internal/ingest/srt"
	"github.com/zsiec/ccextract/internal/mpegts"
	"github.com/zsiec/ccextract/internal/pipeline"
	"github.com/zsiec/ccextract/internal/progress"
	"github.com/zsiec/ccextract/internal/render"
)

var version = "dev"

var errInputIsSCC = errors.New("input is already SCC")

const (
	exitOK         = 0
	exitFatal      = 1
	exitNoCaptions = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := config.NewFlagSet("ccextract")
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: ccextract [flags] <input.ts|input.scc|->...\n\n")
		fs.PrintDefaults()
	}
	cfg, err := config.Load(fs, args)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "ccextract: %v\n", err)
		if errors.Is(err, config.ErrNoInput) {
			fs.Usage()
		}
		return exitFatal
	}

	level := slog.LevelInfo
	if cfg.Verbose || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	format := render.FormatSRT
	if cfg.Format != "SCC" {
		if format, err = render.ParseFormat(cfg.Format); err != nil {
			log.Error("invalid format", "error", err)
			return exitFatal
		}
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		format: format,
		stdout: stdout,
		stderr: stderr,
	}
	log.Debug("ccextract starting", "version", version, "inputs", len(cfg.Inputs), "jobs", cfg.Jobs)

	jobs := len(cfg.Inputs)
	if cfg.SRT != "" {
		jobs++
	}
	errs := make([]error, jobs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Jobs)
	for i, name := range cfg.Inputs {
		g.Go(func() error {
			errs[i] = a.processFile(gctx, name)
			return nil
		})
	}
	if cfg.SRT != "" {
		g.Go(func() error {
			errs[jobs-1] = a.processCapture(gctx)
			return nil
		})
	}
	_ = g.Wait()

	return exitCode(errs)
}

// exitCode is 1 if any input failed, else 2 if any input had no
// captions, else 0.
func exitCode(errs []error) int {
	code := exitOK
	for _, err := range errs {
		switch {
		case err == nil:
		case errors.Is(err, pipeline.ErrNoCaptions):
			if code == exitOK {
				code = exitNoCaptions
			}
		default:
			return exitFatal
		}
	}
	return code
}

type app struct {
	cfg    *config.Config
	log    *slog.Logger
	format render.Format
	stdout io.Writer
	stderr io.Writer

	stdoutMu sync.Mutex
}

func (a *app) processFile(ctx context.Context, name string) error {
	s, err := ingest.Open(name)
	if err != nil {
		a.log.Error("open input", "input", name, "error", err)
		return err
	}
	defer s.Close()
	return a.process(ctx, s, name)
}

func (a *app) processCapture(ctx context.Context) error {
	caller := srtingest.NewCaller(a.log)
	s, err := caller.Capture(ctx, srtingest.CaptureRequest{
		Address:  a.cfg.SRT,
		StreamID: a.cfg.StreamID,
		Duration: a.cfg.Capture,
	})
	if err != nil {
		a.log.Error("SRT capture", "address", a.cfg.SRT, "error", err)
		return err
	}
	defer s.Close()
	name := "-"
	if a.cfg.Output != "" {
		name = "capture.ts"
	}
	return a.process(ctx, s, name)
}

func (a *app) process(ctx context.Context, s *ingest.Stream, name string) error {
	log := a.log.With("input", s.Name)
	opts := a.options(s, log)
	dest := a.destination(name)

	var err error
	switch {
	case s.Format == ingest.FormatSCC:
		if a.cfg.Format == "SCC" {
			err = errInputIsSCC
			break
		}
		var text string
		if text, err = pipeline.DecodeSCC(ctx, s, opts); err == nil {
			err = a.write(dest+a.format.Ext(), text)
		}
	case a.cfg.Format == "SCC":
		var files []pipeline.SCCFile
		if files, _, err = pipeline.ExtractSCC(ctx, s, opts); err == nil {
			for _, f := range files {
				path := fmt.Sprintf("%s.%s.%d.scc", dest, f.Name, f.Field)
				if err = a.write(path, f.Content); err != nil {
					break
				}
			}
		}
	default:
		var text string
		if text, _, err = pipeline.ExtractSubtitles(ctx, s, opts); err == nil {
			err = a.write(dest+a.format.Ext(), text)
		}
	}

	var fe *mpegts.FormatError
	switch {
	case err == nil:
		log.Info("done", "bytes", s.Stats().BytesReceived)
	case errors.Is(err, pipeline.ErrNoCaptions):
		log.Warn("no captions found")
	case errors.As(err, &fe):
		log.Error("unreadable transport stream", "offset", fe.Offset, "error", fe.Err)
	default:
		log.Error("extraction failed", "error", err)
	}
	return err
}

func (a *app) options(s *ingest.Stream, log *slog.Logger) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Format = a.format
	opts.NoMerge = a.cfg.NoMerge
	opts.SplitLines = a.cfg.SplitLines
	opts.MergeGap = a.cfg.MergeGap
	opts.Reorder = a.cfg.Reorder
	opts.Channel = a.cfg.Channel
	opts.Logger = log
	opts.LogVideo = a.cfg.LogVideo
	opts.LogAudio = a.cfg.LogAudio
	opts.LogText = a.cfg.LogText
	opts.LogCC = a.cfg.LogCC

	switch strings.ToLower(filepath.Ext(s.Name)) {
	case ".m2ts", ".mts":
		opts.PacketSize = mpegts.M2TSPacketSize
	}

	// Progress lines from concurrent jobs would overwrite each other.
	if !a.cfg.NoProgress && a.cfg.Jobs == 1 && len(a.cfg.Inputs) <= 1 && a.cfg.SRT == "" {
		opts.Progress = progress.Writer(a.stderr)
		opts.Total = max(s.Size, 0)
	}
	return opts
}

// destination returns the output path without extension, or "-" for
// standard output.
func (a *app) destination(input string) string {
	out := a.cfg.Output
	if out == "-" || (out == "" && input == "-") {
		return "-"
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if out == "" {
		return filepath.Join(filepath.Dir(input), base)
	}
	if fi, err := os.Stat(out); (err == nil && fi.IsDir()) || len(a.cfg.Inputs) > 1 {
		return filepath.Join(out, base)
	}
	return strings.TrimSuffix(out, filepath.Ext(out))
}

// write stores text at path. path values derived from "-" go to stdout.
func (a *app) write(path, text string) error {
	if path == "-" || strings.HasPrefix(path, "-.") {
		a.stdoutMu.Lock()
		defer a.stdoutMu.Unlock()
		_, err := io.WriteString(a.stdout, text)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return err
	}
	a.log.Info("wrote", "path", path)
	return nil
}
