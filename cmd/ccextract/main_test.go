package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zsiec/ccextract/internal/config"
	"github.com/zsiec/ccextract/internal/media"
	"github.com/zsiec/ccextract/internal/pipeline"
	"github.com/zsiec/ccextract/internal/tsutil"
)

func captionStream(text string) []byte {
	s := tsutil.NewStream(tsutil.StreamTypeH264)
	first := []media.BytePair{tsutil.Control(0x14, 0x20), tsutil.Control(0x14, 0x60)}
	first = append(first, tsutil.Chars(text)...)
	first = append(first, tsutil.Control(0x14, 0x2F))
	s.WriteVideo(0, tsutil.H264AccessUnit(tsutil.Field1(first...)))
	s.WriteVideo(180000, tsutil.H264AccessUnit(tsutil.Field1(tsutil.Control(0x14, 0x2C))))
	s.WriteVideo(270000, tsutil.H264AccessUnit(nil))
	return s.Bytes()
}

func writeInput(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return string(data)
}

func TestRun_WritesNextToInput(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "show.ts", captionStream("HELLO"))

	code, _, stderr := runCLI(t, "--no-progress", in)
	if code != exitOK {
		t.Fatalf("exit = %d, want %d\n%s", code, exitOK, stderr)
	}
	got := readFile(t, filepath.Join(dir, "show.srt"))
	want := "1\n00:00:00,000 --> 00:00:02,000\nHELLO\n"
	if !strings.HasPrefix(got, want) {
		t.Errorf("show.srt =\n%q\nwant prefix\n%q", got, want)
	}
}

func TestRun_Stdout(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "show.ts", captionStream("HELLO"))

	code, stdout, stderr := runCLI(t, "-o", "-", "-f", "vtt", "--no-progress", in)
	if code != exitOK {
		t.Fatalf("exit = %d\n%s", code, stderr)
	}
	if !strings.HasPrefix(stdout, "WEBVTT") || !strings.Contains(stdout, "HELLO") {
		t.Errorf("stdout = %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, "show.vtt")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("unexpected file next to input: %v", err)
	}
}

func TestRun_WebVTTAlias(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "show.ts", captionStream("HELLO"))

	if code, _, stderr := runCLI(t, "-f", "webvtt", "--no-progress", in); code != exitOK {
		t.Fatalf("exit = %d\n%s", code, stderr)
	}
	if got := readFile(t, filepath.Join(dir, "show.vtt")); !strings.HasPrefix(got, "WEBVTT") {
		t.Errorf("show.vtt = %q", got)
	}
}

func TestRun_MultipleInputsToDir(t *testing.T) {
	dir := t.TempDir()
	a := writeInput(t, dir, "a.ts", captionStream("ALPHA"))
	b := writeInput(t, dir, "b.ts", captionStream("BRAVO"))
	out := filepath.Join(dir, "subs")

	code, _, stderr := runCLI(t, "-o", out, "-f", "vtt", "--jobs", "2", a, b)
	if code != exitOK {
		t.Fatalf("exit = %d\n%s", code, stderr)
	}
	for name, text := range map[string]string{"a.vtt": "ALPHA", "b.vtt": "BRAVO"} {
		if got := readFile(t, filepath.Join(out, name)); !strings.Contains(got, text) {
			t.Errorf("%s = %q, want %q", name, got, text)
		}
	}
}

func TestRun_ExplicitOutputFile(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "show.ts", captionStream("HELLO"))
	out := filepath.Join(dir, "captions.srt")

	if code, _, stderr := runCLI(t, "-o", out, "--no-progress", in); code != exitOK {
		t.Fatalf("exit = %d\n%s", code, stderr)
	}
	if got := readFile(t, out); !strings.Contains(got, "HELLO") {
		t.Errorf("captions.srt = %q", got)
	}
}

func TestRun_SCCFormat(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "show.ts", captionStream("HI"))

	if code, _, stderr := runCLI(t, "-f", "scc", "--no-progress", in); code != exitOK {
		t.Fatalf("exit = %d\n%s", code, stderr)
	}
	got := readFile(t, filepath.Join(dir, "show.ATSC.1.scc"))
	if !strings.HasPrefix(got, "Scenarist_SCC V1.0\n") {
		t.Errorf("scc header missing: %q", got)
	}

	// SCC documents decode back to subtitles.
	scc := filepath.Join(dir, "show.ATSC.1.scc")
	if code, _, stderr := runCLI(t, "-o", "-", scc); code != exitOK {
		t.Fatalf("decode exit = %d\n%s", code, stderr)
	}
	if code, _, _ := runCLI(t, "-f", "scc", scc); code != exitFatal {
		t.Errorf("scc to scc exit = %d, want %d", code, exitFatal)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	good := writeInput(t, dir, "good.ts", captionStream("HELLO"))

	empty := tsutil.NewStream(tsutil.StreamTypeH264)
	empty.WriteVideo(0, tsutil.H264AccessUnit(nil))
	silent := writeInput(t, dir, "silent.ts", empty.Bytes())

	corrupt := captionStream("HELLO")
	corrupt[2*tsutil.TSPacketSize] = 0x00
	bad := writeInput(t, dir, "bad.ts", corrupt)

	tests := []struct {
		name   string
		inputs []string
		want   int
	}{
		{"ok", []string{good}, exitOK},
		{"no captions", []string{silent}, exitNoCaptions},
		{"bad sync", []string{bad}, exitFatal},
		{"missing file", []string{filepath.Join(dir, "nope.ts")}, exitFatal},
		{"no captions beside ok", []string{good, silent}, exitNoCaptions},
		{"fatal wins", []string{silent, bad}, exitFatal},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(dir, fmt.Sprintf("out%d", i))
			args := append([]string{"--no-progress", "-o", out}, tt.inputs...)
			if code, _, stderr := runCLI(t, args...); code != tt.want {
				t.Errorf("exit = %d, want %d\n%s", code, tt.want, stderr)
			}
		})
	}
}

func TestRun_Usage(t *testing.T) {
	if code, _, _ := runCLI(t, "--help"); code != exitOK {
		t.Errorf("--help exit = %d, want %d", code, exitOK)
	}
	code, _, stderr := runCLI(t)
	if code != exitFatal {
		t.Errorf("no args exit = %d, want %d", code, exitFatal)
	}
	if !strings.Contains(stderr, "Usage:") {
		t.Errorf("stderr = %q, want usage", stderr)
	}
	if code, _, _ := runCLI(t, "--channel", "7", "x.ts"); code != exitFatal {
		t.Errorf("bad channel exit = %d, want %d", code, exitFatal)
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()
	fatal := errors.New("boom")
	tests := []struct {
		errs []error
		want int
	}{
		{nil, exitOK},
		{[]error{nil, nil}, exitOK},
		{[]error{pipeline.ErrNoCaptions}, exitNoCaptions},
		{[]error{fmt.Errorf("a.ts: %w", pipeline.ErrNoCaptions), nil}, exitNoCaptions},
		{[]error{pipeline.ErrNoCaptions, fatal}, exitFatal},
		{[]error{fatal, pipeline.ErrNoCaptions}, exitFatal},
	}
	for _, tt := range tests {
		if got := exitCode(tt.errs); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.errs, got, tt.want)
		}
	}
}

func TestDestination(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tests := []struct {
		out    string
		inputs []string
		input  string
		want   string
	}{
		{"", []string{"/x/show.ts"}, "/x/show.ts", "/x/show"},
		{"", []string{"-"}, "-", "-"},
		{"-", []string{"/x/show.ts"}, "/x/show.ts", "-"},
		{"/y/out.vtt", []string{"/x/show.ts"}, "/x/show.ts", "/y/out"},
		{dir, []string{"/x/show.ts"}, "/x/show.ts", filepath.Join(dir, "show")},
		{"/y/subs", []string{"/x/a.ts", "/x/b.ts"}, "/x/b.ts", "/y/subs/b"},
	}
	for _, tt := range tests {
		a := &app{cfg: &config.Config{Output: tt.out, Inputs: tt.inputs}}
		if got := a.destination(tt.input); got != tt.want {
			t.Errorf("destination(%q) with -o %q = %q, want %q", tt.input, tt.out, got, tt.want)
		}
	}
}
