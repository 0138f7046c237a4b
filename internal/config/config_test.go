package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func load(args ...string) (*Config, error) {
	return Load(NewFlagSet("ccextract"), args)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("in.ts")
	require.NoError(t, err)
	require.Equal(t, []string{"in.ts"}, cfg.Inputs)
	require.Equal(t, "SRT", cfg.Format)
	require.Equal(t, 5, cfg.Reorder)
	require.Equal(t, 250*time.Millisecond, cfg.MergeGap)
	require.Equal(t, 1, cfg.Jobs)
	require.Equal(t, 0, cfg.Channel)
	require.Equal(t, 60*time.Second, cfg.Capture)
	require.False(t, cfg.NoMerge)
	require.Empty(t, cfg.Output)
}

func TestLoad_Flags(t *testing.T) {
	cfg, err := load("-f", "vtt", "-o", "-", "--split-lines", "--channel", "3", "--merge-gap", "1s", "-v", "a.ts", "b.ts")
	require.NoError(t, err)
	require.Equal(t, "VTT", cfg.Format)
	require.Equal(t, "-", cfg.Output)
	require.True(t, cfg.SplitLines)
	require.True(t, cfg.Verbose)
	require.Equal(t, 3, cfg.Channel)
	require.Equal(t, time.Second, cfg.MergeGap)
	require.Equal(t, []string{"a.ts", "b.ts"}, cfg.Inputs)
}

func TestLoad_WebVTTAlias(t *testing.T) {
	cfg, err := load("--format", "WebVTT", "in.ts")
	require.NoError(t, err)
	require.Equal(t, "WEBVTT", cfg.Format)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("CCEXTRACT_FORMAT", "scc")
	t.Setenv("CCEXTRACT_NO_MERGE", "true")
	t.Setenv("CCEXTRACT_JOBS", "4")

	cfg, err := load("in.ts")
	require.NoError(t, err)
	require.Equal(t, "SCC", cfg.Format)
	require.True(t, cfg.NoMerge)
	require.Equal(t, 4, cfg.Jobs)
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	t.Setenv("CCEXTRACT_FORMAT", "vtt")

	cfg, err := load("--format", "srt", "in.ts")
	require.NoError(t, err)
	require.Equal(t, "SRT", cfg.Format)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ccextract.yaml")
	require.NoError(t, os.WriteFile(path, []byte("format: vtt\nchannel: 2\nmerge-gap: 500ms\n"), 0o644))

	cfg, err := load("--config", path, "in.ts")
	require.NoError(t, err)
	require.Equal(t, "VTT", cfg.Format)
	require.Equal(t, 2, cfg.Channel)
	require.Equal(t, 500*time.Millisecond, cfg.MergeGap)
	require.Equal(t, path, cfg.ConfigFile)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := map[string][]string{
		"bad format":   {"-f", "ass", "in.ts"},
		"bad channel":  {"--channel", "5", "in.ts"},
		"bad reorder":  {"--reorder=-1", "in.ts"},
		"zero jobs":    {"--jobs", "0", "in.ts"},
		"bad srt addr": {"--srt", "nohostport"},
		"unknown flag": {"--bogus", "in.ts"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			cfg, err := load(args...)
			require.Error(t, err)
			require.Nil(t, cfg)
		})
	}
}

func TestLoad_NoInput(t *testing.T) {
	_, err := load()
	require.ErrorIs(t, err, ErrNoInput)

	cfg, err := load("--srt", "127.0.0.1:9000")
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.SRT)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := load("--config", filepath.Join(t.TempDir(), "missing.yaml"), "in.ts")
	require.Error(t, err)
}
