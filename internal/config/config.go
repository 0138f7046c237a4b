// Package config loads ccextract options from flags, CCEXTRACT_*
// environment variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. CCEXTRACT_FORMAT.
const EnvPrefix = "CCEXTRACT"

// ErrNoInput means neither an input file nor an SRT source was given.
var ErrNoInput = errors.New("no input given")

type Config struct {
	Output     string        `mapstructure:"output"`
	Format     string        `mapstructure:"format" validate:"oneof=SRT VTT WEBVTT SCC"`
	NoMerge    bool          `mapstructure:"no-merge"`
	SplitLines bool          `mapstructure:"split-lines"`
	NoProgress bool          `mapstructure:"no-progress"`
	Channel    int           `mapstructure:"channel" validate:"min=0,max=4"`
	Reorder    int           `mapstructure:"reorder" validate:"min=0"`
	MergeGap   time.Duration `mapstructure:"merge-gap" validate:"min=0"`
	Jobs       int           `mapstructure:"jobs" validate:"min=1"`

	// Diagnostics
	Verbose  bool `mapstructure:"verbose"`
	LogVideo bool `mapstructure:"log-video"`
	LogAudio bool `mapstructure:"log-audio"`
	LogText  bool `mapstructure:"log-text"`
	LogCC    bool `mapstructure:"log-cc"`

	// Live capture
	SRT        string        `mapstructure:"srt" validate:"omitempty,hostname_port"`
	StreamID   string        `mapstructure:"streamid"`
	Capture    time.Duration `mapstructure:"capture" validate:"min=0"`
	ConfigFile string        `mapstructure:"config"`

	Inputs []string `mapstructure:"-"`
}

// NewFlagSet declares every option. Defaults live here so that --help
// shows them.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.StringP("output", "o", "", "output file, directory, or - for stdout (default: next to the input)")
	fs.StringP("format", "f", "SRT", "output format: SRT, VTT (or WEBVTT) or SCC")
	fs.Bool("no-merge", false, "do not merge incremental roll-up repaints")
	fs.Bool("split-lines", false, "one cue per caption row")
	fs.Bool("no-progress", false, "do not print progress to stderr")
	fs.Int("channel", 0, "caption channel 1-4 (0 = first with captions)")
	fs.Int("reorder", 5, "timestamp groups held back to undo frame reordering")
	fs.Duration("merge-gap", 250*time.Millisecond, "largest gap bridged when merging cues")
	fs.Int("jobs", 1, "inputs processed concurrently")
	fs.BoolP("verbose", "v", false, "debug logging")
	fs.Bool("log-video", false, "log video PES headers")
	fs.Bool("log-audio", false, "log audio PES headers")
	fs.Bool("log-text", false, "log decoded caption characters")
	fs.Bool("log-cc", false, "log caption control codes and cross-check decoder output")
	fs.String("srt", "", "capture a live stream from an SRT listener at host:port")
	fs.String("streamid", "", "SRT stream ID")
	fs.Duration("capture", 60*time.Second, "how long to capture from --srt")
	fs.String("config", "", "config file (yaml, json or toml)")
	return fs
}

// Load parses args with fs, layers the environment and config file under
// the flags, and validates the result.
func Load(fs *pflag.FlagSet, args []string) (*Config, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Format = strings.ToUpper(cfg.Format)
	cfg.Inputs = fs.Args()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if len(cfg.Inputs) == 0 && cfg.SRT == "" {
		return nil, ErrNoInput
	}
	return &cfg, nil
}
