// Package config holds the compiler driver settings: defaults, an optional
// YAML file and command-line flags, in increasing precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/raymyers/dryfart/pkg/logger"
	"github.com/raymyers/dryfart/pkg/optimize"
)

// ErrInvalid is returned for settings that fail validation.
var ErrInvalid = errors.New("invalid config")

// Options configures a compiler run
type Options struct {
	Optimize  bool   `yaml:"optimize"`   // run the optimizer before emitting
	Passes    int    `yaml:"passes"`     // optimizer pass limit
	Threading bool   `yaml:"threading"`  // thread jumps through empty blocks
	LogLevel  string `yaml:"log_level"`  // debug, info, warn or error
	LogFormat string `yaml:"log_format"` // text or json
}

// Default returns the built-in settings.
func Default() Options {
	return Options{
		Passes:    optimize.DefaultPasses,
		Threading: true,
		LogLevel:  "warn",
		LogFormat: "text",
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, err
	}
	opts, err := Parse(data)
	if err != nil {
		return Options{}, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

// Parse decodes YAML over the defaults. Unknown keys are rejected.
func Parse(data []byte) (Options, error) {
	opts := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return opts, opts.Validate()
}

// Validate checks the settings.
func (o Options) Validate() error {
	if o.Passes < 0 {
		return fmt.Errorf("%w: passes %d", ErrInvalid, o.Passes)
	}
	if _, err := logger.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch o.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, o.LogFormat)
	}
	return nil
}

// negated is a boolean flag that clears its target when given.
type negated struct{ target *bool }

func (n negated) String() string {
	if n.target == nil {
		return "false"
	}
	return fmt.Sprint(!*n.target)
}

func (n negated) Set(s string) error {
	switch s {
	case "true":
		*n.target = false
	case "false":
		*n.target = true
	default:
		return fmt.Errorf("invalid boolean %q", s)
	}
	return nil
}

func (negated) Type() string { return "bool" }

// BindFlags registers the settings on fs, writing into o.
func BindFlags(fs *pflag.FlagSet, o *Options) {
	fs.IntVar(&o.Passes, "passes", o.Passes, "Maximum optimizer passes")
	fs.VarPF(negated{&o.Threading}, "no-thread", "", "Disable jump threading").NoOptDefVal = "true"
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&o.LogFormat, "log-format", o.LogFormat, "Log format (text, json)")
}

// Merge returns base with every setting that was given on fs taken from
// flags instead.
func Merge(base, flags Options, fs *pflag.FlagSet) Options {
	if fs.Changed("passes") {
		base.Passes = flags.Passes
	}
	if fs.Changed("no-thread") {
		base.Threading = flags.Threading
	}
	if fs.Changed("log-level") {
		base.LogLevel = flags.LogLevel
	}
	if fs.Changed("log-format") {
		base.LogFormat = flags.LogFormat
	}
	return base
}

// OptimizeOptions returns the optimizer settings.
func (o Options) OptimizeOptions() optimize.Options {
	return optimize.Options{Passes: o.Passes, Threading: o.Threading}
}

// LoggerConfig returns the logger settings, writing to w.
func (o Options) LoggerConfig(w io.Writer) (logger.Config, error) {
	level, err := logger.ParseLevel(o.LogLevel)
	if err != nil {
		return logger.Config{}, err
	}
	return logger.Config{Level: level, Format: o.LogFormat, Output: w}, nil
}
