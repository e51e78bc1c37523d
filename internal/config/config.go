// Package config loads compiler settings from a TOML file and JITCC_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/xyproto/env/v2"

	"jitcc/internal/jit"
	"jitcc/internal/trace"
)

// MaxOptLevel bounds the number of optimization rounds per function.
const MaxOptLevel = 3

// Config mirrors jitcc.toml.
type Config struct {
	OptLevel    int   `toml:"opt_level"`
	Verify      bool  `toml:"verify"`
	StackSize   int   `toml:"stack_size"`
	HeapSize    int   `toml:"heap_size"`
	RegionChunk int   `toml:"region_chunk"`
	RegionLimit int64 `toml:"region_limit"`
	Trace       Trace `toml:"trace"`
}

// Trace is the [trace] table.
type Trace struct {
	Level  string `toml:"level"`
	Mode   string `toml:"mode"`
	Output string `toml:"output"`
	Format string `toml:"format"`
}

// Default returns the settings used when nothing is configured. Zero sizes
// select the engine and region defaults.
func Default() Config {
	return Config{
		OptLevel: 1,
		Verify:   true,
		Trace:    Trace{Level: "off", Mode: "stream", Format: "auto"},
	}
}

// Load reads path over the defaults and then applies the environment.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := checkKeys(meta); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML source over the defaults. The environment is not
// consulted.
func Parse(src string) (Config, error) {
	cfg := Default()
	meta, err := toml.Decode(src, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := checkKeys(meta); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv returns the defaults with the environment applied.
func FromEnv() (Config, error) {
	cfg := Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func checkKeys(meta toml.MetaData) error {
	undecoded := meta.Undecoded()
	if len(undecoded) == 0 {
		return nil
	}
	keys := make([]string, 0, len(undecoded))
	for _, k := range undecoded {
		keys = append(keys, k.String())
	}
	return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
}

// ApplyEnv overrides fields from JITCC_* variables that are set.
func (c *Config) ApplyEnv() {
	c.OptLevel = env.Int("JITCC_OPT_LEVEL", c.OptLevel)
	if env.Has("JITCC_VERIFY") {
		c.Verify = env.Bool("JITCC_VERIFY")
	}
	c.StackSize = env.Int("JITCC_STACK_SIZE", c.StackSize)
	c.HeapSize = env.Int("JITCC_HEAP_SIZE", c.HeapSize)
	c.RegionChunk = env.Int("JITCC_REGION_CHUNK", c.RegionChunk)
	c.RegionLimit = env.Int64("JITCC_REGION_LIMIT", c.RegionLimit)
	c.Trace.Level = env.Str("JITCC_TRACE_LEVEL", c.Trace.Level)
	c.Trace.Mode = env.Str("JITCC_TRACE_MODE", c.Trace.Mode)
	c.Trace.Output = env.Str("JITCC_TRACE_OUTPUT", c.Trace.Output)
	c.Trace.Format = env.Str("JITCC_TRACE_FORMAT", c.Trace.Format)
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []error
	if c.OptLevel < 0 || c.OptLevel > MaxOptLevel {
		errs = append(errs, fmt.Errorf("opt_level %d out of range 0..%d", c.OptLevel, MaxOptLevel))
	}
	if c.StackSize < 0 {
		errs = append(errs, fmt.Errorf("stack_size must not be negative"))
	}
	if c.HeapSize < 0 {
		errs = append(errs, fmt.Errorf("heap_size must not be negative"))
	}
	if c.RegionChunk < 0 {
		errs = append(errs, fmt.Errorf("region_chunk must not be negative"))
	}
	if c.RegionLimit < 0 {
		errs = append(errs, fmt.Errorf("region_limit must not be negative"))
	}
	if _, err := c.TraceConfig(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TraceConfig converts the [trace] table.
func (c Config) TraceConfig() (trace.Config, error) {
	level, err := trace.ParseLevel(c.Trace.Level)
	if err != nil {
		return trace.Config{}, err
	}
	mode, err := trace.ParseMode(c.Trace.Mode)
	if err != nil {
		return trace.Config{}, err
	}
	format, err := trace.ParseFormat(c.Trace.Format)
	if err != nil {
		return trace.Config{}, err
	}
	return trace.Config{Level: level, Mode: mode, Format: format, OutputPath: c.Trace.Output}, nil
}

// Options converts the settings for jit.New.
func (c Config) Options(tracer trace.Tracer) jit.Options {
	return jit.Options{
		OptLevel:    c.OptLevel,
		Verify:      c.Verify,
		StackSize:   c.StackSize,
		HeapSize:    c.HeapSize,
		RegionChunk: c.RegionChunk,
		RegionLimit: c.RegionLimit,
		Tracer:      tracer,
	}
}
