// Package config loads stepundo settings.
//
// Settings come from three places, later ones overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A TOML or YAML file, chosen by extension
//  3. STEPUNDO_* environment variables
//
// # Basic Usage
//
//	cfg, err := config.Load("stepundo.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	e := engine.New(cfg.EngineOptions(logger)...)
//
// A missing file is not an error; the defaults are used. Watch reloads the
// file whenever it changes.
//
// # File Format
//
//	[history]
//	max_entries = 500
//	coalesce_window = "750ms"
//	word_boundaries = true
//	strict_nesting = false
//
//	[buffer]
//	line_ending = "lf"
//	normalization = "nfc"
//
//	[logging]
//	level = "debug"
//
//	[script]
//	timeout = "5s"
//	call_stack_size = 256
package config

import (
	"errors"
	"time"

	"github.com/dshills/stepundo/internal/engine"
	"github.com/dshills/stepundo/internal/engine/buffer"
	"github.com/dshills/stepundo/internal/engine/history"
	"github.com/dshills/stepundo/internal/engine/jsondoc"
	"github.com/dshills/stepundo/internal/logging"
)

// Config holds all settings.
type Config struct {
	History HistoryConfig `toml:"history" yaml:"history"`
	Buffer  BufferConfig  `toml:"buffer" yaml:"buffer"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
	Script  ScriptConfig  `toml:"script" yaml:"script"`
}

// HistoryConfig configures undo history.
type HistoryConfig struct {
	// MaxEntries limits the undo stack. Zero means unlimited.
	MaxEntries int `toml:"max_entries" yaml:"max_entries"`

	// CoalesceWindow is the longest pause between merged keystrokes.
	CoalesceWindow Duration `toml:"coalesce_window" yaml:"coalesce_window"`

	// WordBoundaries starts a new undo entry when typing resumes after whitespace.
	WordBoundaries bool `toml:"word_boundaries" yaml:"word_boundaries"`

	// StrictNesting rejects nested transactions instead of flattening them.
	StrictNesting bool `toml:"strict_nesting" yaml:"strict_nesting"`
}

// BufferConfig configures text buffers.
type BufferConfig struct {
	// LineEnding is "lf", "crlf" or "cr".
	LineEnding string `toml:"line_ending" yaml:"line_ending"`

	// Normalization is "none", "nfc" or "nfd".
	Normalization string `toml:"normalization" yaml:"normalization"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level" yaml:"level"`
}

// ScriptConfig configures the Lua runtime.
type ScriptConfig struct {
	// Timeout bounds a single script run. Zero means no limit.
	Timeout Duration `toml:"timeout" yaml:"timeout"`

	// CallStackSize is the Lua call stack size.
	CallStackSize int `toml:"call_stack_size" yaml:"call_stack_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		History: HistoryConfig{
			MaxEntries:     engine.DefaultMaxUndoEntries,
			CoalesceWindow: Duration(engine.DefaultCoalesceWindow),
			WordBoundaries: true,
		},
		Buffer: BufferConfig{
			LineEnding:    "lf",
			Normalization: "none",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Script: ScriptConfig{
			Timeout:       Duration(10 * time.Second),
			CallStackSize: 256,
		},
	}
}

// Validate checks every setting and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(path, msg string, value any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value})
	}

	if c.History.MaxEntries < 0 {
		invalid("history.max_entries", "must not be negative", c.History.MaxEntries)
	}
	if c.History.CoalesceWindow < 0 {
		invalid("history.coalesce_window", "must not be negative", c.History.CoalesceWindow)
	}
	if _, ok := parseLineEnding(c.Buffer.LineEnding); !ok {
		invalid("buffer.line_ending", "must be lf, crlf or cr", c.Buffer.LineEnding)
	}
	if _, ok := buffer.ParseNormalization(c.Buffer.Normalization); !ok {
		invalid("buffer.normalization", "must be none, nfc or nfd", c.Buffer.Normalization)
	}
	if _, ok := logging.ParseLogLevel(c.Logging.Level); !ok {
		invalid("logging.level", "must be debug, info, warn or error", c.Logging.Level)
	}
	if c.Script.Timeout < 0 {
		invalid("script.timeout", "must not be negative", c.Script.Timeout)
	}
	if c.Script.CallStackSize < 0 {
		invalid("script.call_stack_size", "must not be negative", c.Script.CallStackSize)
	}

	return errors.Join(errs...)
}

func parseLineEnding(s string) (buffer.LineEnding, bool) {
	switch s {
	case "", "lf":
		return buffer.LineEndingLF, true
	case "crlf":
		return buffer.LineEndingCRLF, true
	case "cr":
		return buffer.LineEndingCR, true
	default:
		return buffer.LineEndingLF, false
	}
}

// LogLevel returns the configured level, falling back to info.
func (c *Config) LogLevel() logging.LogLevel {
	level, ok := logging.ParseLogLevel(c.Logging.Level)
	if !ok {
		return logging.LogLevelInfo
	}
	return level
}

// EngineOptions translates the configuration into engine options.
func (c *Config) EngineOptions(logger *logging.Logger) []engine.Option {
	le, _ := parseLineEnding(c.Buffer.LineEnding)
	norm, _ := buffer.ParseNormalization(c.Buffer.Normalization)

	opts := []engine.Option{
		engine.WithMaxUndoEntries(c.History.MaxEntries),
		engine.WithCoalesceWindow(c.History.CoalesceWindow.Std()),
		engine.WithWordBoundaries(c.History.WordBoundaries),
		engine.WithLineEnding(le),
		engine.WithNormalization(norm),
		engine.WithLogger(logger),
	}
	if c.History.StrictNesting {
		opts = append(opts, engine.WithStrictNesting())
	}
	return opts
}

// HistoryOptions translates the configuration into history manager options
// for documents other than text buffers.
func (c *Config) HistoryOptions(logger *logging.Logger) []history.Option {
	opts := []history.Option{
		history.WithMaxEntries(c.History.MaxEntries),
		history.WithLogger(logger),
	}
	if c.History.StrictNesting {
		opts = append(opts, history.WithStrictNesting())
	}
	return opts
}

// JSONOptions translates the configuration into JSON editor options.
func (c *Config) JSONOptions(logger *logging.Logger) []jsondoc.Option {
	opts := []jsondoc.Option{
		jsondoc.WithMaxEntries(c.History.MaxEntries),
		jsondoc.WithCoalesceWindow(c.History.CoalesceWindow.Std()),
		jsondoc.WithLogger(logger),
	}
	if c.History.StrictNesting {
		opts = append(opts, jsondoc.WithStrictNesting())
	}
	return opts
}
