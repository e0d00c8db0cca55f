package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/termpane/internal/console/input"
	"github.com/dshills/termpane/internal/console/style"
	"github.com/dshills/termpane/internal/logging"
	"github.com/dshills/termpane/internal/process"
)

// Config holds every termpane setting.
type Config struct {
	Log     LogConfig     `toml:"log"`
	Process ProcessConfig `toml:"process"`
	Colors  ColorConfig   `toml:"colors"`
	Input   InputConfig   `toml:"input"`
	Parser  ParserConfig  `toml:"parser"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level"`
	// File receives the log. Empty means stderr.
	File string `toml:"file"`
}

// ProcessConfig describes the program run in the console.
type ProcessConfig struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
	Dir     string   `toml:"dir"`
	Env     []string `toml:"env"`

	// Mode is "pipe" or "pty".
	Mode    string `toml:"mode"`
	Charset string `toml:"charset"`

	// GracePeriod is how long a closing program gets before it is killed.
	GracePeriod string `toml:"grace_period"`
}

// ColorConfig sets the default colors and the eight-color ANSI palette.
// Colors are "#rrggbb", a palette or W3C color name, or "default".
type ColorConfig struct {
	Foreground string   `toml:"foreground"`
	Background string   `toml:"background"`
	Bold       bool     `toml:"bold"`
	Palette    []string `toml:"palette"`
}

// InputConfig configures keyboard handling.
type InputConfig struct {
	CompletionKey string `toml:"completion_key"`
}

// ParserConfig selects an optional Lua line highlighter.
type ParserConfig struct {
	Script   string `toml:"script"`
	Function string `toml:"function"`
	Timeout  string `toml:"timeout"`
}

// Default returns the built-in settings.
func Default() *Config {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return &Config{
		Log: LogConfig{Level: "info"},
		Process: ProcessConfig{
			Command:     shell,
			Mode:        "pty",
			Charset:     "utf-8",
			GracePeriod: "2s",
		},
		Colors: ColorConfig{
			Foreground: "default",
			Background: "default",
		},
		Input: InputConfig{CompletionKey: "Tab"},
		Parser: ParserConfig{
			Function: "parse_line",
			Timeout:  "100ms",
		},
	}
}

// Load reads the TOML file at path over the defaults and validates the
// result. A missing file is not an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return parse(path, bytes.NewReader(data))
}

// LoadReader is Load for an already opened source.
func LoadReader(r io.Reader) (*Config, error) {
	return parse("<reader>", r)
}

func parse(source string, r io.Reader) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, newParseError(source, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return cfg, nil
}

func newParseError(source string, err error) *ParseError {
	pe := &ParseError{Path: source, Message: err.Error(), Err: err}

	var decErr *toml.DecodeError
	var strictErr *toml.StrictMissingError
	switch {
	case errors.As(err, &decErr):
		pe.Line, pe.Column = decErr.Position()
	case errors.As(err, &strictErr):
		if len(strictErr.Errors) > 0 {
			first := strictErr.Errors[0]
			pe.Line, pe.Column = first.Position()
			pe.Message = fmt.Sprintf("unknown setting %v", first.Key())
		}
	}
	return pe
}

// Validate checks every setting and returns the first problem found.
func (c *Config) Validate() error {
	if _, err := process.ParseMode(c.Process.Mode); err != nil {
		return &FieldError{Key: "process.mode", Value: c.Process.Mode, Message: "must be pipe or pty"}
	}
	if c.Process.Command == "" {
		return &FieldError{Key: "process.command", Value: c.Process.Command, Message: "must not be empty"}
	}
	if err := process.CheckCharset(c.Process.Charset); err != nil {
		return &FieldError{Key: "process.charset", Value: c.Process.Charset, Message: "unknown charset"}
	}
	if _, err := parseDuration(c.Process.GracePeriod); err != nil {
		return &FieldError{Key: "process.grace_period", Value: c.Process.GracePeriod, Message: err.Error()}
	}
	if _, err := parseDuration(c.Parser.Timeout); err != nil {
		return &FieldError{Key: "parser.timeout", Value: c.Parser.Timeout, Message: err.Error()}
	}
	if _, err := input.ParseKey(c.Input.CompletionKey); err != nil {
		return &FieldError{Key: "input.completion_key", Value: c.Input.CompletionKey, Message: "unknown key"}
	}
	if _, _, err := c.Styles(); err != nil {
		return err
	}
	return nil
}

// Styles returns the default text style and the ANSI palette.
func (c *Config) Styles() (style.Style, style.Palette, error) {
	palette, err := c.Palette()
	if err != nil {
		return style.Style{}, palette, err
	}
	fg, err := style.ParseColor(c.Colors.Foreground, palette)
	if err != nil {
		return style.Style{}, palette, &FieldError{Key: "colors.foreground", Value: c.Colors.Foreground, Message: err.Error()}
	}
	bg, err := style.ParseColor(c.Colors.Background, palette)
	if err != nil {
		return style.Style{}, palette, &FieldError{Key: "colors.background", Value: c.Colors.Background, Message: err.Error()}
	}
	st := style.Default().WithForeground(fg).WithBackground(bg).WithBold(c.Colors.Bold)
	return st, palette, nil
}

// Palette returns the configured palette, or the default one when none is
// set.
func (c *Config) Palette() (style.Palette, error) {
	palette := style.DefaultPalette()
	if len(c.Colors.Palette) == 0 {
		return palette, nil
	}
	if len(c.Colors.Palette) != len(palette) {
		return palette, &FieldError{Key: "colors.palette", Value: len(c.Colors.Palette), Message: "must list 8 colors"}
	}
	for i, s := range c.Colors.Palette {
		// Palette names inside the palette mean the built-in colors.
		col, err := style.ParseColor(s, style.DefaultPalette())
		if err != nil || col == tcell.ColorDefault {
			return style.DefaultPalette(), &FieldError{
				Key:     fmt.Sprintf("colors.palette[%d]", i),
				Value:   s,
				Message: "must be a concrete color",
			}
		}
		palette[i] = col
	}
	return palette, nil
}

// ProcessMode returns the parsed process mode.
func (c *Config) ProcessMode() process.Mode {
	m, _ := process.ParseMode(c.Process.Mode)
	return m
}

// GracePeriod returns the parsed process grace period.
func (c *Config) GracePeriod() time.Duration {
	d, _ := parseDuration(c.Process.GracePeriod)
	return d
}

// ParserTimeout returns the parsed Lua call timeout.
func (c *Config) ParserTimeout() time.Duration {
	d, _ := parseDuration(c.Parser.Timeout)
	return d
}

// CompletionKey returns the parsed completion key, Tab when invalid.
func (c *Config) CompletionKey() input.Key {
	k, err := input.ParseKey(c.Input.CompletionKey)
	if err != nil {
		return input.KeyTab
	}
	return k
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() logging.Level {
	return logging.ParseLevel(c.Log.Level)
}

// parseDuration accepts time.ParseDuration syntax. Empty means zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, errors.New("must not be negative")
	}
	return d, nil
}
