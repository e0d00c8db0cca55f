package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/google/go-cmp/cmp"

	"github.com/dshills/termpane/internal/console/input"
	"github.com/dshills/termpane/internal/console/style"
	"github.com/dshills/termpane/internal/logging"
	"github.com/dshills/termpane/internal/process"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "termpane.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
[log]
level = "debug"

[process]
command = "/bin/bash"
args = ["-i"]
mode = "pipe"
charset = "latin1"
grace_period = "5s"

[colors]
foreground = "#ff0000"
bold = true

[input]
completion_key = "F2"

[parser]
script = "hl.lua"
timeout = "250ms"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel() != logging.LevelDebug {
		t.Errorf("LogLevel() = %v, want debug", cfg.LogLevel())
	}
	if cfg.Process.Command != "/bin/bash" {
		t.Errorf("Command = %q", cfg.Process.Command)
	}
	if diff := cmp.Diff([]string{"-i"}, cfg.Process.Args); diff != "" {
		t.Errorf("Args mismatch (-want +got):\n%s", diff)
	}
	if cfg.ProcessMode() != process.ModePipe {
		t.Errorf("ProcessMode() = %v, want pipe", cfg.ProcessMode())
	}
	if cfg.GracePeriod() != 5*time.Second {
		t.Errorf("GracePeriod() = %v", cfg.GracePeriod())
	}
	if cfg.ParserTimeout() != 250*time.Millisecond {
		t.Errorf("ParserTimeout() = %v", cfg.ParserTimeout())
	}
	if cfg.CompletionKey() != input.KeyF2 {
		t.Errorf("CompletionKey() = %v, want F2", cfg.CompletionKey())
	}
	if cfg.Parser.Function != "parse_line" {
		t.Errorf("Parser.Function = %q, want default kept", cfg.Parser.Function)
	}

	st, _, err := cfg.Styles()
	if err != nil {
		t.Fatalf("Styles() error = %v", err)
	}
	if st.Foreground != tcell.NewRGBColor(255, 0, 0) {
		t.Errorf("Foreground = %v", st.Foreground)
	}
	if st.Background != tcell.ColorDefault {
		t.Errorf("Background = %v, want default", st.Background)
	}
	if !st.Bold {
		t.Error("Bold = false, want true")
	}
}

func TestLoadPalette(t *testing.T) {
	path := writeFile(t, `
[colors]
foreground = "red"
palette = ["#000000", "#cd3131", "green", "#e5e510", "#2472c8", "#bc3fbc", "#11a8cd", "#e5e5e5"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	st, palette, err := cfg.Styles()
	if err != nil {
		t.Fatalf("Styles() error = %v", err)
	}
	red := tcell.NewRGBColor(0xcd, 0x31, 0x31)
	if palette[1] != red {
		t.Errorf("palette[1] = %v, want %v", palette[1], red)
	}
	if palette[2] != style.DefaultPalette()[2] {
		t.Errorf("palette[2] = %v, want built-in green", palette[2])
	}
	if st.Foreground != red {
		t.Errorf("foreground %v, want palette red %v", st.Foreground, red)
	}
}

func TestLoadParseError(t *testing.T) {
	path := writeFile(t, "[process\ncommand = 1\n")
	_, err := Load(path)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Load() error = %v, want *ParseError", err)
	}
	if pe.Path != path {
		t.Errorf("Path = %q, want %q", pe.Path, path)
	}
	if pe.Line != 1 {
		t.Errorf("Line = %d, want 1", pe.Line)
	}
}

func TestLoadUnknownSetting(t *testing.T) {
	path := writeFile(t, "[process]\ncomand = \"sh\"\n")
	_, err := Load(path)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Load() error = %v, want *ParseError", err)
	}
	if !strings.Contains(pe.Message, "comand") {
		t.Errorf("Message = %q, want it to name the key", pe.Message)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		key    string
	}{
		{"mode", func(c *Config) { c.Process.Mode = "tty" }, "process.mode"},
		{"command", func(c *Config) { c.Process.Command = "" }, "process.command"},
		{"charset", func(c *Config) { c.Process.Charset = "klingon" }, "process.charset"},
		{"grace", func(c *Config) { c.Process.GracePeriod = "soon" }, "process.grace_period"},
		{"negative grace", func(c *Config) { c.Process.GracePeriod = "-1s" }, "process.grace_period"},
		{"timeout", func(c *Config) { c.Parser.Timeout = "1 hour" }, "parser.timeout"},
		{"key", func(c *Config) { c.Input.CompletionKey = "Hyper" }, "input.completion_key"},
		{"foreground", func(c *Config) { c.Colors.Foreground = "#zz0000" }, "colors.foreground"},
		{"background", func(c *Config) { c.Colors.Background = "sparkly" }, "colors.background"},
		{"palette size", func(c *Config) { c.Colors.Palette = []string{"#000000"} }, "colors.palette"},
		{"palette entry", func(c *Config) {
			c.Colors.Palette = []string{"#000000", "default", "#000000", "#000000", "#000000", "#000000", "#000000", "#000000"}
		}, "colors.palette[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate() = %v, want ErrInvalid", err)
			}
			var fe *FieldError
			if !errors.As(err, &fe) {
				t.Fatalf("Validate() = %T, want *FieldError", err)
			}
			if fe.Key != tt.key {
				t.Errorf("Key = %q, want %q", fe.Key, tt.key)
			}
		})
	}
}

func TestLoadInvalidValue(t *testing.T) {
	path := writeFile(t, "[process]\nmode = \"serial\"\n")
	_, err := Load(path)
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("Load() error = %v, want ErrInvalid", err)
	}
}

func TestLoadReader(t *testing.T) {
	cfg, err := LoadReader(strings.NewReader("[input]\ncompletion_key = \"f1\"\n"))
	if err != nil {
		t.Fatalf("LoadReader() error = %v", err)
	}
	if cfg.CompletionKey() != input.KeyF1 {
		t.Errorf("CompletionKey() = %v, want F1", cfg.CompletionKey())
	}
}
