package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dshills/termpane/internal/config"
	"github.com/dshills/termpane/internal/logging"
)

type rootFlags struct {
	configPath string
	logLevel   string
	logFile    string
	mode       string
	charset    string
	script     string
	dir        string
}

func newRootCmd() *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   "termpane [flags] [-- command args...]",
		Short: "Run a program in an embedded console pane",
		Long: `termpane runs a program and renders its output in a console pane with
ANSI colors, line editing and shell completion popups.

Examples:
  termpane                       Start the configured shell
  termpane -- python3 -i         Run an interactive Python
  termpane --mode pipe -- sh -i  Run sh without a pseudo-terminal`,
		Version:           fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", defaultConfigPath(), "path to configuration file")
	flags.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&f.logFile, "log-file", "", "write logs to this file")
	flags.StringVar(&f.mode, "mode", "", "process mode (pipe or pty)")
	flags.StringVar(&f.charset, "charset", "", "character encoding of the program")
	flags.StringVar(&f.script, "lua", "", "Lua line highlighter script")
	flags.StringVarP(&f.dir, "dir", "C", "", "working directory of the program")

	return cmd
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "termpane", "config.toml")
}

// applyFlags overrides file settings with flags the user set.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f rootFlags, args []string) error {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
	if flags.Changed("log-file") {
		cfg.Log.File = f.logFile
	}
	if flags.Changed("mode") {
		cfg.Process.Mode = f.mode
	}
	if flags.Changed("charset") {
		cfg.Process.Charset = f.charset
	}
	if flags.Changed("lua") {
		cfg.Parser.Script = f.script
	}
	if flags.Changed("dir") {
		cfg.Process.Dir = f.dir
	}
	if len(args) > 0 {
		cfg.Process.Command = args[0]
		cfg.Process.Args = args[1:]
	}
	return cfg.Validate()
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// newLogger writes to the configured file. The screen owns the terminal, so
// without a file nothing is logged.
func newLogger(cfg *config.Config) (*log.Logger, io.Closer, error) {
	if cfg.Log.File == "" {
		return logging.Discard(), io.NopCloser(nil), nil
	}
	file, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	lc := logging.DefaultConfig()
	lc.Level = cfg.LogLevel()
	lc.Output = file
	return logging.New(lc), file, nil
}

func run(cmd *cobra.Command, f rootFlags, args []string) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("termpane must be run in a terminal")
	}

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg, f, args); err != nil {
		return err
	}

	logger, logFile, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logFile.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("create screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	screen.EnablePaste()

	a := newApp(cfg, screen, logger)
	defer screen.Fini()
	defer a.close()

	if err := a.start(ctx); err != nil {
		return err
	}
	if f.configPath != "" {
		go a.watchConfig(ctx, f.configPath, flagOverrides(cmd, f, args))
	}

	err = a.run(ctx)
	if errors.Is(err, errQuit) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// flagOverrides reapplies command-line settings to reloaded files.
func flagOverrides(cmd *cobra.Command, f rootFlags, args []string) func(*config.Config) error {
	return func(cfg *config.Config) error {
		return applyFlags(cmd, cfg, f, args)
	}
}
