// Command termpane runs a program inside a console pane drawn with tcell.
//
// Usage:
//
//	termpane [flags] [-- command args...]
//
// Without a command the configured shell is started. Tab asks the program
// for completions; Ctrl+Q quits.
package main

import (
	"fmt"
	"os"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
