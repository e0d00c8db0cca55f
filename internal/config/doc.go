// Package config loads termpane settings from a TOML file.
//
// A missing file yields the defaults. Values present in the file override
// the defaults field by field, and unknown keys are rejected so typos are
// reported instead of silently ignored:
//
//	[log]
//	level = "debug"
//
//	[process]
//	command = "/bin/bash"
//	args = ["-i"]
//	mode = "pty"
//	charset = "utf-8"
//	grace_period = "2s"
//
//	[colors]
//	foreground = "#d0d0d0"
//	background = "default"
//	palette = ["#000000", "#cd3131", "#0dbc79", "#e5e510",
//	           "#2472c8", "#bc3fbc", "#11a8cd", "#e5e5e5"]
//
//	[input]
//	completion_key = "Tab"
//
//	[parser]
//	script = "~/.config/termpane/highlight.lua"
//	function = "parse_line"
//	timeout = "100ms"
//
// Watch reloads the file when it changes on disk.
package config
